// Package encoding decodes the text encodings found in geological exchange
// files: UTF-16 with BOM (BIF2 exports), UTF-8 and legacy Windows-1252.
package encoding

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText converts file content to a UTF-8 string.
// UTF-16 is detected by its byte order mark. Other input is taken as UTF-8,
// falling back to Windows-1252 when it is not valid UTF-8.
// Returns the raw bytes as a string if conversion fails.
func DecodeText(data []byte) string {
	switch {
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		// ExpectBOM picks the byte order from the mark and strips it.
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		result, _, err := transform.Bytes(dec, data)
		if err != nil {
			return string(data)
		}
		return string(result)

	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):])

	case utf8.Valid(data):
		return string(data)
	}

	result, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// ParseDecimal parses a float that may use a decimal comma ("12,5").
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

// BaseName returns the file name of a path without directory or extension.
// Both slash styles are accepted because exports often come from Windows.
func BaseName(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.LastIndexByte(path, '.'); i > 0 {
		path = path[:i]
	}
	return path
}
