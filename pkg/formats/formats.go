// Package formats provides readers for geological exchange formats:
// GoCAD TSurf, legacy VTK, Dude TIN and BIF2 borehole logs.
package formats

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Faultbox/geovox/pkg/encoding"
	"github.com/Faultbox/geovox/pkg/mesh"
)

// Format errors.
var (
	ErrFormat            = errors.New("malformed input")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// FormatError reports a malformed input at a given line.
type FormatError struct {
	Path   string
	Line   int // 1-based, 0 when not tied to a line
	Reason string
}

func (e *FormatError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", loc, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", loc, e.Reason)
}

// Is makes errors.Is(err, ErrFormat) match.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func formatErr(line int, reason string, args ...any) error {
	return &FormatError{Line: line, Reason: fmt.Sprintf(reason, args...)}
}

// withPath stamps path onto a *FormatError produced by a parser.
func withPath(err error, path string) error {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Path == "" {
		fe.Path = path
	}
	return err
}

// lines iterates the non-blank lines of decoded text, tracking line numbers.
type lines struct {
	sc   *bufio.Scanner
	num  int
	text string
	size int // decoded length in bytes
}

func newLines(data []byte) *lines {
	text := encoding.DecodeText(data)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &lines{sc: sc, size: len(text)}
}

// maxValues is an upper bound on the number of whitespace-separated
// values the input can hold. Header counts above it are malformed.
func (l *lines) maxValues() int {
	return (l.size + 1) / 2
}

// next advances to the next non-blank line.
func (l *lines) next() bool {
	for l.sc.Scan() {
		l.num++
		l.text = strings.TrimSpace(l.sc.Text())
		if l.text != "" {
			return true
		}
	}
	return false
}

func (l *lines) err() error {
	if err := l.sc.Err(); err != nil {
		return formatErr(l.num, "reading: %v", err)
	}
	return nil
}

// parseFloats parses every field as a float.
func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := encoding.ParseDecimal(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseInts(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ReadSurface reads a surface mesh, choosing the parser by file extension
// (.ts, .vtk, .tin). Surfaces without an embedded name are named after the
// file.
func ReadSurface(path string) (*mesh.Surface, error) {
	var parse func([]byte) (*mesh.Surface, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".gocad":
		parse = ParseGocad
	case ".vtk":
		parse = ParseVTK
	case ".tin":
		parse = ParseTIN
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	s, err := parse(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	if s.Name == "" {
		s.Name = encoding.BaseName(path)
	}
	return s, nil
}
