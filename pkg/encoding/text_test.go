package encoding

import (
	"testing"
)

func utf16le(s string) []byte {
	out := []byte{0xFF, 0xFE}
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}

func utf16be(s string) []byte {
	out := []byte{0xFE, 0xFF}
	for _, r := range s {
		out = append(out, byte(r>>8), byte(r))
	}
	return out
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"utf16le", utf16le("Bl.BLIDM: 7\r\nHöhe"), "Bl.BLIDM: 7\r\nHöhe"},
		{"utf16be", utf16be("Mächtigkeit"), "Mächtigkeit"},
		{"utf8", []byte("Gestein: Tonstein"), "Gestein: Tonstein"},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "GOCAD"...), "GOCAD"},
		{"windows1252", []byte{'H', 0xF6, 'h', 'e'}, "Höhe"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeText(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12.5", 12.5},
		{"12,5", 12.5},
		{" -3,25 ", -3.25},
		{"1e3", 1000},
		{"42", 42},
	}
	for _, tt := range tests {
		got, err := ParseDecimal(tt.in)
		if err != nil {
			t.Errorf("ParseDecimal(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDecimal(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}

	for _, bad := range []string{"", "1,000.5", "abc", "1,2,3"} {
		if _, err := ParseDecimal(bad); err == nil {
			t.Errorf("ParseDecimal(%q): expected error", bad)
		}
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"data/horizon_top.ts", "horizon_top"},
		{`C:\exports\Basis Quartaer.ts`, "Basis Quartaer"},
		{"plain", "plain"},
		{".hidden", ".hidden"},
		{"/a/b.c/file.tar.gz", "file.tar"},
	}
	for _, tt := range tests {
		if got := BaseName(tt.in); got != tt.want {
			t.Errorf("BaseName(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
