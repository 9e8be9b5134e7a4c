package tagcsv

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeHeader_AutoRepair(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []string
	}{
		{"duplicates suffixed", []string{"Title", "Title", "Artist"}, []string{"Title", "Title_1", "Artist"}},
		{"empty gets placeholder", []string{"Title", "", "Artist"}, []string{"Title", "Column_1", "Artist"}},
		{"triple duplicate", []string{"A", "A", "A", "B"}, []string{"A", "A_1", "A_2", "B"}},
		{"suffix never collides", []string{"Title", "Title", "Title_1"}, []string{"Title", "Title_1", "Title_1_1"}},
		{"trimmed and marker stripped", []string{"\ufeff Title ", " Artist"}, []string{"Title", "Artist"}},
		{"trailing delimiter", []string{"Title", "Artist", ""}, []string{"Title", "Artist", "Column_2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeHeader(tt.raw, AutoRepairHeaders)
			if err != nil {
				t.Fatalf("NormalizeHeader() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeHeader() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeHeader_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		mode HeaderMode
	}{
		{"only blanks", []string{"  ", "", " "}, AutoRepairHeaders},
		{"single column", []string{"Title"}, AutoRepairHeaders},
		{"one distinct name", []string{"Title", "Title"}, AutoRepairHeaders},
		{"strict empty", []string{"Title", "", "Artist"}, StrictHeaders},
		{"strict duplicate", []string{"Title", "Title", "Artist"}, StrictHeaders},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeHeader(tt.raw, tt.mode)
			if !errors.Is(err, ErrInvalidHeader) {
				t.Errorf("NormalizeHeader() error = %v, want ErrInvalidHeader", err)
			}
		})
	}
}

func TestNormalizeHeader_StrictAcceptsCleanHeader(t *testing.T) {
	got, err := NormalizeHeader([]string{" Title", "Artist "}, StrictHeaders)
	if err != nil {
		t.Fatalf("NormalizeHeader() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Title", "Artist"}) {
		t.Errorf("NormalizeHeader() = %q", got)
	}
}

func TestParseHeaderMode(t *testing.T) {
	tests := []struct {
		in   string
		want HeaderMode
	}{
		{"", AutoRepairHeaders},
		{"auto-repair-headers", AutoRepairHeaders},
		{"STRICT-HEADERS", StrictHeaders},
		{"strict", StrictHeaders},
	}
	for _, tt := range tests {
		got, err := ParseHeaderMode(tt.in)
		if err != nil {
			t.Fatalf("ParseHeaderMode(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseHeaderMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseHeaderMode("loose"); err == nil {
		t.Error("ParseHeaderMode(\"loose\") expected error")
	}
}
