package model

import (
	"errors"
	"testing"
)

func TestFormatID(t *testing.T) {
	tests := []struct {
		prefix string
		n      int64
		want   string
	}{
		{PrefixLost, 1, "L0001"},
		{PrefixFound, 42, "F0042"},
		{PrefixMatch, 9999, "M9999"},
		{PrefixLost, 12345, "L12345"},
	}
	for _, tt := range tests {
		if got := FormatID(tt.prefix, tt.n); got != tt.want {
			t.Errorf("FormatID(%q, %d) = %q, want %q", tt.prefix, tt.n, got, tt.want)
		}
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		prefix  string
		id      string
		want    int64
		wantErr bool
	}{
		{PrefixLost, "L0001", 1, false},
		{PrefixLost, "L12345", 12345, false},
		{PrefixFound, "F0100", 100, false},
		{PrefixLost, "F0001", 0, true},
		{PrefixLost, "L001", 0, true},
		{PrefixLost, "L00a1", 0, true},
		{PrefixLost, "L0000", 0, true},
		{PrefixMatch, "", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseID(tt.prefix, tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseID(%q, %q) error = %v, wantErr %v", tt.prefix, tt.id, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrValidation) {
			t.Errorf("ParseID(%q, %q) error = %v, want ErrValidation", tt.prefix, tt.id, err)
		}
		if got != tt.want {
			t.Errorf("ParseID(%q, %q) = %d, want %d", tt.prefix, tt.id, got, tt.want)
		}
	}
}
