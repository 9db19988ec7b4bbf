package field

import (
	"strings"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	tests := []struct {
		name string
		fam  Family
	}{
		{"language", String},
		{"priority", Numeric},
		{"a", Bool},
		{strings.Repeat("x", 64), Numeric},
		{"with_underscore", String},
	}

	for _, tt := range tests {
		f, err := New(tt.name, tt.fam)
		if err != nil {
			t.Errorf("New(%q, %q) unexpected error: %v", tt.name, tt.fam, err)
			continue
		}
		if f.Name() != tt.name {
			t.Errorf("Name() = %q, want %q", f.Name(), tt.name)
		}
		if f.Family() != tt.fam {
			t.Errorf("Family() = %q, want %q", f.Family(), tt.fam)
		}
	}
}

func TestNew_InvalidNames(t *testing.T) {
	tests := []struct {
		name    string
		wantErr string
	}{
		{"", "required"},
		{strings.Repeat("x", 65), "too long"},
		{"__id", "reserved"},
		{"has space", "identifier"},
		{"1leading", "identifier"},
		{"quote'd", "identifier"},
	}
	for _, tt := range tests {
		_, err := New(tt.name, String)
		if err == nil {
			t.Errorf("New(%q) expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("New(%q) error = %q, want %q", tt.name, err, tt.wantErr)
		}
	}
}

func TestNew_InvalidFamily(t *testing.T) {
	_, err := New("valid_name", "date")
	if err == nil {
		t.Fatal("expected error for invalid family")
	}
	if !strings.Contains(err.Error(), "invalid field family") {
		t.Errorf("error = %q", err)
	}
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		v    any
		want Family
		ok   bool
	}{
		{"x", String, true},
		{true, Bool, true},
		{3, Numeric, true},
		{int64(3), Numeric, true},
		{2.5, Numeric, true},
		{float32(1), Numeric, true},
		{[]string{"a"}, "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := FamilyOf(tt.v)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FamilyOf(%#v) = %q, %v; want %q, %v", tt.v, got, ok, tt.want, tt.ok)
		}
	}
}

func TestReconstruct(t *testing.T) {
	f := Reconstruct("any name", Bool)
	if f.Name() != "any name" || f.Family() != Bool {
		t.Errorf("got %q/%q", f.Name(), f.Family())
	}
}
