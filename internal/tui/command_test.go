package tui

import (
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		name string
		args string
	}{
		{"open ana souza", "open", "ana souza"},
		{":q", "quit", ""},
		{"  AUDIO   /tmp/a b.mp3 ", "audio", "/tmp/a b.mp3"},
		{"r", "refresh", ""},
	}
	for _, tt := range tests {
		got := ParseCommand(tt.in)
		if got.Name != tt.name || got.Args != tt.args {
			t.Errorf("ParseCommand(%q) = %+v", tt.in, got)
		}
	}
}

func TestCommandValidate(t *testing.T) {
	ok := []string{"quit", "logout", "open bob", "video ~/clip.mp4"}
	for _, in := range ok {
		if err := ParseCommand(in).Validate(); err != nil {
			t.Errorf("%q: %v", in, err)
		}
	}
	bad := []string{"", "open", "audio", "dance"}
	for _, in := range bad {
		if err := ParseCommand(in).Validate(); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func TestComplete(t *testing.T) {
	names := func(q string) []string {
		if strings.HasPrefix("maria", strings.ToLower(q)) {
			return []string{"Maria", "Mariana Costa"}
		}
		return nil
	}
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"re", []string{"refresh"}},
		{":o", []string{"open"}},
		{"open", nil},
		{"open mar", []string{"open Maria", "open Mariana Costa"}},
		{"o mar", []string{"open Maria", "open Mariana Costa"}},
		{"audio mar", nil},
		{"open ", nil},
	}
	for _, tt := range tests {
		got := Complete(tt.in, names)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("Complete(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
