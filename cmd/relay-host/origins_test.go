package main

import "testing"

func TestIsValidOrigin(t *testing.T) {
	var tests = []struct {
		origin string
		want   bool
	}{
		{"chrome-extension://knldjmfmopnpolahpmmgbagdohdnhkik/", true},
		{"chrome-extension://knldjmfmopnpolahpmmgbagdohdnhkik", false},
		{"chrome-extension://aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa/", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidOrigin(tt.origin); got != tt.want {
			t.Errorf("IsValidOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestAllowedOrigins(t *testing.T) {
	got := allowedOrigins("# comment\n  a://x/  \n\nb://y/\r\n")
	if len(got) != 2 {
		t.Fatalf("got %d origins, want 2: %v", len(got), got)
	}
	for _, o := range []string{"a://x/", "b://y/"} {
		if _, ok := got[o]; !ok {
			t.Errorf("missing %q", o)
		}
	}
}
