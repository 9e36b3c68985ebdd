package urn

import "testing"

func TestParse(t *testing.T) {
	u, err := Parse("sr:match:1234")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if u.Prefix != "sr" {
		t.Errorf("Prefix = %q, want %q", u.Prefix, "sr")
	}
	if u.Type != "match" {
		t.Errorf("Type = %q, want %q", u.Type, "match")
	}
	if u.ID != 1234 {
		t.Errorf("ID = %d, want 1234", u.ID)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{
		"",
		"sr:match",
		"sr:match:12:34",
		"sr::1234",
		":match:1234",
		"sr:match:abc",
	}

	for _, s := range cases {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", s)
		}
	}
}

func TestString_RoundTrip(t *testing.T) {
	u := MustParse("sr:sport:40")
	if got := u.String(); got != "sr:sport:40" {
		t.Errorf("String() = %q, want %q", got, "sr:sport:40")
	}
}

func TestString_Zero(t *testing.T) {
	if got := Zero.String(); got != "" {
		t.Errorf("Zero.String() = %q, want empty", got)
	}
}

func TestIsType(t *testing.T) {
	u := MustParse("sr:competitor:77")
	if !u.IsType("competitor") {
		t.Error("IsType(competitor) = false, want true")
	}
	if u.IsType("match") {
		t.Error("IsType(match) = true, want false")
	}
}
