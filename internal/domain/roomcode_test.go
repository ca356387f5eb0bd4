package domain

import (
	"math/rand"
	"testing"
)

func TestIsValidRoomCode(t *testing.T) {
	cases := []struct {
		code  string
		valid bool
	}{
		{"123456", true},
		{"000000", true},
		{"999999", true},
		{"", false},
		{"12345", false},
		{"1234567", false},
		{"12345a", false},
		{"abcdef", false},
		{"12 456", false},
		{"123456\n", false},
		{"١٢٣٤٥٦", false},
	}
	for _, tc := range cases {
		if got := IsValidRoomCode(tc.code); got != tc.valid {
			t.Errorf("IsValidRoomCode(%q) = %v, want %v", tc.code, got, tc.valid)
		}
	}
}

func TestGenerateRoomCodeRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		code := GenerateRoomCode(rng)
		if !IsValidRoomCode(code) {
			t.Fatalf("generated code %q is not valid", code)
		}
		if code[0] == '0' {
			t.Fatalf("generated code %q below 100000", code)
		}
	}
}
