package address

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAccepts(t *testing.T) {
	valid := []string{
		"a@b.com",
		"a.b+c@sub.example.co",
		"user_name@example.org",
		"o'brien@example.ie",
		"x=y@example.com",
		"postmaster@[192.0.2.1]",
	}

	for _, addr := range valid {
		if _, err := Validate(addr); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", addr, err)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	invalid := []string{
		"",
		"a@",
		"@b.com",
		"a b@c.com",
		"noat",
		"a..b@c.com",
		".a@c.com",
		"a.@c.com",
		"a@b..com",
		"a@-b.com",
		"a@[192.0.2.x]",
		strings.Repeat("x", 65) + "@example.com",
	}

	for _, addr := range invalid {
		_, err := Validate(addr)
		if err == nil {
			t.Errorf("Validate(%q) = nil, want error", addr)
			continue
		}

		var ie *InvalidEmailError
		if !errors.As(err, &ie) {
			t.Errorf("Validate(%q) returned %T, want *InvalidEmailError", addr, err)
		}
	}
}

func TestValidateNormalizesDomain(t *testing.T) {
	got, err := Validate("Alice@EXAMPLE.Com")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got != "Alice@example.com" {
		t.Errorf("normalized = %q, want %q", got, "Alice@example.com")
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid("a@b.com") {
		t.Error("IsValid(a@b.com) = false, want true")
	}
	if IsValid("a@") {
		t.Error("IsValid(a@) = true, want false")
	}
}
