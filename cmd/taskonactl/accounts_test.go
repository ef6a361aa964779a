package main

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{"", "ada@example.com", "first.last+tag@mail.example.ng"}
	for _, email := range valid {
		if err := validateEmail(email); err != nil {
			t.Errorf("validateEmail(%q) unexpected error: %v", email, err)
		}
	}
	invalid := []string{"ada", "ada@", "@example.com", "ada@example"}
	for _, email := range invalid {
		if err := validateEmail(email); err == nil {
			t.Errorf("validateEmail(%q) expected error", email)
		}
	}
}
