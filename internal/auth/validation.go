package auth

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidateEmail checks the address parses as RFC 5322 and has a domain part.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email address")
	}
	if addr.Address != email {
		return fmt.Errorf("invalid email address")
	}
	if !strings.Contains(email, ".") {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword validates password length limits.
func ValidatePassword(password string, minLength int) error {
	if minLength == 0 {
		minLength = 8
	}

	if len(password) < minLength {
		return fmt.Errorf("password must be at least %d characters long", minLength)
	}

	// Cap length to keep Argon2 input bounded
	if len(password) > 128 {
		return fmt.Errorf("password must be at most 128 characters long")
	}

	return nil
}
