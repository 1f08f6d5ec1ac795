package domain

import (
	"regexp"
	"strings"
)

var (
	validUsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,62}[a-zA-Z0-9]$`)
	validEmailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidateUsername checks the username for length and character set.
func ValidateUsername(name string) error {
	if name == "" {
		return &ValidationError{Field: "username", Reason: "cannot be empty"}
	}
	if len(name) > 64 {
		return &ValidationError{Field: "username", Reason: "exceeds 64 characters"}
	}
	if !validUsernameRegex.MatchString(name) {
		return &ValidationError{Field: "username", Reason: "contains invalid characters or format"}
	}
	return nil
}

// ValidateEmail performs a shallow shape check; deliverability is the
// caller's problem.
func ValidateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Reason: "cannot be empty"}
	}
	if len(email) > 254 {
		return &ValidationError{Field: "email", Reason: "exceeds 254 characters"}
	}
	if !validEmailRegex.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	return nil
}

// ValidatePassword enforces the minimum bar for stored credentials.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	if len(password) > 72 {
		// bcrypt ignores input past 72 bytes
		return &ValidationError{Field: "password", Reason: "exceeds 72 characters"}
	}
	return nil
}

// ValidateTodoTitle checks the one required todo field.
func ValidateTodoTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Reason: "cannot be empty"}
	}
	if len(title) > 255 {
		return &ValidationError{Field: "title", Reason: "exceeds 255 characters"}
	}
	return nil
}
