package domain

import (
	"strings"
	"testing"
	"time"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"alice", false},
		{"a1", false},
		{"ab", false},
		{"a" + strings.Repeat("b", 62) + "c", false},
		{"ci.deploy-bot_42", false},
		{"", true},
		{"a", true},
		{"-starts-with-hyphen", true},
		{"ends-with-dot.", true},
		{"has space", true},
		{string(make([]byte, 70)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateUsername(tt.name); (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"alice@example.com", false},
		{"a.b+c@sub.example.org", false},
		{"", true},
		{"no-at-sign", true},
		{"no-tld@example", true},
		{"spaces in@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if err := ValidateEmail(tt.email); (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Error("expected error for short password")
	}
	if err := ValidatePassword(string(make([]byte, 80))); err == nil {
		t.Error("expected error for over-long password")
	}
	if err := ValidatePassword("correct horse battery"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateTodoTitle(t *testing.T) {
	if err := ValidateTodoTitle("   "); err == nil {
		t.Error("expected error for blank title")
	}
	if err := ValidateTodoTitle("buy milk"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidationErrorFieldSurfaces(t *testing.T) {
	err := ValidateUsername("")
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if ve.Field != "username" {
		t.Errorf("unexpected field: %s", ve.Field)
	}
}

func TestWindowStart(t *testing.T) {
	c := WindowCap{Limit: 60, Window: 60 * time.Second}
	at := time.Date(2025, 3, 1, 12, 34, 56, 0, time.UTC)
	want := time.Date(2025, 3, 1, 12, 34, 0, 0, time.UTC)
	if got := c.WindowStart(at); !got.Equal(want) {
		t.Errorf("WindowStart(%v) = %v, want %v", at, got, want)
	}
}

func TestTruncate(t *testing.T) {
	long := make([]byte, BodyCaptureLimit+100)
	if got := Truncate(string(long)); len(got) != BodyCaptureLimit {
		t.Errorf("Truncate length = %d, want %d", len(got), BodyCaptureLimit)
	}
	if got := Truncate("small"); got != "small" {
		t.Errorf("Truncate mangled short input: %q", got)
	}
}
