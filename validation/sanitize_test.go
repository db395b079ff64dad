package validation

import (
	"strings"
	"testing"

	"github.com/MichaelAJay/go-security-policy/errors"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  InputKind
		want  string
	}{
		{"general trims and strips brackets", "  <b>hello</b>  ", InputGeneral, "bhello/b"},
		{"unknown kind falls back to general", " <x> ", InputKind("address"), "x"},
		{"email lowercases and filters", "  John.Doe+tag@Example.COM ", InputEmail, "john.doetag@example.com"},
		{"name keeps letters apostrophes and hyphens", " O'Brien-Smith 3rd ", InputName, "O'Brien-Smith rd"},
		{"name drops accents and digits", "José9", InputName, "Jos"},
		{"phone keeps dialing characters", "+1 (555) 010-9999 ext.5", InputPhone, "+1 (555) 010-9999 5"},
		{"phone is not trimmed", " 555 ", InputPhone, " 555 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeInput(tt.input, tt.kind); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString(" a\x00b\x07c\td\n "); got != "abc\td" {
		t.Errorf("Expected control characters removed, got %q", got)
	}
}

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		code    errors.ErrorCode
	}{
		{"valid", "Mary-Jane O'Neil Jr.", false, ""},
		{"empty", "   ", true, errors.CodeEmptyField},
		{"too short", "A", true, errors.CodeValidationFailed},
		{"too long", "Abcdefghij Abcdefghij Abcdefghij Abcdefghij Abcdefghij", true, errors.CodeValidationFailed},
		{"invalid characters", "R2-D2", true, errors.CodeValidationFailed},
		{"surrounding whitespace ignored", "  Jo" + strings.Repeat(" ", 49), false, ""},
		{"too long after trimming", " " + strings.Repeat("a", 51) + " ", true, errors.CodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDisplayName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if err != nil && errors.GetErrorCode(err) != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, errors.GetErrorCode(err))
			}
		})
	}
}

func TestEmailHelpers(t *testing.T) {
	if got := NormalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Errorf("Expected normalized email, got %q", got)
	}
	if got := EmailLocalPart(" John.Smith@Example.com"); got != "john.smith" {
		t.Errorf("Expected local part john.smith, got %q", got)
	}
	if got := EmailLocalPart("nodomain"); got != "nodomain" {
		t.Errorf("Expected whole input as local part, got %q", got)
	}
	if got := EmailDomain("a@Example.com"); got != "example.com" {
		t.Errorf("Expected domain example.com, got %q", got)
	}
	if got := EmailDomain("nodomain"); got != "" {
		t.Errorf("Expected empty domain, got %q", got)
	}
}

func TestValidateEmail(t *testing.T) {
	long := make([]byte, 250)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		email   string
		wantErr bool
	}{
		{"user@example.com", false},
		{"  User@Example.com  ", false},
		{"", true},
		{"user@example", true},
		{"user name@example.com", true},
		{"@example.com", true},
		{string(long) + "@x.io", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v for %q, got %v", tt.wantErr, tt.email, err)
			}
		})
	}

	if err := ValidateEmail("   "); !errors.IsErrorType(err, errors.ErrRequiredFieldMissing) {
		t.Errorf("Expected blank email to be a missing field, got %v", err)
	}

	if IsValidEmail(" user@example.com") {
		t.Error("Expected IsValidEmail not to trim input")
	}
}
