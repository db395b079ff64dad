package validation

import (
	"regexp"
	"strings"

	"github.com/MichaelAJay/go-security-policy/errors"
)

// MaxEmailLength is the RFC 5321 limit on an address.
const MaxEmailLength = 254

// Simple email regex: something@something.something with no whitespace.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether email has a plausible address shape.
// It does not normalize; callers trim first.
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	return len(email) <= MaxEmailLength && emailRegex.MatchString(email)
}

// ValidateEmail validates an address after normalizing it.
func ValidateEmail(email string) error {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return errors.NewRequiredFieldError("email", "Email is required")
	}
	if len(normalized) > MaxEmailLength {
		return errors.NewAppErrorWithDetails(errors.CodeInvalidEmailFormat, "Please enter a valid email address", "email exceeds maximum length")
	}
	if !emailRegex.MatchString(normalized) {
		return errors.NewAppError(errors.CodeInvalidEmailFormat, "Please enter a valid email address")
	}
	return nil
}

// NormalizeEmail normalizes an email address by converting to lowercase and trimming whitespace.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailLocalPart returns the lower-cased part of email before the first '@'.
// An address without '@' is treated as all local part.
func EmailLocalPart(email string) string {
	normalized := NormalizeEmail(email)
	local, _, _ := strings.Cut(normalized, "@")
	return local
}

// EmailDomain returns the lower-cased part of email after the first '@', or "".
func EmailDomain(email string) string {
	_, domain, found := strings.Cut(NormalizeEmail(email), "@")
	if !found {
		return ""
	}
	return domain
}
