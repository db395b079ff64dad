package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MichaelAJay/go-security-policy/errors"
)

// InputKind selects the sanitizer applied by SanitizeInput.
type InputKind string

const (
	InputGeneral InputKind = "general"
	InputEmail   InputKind = "email"
	InputName    InputKind = "name"
	InputPhone   InputKind = "phone"
)

var (
	angleBracketRegex  = regexp.MustCompile(`[<>]`)
	emailDisallowRegex = regexp.MustCompile(`[^a-zA-Z0-9@._-]`)
	nameDisallowRegex  = regexp.MustCompile(`[^a-zA-Z\s'-]`)
	phoneDisallowRegex = regexp.MustCompile(`[^\d+()\-\s]`)
	displayNameRegex   = regexp.MustCompile(`^[a-zA-Z\s\-'.]+$`)
)

const (
	displayNameMinRunes = 2
	displayNameMaxRunes = 50
)

// SanitizeInput strips characters that have no business in a field of the
// given kind. Unknown kinds get the general sanitizer.
//
//	general: trim, drop '<' and '>'
//	email:   trim, lower-case, keep [a-zA-Z0-9@._-]
//	name:    trim, keep ASCII letters, whitespace, apostrophes and hyphens
//	phone:   keep digits, '+', '(', ')', '-' and whitespace
func SanitizeInput(input string, kind InputKind) string {
	switch kind {
	case InputEmail:
		return emailDisallowRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(input)), "")
	case InputName:
		return nameDisallowRegex.ReplaceAllString(strings.TrimSpace(input), "")
	case InputPhone:
		return phoneDisallowRegex.ReplaceAllString(input, "")
	default:
		return angleBracketRegex.ReplaceAllString(strings.TrimSpace(input), "")
	}
}

// SanitizeString removes null bytes and control characters other than
// newlines and tabs, then trims surrounding whitespace.
func SanitizeString(input string) string {
	var result strings.Builder
	for _, char := range input {
		if unicode.IsPrint(char) || char == '\n' || char == '\t' {
			result.WriteRune(char)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateDisplayName checks a display name as entered on sign-up: 2 to 50
// characters of letters, spaces, hyphens, apostrophes and periods.
func ValidateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return errors.NewRequiredFieldError("displayName", "Display name is required")
	case utf8.RuneCountInString(trimmed) < displayNameMinRunes:
		return errors.NewValidationError("displayName", "Display name must be at least 2 characters")
	case utf8.RuneCountInString(trimmed) > displayNameMaxRunes:
		return errors.NewValidationError("displayName", "Display name must be less than 50 characters")
	case !displayNameRegex.MatchString(trimmed):
		return errors.NewValidationError("displayName", "Display name can only contain letters, spaces, hyphens, apostrophes, and periods")
	}
	return nil
}
