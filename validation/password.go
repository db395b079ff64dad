package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MichaelAJay/go-logger"
	"github.com/MichaelAJay/go-metrics"
	"github.com/MichaelAJay/go-security-policy/errors"
)

// CharClass is a character class a policy can require.
type CharClass string

const (
	CharClassLowercase CharClass = "lowercase"
	CharClassUppercase CharClass = "uppercase"
	CharClassDigit     CharClass = "digit"
	CharClassSymbol    CharClass = "symbol"
)

// AllCharClasses lists every class in evaluation order.
var AllCharClasses = []CharClass{CharClassLowercase, CharClassUppercase, CharClassDigit, CharClassSymbol}

// symbolChars is the set of characters counted as symbols.
const symbolChars = `!@#$%^&*(),.?":{}|<>`

// sequentialPatterns are substrings penalised by the strength score.
var sequentialPatterns = []string{"123", "abc", "qwe"}

// PasswordPolicy configures the evaluator. It is copied on construction.
type PasswordPolicy struct {
	// MinLength is the minimum required password length in characters.
	MinLength int `json:"min_length"`

	// MaxLength is the maximum allowed password length in characters.
	MaxLength int `json:"max_length"`

	// RequiredClasses lists character classes that must be present.
	RequiredClasses []CharClass `json:"required_classes"`

	// ForbiddenPasswords is matched case-insensitively against the whole password.
	ForbiddenPasswords []string `json:"forbidden_passwords"`

	// ForbidPersonalInfo enables the email and name warnings.
	ForbidPersonalInfo bool `json:"forbid_personal_info"`
}

// DefaultPasswordPolicy returns the production policy: 12 to 128 characters,
// all four classes, the common password list and personal info checks.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:          12,
		MaxLength:          128,
		RequiredClasses:    append([]CharClass(nil), AllCharClasses...),
		ForbiddenPasswords: DefaultForbiddenPasswords(),
		ForbidPersonalInfo: true,
	}
}

// Requires reports whether the policy requires class c.
func (p PasswordPolicy) Requires(c CharClass) bool {
	for _, rc := range p.RequiredClasses {
		if rc == c {
			return true
		}
	}
	return false
}

// PasswordErrorCode identifies a policy violation.
type PasswordErrorCode string

const (
	PasswordErrorRequired         PasswordErrorCode = "required"
	PasswordErrorTooShort         PasswordErrorCode = "too_short"
	PasswordErrorTooLong          PasswordErrorCode = "too_long"
	PasswordErrorMissingLowercase PasswordErrorCode = "missing_lowercase"
	PasswordErrorMissingUppercase PasswordErrorCode = "missing_uppercase"
	PasswordErrorMissingDigit     PasswordErrorCode = "missing_digit"
	PasswordErrorMissingSymbol    PasswordErrorCode = "missing_symbol"
	PasswordErrorCommon           PasswordErrorCode = "common_password"
	PasswordErrorMismatch         PasswordErrorCode = "confirmation_mismatch"
)

// PasswordWarningCode identifies an advisory finding that does not invalidate the password.
type PasswordWarningCode string

const (
	PasswordWarningContainsEmail PasswordWarningCode = "contains_email"
	PasswordWarningContainsName  PasswordWarningCode = "contains_name"
)

var missingClassErrors = map[CharClass]PasswordErrorCode{
	CharClassLowercase: PasswordErrorMissingLowercase,
	CharClassUppercase: PasswordErrorMissingUppercase,
	CharClassDigit:     PasswordErrorMissingDigit,
	CharClassSymbol:    PasswordErrorMissingSymbol,
}

// PasswordAssessment is the result of one evaluation.
type PasswordAssessment struct {
	IsValid  bool                  `json:"is_valid"`
	Errors   []PasswordErrorCode   `json:"errors"`
	Warnings []PasswordWarningCode `json:"warnings"`
	Strength int                   `json:"strength"`
}

// HasError reports whether code is among the assessment's errors.
func (a *PasswordAssessment) HasError(code PasswordErrorCode) bool {
	for _, e := range a.Errors {
		if e == code {
			return true
		}
	}
	return false
}

// HasWarning reports whether code is among the assessment's warnings.
func (a *PasswordAssessment) HasWarning(code PasswordWarningCode) bool {
	for _, w := range a.Warnings {
		if w == code {
			return true
		}
	}
	return false
}

// UserContext carries the personal information a password should not contain.
type UserContext struct {
	Email string
	Name  string
}

// Evaluator scores and validates passwords against a PasswordPolicy.
// It is safe for concurrent use.
type Evaluator struct {
	policy    PasswordPolicy
	forbidden map[string]struct{}
	logger    logger.Logger
	metrics   metrics.Registry
}

// NewEvaluator creates an evaluator for policy.
func NewEvaluator(policy PasswordPolicy, logger logger.Logger, metrics metrics.Registry) *Evaluator {
	p := policy
	p.RequiredClasses = append([]CharClass(nil), policy.RequiredClasses...)
	p.ForbiddenPasswords = append([]string(nil), policy.ForbiddenPasswords...)

	forbidden := make(map[string]struct{}, len(p.ForbiddenPasswords))
	for _, fp := range p.ForbiddenPasswords {
		forbidden[strings.ToLower(fp)] = struct{}{}
	}

	return &Evaluator{
		policy:    p,
		forbidden: forbidden,
		logger:    logger,
		metrics:   metrics,
	}
}

// Policy returns a copy of the evaluator's policy.
func (e *Evaluator) Policy() PasswordPolicy {
	p := e.policy
	p.RequiredClasses = append([]CharClass(nil), e.policy.RequiredClasses...)
	p.ForbiddenPasswords = append([]string(nil), e.policy.ForbiddenPasswords...)
	return p
}

// Evaluate checks password against the policy. All checks run and every
// violation is reported, except for an empty password which yields only
// PasswordErrorRequired. It never fails.
func (e *Evaluator) Evaluate(password string, userCtx UserContext) *PasswordAssessment {
	assessment := &PasswordAssessment{
		Errors:   []PasswordErrorCode{},
		Warnings: []PasswordWarningCode{},
	}

	if password == "" {
		assessment.Errors = append(assessment.Errors, PasswordErrorRequired)
		e.record(assessment)
		return assessment
	}

	length := utf8.RuneCountInString(password)
	if length < e.policy.MinLength {
		assessment.Errors = append(assessment.Errors, PasswordErrorTooShort)
	}
	if e.policy.MaxLength > 0 && length > e.policy.MaxLength {
		assessment.Errors = append(assessment.Errors, PasswordErrorTooLong)
	}

	present := classesOf(password)
	for _, class := range AllCharClasses {
		if e.policy.Requires(class) && !present[class] {
			assessment.Errors = append(assessment.Errors, missingClassErrors[class])
		}
	}

	lower := strings.ToLower(password)
	if _, common := e.forbidden[lower]; common {
		assessment.Errors = append(assessment.Errors, PasswordErrorCommon)
	}

	if e.policy.ForbidPersonalInfo {
		if local := EmailLocalPart(userCtx.Email); local != "" && strings.Contains(lower, local) {
			assessment.Warnings = append(assessment.Warnings, PasswordWarningContainsEmail)
		}
		for _, part := range strings.Fields(strings.ToLower(userCtx.Name)) {
			if utf8.RuneCountInString(part) > 2 && strings.Contains(lower, part) {
				assessment.Warnings = append(assessment.Warnings, PasswordWarningContainsName)
				break
			}
		}
	}

	assessment.Strength = PasswordStrength(password)
	assessment.IsValid = len(assessment.Errors) == 0
	e.record(assessment)
	return assessment
}

// EvaluateWithConfirmation evaluates password and additionally reports
// PasswordErrorMismatch when confirmation differs. An empty password still
// short-circuits to PasswordErrorRequired.
func (e *Evaluator) EvaluateWithConfirmation(password, confirmation string, userCtx UserContext) *PasswordAssessment {
	assessment := e.Evaluate(password, userCtx)
	if password != "" && password != confirmation {
		assessment.Errors = append(assessment.Errors, PasswordErrorMismatch)
		assessment.IsValid = false
	}
	return assessment
}

// Validate returns a weak password error listing every violation, or nil.
func (e *Evaluator) Validate(password string, userCtx UserContext) error {
	assessment := e.Evaluate(password, userCtx)
	if assessment.IsValid {
		return nil
	}

	messages := make([]string, 0, len(assessment.Errors))
	for _, code := range assessment.Errors {
		messages = append(messages, e.ErrorMessage(code))
	}
	return errors.NewWeakPasswordError(strings.Join(messages, "; "))
}

// ErrorMessage returns the user-facing text for an error code.
func (e *Evaluator) ErrorMessage(code PasswordErrorCode) string {
	switch code {
	case PasswordErrorRequired:
		return "Password is required"
	case PasswordErrorTooShort:
		return fmt.Sprintf("Password must be at least %d characters long", e.policy.MinLength)
	case PasswordErrorTooLong:
		return fmt.Sprintf("Password must be less than %d characters", e.policy.MaxLength)
	case PasswordErrorMissingLowercase:
		return "Password must contain at least one lowercase letter"
	case PasswordErrorMissingUppercase:
		return "Password must contain at least one uppercase letter"
	case PasswordErrorMissingDigit:
		return "Password must contain at least one number"
	case PasswordErrorMissingSymbol:
		return "Password must contain at least one special character"
	case PasswordErrorCommon:
		return "Password is too common. Please choose a more unique password"
	case PasswordErrorMismatch:
		return "Passwords do not match"
	default:
		return string(code)
	}
}

// WarningMessage returns the user-facing text for a warning code.
func WarningMessage(code PasswordWarningCode) string {
	switch code {
	case PasswordWarningContainsEmail:
		return "Password should not contain your email address"
	case PasswordWarningContainsName:
		return "Password should not contain your name"
	default:
		return string(code)
	}
}

func (e *Evaluator) record(assessment *PasswordAssessment) {
	outcome := "valid"
	if !assessment.IsValid {
		outcome = "invalid"
	}

	counter := e.metrics.Counter(metrics.Options{
		Name: "password_policy.evaluate." + outcome,
	})
	counter.Inc()

	e.logger.Debug("Password evaluated",
		logger.Field{Key: "valid", Value: assessment.IsValid},
		logger.Field{Key: "error_count", Value: len(assessment.Errors)},
		logger.Field{Key: "warning_count", Value: len(assessment.Warnings)},
		logger.Field{Key: "strength", Value: assessment.Strength})
}

// PasswordStrength scores password from 0 to 100.
//
// Up to 25 points for length (2 per character), 5 each for lowercase,
// uppercase and digits, 10 for a symbol and 10 when more than 70% of the
// characters are distinct. 10 points are deducted for a run of three identical
// characters and 10 for a sequential pattern such as "123", "abc" or "qwe".
func PasswordStrength(password string) int {
	length := utf8.RuneCountInString(password)
	if length == 0 {
		return 0
	}

	score := min(25, length*2)

	present := classesOf(password)
	if present[CharClassLowercase] {
		score += 5
	}
	if present[CharClassUppercase] {
		score += 5
	}
	if present[CharClassDigit] {
		score += 5
	}
	if present[CharClassSymbol] {
		score += 10
	}

	if float64(countUniqueChars(password)) > float64(length)*0.7 {
		score += 10
	}

	if hasRepeatRun(password, 3) {
		score -= 10
	}

	lower := strings.ToLower(password)
	for _, pattern := range sequentialPatterns {
		if strings.Contains(lower, pattern) {
			score -= 10
			break
		}
	}

	return max(0, min(100, score))
}

// Label buckets the assessment for a strength meter: "strong" when valid,
// "medium" with a single violation, otherwise "weak". An empty password has
// no label.
func (a *PasswordAssessment) Label() string {
	switch {
	case a.HasError(PasswordErrorRequired):
		return ""
	case a.IsValid:
		return "strong"
	case len(a.Errors) <= 1:
		return "medium"
	default:
		return "weak"
	}
}

// classesOf reports which character classes occur in password. Classes are
// ASCII only; other letters count towards length and variety but no class.
func classesOf(password string) map[CharClass]bool {
	present := make(map[CharClass]bool, 4)
	for _, char := range password {
		switch {
		case char >= 'a' && char <= 'z':
			present[CharClassLowercase] = true
		case char >= 'A' && char <= 'Z':
			present[CharClassUppercase] = true
		case char >= '0' && char <= '9':
			present[CharClassDigit] = true
		case strings.ContainsRune(symbolChars, char):
			present[CharClassSymbol] = true
		}
	}
	return present
}

// countUniqueChars counts the number of distinct characters in the password.
func countUniqueChars(password string) int {
	charSet := make(map[rune]struct{})
	for _, char := range password {
		charSet[char] = struct{}{}
	}
	return len(charSet)
}

// hasRepeatRun reports whether some character occurs run times in a row.
func hasRepeatRun(password string, run int) bool {
	count := 0
	var prev rune
	for i, char := range password {
		if i > 0 && char == prev {
			count++
		} else {
			count = 1
		}
		if count >= run {
			return true
		}
		prev = char
	}
	return false
}

// DefaultForbiddenPasswords returns a list of commonly used weak passwords.
func DefaultForbiddenPasswords() []string {
	return []string{
		"password", "password123", "123456", "123456789", "qwerty",
		"qwertyuiop", "abc123", "admin", "admin123", "welcome",
		"welcome123", "letmein", "monkey", "1234567890", "password1",
		"123123", "dragon", "master", "superman", "trustno1",
	}
}
