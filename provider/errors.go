// Package provider translates identity provider error codes into a closed set
// of error kinds once, at the adapter boundary, and maps kinds to user-facing
// messages, application errors and security events.
package provider

import (
	"strings"

	"github.com/MichaelAJay/go-security-policy/errors"
	"github.com/MichaelAJay/go-security-policy/securitylog"
)

// ErrorKind is the closed set of identity provider failures the pages handle.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUserNotFound
	KindWrongPassword
	KindInvalidCredential
	KindInvalidEmail
	KindUserDisabled
	KindTooManyRequests
	KindNetworkFailure
	KindEmailAlreadyInUse
	KindOperationNotAllowed
	KindWeakPassword
	KindQuotaExceeded
	KindAppDeleted
	KindRequiresRecentLogin
	KindExpiredActionCode
	KindInvalidActionCode
	KindPopupClosed
	KindPopupBlocked
	KindPopupCancelled
	KindAccountExistsWithDifferentCredential
)

var kindNames = map[ErrorKind]string{
	KindUnknown:                              "unknown",
	KindUserNotFound:                         "user_not_found",
	KindWrongPassword:                        "wrong_password",
	KindInvalidCredential:                    "invalid_credential",
	KindInvalidEmail:                         "invalid_email",
	KindUserDisabled:                         "user_disabled",
	KindTooManyRequests:                      "too_many_requests",
	KindNetworkFailure:                       "network_failure",
	KindEmailAlreadyInUse:                    "email_already_in_use",
	KindOperationNotAllowed:                  "operation_not_allowed",
	KindWeakPassword:                         "weak_password",
	KindQuotaExceeded:                        "quota_exceeded",
	KindAppDeleted:                           "app_deleted",
	KindRequiresRecentLogin:                  "requires_recent_login",
	KindExpiredActionCode:                    "expired_action_code",
	KindInvalidActionCode:                    "invalid_action_code",
	KindPopupClosed:                          "popup_closed",
	KindPopupBlocked:                         "popup_blocked",
	KindPopupCancelled:                       "popup_cancelled",
	KindAccountExistsWithDifferentCredential: "account_exists_with_different_credential",
}

// String returns the snake_case name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// providerCodes maps the provider's wire codes to kinds.
var providerCodes = map[string]ErrorKind{
	"auth/user-not-found":                           KindUserNotFound,
	"auth/wrong-password":                           KindWrongPassword,
	"auth/invalid-credential":                       KindInvalidCredential,
	"auth/invalid-login-credentials":                KindInvalidCredential,
	"auth/invalid-email":                            KindInvalidEmail,
	"auth/user-disabled":                            KindUserDisabled,
	"auth/too-many-requests":                        KindTooManyRequests,
	"auth/network-request-failed":                   KindNetworkFailure,
	"auth/email-already-in-use":                     KindEmailAlreadyInUse,
	"auth/operation-not-allowed":                    KindOperationNotAllowed,
	"auth/weak-password":                            KindWeakPassword,
	"auth/quota-exceeded":                           KindQuotaExceeded,
	"auth/app-deleted":                              KindAppDeleted,
	"auth/requires-recent-login":                    KindRequiresRecentLogin,
	"auth/expired-action-code":                      KindExpiredActionCode,
	"auth/invalid-action-code":                      KindInvalidActionCode,
	"auth/popup-closed-by-user":                     KindPopupClosed,
	"auth/popup-blocked":                            KindPopupBlocked,
	"auth/cancelled-popup-request":                  KindPopupCancelled,
	"auth/account-exists-with-different-credential": KindAccountExistsWithDifferentCredential,
}

// Classify maps a provider error code such as "auth/wrong-password" to its
// kind. Matching ignores case and surrounding whitespace; unrecognised codes
// are KindUnknown.
func Classify(code string) ErrorKind {
	if kind, ok := providerCodes[strings.ToLower(strings.TrimSpace(code))]; ok {
		return kind
	}
	return KindUnknown
}

// IsCredentialFailure reports whether kind means the user presented wrong or
// unknown credentials.
func IsCredentialFailure(kind ErrorKind) bool {
	switch kind {
	case KindUserNotFound, KindWrongPassword, KindInvalidCredential:
		return true
	default:
		return false
	}
}

// appErrorCodes maps kinds onto application error codes.
var appErrorCodes = map[ErrorKind]errors.ErrorCode{
	KindUserNotFound:                         errors.CodeUserNotFound,
	KindWrongPassword:                        errors.CodeInvalidCredentials,
	KindInvalidCredential:                    errors.CodeInvalidCredentials,
	KindInvalidEmail:                         errors.CodeInvalidEmailFormat,
	KindUserDisabled:                         errors.CodeUserDisabled,
	KindTooManyRequests:                      errors.CodeRateLimitExceeded,
	KindNetworkFailure:                       errors.CodeNetworkFailure,
	KindEmailAlreadyInUse:                    errors.CodeDuplicateEmail,
	KindOperationNotAllowed:                  errors.CodeNotImplemented,
	KindWeakPassword:                         errors.CodeWeakPassword,
	KindQuotaExceeded:                        errors.CodeServiceUnavailable,
	KindAppDeleted:                           errors.CodeConfiguration,
	KindRequiresRecentLogin:                  errors.CodeReauthRequired,
	KindExpiredActionCode:                    errors.CodeTokenExpired,
	KindInvalidActionCode:                    errors.CodeInvalidToken,
	KindPopupClosed:                          errors.CodeSignInCancelled,
	KindPopupBlocked:                         errors.CodeSignInCancelled,
	KindPopupCancelled:                       errors.CodeSignInCancelled,
	KindAccountExistsWithDifferentCredential: errors.CodeAccountConflict,
}

// ToAppError wraps a provider failure in an AppError carrying the
// flow-specific message. The cause is kept for errors.Is and logging.
func ToAppError(flow Flow, kind ErrorKind, cause error) *errors.AppError {
	code, ok := appErrorCodes[kind]
	if !ok {
		code = errors.CodeInternalError
	}

	if cause == nil {
		cause = errors.ErrProviderRejected
	}
	return &errors.AppError{
		Code:    code,
		Message: Message(flow, kind),
		Details: "Provider error: " + kind.String(),
		Cause:   cause,
	}
}

// SecurityEvent describes how a provider failure should be recorded in the
// security log.
type SecurityEvent struct {
	Type     securitylog.EventType
	Severity securitylog.Severity
}

// SecurityEventFor picks the event type and severity for a provider failure.
// Credential failures are auth_failed so that the failed login alert sees
// them; lockouts and disabled accounts are raised to MEDIUM.
func SecurityEventFor(kind ErrorKind) SecurityEvent {
	switch {
	case IsCredentialFailure(kind):
		return SecurityEvent{Type: securitylog.EventAuthFailed, Severity: securitylog.SeverityMedium}
	case kind == KindTooManyRequests:
		return SecurityEvent{Type: securitylog.EventRateLimited, Severity: securitylog.SeverityMedium}
	case kind == KindUserDisabled:
		return SecurityEvent{Type: securitylog.EventAccessAttempt, Severity: securitylog.SeverityMedium}
	case kind == KindExpiredActionCode, kind == KindInvalidActionCode:
		return SecurityEvent{Type: securitylog.EventAccessAttempt, Severity: securitylog.SeverityInfo}
	default:
		return SecurityEvent{Type: securitylog.EventProviderError, Severity: securitylog.SeverityInfo}
	}
}
