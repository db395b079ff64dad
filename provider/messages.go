package provider

// Flow is the user journey a provider call belongs to. The same failure reads
// differently on the sign-in page and the password change form.
type Flow string

const (
	FlowLogin                Flow = "login"
	FlowSocialLogin          Flow = "social_login"
	FlowSignup               Flow = "signup"
	FlowPasswordResetRequest Flow = "password_reset_request"
	FlowPasswordResetVerify  Flow = "password_reset_verify"
	FlowPasswordResetConfirm Flow = "password_reset_confirm"
	FlowProfileUpdate        Flow = "profile_update"
	FlowPasswordChange       Flow = "password_change"
)

const (
	msgNoAccount     = "No account found with this email address. Please check your email or sign up for a new account."
	msgInvalidEmail  = "Please enter a valid email address."
	msgNetwork       = "Network error. Please check your internet connection and try again."
	msgCancelled     = "Sign-in cancelled. Please try again."
	msgLinkExpired   = "This password reset link has expired. Please request a new one."
	msgLinkInvalid   = "This password reset link is invalid. Please request a new one."
	msgDisabled      = "This account has been disabled. Please contact support."
	msgGenericFailed = "Something went wrong. Please try again."
)

// fallbacks is the message shown for kinds a flow has no specific text for.
var fallbacks = map[Flow]string{
	FlowLogin:                "An error occurred while signing in. Please try again.",
	FlowSocialLogin:          "An error occurred with Google Sign-In. Please try again.",
	FlowSignup:               "An error occurred while creating your account. Please try again.",
	FlowPasswordResetRequest: "An error occurred while sending the reset email. Please try again.",
	FlowPasswordResetVerify:  "Invalid or expired password reset link.",
	FlowPasswordResetConfirm: "Error updating password. Please try again.",
	FlowProfileUpdate:        "Error updating profile. Please try again.",
	FlowPasswordChange:       "Error updating password. Please try again.",
}

var messages = map[Flow]map[ErrorKind]string{
	FlowLogin: {
		KindUserNotFound:      msgNoAccount,
		KindWrongPassword:     "Incorrect password. Please try again or reset your password.",
		KindInvalidCredential: "Invalid email or password. Please check your credentials and try again.",
		KindInvalidEmail:      msgInvalidEmail,
		KindUserDisabled:      msgDisabled,
		KindTooManyRequests:   "Too many failed sign-in attempts. Please try again later or reset your password.",
		KindNetworkFailure:    msgNetwork,
	},
	FlowSocialLogin: {
		KindPopupClosed:                          msgCancelled,
		KindPopupCancelled:                       msgCancelled,
		KindPopupBlocked:                         "Pop-up blocked by browser. Please allow pop-ups and try again.",
		KindOperationNotAllowed:                  "Google Sign-In is not enabled. Please contact support.",
		KindAccountExistsWithDifferentCredential: "An account already exists with this email address but different sign-in method. Please try signing in with email/password.",
		KindNetworkFailure:                       msgNetwork,
	},
	FlowSignup: {
		KindEmailAlreadyInUse:   "This email address is already registered. Please use a different email or try signing in instead.",
		KindInvalidEmail:        msgInvalidEmail,
		KindOperationNotAllowed: "Email/password accounts are not enabled. Please contact support.",
		KindWeakPassword:        "Password is too weak. Please choose a stronger password with at least 6 characters.",
		KindNetworkFailure:      msgNetwork,
		KindTooManyRequests:     "Too many failed attempts. Please wait a few minutes before trying again.",
		KindQuotaExceeded:       "Service temporarily unavailable. Please try again later.",
		KindAppDeleted:          "Application configuration error. Please contact support.",
	},
	FlowPasswordResetRequest: {
		KindUserNotFound:    msgNoAccount,
		KindInvalidEmail:    msgInvalidEmail,
		KindTooManyRequests: "Too many password reset requests. Please wait before trying again.",
		KindNetworkFailure:  msgNetwork,
	},
	FlowPasswordResetVerify: {
		KindExpiredActionCode: msgLinkExpired,
		KindInvalidActionCode: msgLinkInvalid,
		KindUserDisabled:      "This account has been disabled.",
	},
	FlowPasswordResetConfirm: {
		KindExpiredActionCode: msgLinkExpired,
		KindInvalidActionCode: msgLinkInvalid,
		KindWeakPassword:      "Password is too weak. Please choose a stronger password.",
	},
	FlowProfileUpdate: {
		KindEmailAlreadyInUse:   "This email is already in use by another account.",
		KindInvalidEmail:        msgInvalidEmail,
		KindRequiresRecentLogin: "Please sign out and sign in again before making this change.",
	},
	FlowPasswordChange: {
		KindWrongPassword:       "Current password is incorrect.",
		KindWeakPassword:        "New password is too weak.",
		KindRequiresRecentLogin: "Please sign out and sign in again before changing your password.",
	},
}

// Message returns the user-facing text for kind in flow. Kinds without a
// flow-specific message get the flow's generic failure text; the provider's
// raw message is never shown.
func Message(flow Flow, kind ErrorKind) string {
	if msg, ok := messages[flow][kind]; ok {
		return msg
	}
	if msg, ok := fallbacks[flow]; ok {
		return msg
	}
	return msgGenericFailed
}
