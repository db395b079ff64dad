package ratelimit

import (
	"fmt"
	"time"
)

// ActionType names a rate-limited action. Each action is tracked
// independently per identifier.
type ActionType string

const (
	ActionLoginAttempts ActionType = "loginAttempts"
	ActionPasswordReset ActionType = "passwordReset"
	ActionAPICalls      ActionType = "apiCalls"
)

// Policy limits an action to MaxAttempts within a sliding Window. Once the
// limit is reached the identifier is blocked until BlockDuration has passed
// since the oldest attempt still inside the window.
type Policy struct {
	MaxAttempts   int           `json:"max_attempts"`
	Window        time.Duration `json:"window"`
	BlockDuration time.Duration `json:"block_duration"`
}

// Validate checks that the policy can be enforced.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive, got %d", p.MaxAttempts)
	}
	if p.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", p.Window)
	}
	if p.BlockDuration < 0 {
		return fmt.Errorf("block duration must not be negative, got %s", p.BlockDuration)
	}
	return nil
}

// withDefaults fills a zero BlockDuration with the window.
func (p Policy) withDefaults() Policy {
	if p.BlockDuration == 0 {
		p.BlockDuration = p.Window
	}
	return p
}

// DefaultPolicies returns the production limits:
//
//	loginAttempts  5 per 15 minutes, blocked for 30 minutes
//	passwordReset  3 per hour, blocked for 24 hours
//	apiCalls       100 per minute, blocked for the rest of the window
func DefaultPolicies() map[ActionType]Policy {
	return map[ActionType]Policy{
		ActionLoginAttempts: {
			MaxAttempts:   5,
			Window:        15 * time.Minute,
			BlockDuration: 30 * time.Minute,
		},
		ActionPasswordReset: {
			MaxAttempts:   3,
			Window:        time.Hour,
			BlockDuration: 24 * time.Hour,
		},
		ActionAPICalls: {
			MaxAttempts: 100,
			Window:      time.Minute,
		},
	}
}

// Decision is the outcome of a rate limit check.
//
// Remaining is only meaningful when Allowed is true and a policy applied.
// RetryAfterSeconds is only set when Allowed is false.
type Decision struct {
	Allowed           bool   `json:"allowed"`
	Remaining         int    `json:"remaining,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	Reason            string `json:"reason,omitempty"`

	// Degraded is set when storage could not be consulted and the check failed open.
	Degraded bool `json:"degraded,omitempty"`
}

// attemptRecord is the stored state for one action and identifier.
// Attempts holds Unix millisecond timestamps in insertion order. Whether the
// caller is blocked is always derived from the attempts inside the window.
type attemptRecord struct {
	Attempts []int64 `json:"attempts"`
}
