package securitylog

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies a security event. The set is open; alert rules match
// on the types below.
type EventType string

const (
	EventAuthFailed      EventType = "auth_failed"
	EventAuthSucceeded   EventType = "auth_success"
	EventAccessAttempt   EventType = "access_attempt"
	EventRateLimited     EventType = "rate_limited"
	EventAccountCreated  EventType = "account_created"
	EventPasswordReset   EventType = "password_reset_requested"
	EventPasswordChanged EventType = "password_changed"
	EventSignedOut       EventType = "signed_out"
	EventProviderError   EventType = "provider_error"
)

// Severity grades events and alerts.
type Severity string

const (
	SeverityInfo   Severity = "INFO"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Event is one entry of the security log.
type Event struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Type        EventType      `json:"type"`
	Severity    Severity       `json:"severity"`
	SubjectID   string         `json:"subject_id,omitempty"`
	SessionID   string         `json:"session_id,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// NewEvent creates an event of the given type and severity stamped with a
// fresh ID and the current time.
func NewEvent(eventType EventType, severity Severity, subjectID string, details map[string]any) Event {
	return Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Severity:  severity,
		SubjectID: subjectID,
		Details:   details,
	}
}

// withDefaults fills an empty ID, timestamp or severity.
func (e Event) withDefaults(now time.Time) Event {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	return e
}
