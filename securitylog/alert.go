package securitylog

import (
	"context"
	"time"
)

// Rule raises an alert when at least Threshold events of EventType fall in
// the alert window.
type Rule struct {
	Name      string
	EventType EventType
	Threshold int
	Severity  Severity
	Message   string
}

// DefaultRules returns the built-in alert rules.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "multiple_failed_logins",
			EventType: EventAuthFailed,
			Threshold: 3,
			Severity:  SeverityHigh,
			Message:   "Multiple failed login attempts detected",
		},
		{
			Name:      "unusual_access_pattern",
			EventType: EventAccessAttempt,
			Threshold: 10,
			Severity:  SeverityMedium,
			Message:   "Unusual access pattern detected",
		},
	}
}

// Alert is a transient notification produced by a rule. Alerts are never
// stored.
type Alert struct {
	Severity Severity  `json:"severity"`
	Rule     string    `json:"rule"`
	Message  string    `json:"message"`
	Count    int       `json:"count"`
	RaisedAt time.Time `json:"raised_at"`
}

// AlertNotifier surfaces HIGH severity alerts to the user or an operator.
type AlertNotifier interface {
	Notify(ctx context.Context, alert Alert)
}

// AlertNotifierFunc adapts a function to AlertNotifier.
type AlertNotifierFunc func(ctx context.Context, alert Alert)

// Notify calls f(ctx, alert).
func (f AlertNotifierFunc) Notify(ctx context.Context, alert Alert) {
	f(ctx, alert)
}

// evaluateRules applies rules to the events newer than now - window.
func evaluateRules(rules []Rule, events []Event, now time.Time, window time.Duration) []Alert {
	cutoff := now.Add(-window)
	counts := make(map[EventType]int)
	for _, e := range events {
		if e.Timestamp.After(cutoff) {
			counts[e.Type]++
		}
	}

	var alerts []Alert
	for _, rule := range rules {
		if n := counts[rule.EventType]; rule.Threshold > 0 && n >= rule.Threshold {
			alerts = append(alerts, Alert{
				Severity: rule.Severity,
				Rule:     rule.Name,
				Message:  rule.Message,
				Count:    n,
				RaisedAt: now,
			})
		}
	}
	return alerts
}
