// Package securitylog keeps a bounded, retention-pruned log of security
// events on top of the storage port and raises alerts from it.
package securitylog

import (
	"context"
	"sync"
	"time"

	"github.com/MichaelAJay/go-logger"
	"github.com/MichaelAJay/go-metrics"
	"github.com/MichaelAJay/go-security-policy/storage"
)

// StorageKey is the key the log is stored under.
const StorageKey = "security_events"

// Config controls what the log keeps and whether it alerts.
type Config struct {
	// LogSecurityEvents disables Append entirely when false.
	LogSecurityEvents bool `json:"log_security_events"`

	// AlertOnSuspiciousActivity disables alert evaluation when false.
	AlertOnSuspiciousActivity bool `json:"alert_on_suspicious_activity"`

	// Retention drops events older than this on every append.
	Retention time.Duration `json:"retention"`

	// Capacity is the maximum number of events kept.
	Capacity int `json:"capacity"`

	// AlertWindow is the trailing window alert rules look at.
	AlertWindow time.Duration `json:"alert_window"`
}

// DefaultConfig returns 90 day retention, 100 events and a 15 minute alert
// window with logging and alerting enabled.
func DefaultConfig() Config {
	return Config{
		LogSecurityEvents:         true,
		AlertOnSuspiciousActivity: true,
		Retention:                 90 * 24 * time.Hour,
		Capacity:                  100,
		AlertWindow:               15 * time.Minute,
	}
}

// EventLog appends events to a single stored list and evaluates alert rules
// after every append. Storage faults never reach the caller; they are logged
// and the operation degrades to a no-op.
type EventLog struct {
	mu       sync.Mutex
	store    storage.Store
	config   Config
	rules    []Rule
	notifier AlertNotifier
	client   *clientStamp
	clock    func() time.Time
	logger   logger.Logger
	metrics  metrics.Registry
}

// Option configures an EventLog.
type Option func(*EventLog)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(l *EventLog) {
		l.clock = clock
	}
}

// WithAlertNotifier sets the receiver of HIGH severity alerts.
func WithAlertNotifier(notifier AlertNotifier) Option {
	return func(l *EventLog) {
		l.notifier = notifier
	}
}

// WithRules replaces the default alert rules.
func WithRules(rules ...Rule) Option {
	return func(l *EventLog) {
		l.rules = append([]Rule(nil), rules...)
	}
}

// NewEventLog creates an event log. Zero durations and capacity in cfg take
// the defaults.
func NewEventLog(store storage.Store, cfg Config, logger logger.Logger, metrics metrics.Registry, opts ...Option) *EventLog {
	defaults := DefaultConfig()
	if cfg.Retention <= 0 {
		cfg.Retention = defaults.Retention
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaults.Capacity
	}
	if cfg.AlertWindow <= 0 {
		cfg.AlertWindow = defaults.AlertWindow
	}

	l := &EventLog{
		store:   store,
		config:  cfg,
		rules:   DefaultRules(),
		clock:   time.Now,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the effective configuration.
func (l *EventLog) Config() Config {
	return l.config
}

// Append stores event and returns the alerts raised by the updated log.
// Missing ID, timestamp and severity are filled in. Events older than the
// retention period are dropped and only the most recent Capacity events kept.
func (l *EventLog) Append(ctx context.Context, event Event) []Alert {
	if !l.config.LogSecurityEvents {
		return nil
	}

	now := l.clock()
	event = l.client.apply(event.withDefaults(now))

	l.logger.Info("Security event",
		logger.Field{Key: "event_id", Value: event.ID},
		logger.Field{Key: "type", Value: string(event.Type)},
		logger.Field{Key: "severity", Value: string(event.Severity)},
		logger.Field{Key: "subject_id", Value: event.SubjectID},
		logger.Field{Key: "session_id", Value: event.SessionID})

	events := l.appendStored(ctx, event, now)
	return l.alertsFor(ctx, events, now)
}

// appendStored appends event to the stored log and returns the resulting list. When
// storage fails the event is kept in memory only, so alerting still sees it.
func (l *EventLog) appendStored(ctx context.Context, event Event, now time.Time) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.load(ctx)
	if err != nil {
		l.storageFault("get", err)
		return []Event{event}
	}

	events = l.prune(append(events, event), now)
	if err := l.store.Set(ctx, StorageKey, events); err != nil {
		l.storageFault("set", err)
		return events
	}

	counter := l.metrics.Counter(metrics.Options{
		Name: "security_log.append",
	})
	counter.Inc()
	return events
}

// EvaluateAlerts applies the alert rules to the events in the trailing alert
// window. Each alert is logged; HIGH alerts also go to the notifier. It
// returns nil when alerting is disabled or the log cannot be read.
func (l *EventLog) EvaluateAlerts(ctx context.Context, now time.Time) []Alert {
	if !l.config.AlertOnSuspiciousActivity {
		return nil
	}

	l.mu.Lock()
	events, err := l.load(ctx)
	l.mu.Unlock()
	if err != nil {
		l.storageFault("get", err)
		return nil
	}
	return l.alertsFor(ctx, events, now)
}

func (l *EventLog) alertsFor(ctx context.Context, events []Event, now time.Time) []Alert {
	if !l.config.AlertOnSuspiciousActivity {
		return nil
	}

	alerts := evaluateRules(l.rules, events, now, l.config.AlertWindow)
	for _, alert := range alerts {
		l.raise(ctx, alert)
	}
	return alerts
}

// Events returns the stored events, oldest first. Storage faults yield nil.
func (l *EventLog) Events(ctx context.Context) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.load(ctx)
	if err != nil {
		l.storageFault("get", err)
		return nil
	}
	return events
}

// Recent returns the stored events newer than now - window, oldest first.
func (l *EventLog) Recent(ctx context.Context, window time.Duration, now time.Time) []Event {
	cutoff := now.Add(-window)
	var recent []Event
	for _, e := range l.Events(ctx) {
		if e.Timestamp.After(cutoff) {
			recent = append(recent, e)
		}
	}
	return recent
}

// Clear removes every stored event.
func (l *EventLog) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Remove(ctx, StorageKey); err != nil {
		l.storageFault("remove", err)
	}
}

func (l *EventLog) load(ctx context.Context) ([]Event, error) {
	var events []Event
	if _, err := l.store.Get(ctx, StorageKey, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// prune drops events at or before now - retention and keeps the newest Capacity.
func (l *EventLog) prune(events []Event, now time.Time) []Event {
	cutoff := now.Add(-l.config.Retention)
	kept := events[:0]
	for _, e := range events {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	if len(kept) > l.config.Capacity {
		kept = kept[len(kept)-l.config.Capacity:]
	}
	return kept
}

func (l *EventLog) raise(ctx context.Context, alert Alert) {
	counter := l.metrics.Counter(metrics.Options{
		Name: "security_log.alert." + alert.Rule,
	})
	counter.Inc()

	l.logger.Warn("Security alert",
		logger.Field{Key: "rule", Value: alert.Rule},
		logger.Field{Key: "severity", Value: string(alert.Severity)},
		logger.Field{Key: "message", Value: alert.Message},
		logger.Field{Key: "count", Value: alert.Count})

	if alert.Severity == SeverityHigh && l.notifier != nil {
		l.notifier.Notify(ctx, alert)
	}
}

func (l *EventLog) storageFault(op string, err error) {
	counter := l.metrics.Counter(metrics.Options{
		Name: "security_log.storage_error",
	})
	counter.Inc()

	l.logger.Warn("Security log storage unavailable",
		logger.Field{Key: "operation", Value: op},
		logger.Field{Key: "key", Value: StorageKey},
		logger.Field{Key: "error", Value: err.Error()})
}
