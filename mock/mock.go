// Package mock provides in-memory fakes of the logger, metrics, cache, config
// and hashing dependencies for use in tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MichaelAJay/go-cache"
	"github.com/MichaelAJay/go-config"
	"github.com/MichaelAJay/go-logger"
	"github.com/MichaelAJay/go-metrics"
	"github.com/MichaelAJay/go-security-policy/errors"
)

// LogEntry is a single captured log call
type LogEntry struct {
	Level   string
	Message string
	Fields  []logger.Field
}

// Logger implements logger.Logger and records every call
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogger creates a recording logger
func NewLogger() *Logger {
	return &Logger{}
}

func (m *Logger) record(level, msg string, fields []logger.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

func (m *Logger) Debug(msg string, fields ...logger.Field) { m.record("debug", msg, fields) }
func (m *Logger) Info(msg string, fields ...logger.Field)  { m.record("info", msg, fields) }
func (m *Logger) Warn(msg string, fields ...logger.Field)  { m.record("warn", msg, fields) }
func (m *Logger) Error(msg string, fields ...logger.Field) { m.record("error", msg, fields) }
func (m *Logger) Fatal(msg string, fields ...logger.Field) { m.record("fatal", msg, fields) }
func (m *Logger) With(fields ...logger.Field) logger.Logger {
	return m
}
func (m *Logger) WithContext(ctx context.Context) logger.Logger {
	return m
}

// Entries returns the captured entries for a level, or all entries when level is empty
func (m *Logger) Entries(level string) []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []LogEntry
	for _, e := range m.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Metrics implements metrics.Registry and counts counter increments by name
type Metrics struct {
	mu       sync.Mutex
	counters map[string]float64
}

// NewMetrics creates a counting metrics registry
func NewMetrics() *Metrics {
	return &Metrics{counters: make(map[string]float64)}
}

// Count returns the accumulated value of a counter
func (m *Metrics) Count(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func (m *Metrics) add(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += v
}

type counter struct {
	parent *Metrics
	name   string
}
type timer struct{}
type gauge struct{}
type histogram struct{}

func (m *Metrics) Tags() metrics.Tags         { return metrics.Tags{} }
func (m *Metrics) Registry() metrics.Registry { return m }
func (m *Metrics) Counter(opts metrics.Options) metrics.Counter {
	return &counter{parent: m, name: opts.Name}
}
func (m *Metrics) Gauge(opts metrics.Options) metrics.Gauge { return &gauge{} }
func (m *Metrics) Histogram(opts metrics.Options) metrics.Histogram {
	return &histogram{}
}
func (m *Metrics) Timer(opts metrics.Options) metrics.Timer { return &timer{} }
func (m *Metrics) Each(fn func(metrics.Metric))             {}
func (m *Metrics) Unregister(name string)                   {}

func (c *counter) Name() string                           { return c.name }
func (c *counter) Description() string                    { return "mock counter" }
func (c *counter) Type() metrics.Type                     { return metrics.TypeCounter }
func (c *counter) Tags() metrics.Tags                     { return metrics.Tags{} }
func (c *counter) Inc()                                   { c.parent.add(c.name, 1) }
func (c *counter) Add(v float64)                          { c.parent.add(c.name, v) }
func (c *counter) With(tags metrics.Tags) metrics.Counter { return c }

func (g *gauge) Name() string                         { return "mock gauge" }
func (g *gauge) Description() string                  { return "mock gauge" }
func (g *gauge) Type() metrics.Type                   { return metrics.TypeGauge }
func (g *gauge) Tags() metrics.Tags                   { return metrics.Tags{} }
func (g *gauge) Set(float64)                          {}
func (g *gauge) Add(float64)                          {}
func (g *gauge) Inc()                                 {}
func (g *gauge) Dec()                                 {}
func (g *gauge) With(tags metrics.Tags) metrics.Gauge { return g }

func (h *histogram) Name() string                             { return "mock histogram" }
func (h *histogram) Description() string                      { return "mock histogram" }
func (h *histogram) Type() metrics.Type                       { return metrics.TypeHistogram }
func (h *histogram) Tags() metrics.Tags                       { return metrics.Tags{} }
func (h *histogram) Record(float64)                           {}
func (h *histogram) RecordSince(start time.Time)              {}
func (h *histogram) Time(fn func()) time.Duration             { return time.Duration(0) }
func (h *histogram) Observe(float64)                          {}
func (h *histogram) With(tags metrics.Tags) metrics.Histogram { return h }

func (t *timer) Name() string                         { return "mock timer" }
func (t *timer) Description() string                  { return "mock timer" }
func (t *timer) Type() metrics.Type                   { return metrics.TypeTimer }
func (t *timer) Tags() metrics.Tags                   { return metrics.Tags{} }
func (t *timer) Record(d time.Duration)               {}
func (t *timer) RecordSince(start time.Time)          {}
func (t *timer) Time(fn func()) time.Duration         { fn(); return time.Duration(0) }
func (t *timer) With(tags metrics.Tags) metrics.Timer { return t }

// Cache implements cache.Cache on a map. Setting FailGet or FailSet makes the
// corresponding operations return an error.
type Cache struct {
	mu      sync.Mutex
	data    map[string]any
	FailGet bool
	FailSet bool
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{data: make(map[string]any)}
}

func (m *Cache) Get(ctx context.Context, key string) (any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGet {
		return nil, false, fmt.Errorf("cache unavailable")
	}
	if val, exists := m.data[key]; exists {
		return val, true, nil
	}
	return nil, false, errors.ErrCacheMiss
}

func (m *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet {
		return fmt.Errorf("cache unavailable")
	}
	m.data[key] = value
	return nil
}

func (m *Cache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet {
		return fmt.Errorf("cache unavailable")
	}
	delete(m.data, key)
	return nil
}

func (m *Cache) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]any)
	return nil
}

func (m *Cache) Has(ctx context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.data[key]
	return exists
}

func (m *Cache) GetKeys(ctx context.Context) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return keys
}

func (m *Cache) Close() error {
	return nil
}

func (m *Cache) GetMany(ctx context.Context, keys []string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	values := make(map[string]any, len(keys))
	for _, key := range keys {
		if val, exists := m.data[key]; exists {
			values[key] = val
		}
	}
	return values, nil
}

func (m *Cache) SetMany(ctx context.Context, items map[string]any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, value := range items {
		m.data[key] = value
	}
	return nil
}

func (m *Cache) DeleteMany(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *Cache) GetMetadata(ctx context.Context, key string) (*cache.CacheEntryMetadata, error) {
	return nil, nil
}

func (m *Cache) GetManyMetadata(ctx context.Context, keys []string) (map[string]*cache.CacheEntryMetadata, error) {
	return nil, nil
}

func (m *Cache) GetMetrics() *cache.CacheMetricsSnapshot {
	return nil
}

// Config implements config.Config on a map of raw values
type Config struct {
	values map[string]any
}

// NewConfig creates a config holding the given values
func NewConfig(values map[string]any) *Config {
	if values == nil {
		values = make(map[string]any)
	}
	return &Config{values: values}
}

func (m *Config) Get(key string) (any, bool) {
	if val, exists := m.values[key]; exists {
		return val, true
	}
	return nil, false
}

func (m *Config) GetString(key string) (string, bool) {
	if val, exists := m.values[key]; exists {
		if str, ok := val.(string); ok {
			return str, true
		}
	}
	return "", false
}

func (m *Config) GetInt(key string) (int, bool) {
	if val, exists := m.values[key]; exists {
		if i, ok := val.(int); ok {
			return i, true
		}
	}
	return 0, false
}

func (m *Config) GetBool(key string) (bool, bool) {
	if val, exists := m.values[key]; exists {
		if b, ok := val.(bool); ok {
			return b, true
		}
	}
	return false, false
}

func (m *Config) GetFloat(key string) (float64, bool) {
	if val, exists := m.values[key]; exists {
		if f, ok := val.(float64); ok {
			return f, true
		}
	}
	return 0, false
}

func (m *Config) GetStringSlice(key string) ([]string, bool) {
	if val, exists := m.values[key]; exists {
		if ss, ok := val.([]string); ok {
			return ss, true
		}
	}
	return nil, false
}

func (m *Config) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *Config) Load(source config.Source) error {
	return nil
}

func (m *Config) Validate() error {
	return nil
}

// Hasher implements the lookup hashing half of encrypter.Encrypter
type Hasher struct{}

func (Hasher) HashLookupData(data []byte) []byte {
	return append([]byte("hashed_"), data...)
}
