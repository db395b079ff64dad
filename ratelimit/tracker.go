// Package ratelimit implements a per-action sliding window attempt tracker on
// top of the storage port.
//
// The tracker is advisory. It protects honest clients from hammering the
// identity provider and gives users early feedback; anything that can skip
// the call can skip the limit.
package ratelimit

import (
	"context"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MichaelAJay/go-logger"
	"github.com/MichaelAJay/go-metrics"
	"github.com/MichaelAJay/go-security-policy/errors"
	"github.com/MichaelAJay/go-security-policy/storage"
)

const reasonExceeded = "Rate limit exceeded"

// LookupHasher turns an identifier into a deterministic lookup hash, so that
// raw emails or IP addresses never appear in storage keys. The encrypter from
// github.com/MichaelAJay/go-encrypter satisfies it.
type LookupHasher interface {
	HashLookupData(data []byte) []byte
}

// Tracker records attempts per action and identifier and decides whether a
// new attempt is allowed.
//
// Calls within one process are serialised. Processes sharing a store still
// race on the read-modify-write of a record; the last writer wins.
type Tracker struct {
	mu       sync.Mutex
	store    storage.Store
	policies map[ActionType]Policy
	hasher   LookupHasher
	logger   logger.Logger
	metrics  metrics.Registry
}

// NewTracker creates a tracker enforcing policies. A nil hasher keeps
// identifiers in keys as given. Actions without a policy are unconstrained.
func NewTracker(
	store storage.Store,
	policies map[ActionType]Policy,
	hasher LookupHasher,
	logger logger.Logger,
	metrics metrics.Registry,
) *Tracker {
	copied := make(map[ActionType]Policy, len(policies))
	for action, policy := range policies {
		copied[action] = policy.withDefaults()
	}

	return &Tracker{
		store:    store,
		policies: copied,
		hasher:   hasher,
		logger:   logger,
		metrics:  metrics,
	}
}

// Policy returns the effective policy for action.
func (t *Tracker) Policy(action ActionType) (Policy, bool) {
	policy, ok := t.policies[action]
	return policy, ok
}

// Key returns the storage key for action and identifier.
func (t *Tracker) Key(action ActionType, identifier string) string {
	id := identifier
	if t.hasher != nil {
		id = hex.EncodeToString(t.hasher.HashLookupData([]byte(identifier)))
	}
	return fmt.Sprintf("ratelimit:%s:%s", action, id)
}

// CheckAndRecord decides whether identifier may perform action at now and,
// if so, records the attempt. Denied attempts are not recorded, so repeated
// denials never extend a block. Storage faults are logged and the attempt is
// allowed.
func (t *Tracker) CheckAndRecord(ctx context.Context, action ActionType, identifier string, now time.Time) Decision {
	startTime := time.Now()
	defer func() {
		timer := t.metrics.Timer(metrics.Options{
			Name: "ratelimit.check_and_record",
		})
		timer.RecordSince(startTime)
	}()

	policy, ok := t.policies[action]
	if !ok {
		t.logger.Debug("No rate limit policy for action",
			logger.Field{Key: "action", Value: string(action)})
		return Decision{Allowed: true}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := t.Key(action, identifier)
	rec, err := t.load(ctx, key)
	if err != nil {
		t.storageFault("get", action, key, err)
		return Decision{Allowed: true, Degraded: true}
	}

	nowMs := now.UnixMilli()
	kept := pruneAttempts(rec.Attempts, nowMs, policy.Window)
	blockedUntil := blockExpiry(kept, policy)

	if nowMs < blockedUntil {
		decision := Decision{
			Allowed:           false,
			RetryAfterSeconds: retryAfterSeconds(blockedUntil - nowMs),
			Reason:            reasonExceeded,
		}
		t.count(fmt.Sprintf("ratelimit.%s.denied", action))
		t.logger.Info("Rate limit exceeded",
			logger.Field{Key: "action", Value: string(action)},
			logger.Field{Key: "key", Value: key},
			logger.Field{Key: "retry_after_seconds", Value: decision.RetryAfterSeconds})
		return decision
	}

	kept = append(kept, nowMs)
	if err := t.store.Set(ctx, key, attemptRecord{Attempts: kept}); err != nil {
		t.storageFault("set", action, key, err)
		return Decision{Allowed: true, Remaining: remaining(policy, len(kept)), Degraded: true}
	}

	decision := Decision{Allowed: true, Remaining: remaining(policy, len(kept))}
	t.count(fmt.Sprintf("ratelimit.%s.allowed", action))
	t.logger.Debug("Rate limit attempt recorded",
		logger.Field{Key: "action", Value: string(action)},
		logger.Field{Key: "key", Value: key},
		logger.Field{Key: "remaining", Value: decision.Remaining})
	return decision
}

// Status reports what CheckAndRecord would decide at now without recording
// anything. Remaining counts the attempts left before the limit.
func (t *Tracker) Status(ctx context.Context, action ActionType, identifier string, now time.Time) Decision {
	policy, ok := t.policies[action]
	if !ok {
		return Decision{Allowed: true}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := t.Key(action, identifier)
	rec, err := t.load(ctx, key)
	if err != nil {
		t.storageFault("get", action, key, err)
		return Decision{Allowed: true, Remaining: policy.MaxAttempts, Degraded: true}
	}

	nowMs := now.UnixMilli()
	kept := pruneAttempts(rec.Attempts, nowMs, policy.Window)
	if until := blockExpiry(kept, policy); nowMs < until {
		return Decision{
			Allowed:           false,
			RetryAfterSeconds: retryAfterSeconds(until - nowMs),
			Reason:            reasonExceeded,
		}
	}
	return Decision{Allowed: true, Remaining: remaining(policy, len(kept))}
}

// Allow is CheckAndRecord for callers that prefer an error: it returns a
// rate limit AppError when the attempt is denied.
func (t *Tracker) Allow(ctx context.Context, action ActionType, identifier string, now time.Time) error {
	decision := t.CheckAndRecord(ctx, action, identifier, now)
	if decision.Allowed {
		return nil
	}
	return errors.NewRateLimitError(string(action), decision.RetryAfterSeconds)
}

// Reset forgets all attempts and any block for identifier, typically after a
// successful login. Storage faults are logged and ignored.
func (t *Tracker) Reset(ctx context.Context, action ActionType, identifier string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := t.Key(action, identifier)
	if err := t.store.Remove(ctx, key); err != nil {
		t.storageFault("remove", action, key, err)
		return
	}
	t.logger.Debug("Rate limit reset",
		logger.Field{Key: "action", Value: string(action)},
		logger.Field{Key: "key", Value: key})
}

func (t *Tracker) load(ctx context.Context, key string) (attemptRecord, error) {
	var rec attemptRecord
	if _, err := t.store.Get(ctx, key, &rec); err != nil {
		return attemptRecord{}, err
	}
	return rec, nil
}

func (t *Tracker) storageFault(op string, action ActionType, key string, err error) {
	t.count("ratelimit.storage_error")
	t.logger.Warn("Rate limit storage unavailable, failing open",
		logger.Field{Key: "operation", Value: op},
		logger.Field{Key: "action", Value: string(action)},
		logger.Field{Key: "key", Value: key},
		logger.Field{Key: "error", Value: err.Error()})
}

func (t *Tracker) count(name string) {
	counter := t.metrics.Counter(metrics.Options{
		Name: name,
	})
	counter.Inc()
}

// pruneAttempts keeps the attempts younger than window.
func pruneAttempts(attempts []int64, nowMs int64, window time.Duration) []int64 {
	windowMs := window.Milliseconds()
	kept := make([]int64, 0, len(attempts)+1)
	for _, ts := range attempts {
		if nowMs-ts < windowMs {
			kept = append(kept, ts)
		}
	}
	return kept
}

// blockExpiry returns the Unix millisecond instant before which new attempts
// are denied: the oldest attempt in a full window plus the block duration.
// Zero means not blocked.
func blockExpiry(kept []int64, policy Policy) int64 {
	if len(kept) == 0 || len(kept) < policy.MaxAttempts {
		return 0
	}
	return slices.Min(kept) + policy.BlockDuration.Milliseconds()
}

func retryAfterSeconds(ms int64) int {
	return int((ms + 999) / 1000)
}

func remaining(policy Policy, used int) int {
	return max(0, policy.MaxAttempts-used)
}
