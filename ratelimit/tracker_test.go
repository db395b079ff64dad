package ratelimit

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/MichaelAJay/go-security-policy/errors"
	"github.com/MichaelAJay/go-security-policy/mock"
	"github.com/MichaelAJay/go-security-policy/storage/memory"
)

var t0 = time.UnixMilli(1_700_000_000_000)

type testTracker struct {
	tracker *Tracker
	store   *memory.Store
	logger  *mock.Logger
	metrics *mock.Metrics
}

func newTestTracker(policies map[ActionType]Policy) *testTracker {
	store := memory.NewStore()
	log := mock.NewLogger()
	m := mock.NewMetrics()
	return &testTracker{
		tracker: NewTracker(store, policies, mock.Hasher{}, log, m),
		store:   store,
		logger:  log,
		metrics: m,
	}
}

// storedRecord decodes the raw record for action and identifier
func (tt *testTracker) storedRecord(t *testing.T, action ActionType, identifier string) attemptRecord {
	t.Helper()
	raw, ok := tt.store.Raw(tt.tracker.Key(action, identifier))
	if !ok {
		t.Fatalf("Expected a stored record for %s/%s", action, identifier)
	}
	var rec attemptRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("Failed to decode stored record: %v", err)
	}
	return rec
}

func TestCheckAndRecord_LoginAttemptsExample(t *testing.T) {
	tt := newTestTracker(DefaultPolicies())
	ctx := context.Background()

	for i, want := range []int{4, 3, 2, 1, 0} {
		decision := tt.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user@example.com", t0)
		if !decision.Allowed {
			t.Fatalf("Expected attempt %d to be allowed", i+1)
		}
		if decision.Remaining != want {
			t.Errorf("Attempt %d: expected remaining %d, got %d", i+1, want, decision.Remaining)
		}
	}

	decision := tt.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user@example.com", t0.Add(time.Minute))
	if decision.Allowed {
		t.Fatal("Expected sixth attempt to be denied")
	}
	if decision.RetryAfterSeconds != 1740 {
		t.Errorf("Expected retry after 1740 seconds, got %d", decision.RetryAfterSeconds)
	}
	if decision.Reason != "Rate limit exceeded" {
		t.Errorf("Unexpected reason %q", decision.Reason)
	}

	if got := tt.metrics.Count("ratelimit.loginAttempts.allowed"); got != 5 {
		t.Errorf("Expected 5 allowed counts, got %v", got)
	}
	if got := tt.metrics.Count("ratelimit.loginAttempts.denied"); got != 1 {
		t.Errorf("Expected 1 denied count, got %v", got)
	}
}

func TestCheckAndRecord_DeniedAttemptsAreNotRecorded(t *testing.T) {
	tt := newTestTracker(DefaultPolicies())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tt.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user", t0)
	}

	for i := 1; i <= 3; i++ {
		decision := tt.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user", t0.Add(time.Duration(i)*time.Minute))
		if decision.Allowed {
			t.Fatalf("Expected denial %d", i)
		}
		want := 1800 - i*60
		if decision.RetryAfterSeconds != want {
			t.Errorf("Denial %d: expected retry %d, got %d", i, want, decision.RetryAfterSeconds)
		}
	}

	rec := tt.storedRecord(t, ActionLoginAttempts, "user")
	if len(rec.Attempts) != 5 {
		t.Errorf("Expected 5 stored attempts after repeated denial, got %d", len(rec.Attempts))
	}
}

func TestCheckAndRecord_BlockEndsWithWindow(t *testing.T) {
	ctx := context.Background()
	denied := newTestTracker(DefaultPolicies())
	fresh := newTestTracker(DefaultPolicies())

	for i := 0; i < 5; i++ {
		denied.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user", t0)
		fresh.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user", t0)
	}

	key := denied.tracker.Key(ActionLoginAttempts, "user")
	before, _ := denied.store.Raw(key)
	if d := denied.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user", t0.Add(time.Minute)); d.Allowed {
		t.Fatal("Expected denial inside the window")
	}
	after, _ := denied.store.Raw(key)
	if string(before) != string(after) {
		t.Errorf("Expected denial to leave the stored record unchanged, got %s, want %s", after, before)
	}

	// The 30 minute block cannot outlast the attempts that caused it.
	for name, tr := range map[string]*testTracker{"denied": denied, "fresh": fresh} {
		decision := tr.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user", t0.Add(16*time.Minute))
		if !decision.Allowed {
			t.Fatalf("%s: expected admission once the attempts left the window, got %+v", name, decision)
		}
		if decision.Remaining != 4 {
			t.Errorf("%s: expected 4 remaining, got %d", name, decision.Remaining)
		}
	}
}

func TestCheckAndRecord_WindowExpiryWithoutDenial(t *testing.T) {
	tt := newTestTracker(DefaultPolicies())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tt.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user", t0)
	}

	decision := tt.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user", t0.Add(15*time.Minute))
	if !decision.Allowed {
		t.Fatal("Expected attempts exactly one window old to be pruned")
	}
	if decision.Remaining != 4 {
		t.Errorf("Expected 4 remaining, got %d", decision.Remaining)
	}
}

func TestCheckAndRecord_SlidingWindow(t *testing.T) {
	policies := map[ActionType]Policy{
		ActionAPICalls: {MaxAttempts: 3, Window: 10 * time.Second},
	}
	tt := newTestTracker(policies)
	ctx := context.Background()

	for _, offset := range []time.Duration{0, 4 * time.Second, 8 * time.Second} {
		if d := tt.tracker.CheckAndRecord(ctx, ActionAPICalls, "client", t0.Add(offset)); !d.Allowed {
			t.Fatalf("Expected call at %s to be allowed", offset)
		}
	}

	decision := tt.tracker.CheckAndRecord(ctx, ActionAPICalls, "client", t0.Add(9*time.Second))
	if decision.Allowed {
		t.Fatal("Expected fourth call inside the window to be denied")
	}
	if decision.RetryAfterSeconds != 1 {
		t.Errorf("Expected retry after 1 second, got %d", decision.RetryAfterSeconds)
	}

	decision = tt.tracker.CheckAndRecord(ctx, ActionAPICalls, "client", t0.Add(10*time.Second))
	if !decision.Allowed {
		t.Fatal("Expected call to be allowed once the oldest attempt slid out")
	}
	if decision.Remaining != 0 {
		t.Errorf("Expected 0 remaining, got %d", decision.Remaining)
	}
}

func TestCheckAndRecord_IndependentKeys(t *testing.T) {
	policies := map[ActionType]Policy{
		ActionLoginAttempts: {MaxAttempts: 1, Window: time.Minute, BlockDuration: time.Minute},
		ActionPasswordReset: {MaxAttempts: 1, Window: time.Minute, BlockDuration: time.Minute},
	}
	tt := newTestTracker(policies)
	ctx := context.Background()

	tt.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "alice", t0)

	if d := tt.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "bob", t0); !d.Allowed {
		t.Error("Expected a different identifier to be tracked separately")
	}
	if d := tt.tracker.CheckAndRecord(ctx, ActionPasswordReset, "alice", t0); !d.Allowed {
		t.Error("Expected a different action to be tracked separately")
	}
	if d := tt.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "alice", t0); d.Allowed {
		t.Error("Expected the original pair to be limited")
	}
}

func TestCheckAndRecord_UnknownActionIsUnconstrained(t *testing.T) {
	tt := newTestTracker(DefaultPolicies())

	for i := 0; i < 500; i++ {
		decision := tt.tracker.CheckAndRecord(context.Background(), ActionType("export"), "user", t0)
		if !decision.Allowed {
			t.Fatalf("Expected unknown action to be allowed on call %d", i+1)
		}
	}

	if tt.store.Len() != 0 {
		t.Errorf("Expected unknown action not to touch storage, found %d keys", tt.store.Len())
	}
}

func TestCheckAndRecord_FailsOpenOnStorageFault(t *testing.T) {
	tt := newTestTracker(map[ActionType]Policy{
		ActionLoginAttempts: {MaxAttempts: 1, Window: time.Minute},
	})
	tt.store.Unavailable = true
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision := tt.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user", t0)
		if !decision.Allowed {
			t.Fatalf("Expected call %d to fail open", i+1)
		}
		if !decision.Degraded {
			t.Errorf("Expected call %d to be marked degraded", i+1)
		}
	}

	if got := tt.metrics.Count("ratelimit.storage_error"); got != 3 {
		t.Errorf("Expected 3 storage errors, got %v", got)
	}
	if warnings := tt.logger.Entries("warn"); len(warnings) != 3 {
		t.Errorf("Expected 3 warnings, got %d", len(warnings))
	}
}

func TestCheckAndRecord_ConcurrentCallers(t *testing.T) {
	tt := newTestTracker(map[ActionType]Policy{
		ActionAPICalls: {MaxAttempts: 5, Window: time.Minute},
	})
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d := tt.tracker.CheckAndRecord(ctx, ActionAPICalls, "client", t0); d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 5 {
		t.Errorf("Expected exactly 5 allowed calls, got %d", allowed)
	}
}

func TestKey_HashesIdentifier(t *testing.T) {
	tt := newTestTracker(DefaultPolicies())

	want := "ratelimit:loginAttempts:" + hex.EncodeToString([]byte("hashed_user@example.com"))
	if got := tt.tracker.Key(ActionLoginAttempts, "user@example.com"); got != want {
		t.Errorf("Expected key %q, got %q", want, got)
	}

	plain := NewTracker(memory.NewStore(), DefaultPolicies(), nil, mock.NewLogger(), mock.NewMetrics())
	if got := plain.Key(ActionAPICalls, "10.0.0.1"); got != "ratelimit:apiCalls:10.0.0.1" {
		t.Errorf("Expected raw identifier in key, got %q", got)
	}
}

func TestStatus_DoesNotRecord(t *testing.T) {
	tt := newTestTracker(DefaultPolicies())
	ctx := context.Background()

	tt.tracker.CheckAndRecord(ctx, ActionPasswordReset, "user", t0)

	for i := 0; i < 5; i++ {
		status := tt.tracker.Status(ctx, ActionPasswordReset, "user", t0)
		if !status.Allowed || status.Remaining != 2 {
			t.Fatalf("Expected allowed with 2 remaining, got %+v", status)
		}
	}

	tt.tracker.CheckAndRecord(ctx, ActionPasswordReset, "user", t0)
	tt.tracker.CheckAndRecord(ctx, ActionPasswordReset, "user", t0)

	status := tt.tracker.Status(ctx, ActionPasswordReset, "user", t0.Add(time.Hour/2))
	if status.Allowed {
		t.Fatal("Expected status to report the block")
	}
	if status.RetryAfterSeconds != int((24*time.Hour - time.Hour/2).Seconds()) {
		t.Errorf("Unexpected retry after %d", status.RetryAfterSeconds)
	}
}

func TestReset_ClearsAttempts(t *testing.T) {
	tt := newTestTracker(DefaultPolicies())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		tt.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user", t0)
	}

	tt.tracker.Reset(ctx, ActionLoginAttempts, "user")

	decision := tt.tracker.CheckAndRecord(ctx, ActionLoginAttempts, "user", t0)
	if !decision.Allowed || decision.Remaining != 4 {
		t.Errorf("Expected a clean slate after reset, got %+v", decision)
	}
}

func TestAllow_ReturnsRateLimitError(t *testing.T) {
	tt := newTestTracker(map[ActionType]Policy{
		ActionLoginAttempts: {MaxAttempts: 1, Window: time.Minute},
	})
	ctx := context.Background()

	if err := tt.tracker.Allow(ctx, ActionLoginAttempts, "user", t0); err != nil {
		t.Fatalf("Expected first attempt to be allowed, got %v", err)
	}

	err := tt.tracker.Allow(ctx, ActionLoginAttempts, "user", t0)
	if !errors.IsErrorType(err, errors.ErrRateLimitExceeded) {
		t.Errorf("Expected ErrRateLimitExceeded, got %v", err)
	}
}

func TestPolicy_Defaults(t *testing.T) {
	tt := newTestTracker(DefaultPolicies())

	api, ok := tt.tracker.Policy(ActionAPICalls)
	if !ok {
		t.Fatal("Expected apiCalls policy")
	}
	if api.BlockDuration != time.Minute {
		t.Errorf("Expected apiCalls block duration to default to the window, got %s", api.BlockDuration)
	}

	for action, policy := range DefaultPolicies() {
		if err := policy.Validate(); err != nil {
			t.Errorf("Expected default %s policy to be valid, got %v", action, err)
		}
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"valid", Policy{MaxAttempts: 1, Window: time.Second}, false},
		{"zero attempts", Policy{Window: time.Second}, true},
		{"zero window", Policy{MaxAttempts: 1}, true},
		{"negative block", Policy{MaxAttempts: 1, Window: time.Second, BlockDuration: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.policy.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
