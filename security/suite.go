package security

import (
	"context"
	"fmt"
	"time"

	"github.com/MichaelAJay/go-cache"
	"github.com/MichaelAJay/go-logger"
	"github.com/MichaelAJay/go-metrics"
	"github.com/MichaelAJay/go-security-policy/errors"
	"github.com/MichaelAJay/go-security-policy/provider"
	"github.com/MichaelAJay/go-security-policy/ratelimit"
	"github.com/MichaelAJay/go-security-policy/securitylog"
	"github.com/MichaelAJay/go-security-policy/storage"
	storecache "github.com/MichaelAJay/go-security-policy/storage/cache"
	"github.com/MichaelAJay/go-security-policy/storage/memory"
	"github.com/MichaelAJay/go-security-policy/storage/postgres"
	"github.com/MichaelAJay/go-security-policy/validation"
)

// Suite bundles the three policy components built from one Config. The
// components stay independent; the flow helpers below only sequence them the
// way the sign-in, sign-up and reset pages do.
type Suite struct {
	Config    Config
	Passwords *validation.Evaluator
	Limiter   *ratelimit.Tracker
	Events    *securitylog.EventLog

	logger logger.Logger
}

// New builds the components over store. hasher may be nil.
func New(
	cfg Config,
	store storage.Store,
	hasher ratelimit.LookupHasher,
	logger logger.Logger,
	metrics metrics.Registry,
	opts ...securitylog.Option,
) *Suite {
	return &Suite{
		Config:    cfg,
		Passwords: validation.NewEvaluator(cfg.Password, logger, metrics),
		Limiter:   ratelimit.NewTracker(store, cfg.RateLimits, hasher, logger, metrics),
		Events:    securitylog.NewEventLog(store, cfg.Monitoring, logger, metrics, opts...),
		logger:    logger,
	}
}

// OpenStore creates the storage backend selected by cfg. The cache backend
// stores into c, which the caller owns. The returned close function releases
// what OpenStore itself opened.
func OpenStore(ctx context.Context, cfg StorageConfig, c cache.Cache) (storage.Store, func(), error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return memory.NewStore(), func() {}, nil
	case BackendCache:
		if c == nil {
			return nil, nil, errors.NewConfigurationError("security.storage.backend", "cache backend requires a cache")
		}
		return storecache.NewStore(c, cfg.CacheTTL), func() {}, nil
	case BackendPostgres:
		store, err := postgres.Open(ctx, postgres.Config{DatabaseURL: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, errors.NewConfigurationError("security.storage.backend", fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
}

// CheckLogin applies the login attempt limit to email before the provider is
// called. A denial is recorded as a rate_limited event.
func (s *Suite) CheckLogin(ctx context.Context, email string, now time.Time) ratelimit.Decision {
	return s.check(ctx, ratelimit.ActionLoginAttempts, validation.NormalizeEmail(email), now)
}

// CheckPasswordReset applies the password reset limit to email.
func (s *Suite) CheckPasswordReset(ctx context.Context, email string, now time.Time) ratelimit.Decision {
	return s.check(ctx, ratelimit.ActionPasswordReset, validation.NormalizeEmail(email), now)
}

// CheckAPICall applies the API call limit to a client identifier.
func (s *Suite) CheckAPICall(ctx context.Context, clientID string, now time.Time) ratelimit.Decision {
	return s.check(ctx, ratelimit.ActionAPICalls, clientID, now)
}

func (s *Suite) check(ctx context.Context, action ratelimit.ActionType, identifier string, now time.Time) ratelimit.Decision {
	decision := s.Limiter.CheckAndRecord(ctx, action, identifier, now)
	if !decision.Allowed {
		s.Events.Append(ctx, securitylog.Event{
			Type:     securitylog.EventRateLimited,
			Severity: securitylog.SeverityMedium,
			Details: map[string]any{
				"action":              string(action),
				"retry_after_seconds": decision.RetryAfterSeconds,
			},
		})
	}
	return decision
}

// LoginSucceeded clears the login attempts for email and records the sign-in.
func (s *Suite) LoginSucceeded(ctx context.Context, email, subjectID, sessionID string) {
	s.Limiter.Reset(ctx, ratelimit.ActionLoginAttempts, validation.NormalizeEmail(email))
	s.Events.Append(ctx, securitylog.Event{
		Type:      securitylog.EventAuthSucceeded,
		SubjectID: subjectID,
		SessionID: sessionID,
	})
}

// ProviderFailed classifies a provider error code, records it in the security
// log and returns the error to show for flow together with any alerts the
// event raised.
func (s *Suite) ProviderFailed(
	ctx context.Context,
	flow provider.Flow,
	code string,
	subjectID string,
	cause error,
) (*errors.AppError, []securitylog.Alert) {
	kind := provider.Classify(code)
	if kind == provider.KindUnknown {
		s.logger.Warn("Unrecognised identity provider error",
			logger.Field{Key: "flow", Value: string(flow)},
			logger.Field{Key: "code", Value: code})
	}

	ev := provider.SecurityEventFor(kind)
	alerts := s.Events.Append(ctx, securitylog.Event{
		Type:      ev.Type,
		Severity:  ev.Severity,
		SubjectID: subjectID,
		Details: map[string]any{
			"flow": string(flow),
			"kind": kind.String(),
		},
	})

	return provider.ToAppError(flow, kind, cause), alerts
}
