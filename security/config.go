// Package security holds the configuration shared by the password evaluator,
// the rate limiter and the security event log, and wires them together.
package security

import (
	"fmt"
	"time"

	"github.com/MichaelAJay/go-config"
	"github.com/MichaelAJay/go-security-policy/errors"
	"github.com/MichaelAJay/go-security-policy/ratelimit"
	"github.com/MichaelAJay/go-security-policy/securitylog"
	"github.com/MichaelAJay/go-security-policy/validation"
)

// Storage backends understood by OpenStore.
const (
	BackendMemory   = "memory"
	BackendCache    = "cache"
	BackendPostgres = "postgres"
)

// Config is constructed once and passed to each component's constructor.
type Config struct {
	Password   validation.PasswordPolicy                 `json:"password"`
	RateLimits map[ratelimit.ActionType]ratelimit.Policy `json:"rate_limits"`
	Monitoring securitylog.Config                        `json:"monitoring"`
	Storage    StorageConfig                             `json:"storage"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Backend     string        `json:"backend" default:"memory"`
	DatabaseURL string        `json:"database_url"`
	CacheTTL    time.Duration `json:"cache_ttl" default:"2160h"`
}

// DefaultConfig returns the production defaults with in-memory storage.
func DefaultConfig() Config {
	monitoring := securitylog.DefaultConfig()
	return Config{
		Password:   validation.DefaultPasswordPolicy(),
		RateLimits: ratelimit.DefaultPolicies(),
		Monitoring: monitoring,
		Storage: StorageConfig{
			Backend:  BackendMemory,
			CacheTTL: monitoring.Retention,
		},
	}
}

// configKeys maps actions to their config key segment.
var configKeys = map[ratelimit.ActionType]string{
	ratelimit.ActionLoginAttempts: "login_attempts",
	ratelimit.ActionPasswordReset: "password_reset",
	ratelimit.ActionAPICalls:      "api_calls",
}

// LoadConfig reads settings under the "security." prefix on top of
// DefaultConfig. Durations are Go duration strings ("15m", "24h").
//
//	security.password.min_length                  int
//	security.password.max_length                  int
//	security.password.require_lowercase           bool
//	security.password.require_uppercase           bool
//	security.password.require_digit               bool
//	security.password.require_symbol              bool
//	security.password.prevent_common_passwords    bool
//	security.password.common_passwords            []string
//	security.password.prevent_personal_info       bool
//	security.rate_limit.<action>.max_attempts     int
//	security.rate_limit.<action>.window           duration
//	security.rate_limit.<action>.block_duration   duration
//	security.monitoring.log_security_events       bool
//	security.monitoring.alert_on_suspicious_activity bool
//	security.monitoring.retention_period          duration
//	security.monitoring.capacity                  int
//	security.monitoring.alert_window              duration
//	security.storage.backend                      memory | cache | postgres
//	security.storage.database_url                 string
//	security.storage.cache_ttl                    duration
//
// <action> is one of login_attempts, password_reset or api_calls.
func LoadConfig(cfg config.Config) (Config, error) {
	c := DefaultConfig()

	// Password policy
	if v, ok := cfg.GetInt("security.password.min_length"); ok {
		c.Password.MinLength = v
	}
	if v, ok := cfg.GetInt("security.password.max_length"); ok {
		c.Password.MaxLength = v
	}

	classes := []struct {
		key   string
		class validation.CharClass
	}{
		{"security.password.require_lowercase", validation.CharClassLowercase},
		{"security.password.require_uppercase", validation.CharClassUppercase},
		{"security.password.require_digit", validation.CharClassDigit},
		{"security.password.require_symbol", validation.CharClassSymbol},
	}
	required := make([]validation.CharClass, 0, len(classes))
	for _, cl := range classes {
		enabled := c.Password.Requires(cl.class)
		if v, ok := cfg.GetBool(cl.key); ok {
			enabled = v
		}
		if enabled {
			required = append(required, cl.class)
		}
	}
	c.Password.RequiredClasses = required

	if list, ok := cfg.GetStringSlice("security.password.common_passwords"); ok {
		c.Password.ForbiddenPasswords = list
	}
	if v, ok := cfg.GetBool("security.password.prevent_common_passwords"); ok && !v {
		c.Password.ForbiddenPasswords = nil
	}
	if v, ok := cfg.GetBool("security.password.prevent_personal_info"); ok {
		c.Password.ForbidPersonalInfo = v
	}

	// Rate limits
	for action, segment := range configKeys {
		policy := c.RateLimits[action]
		prefix := "security.rate_limit." + segment

		if v, ok := cfg.GetInt(prefix + ".max_attempts"); ok {
			policy.MaxAttempts = v
		}
		if err := loadDuration(cfg, prefix+".window", &policy.Window); err != nil {
			return Config{}, err
		}
		if err := loadDuration(cfg, prefix+".block_duration", &policy.BlockDuration); err != nil {
			return Config{}, err
		}
		c.RateLimits[action] = policy
	}

	// Monitoring
	if v, ok := cfg.GetBool("security.monitoring.log_security_events"); ok {
		c.Monitoring.LogSecurityEvents = v
	}
	if v, ok := cfg.GetBool("security.monitoring.alert_on_suspicious_activity"); ok {
		c.Monitoring.AlertOnSuspiciousActivity = v
	}
	if err := loadDuration(cfg, "security.monitoring.retention_period", &c.Monitoring.Retention); err != nil {
		return Config{}, err
	}
	if v, ok := cfg.GetInt("security.monitoring.capacity"); ok {
		c.Monitoring.Capacity = v
	}
	if err := loadDuration(cfg, "security.monitoring.alert_window", &c.Monitoring.AlertWindow); err != nil {
		return Config{}, err
	}

	// Storage
	if v, ok := cfg.GetString("security.storage.backend"); ok && v != "" {
		c.Storage.Backend = v
	}
	if v, ok := cfg.GetString("security.storage.database_url"); ok {
		c.Storage.DatabaseURL = v
	}
	c.Storage.CacheTTL = c.Monitoring.Retention
	if err := loadDuration(cfg, "security.storage.cache_ttl", &c.Storage.CacheTTL); err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports the first setting that cannot be enforced.
func (c Config) Validate() error {
	if c.Password.MinLength < 0 {
		return errors.NewConfigurationError("security.password.min_length", "must not be negative")
	}
	if c.Password.MaxLength > 0 && c.Password.MaxLength < c.Password.MinLength {
		return errors.NewConfigurationError("security.password.max_length", "must not be less than min_length")
	}

	for action, policy := range c.RateLimits {
		segment, known := configKeys[action]
		if !known {
			return errors.NewUnknownActionError(string(action))
		}
		if err := policy.Validate(); err != nil {
			return errors.NewConfigurationError("security.rate_limit."+segment, err.Error())
		}
	}

	if c.Monitoring.Retention <= 0 {
		return errors.NewConfigurationError("security.monitoring.retention_period", "must be positive")
	}
	if c.Monitoring.Capacity <= 0 {
		return errors.NewConfigurationError("security.monitoring.capacity", "must be positive")
	}
	if c.Monitoring.AlertWindow <= 0 {
		return errors.NewConfigurationError("security.monitoring.alert_window", "must be positive")
	}

	switch c.Storage.Backend {
	case BackendMemory, BackendCache:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.NewConfigurationError("security.storage.database_url", "required for the postgres backend")
		}
	default:
		return errors.NewConfigurationError("security.storage.backend", fmt.Sprintf("unknown backend %q", c.Storage.Backend))
	}
	return nil
}

// loadDuration parses key into dst when present.
func loadDuration(cfg config.Config, key string, dst *time.Duration) error {
	s, ok := cfg.GetString(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.NewConfigurationError(key, err.Error())
	}
	*dst = d
	return nil
}
