// Package config provides configuration loading, parsing, and hot-reload for studentos.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
)

// Configuration errors.
var (
	ErrAIKeyRequired = errors.New("config: ai.api_key is required when ai is enabled")
)

// RuntimeConfig defines the interface for accessing runtime configuration that
// supports hot-reload. Components that need to observe config changes should
// use this interface instead of holding a direct *Config pointer, which would
// become stale after hot-reload.
type RuntimeConfig interface {
	Get() *Config
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config represents the complete studentos configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	AI        AIConfig        `toml:"ai"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Cache     CacheConfig     `toml:"cache"`
	Auth      AuthConfig      `toml:"auth"`
	Database  DatabaseConfig  `toml:"database"`
	Email     EmailConfig     `toml:"email"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Listen is the address to bind, e.g. "127.0.0.1:8080".
	Listen string `toml:"listen"`

	// HTTP2 enables HTTP/2 cleartext (h2c) support for non-TLS connections.
	HTTP2 bool `toml:"http2"`

	// MaxBodyBytes limits request body size in bytes. 0 means no limit.
	MaxBodyBytes int64 `toml:"max_body_bytes"`

	// ShutdownTimeout is the grace period for draining in-flight requests,
	// in seconds. Default: 30.
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// GetShutdownTimeout returns the drain timeout with default fallback.
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	if s.ShutdownTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// GetMaxBodyBytesOption returns the body limit as an Option.
// Returns None when no limit is configured.
func (s *ServerConfig) GetMaxBodyBytesOption() mo.Option[int64] {
	if s.MaxBodyBytes <= 0 {
		return mo.None[int64]()
	}
	return mo.Some(s.MaxBodyBytes)
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// Format is one of json, pretty, console (auto-detect terminal).
	Format string `toml:"format"`

	// Output is stdout, stderr, or a file path.
	Output string `toml:"output"`

	// Pretty forces console formatting regardless of Format.
	Pretty bool `toml:"pretty"`
}

// ParseLevel converts the configured level string to a zerolog.Level.
// Unknown or empty levels default to info.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch l.Level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelInfo, "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

// AIConfig configures the upstream generative model client.
type AIConfig struct {
	// APIKey authenticates against the upstream model API.
	// Empty means the AI service is unconfigured; AI endpoints return 503.
	APIKey string `toml:"api_key"`

	// BaseURL overrides the upstream API base URL. Empty uses the default.
	BaseURL string `toml:"base_url"`

	// Model is the upstream model identifier.
	Model string `toml:"model"`

	// TimeoutSeconds bounds a single upstream call. Default: 60.
	TimeoutSeconds int `toml:"timeout_seconds"`

	// UpstreamRPM caps outbound calls to the provider per minute.
	// 0 means uncapped.
	UpstreamRPM int `toml:"upstream_rpm"`

	// Breaker configures the upstream circuit breaker.
	Breaker BreakerConfig `toml:"breaker"`
}

// GetModel returns the model identifier with default fallback.
func (a *AIConfig) GetModel() string {
	if a.Model == "" {
		return "gemini-1.5-flash"
	}
	return a.Model
}

// GetTimeout returns the upstream call timeout with default fallback.
func (a *AIConfig) GetTimeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// GetUpstreamRPMOption returns the outbound rate cap as an Option.
func (a *AIConfig) GetUpstreamRPMOption() mo.Option[int] {
	if a.UpstreamRPM <= 0 {
		return mo.None[int]()
	}
	return mo.Some(a.UpstreamRPM)
}

// IsConfigured reports whether an upstream API key is present.
func (a *AIConfig) IsConfigured() bool {
	return a.APIKey != ""
}

// BreakerConfig configures the circuit breaker guarding upstream calls.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the circuit.
	// Default: 5.
	FailureThreshold int `toml:"failure_threshold"`

	// OpenSeconds is how long the circuit stays open before probing. Default: 30.
	OpenSeconds int `toml:"open_seconds"`

	// HalfOpenProbes is the number of probe requests allowed half-open. Default: 1.
	HalfOpenProbes int `toml:"half_open_probes"`
}

// GetFailureThreshold returns the failure threshold with default fallback.
func (b *BreakerConfig) GetFailureThreshold() int {
	if b.FailureThreshold <= 0 {
		return 5
	}
	return b.FailureThreshold
}

// GetOpenDuration returns the open-state duration with default fallback.
func (b *BreakerConfig) GetOpenDuration() time.Duration {
	if b.OpenSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.OpenSeconds) * time.Second
}

// GetHalfOpenProbes returns the half-open probe count with default fallback.
func (b *BreakerConfig) GetHalfOpenProbes() int {
	if b.HalfOpenProbes <= 0 {
		return 1
	}
	return b.HalfOpenProbes
}

// RateLimitConfig configures the inbound request limiter policies.
type RateLimitConfig struct {
	// AIWindowSeconds and AIMaxRequests define the strict policy for AI
	// endpoints. Defaults: 60s window, 10 requests.
	AIWindowSeconds int `toml:"ai_window_seconds"`
	AIMaxRequests   int `toml:"ai_max_requests"`

	// GeneralWindowSeconds and GeneralMaxRequests define the lenient policy
	// for general endpoints. Defaults: 60s window, 100 requests.
	GeneralWindowSeconds int `toml:"general_window_seconds"`
	GeneralMaxRequests   int `toml:"general_max_requests"`

	// SweepIntervalSeconds controls how often expired counters are evicted.
	// Default: 300 (5 minutes).
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
}

// GetAIWindow returns the AI policy window with default fallback.
func (r *RateLimitConfig) GetAIWindow() time.Duration {
	if r.AIWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.AIWindowSeconds) * time.Second
}

// GetAIMaxRequests returns the AI policy request cap with default fallback.
func (r *RateLimitConfig) GetAIMaxRequests() int {
	if r.AIMaxRequests <= 0 {
		return 10
	}
	return r.AIMaxRequests
}

// GetGeneralWindow returns the general policy window with default fallback.
func (r *RateLimitConfig) GetGeneralWindow() time.Duration {
	if r.GeneralWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.GeneralWindowSeconds) * time.Second
}

// GetGeneralMaxRequests returns the general policy request cap with default fallback.
func (r *RateLimitConfig) GetGeneralMaxRequests() int {
	if r.GeneralMaxRequests <= 0 {
		return 100
	}
	return r.GeneralMaxRequests
}

// GetSweepInterval returns the counter sweep interval with default fallback.
func (r *RateLimitConfig) GetSweepInterval() time.Duration {
	if r.SweepIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.SweepIntervalSeconds) * time.Second
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	// Enabled toggles response caching. Default: true (set via DefaultConfig).
	Enabled bool `toml:"enabled"`

	// SweepIntervalSeconds controls how often expired entries are evicted.
	// Default: 300 (5 minutes).
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
}

// GetSweepInterval returns the cache sweep interval with default fallback.
func (c *CacheConfig) GetSweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// AuthConfig configures bearer token authentication.
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret for session tokens.
	// Empty disables authentication (all requests are anonymous).
	JWTSecret string `toml:"jwt_secret"`

	// TokenCacheSize is the max number of verified tokens kept in the
	// verification cache. Default: 10000.
	TokenCacheSize int64 `toml:"token_cache_size"`

	// TokenCacheTTLSeconds bounds how long a verified token stays cached.
	// Default: 300.
	TokenCacheTTLSeconds int `toml:"token_cache_ttl_seconds"`
}

// IsEnabled reports whether bearer authentication is configured.
func (a *AuthConfig) IsEnabled() bool {
	return a.JWTSecret != ""
}

// GetTokenCacheSize returns the verification cache capacity with default fallback.
func (a *AuthConfig) GetTokenCacheSize() int64 {
	if a.TokenCacheSize <= 0 {
		return 10_000
	}
	return a.TokenCacheSize
}

// GetTokenCacheTTL returns the verification cache TTL with default fallback.
func (a *AuthConfig) GetTokenCacheTTL() time.Duration {
	if a.TokenCacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(a.TokenCacheTTLSeconds) * time.Second
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path is the SQLite database file. ":memory:" for an in-memory store.
	Path string `toml:"path"`
}

// GetPath returns the database path with default fallback.
func (d *DatabaseConfig) GetPath() string {
	if d.Path == "" {
		return "studentos.db"
	}
	return d.Path
}

// EmailConfig configures outbound email.
type EmailConfig struct {
	// Provider is one of console (default), sendgrid, resend.
	Provider string `toml:"provider"`

	// APIKey authenticates against the provider API.
	APIKey string `toml:"api_key"`

	// From is the sender address.
	From string `toml:"from"`
}

// GetProvider returns the email provider with default fallback.
func (e *EmailConfig) GetProvider() string {
	if e.Provider == "" {
		return "console"
	}
	return e.Provider
}

// GetFrom returns the sender address with default fallback.
func (e *EmailConfig) GetFrom() string {
	if e.From == "" {
		return "noreply@studentos.app"
	}
	return e.From
}

// DefaultConfig returns a Config with sensible defaults for local development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:8080",
			ShutdownTimeout: 30,
			MaxBodyBytes:    10 << 20,
		},
		Logging: LoggingConfig{
			Level:  LevelInfo,
			Format: "console",
			Output: "stdout",
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Database: DatabaseConfig{
			Path: "studentos.db",
		},
	}
}

// Validate checks the configuration for errors.
// Returns nil if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return errors.New("config: server.listen is required")
	}

	switch c.Email.GetProvider() {
	case "console":
	case "sendgrid", "resend":
		if c.Email.APIKey == "" {
			return fmt.Errorf("config: email.api_key required for provider %q", c.Email.GetProvider())
		}
	default:
		return fmt.Errorf("config: unknown email provider %q", c.Email.Provider)
	}

	return nil
}
