package db

import "time"

// LogLevel mirrors the teacher's pgx.LogLevel: the zero value means "no
// level specified" so Config's zero value is always a safe default.
type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// Config carries every option the core recognizes (spec §6.4) plus the
// ambient logging/tracing knobs. NewConfig returns one with every
// documented default applied. A field left at its zero value is not
// replaced by its default: Validate fills in only a nil Logger and a
// nil Tracer, so any other zero field keeps its zero meaning.
type Config struct {
	// MaxPoolSize caps |idle|+|in-use|+|creating| per address; 0
	// disables the cap (spec §4.1, §8).
	MaxPoolSize int
	// AcquisitionTimeout bounds how long an acquire request waits in
	// its per-address queue (spec §4.1).
	AcquisitionTimeout time.Duration
	// ConnectionLivenessCheckTimeout is the idle threshold above which
	// an acquired idle connection is reset-and-flushed before being
	// handed out. Negative disables the check; 0 forces a check on
	// every acquisition of an idle connection (spec §4.6).
	ConnectionLivenessCheckTimeout time.Duration
	// MaxRetryTime is the total wall-clock retry budget (spec §4.5).
	MaxRetryTime time.Duration
	// InitialRetryDelay is the first retry delay base (spec §4.5).
	InitialRetryDelay time.Duration
	// RetryDelayMultiplier is the geometric multiplier; must be > 0
	// (spec §4.5 — a multiplier of 0 or less is rejected by
	// Validate).
	RetryDelayMultiplier float64
	// RetryDelayJitterFactor is the uniform jitter fraction, 0 <= j < 1
	// (spec §4.5).
	RetryDelayJitterFactor float64
	// RoutingTablePurgeDelay is the grace period past a table's
	// expiresAt before the registry evicts it (spec §4.2).
	RoutingTablePurgeDelay time.Duration
	// UseSeedRouterFirst makes the very first refresh try the resolved
	// seed before the table's known routers (spec §4.4, §6.4).
	UseSeedRouterFirst bool
	// HomeDatabaseCacheSize bounds the per-impersonated-user home
	// database resolution cache (spec §9, resolved in SPEC_FULL.md §12).
	// 0 disables the cache.
	HomeDatabaseCacheSize int

	Logger   Logger
	LogLevel LogLevel
	Tracer   Tracer
}

const (
	DefaultMaxPoolSize                   = 100
	DefaultAcquisitionTimeout            = 60 * time.Second
	DefaultConnectionLivenessCheckTimeout = -1 * time.Second
	DefaultMaxRetryTime                   = 30 * time.Second
	DefaultInitialRetryDelay              = 1 * time.Second
	DefaultRetryDelayMultiplier           = 2.0
	DefaultRetryDelayJitterFactor         = 0.2
	DefaultRoutingTablePurgeDelay         = 30 * time.Second
	DefaultHomeDatabaseCacheSize          = 256
)

// NewConfig returns a Config with every documented default applied
// (spec §4.5, §6.4).
func NewConfig() *Config {
	return &Config{
		MaxPoolSize:                    DefaultMaxPoolSize,
		AcquisitionTimeout:             DefaultAcquisitionTimeout,
		ConnectionLivenessCheckTimeout: DefaultConnectionLivenessCheckTimeout,
		MaxRetryTime:                   DefaultMaxRetryTime,
		InitialRetryDelay:              DefaultInitialRetryDelay,
		RetryDelayMultiplier:           DefaultRetryDelayMultiplier,
		RetryDelayJitterFactor:         DefaultRetryDelayJitterFactor,
		RoutingTablePurgeDelay:         DefaultRoutingTablePurgeDelay,
		HomeDatabaseCacheSize:          DefaultHomeDatabaseCacheSize,
		Logger:                         discardLogger{},
		LogLevel:                       LogLevelNone,
		Tracer:                         NoopTracer{},
	}
}

// Validate enforces the invariants spec §4.5 calls out explicitly: a
// zero multiplier is rejected, not silently treated as "no backoff".
func (c *Config) Validate() error {
	if c.RetryDelayMultiplier <= 0 {
		return NewProtocolError("retryDelayMultiplier must be > 0, got %v", c.RetryDelayMultiplier)
	}
	if c.RetryDelayJitterFactor < 0 || c.RetryDelayJitterFactor >= 1 {
		return NewProtocolError("retryDelayJitterFactor must be in [0, 1), got %v", c.RetryDelayJitterFactor)
	}
	if c.Logger == nil {
		c.Logger = discardLogger{}
	}
	if c.Tracer == nil {
		c.Tracer = NoopTracer{}
	}
	return nil
}
