// Package retry implements the Retry Executor of spec §4.5: run a user
// callable, and on a classified-transient failure, back off
// geometrically and retry within a total wall-clock budget.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/gofrs/uuid"

	"github.com/neo4j/neo4j-go-driver/v5/internal/db"
)

// Work produces a transaction result; Rollback, if non-nil, is invoked
// best-effort when Work fails and another attempt is about to start
// (spec §4.5 "Retry closes the failed transaction").
type Work func(ctx context.Context) (interface{}, error)

// Config carries the four tunables of spec §4.5. Multiplier must be >
// 0; JitterFactor must be in [0, 1).
type Config struct {
	MaxRetryTime time.Duration
	InitialDelay time.Duration
	Multiplier   float64
	JitterFactor float64
}

// Executor runs Work, retrying classified-transient failures per spec
// §4.5's geometric-backoff-with-jitter schedule.
type Executor struct {
	cfg    Config
	logger db.Logger
	tracer db.Tracer
	rand   *rand.Rand
}

// New constructs an Executor. cfg.Multiplier must be > 0 (a multiplier
// of exactly 0 is rejected at Config.Validate time, not here).
func New(cfg Config, logger db.Logger, tracer db.Tracer) *Executor {
	if logger == nil {
		logger = discardLogger{}
	}
	if tracer == nil {
		tracer = db.NoopTracer{}
	}
	return &Executor{
		cfg:    cfg,
		logger: logger,
		tracer: tracer,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...interface{}) {}
func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}

// Rollback is an optional best-effort cleanup invoked between attempts.
// Its own failure is logged and swallowed; the triggering error from
// Work is what callers see (spec §7 "Rollback failures ... swallowed").
type Rollback func(ctx context.Context) error

// Execute runs work, retrying on a classified-transient *db.RoutingError
// until either it succeeds, a non-retryable error occurs, or the
// cumulative elapsed time since the first attempt exceeds
// cfg.MaxRetryTime.
func (e *Executor) Execute(ctx context.Context, work Work, rollback Rollback) (interface{}, error) {
	start := time.Now()
	var lastErr error

	for attempt := 0; ; attempt++ {
		correlationID, _ := uuid.NewV4()

		result, err := work(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}

		if rollback != nil {
			if rerr := rollback(ctx); rerr != nil {
				e.logger.Debug("rollback after failed attempt returned an error, ignoring", "correlationId", correlationID.String(), "error", rerr.Error())
			}
		}

		delay := e.delayFor(attempt)
		elapsed := time.Since(start)
		if elapsed+delay > e.cfg.MaxRetryTime {
			e.logger.Warn("retry budget exhausted", "correlationId", correlationID.String(), "attempts", attempt+1, "error", err.Error())
			return nil, lastErr
		}

		e.tracer.TraceRetryAttempt(ctx, attempt, delay.Milliseconds(), err)
		e.logger.Debug("retrying after classified-transient failure", "correlationId", correlationID.String(), "attempt", attempt, "delayMs", delay.Milliseconds(), "error", err.Error())

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// delayFor computes the n-th retry delay: initialDelay * multiplier^n
// * (1 + U(-jitterFactor, +jitterFactor)), per spec §4.5's "Delay
// schedule".
func (e *Executor) delayFor(attempt int) time.Duration {
	base := float64(e.cfg.InitialDelay) * pow(e.cfg.Multiplier, attempt)
	if e.cfg.JitterFactor > 0 {
		jitter := 1 + (e.rand.Float64()*2-1)*e.cfg.JitterFactor
		base *= jitter
	}
	if base < 0 {
		base = 0
	}
	return time.Duration(base)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// retryable implements spec §4.5's "Retried on" / "Not retried on"
// classification.
func retryable(err error) bool {
	var rerr *db.RoutingError
	if !errors.As(err, &rerr) {
		return false
	}
	return rerr.Kind.Retryable()
}
