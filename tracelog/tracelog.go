// Package tracelog adapts a neo4j.Logger into a neo4j.Tracer, the way the
// teacher's tracelog package turns a leveled logger into a pgx tracer.
package tracelog

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/internal/db"
)

type ctxKey int

const (
	_ ctxKey = iota
	acquireCtxKey
	releaseCtxKey
	refreshCtxKey
)

type startTime struct {
	at time.Time
}

// TraceLog implements neo4j.Tracer by turning every traced event into a
// call against an ordinary leveled Logger. Acquisitions and releases log
// at debug, successful refreshes at info, every failure at warn, and
// retries at warn since a retry means an attempt already failed.
type TraceLog struct {
	Logger db.Logger
}

func (tl *TraceLog) TraceAcquireStart(ctx context.Context, address db.Address) context.Context {
	return context.WithValue(ctx, acquireCtxKey, &startTime{at: time.Now()})
}

func (tl *TraceLog) TraceAcquireEnd(ctx context.Context, address db.Address, err error) {
	interval := tl.since(ctx, acquireCtxKey)
	if err != nil {
		tl.Logger.Warn("acquire", "address", address.HostPort(), "elapsed", interval, "error", err.Error())
		return
	}
	tl.Logger.Debug("acquire", "address", address.HostPort(), "elapsed", interval)
}

func (tl *TraceLog) TraceReleaseStart(ctx context.Context, address db.Address) context.Context {
	return context.WithValue(ctx, releaseCtxKey, &startTime{at: time.Now()})
}

func (tl *TraceLog) TraceReleaseEnd(ctx context.Context, address db.Address, err error) {
	interval := tl.since(ctx, releaseCtxKey)
	if err != nil {
		tl.Logger.Warn("release", "address", address.HostPort(), "elapsed", interval, "error", err.Error())
		return
	}
	tl.Logger.Debug("release", "address", address.HostPort(), "elapsed", interval)
}

func (tl *TraceLog) TraceRefreshStart(ctx context.Context, database string) context.Context {
	return context.WithValue(ctx, refreshCtxKey, &startTime{at: time.Now()})
}

func (tl *TraceLog) TraceRefreshEnd(ctx context.Context, database string, err error) {
	interval := tl.since(ctx, refreshCtxKey)
	if err != nil {
		tl.Logger.Warn("refresh", "database", database, "elapsed", interval, "error", err.Error())
		return
	}
	tl.Logger.Info("refresh", "database", database, "elapsed", interval)
}

func (tl *TraceLog) TraceRetryAttempt(ctx context.Context, attempt int, delay int64, err error) {
	if err == nil {
		return
	}
	tl.Logger.Warn("retry", "attempt", attempt, "delayMillis", delay, "error", err.Error())
}

func (tl *TraceLog) since(ctx context.Context, key ctxKey) time.Duration {
	st, ok := ctx.Value(key).(*startTime)
	if !ok {
		return 0
	}
	return time.Since(st.at)
}
