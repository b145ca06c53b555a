package pool

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/internal/db"
)

// validateOnAcquire implements spec §4.6's liveness check plus the
// factory's own ValidateOnAcquire hook. It runs with the pool's mutex
// released, since both operations may perform I/O (spec §5's
// suspension points).
func (p *Pool) validateOnAcquire(ctx context.Context, entry *poolEntry) bool {
	if p.needsLivenessCheck(entry) {
		if err := entry.conn.ResetAndFlush(ctx); err != nil {
			db.NewAddressLogger(p.logger, entry.address.HostPort()).Debug("liveness check failed, destroying connection", "error", err.Error())
			return false
		}
	}
	return p.factory.ValidateOnAcquire(ctx, entry.conn)
}

// needsLivenessCheck reports whether entry has been idle long enough to
// warrant a reset-and-flush before being handed out (spec §4.6):
//   - a negative threshold disables the check entirely;
//   - a zero threshold forces a check on every acquisition of an idle
//     connection;
//   - a connection authenticated with the "none" scheme always skips
//     the check, since nothing about it can have changed while idle.
func (p *Pool) needsLivenessCheck(entry *poolEntry) bool {
	if p.livenessTimeout < 0 {
		return false
	}
	if entry.conn.AuthToken().Scheme == "none" {
		return false
	}
	return time.Since(entry.idleSince) >= p.livenessTimeout
}
