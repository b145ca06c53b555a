// Package pool implements the per-address connection pool of spec §4.1:
// idle lists, bounded concurrency, an acquisition queue, idle liveness
// observation and creation-in-flight accounting.
package pool

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/internal/db"
)

// entryState is the per-entry state machine of spec §4.1:
// Idle ⇄ InUse → Destroyed. A connection still being created has no
// entry yet; it is counted by its slot's creating counter, and its entry
// starts in InUse.
type entryState int

const (
	stateIdle entryState = iota
	stateInUse
	stateDestroyed
)

// poolEntry is spec §3's PoolEntry: the underlying connection handle,
// its address key, an idleSince timestamp, a generation counter and a
// reference to the owning slot.
type poolEntry struct {
	conn       db.Connection
	address    db.Address
	idleSince  time.Time
	generation uint64
	slot       *addressSlot
	state      entryState
	// purged marks an in-use entry that must be destroyed on release
	// rather than returned to idle (spec §4.1 purge semantics).
	purged bool
}
