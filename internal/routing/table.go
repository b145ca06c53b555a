// Package routing implements the Routing Table Registry of spec §4.2:
// a database-keyed map of immutable RoutingTable snapshots, staleness
// detection and in-flight refresh collapsing.
package routing

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/internal/db"
)

// AccessMode selects which server role a Table lookup is for.
type AccessMode int

const (
	AccessModeRead AccessMode = iota
	AccessModeWrite
)

// maxInstant is the saturation ceiling for ExpiresAt on ttl overflow
// (spec §3 invariant I1, §4.3 "Determinism").
const maxInstant = int64(math.MaxInt64)

// Table is spec §3's RoutingTable: an immutable, wholesale-replaced
// snapshot. Database is empty for the home/default database. Routers,
// Readers and Writers are never mutated after construction; Forget and
// ForgetWriter return new Tables.
type Table struct {
	Database   string
	Routers    []db.Address
	Readers    []db.Address
	Writers    []db.Address
	TTLMillis  int64
	ExpiresAt  int64 // unix millis

	readCursor  uint32
	writeCursor uint32
}

// NewTable builds a Table with ExpiresAt derived from createdAtMillis +
// ttlMillis, saturating at maxInstant on overflow (invariant I1).
func NewTable(database string, routers, readers, writers []db.Address, ttlMillis int64, createdAtMillis int64) *Table {
	expiresAt := maxInstant
	if createdAtMillis <= maxInstant-ttlMillis {
		expiresAt = createdAtMillis + ttlMillis
	}
	return &Table{
		Database:  database,
		Routers:   routers,
		Readers:   readers,
		Writers:   writers,
		TTLMillis: ttlMillis,
		ExpiresAt: expiresAt,
	}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// IsStale implements spec §4.2's staleness predicate for the given
// access mode.
func (t *Table) IsStale(mode AccessMode) bool {
	if t == nil {
		return true
	}
	if nowMillis() >= t.ExpiresAt {
		return true
	}
	if len(t.Routers) == 0 {
		return true
	}
	switch mode {
	case AccessModeRead:
		return len(t.Readers) == 0
	case AccessModeWrite:
		return len(t.Writers) == 0
	}
	return false
}

// Expired reports whether t is past expiresAt+purgeDelay, the Registry
// sweep condition (spec §3, §4.2).
func (t *Table) Expired(purgeDelay time.Duration) bool {
	delay := purgeDelay.Milliseconds()
	if t.ExpiresAt > maxInstant-delay {
		return false
	}
	return nowMillis() >= t.ExpiresAt+delay
}

// ServersFor returns the address list for mode, used by the provider's
// round-robin selection (spec §4.4).
func (t *Table) ServersFor(mode AccessMode) []db.Address {
	switch mode {
	case AccessModeWrite:
		return t.Writers
	default:
		return t.Readers
	}
}

// NextServer returns the next address in round-robin order for mode, or
// false if the role list is empty (spec §4.4 "Role-empty handling").
// The cursor is per-table, so a refreshed table starts again from the
// first server of each role, matching the teacher's load-balancing of
// round-robin indices living alongside the data they walk rather than
// in a separate component. Concurrent
// Acquire calls share the same *Table, so the cursor is advanced with
// sync/atomic rather than a plain read-modify-write.
func (t *Table) NextServer(mode AccessMode) (db.Address, bool) {
	servers := t.ServersFor(mode)
	if len(servers) == 0 {
		return db.Address{}, false
	}
	cursor := &t.readCursor
	if mode == AccessModeWrite {
		cursor = &t.writeCursor
	}
	n := atomic.AddUint32(cursor, 1) - 1
	return servers[int(n)%len(servers)], true
}

// Union returns the deduplicated set of every address appearing in any
// role, used to decide which pool connections survive a table
// replacement (spec §4.4 "close pool connections to any address no
// longer present").
func (t *Table) Union() []db.Address {
	seen := make(map[string]struct{})
	var out []db.Address
	add := func(addrs []db.Address) {
		for _, a := range addrs {
			if _, ok := seen[a.HostPort()]; ok {
				continue
			}
			seen[a.HostPort()] = struct{}{}
			out = append(out, a)
		}
	}
	add(t.Routers)
	add(t.Readers)
	add(t.Writers)
	return out
}

// withoutAddress returns a copy of t with address removed from every
// role list (spec §4.4 "forget").
func (t *Table) withoutAddress(address db.Address) *Table {
	remove := func(addrs []db.Address) []db.Address {
		out := make([]db.Address, 0, len(addrs))
		for _, a := range addrs {
			if !a.Equal(address) {
				out = append(out, a)
			}
		}
		return out
	}
	cp := *t
	cp.Routers = remove(t.Routers)
	cp.Readers = remove(t.Readers)
	cp.Writers = remove(t.Writers)
	return &cp
}

// withoutWriter returns a copy of t with address removed from Writers
// only (spec §4.4 "forgetWriter").
func (t *Table) withoutWriter(address db.Address) *Table {
	out := make([]db.Address, 0, len(t.Writers))
	for _, a := range t.Writers {
		if !a.Equal(address) {
			out = append(out, a)
		}
	}
	cp := *t
	cp.Writers = out
	return &cp
}
