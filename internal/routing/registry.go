package routing

import (
	"context"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/internal/db"
)

// refreshKey identifies one collapsible in-flight refresh (spec §3's
// RegistryEntry: "most recent refresh-in-flight promise per (database,
// impersonatedUser)").
type refreshKey struct {
	database         string
	impersonatedUser string
}

type refreshFuture struct {
	done   chan struct{}
	table  *Table
	err    error
}

// Registry is spec §4.2's Routing Table Registry: a database-keyed map
// of Tables with staleness-aware eviction and single-flight refresh
// collapsing. Grounded on the teacher's own pattern of guarding a plain
// map with one mutex (conn_pool.go) rather than reaching for an
// external cache library the pack does not carry for this shape.
type Registry struct {
	mu         sync.Mutex
	tables     map[string]*Table // keyed by Table.Database
	inFlight   map[refreshKey]*refreshFuture
	purgeDelay time.Duration
	logger     db.Logger
}

// New constructs an empty Registry.
func New(purgeDelay time.Duration, logger db.Logger) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Registry{
		tables:     make(map[string]*Table),
		inFlight:   make(map[refreshKey]*refreshFuture),
		purgeDelay: purgeDelay,
		logger:     logger,
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// Get returns the current table for database, or nil if absent.
func (r *Registry) Get(database string) *Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables[database]
}

// Register stores or replaces the table for its own database, then
// sweeps every other database's table whose expiresAt+purgeDelay has
// passed (spec §4.2).
func (r *Registry) Register(table *Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table.Database] = table
	for database, t := range r.tables {
		if database == table.Database {
			continue
		}
		if t.Expired(r.purgeDelay) {
			delete(r.tables, database)
			r.logger.Debug("evicted stale routing table", "database", database)
		}
	}
}

// Forget removes address from every role of the table owning database,
// if present, and re-registers the result (spec §4.4 "forget").
func (r *Registry) Forget(database string, address db.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[database]
	if !ok {
		return
	}
	r.tables[database] = t.withoutAddress(address)
}

// ForgetWriter removes address from the writers list only (spec §4.4
// "forgetWriter").
func (r *Registry) ForgetWriter(database string, address db.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[database]
	if !ok {
		return
	}
	r.tables[database] = t.withoutWriter(address)
}

// ForgetAddressEverywhere applies Forget across every tracked database.
func (r *Registry) ForgetAddressEverywhere(address db.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for database, t := range r.tables {
		r.tables[database] = t.withoutAddress(address)
	}
}

// Apply ensures at most one in-flight refreshFn runs per (database,
// impersonatedUser); concurrent callers share the same result (spec
// §4.2). refreshFn is invoked with the registry's lock released.
func (r *Registry) Apply(ctx context.Context, database, impersonatedUser string, refreshFn func(context.Context) (*Table, error)) (*Table, error) {
	key := refreshKey{database: database, impersonatedUser: impersonatedUser}

	r.mu.Lock()
	if fut, ok := r.inFlight[key]; ok {
		r.mu.Unlock()
		return waitFuture(ctx, fut)
	}
	fut := &refreshFuture{done: make(chan struct{})}
	r.inFlight[key] = fut
	r.mu.Unlock()

	table, err := refreshFn(ctx)

	r.mu.Lock()
	fut.table, fut.err = table, err
	delete(r.inFlight, key)
	r.mu.Unlock()
	close(fut.done)

	if err == nil && table != nil {
		r.Register(table)
	}
	return table, err
}

func waitFuture(ctx context.Context, fut *refreshFuture) (*Table, error) {
	select {
	case <-fut.done:
		return fut.table, fut.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
