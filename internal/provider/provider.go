// Package provider implements the Routing Connection Provider of spec
// §4.4: the public façade owning the pool, the registry, the host-name
// resolver and the rediscovery engine.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/neo4j/neo4j-go-driver/v5/internal/db"
	"github.com/neo4j/neo4j-go-driver/v5/internal/pool"
	"github.com/neo4j/neo4j-go-driver/v5/internal/rediscovery"
	"github.com/neo4j/neo4j-go-driver/v5/internal/routing"
)

// AccessRequest is spec §4.4's acquire() input.
type AccessRequest struct {
	AccessMode       routing.AccessMode
	Database         string
	Bookmarks        []string
	ImpersonatedUser string
	Auth             db.AuthToken
}

// Provider is spec §4.4's Routing Connection Provider.
type Provider struct {
	pool         *pool.Pool
	registry     *routing.Registry
	resolver     db.HostNameResolver
	rediscovery  *rediscovery.Rediscovery
	homeDBCache  *routing.HomeDBCache
	seed         db.Address
	routingCtx   map[string]string
	logger       db.Logger
	tracer       db.Tracer

	mu                   sync.Mutex
	useSeedRouter        map[string]bool // keyed by database
	useSeedRouterDefault bool
}

// Config bundles Provider's collaborators.
type Config struct {
	Pool                  *pool.Pool
	Registry              *routing.Registry
	Resolver              db.HostNameResolver
	Runner                db.RoutingProcedureRunner
	Seed                  db.Address
	RoutingContext        map[string]string
	Logger                db.Logger
	Tracer                db.Tracer
	UseSeedRouterFirst    bool
	HomeDatabaseCacheSize int
}

// New constructs a Provider. If cfg.UseSeedRouterFirst is set, every
// database starts with useSeedRouter true (spec §6.4).
func New(cfg Config) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = db.NoopTracer{}
	}
	p := &Provider{
		pool:          cfg.Pool,
		registry:      cfg.Registry,
		resolver:      cfg.Resolver,
		rediscovery:   rediscovery.New(cfg.Runner, logger),
		homeDBCache:   routing.NewHomeDBCache(cfg.HomeDatabaseCacheSize),
		seed:          cfg.Seed,
		routingCtx:    cfg.RoutingContext,
		logger:        logger,
		tracer:        tracer,
		useSeedRouter: make(map[string]bool),
	}
	if cfg.UseSeedRouterFirst {
		p.useSeedRouterDefault = true
	}
	return p
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...interface{}) {}
func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}

func nowMillis() int64 { return time.Now().UnixMilli() }

// Acquire implements spec §4.4's acquire operation: ensures a fresh
// table, picks the next server for accessMode by round-robin, acquires
// a pooled connection to it, and wraps it in a DelegateConnection.
func (p *Provider) Acquire(ctx context.Context, req AccessRequest) (db.Connection, error) {
	if req.AccessMode != routing.AccessModeRead && req.AccessMode != routing.AccessModeWrite {
		return nil, db.NewIllegalAccessMode(fmt.Sprintf("%v", req.AccessMode))
	}

	ctx = p.tracer.TraceRefreshStart(ctx, req.Database)
	table, err := p.ensureFreshTable(ctx, req)
	p.tracer.TraceRefreshEnd(ctx, req.Database, err)
	if err != nil {
		return nil, err
	}

	address, ok := table.NextServer(req.AccessMode)
	if !ok {
		return nil, db.NewSessionExpired("", "no %s servers available for database %q", roleName(req.AccessMode), req.Database)
	}

	conn, err := p.pool.Acquire(ctx, address, pool.AcquireOptions{})
	if err != nil {
		return nil, err
	}
	return newDelegateConnection(conn, address, req.Database, p), nil
}

func roleName(mode routing.AccessMode) string {
	if mode == routing.AccessModeWrite {
		return "write"
	}
	return "read"
}

// ensureFreshTable returns the current table for req.Database if it is
// not stale for req.AccessMode, otherwise runs a collapsed refresh
// (spec §4.2 Apply, §4.4 Refresh discipline). For a home-database
// request (req.Database == "") it first consults homeDBCache for the
// registry key req.ImpersonatedUser last resolved to, and records it
// again on a successful refresh (SPEC_FULL.md §12, spec §9's open
// question on home-database resolution scope).
func (p *Provider) ensureFreshTable(ctx context.Context, req AccessRequest) (*routing.Table, error) {
	databaseKey := req.Database
	if databaseKey == "" {
		if cached, ok := p.homeDBCache.Get(req.ImpersonatedUser); ok {
			databaseKey = cached
		}
	}

	if t := p.registry.Get(databaseKey); t != nil && !t.IsStale(req.AccessMode) {
		return t, nil
	}
	table, err := p.registry.Apply(ctx, databaseKey, req.ImpersonatedUser, func(ctx context.Context) (*routing.Table, error) {
		if t := p.registry.Get(databaseKey); t != nil && !t.IsStale(req.AccessMode) {
			return t, nil
		}
		return p.refresh(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if req.Database == "" {
		p.homeDBCache.Put(req.ImpersonatedUser, table.Database)
	}
	return table, nil
}

// refresh implements spec §4.4's "Refresh discipline": build the
// candidate router list, probe each in order, accept the first usable
// table.
func (p *Provider) refresh(ctx context.Context, req AccessRequest) (*routing.Table, error) {
	current := p.registry.Get(req.Database)
	candidates, err := p.candidateRouters(ctx, req.Database, current)
	if err != nil {
		return nil, err
	}

	tried := make([]string, 0, len(candidates))
	for _, router := range candidates {
		tried = append(tried, router.HostPort())

		conn, err := p.pool.Acquire(ctx, router, pool.AcquireOptions{})
		if err != nil {
			p.forgetRouter(req.Database, router)
			continue
		}

		correlationID, _ := uuid.NewV4()
		table, rerr := p.rediscovery.Run(ctx, conn, rediscovery.Input{
			RoutingContext:   p.routingCtx,
			Database:         req.Database,
			RouterAddress:    router,
			ImpersonatedUser: req.ImpersonatedUser,
			Bookmarks:        req.Bookmarks,
		}, nowMillis)
		conn.Release()

		if rerr != nil {
			p.logger.Warn("rediscovery failed", "router", router.HostPort(), "correlationId", correlationID.String(), "error", rerr.Error())
			if errors.Is(rerr, db.IsKind(db.KindDatabaseNotFound)) {
				return nil, rerr
			}
			p.forgetRouter(req.Database, router)
			continue
		}
		if table == nil {
			p.forgetRouter(req.Database, router)
			continue
		}
		if len(table.Routers) == 0 {
			p.forgetRouter(req.Database, router)
			continue
		}
		if req.AccessMode == routing.AccessModeRead && len(table.Readers) == 0 {
			continue
		}

		p.acceptTable(req.Database, table)
		return table, nil
	}

	return nil, db.NewServiceUnavailable("no router could provide a routing table for database %q (tried %v)", req.Database, tried)
}

// candidateRouters implements spec §4.4's candidate-ordering rule.
func (p *Provider) candidateRouters(ctx context.Context, database string, current *routing.Table) ([]db.Address, error) {
	useSeed := p.getUseSeedRouter(database)
	var tableRouters []db.Address
	if current != nil {
		tableRouters = current.Routers
	}

	if useSeed || len(tableRouters) == 0 {
		resolved, err := p.resolver.Resolve(ctx, p.seed)
		if err != nil {
			return nil, db.NewServiceUnavailable("failed to resolve seed address %s: %s", p.seed, err)
		}
		return appendNew(resolved, tableRouters), nil
	}
	return tableRouters, nil
}

func appendNew(first, second []db.Address) []db.Address {
	seen := make(map[string]struct{}, len(first))
	out := make([]db.Address, 0, len(first)+len(second))
	for _, a := range first {
		seen[a.HostPort()] = struct{}{}
		out = append(out, a)
	}
	for _, a := range second {
		if _, ok := seen[a.HostPort()]; ok {
			continue
		}
		seen[a.HostPort()] = struct{}{}
		out = append(out, a)
	}
	return out
}

// acceptTable replaces the registry entry for database, flips
// useSeedRouter per spec §4.4's writer-emptiness rule, and purges pool
// connections to addresses no longer referenced by the new table
// (spec §8: the pool's referenced addresses are a subset of old ∪ new
// only until these destroys complete).
func (p *Provider) acceptTable(database string, fresh *routing.Table) {
	p.registry.Register(fresh)
	p.setUseSeedRouter(database, len(fresh.Writers) == 0)
	p.pool.KeepAll(fresh.Union())

	p.logger.Info("accepted routing table", "database", database, "routers", len(fresh.Routers), "readers", len(fresh.Readers), "writers", len(fresh.Writers))
}

func (p *Provider) getUseSeedRouter(database string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.useSeedRouter[database]
	if !ok {
		return p.useSeedRouterDefault
	}
	return v
}

func (p *Provider) setUseSeedRouter(database string, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.useSeedRouter[database] = v
}

// forgetRouter implements spec §4.4's "forget(router)" step taken when
// a candidate yields no usable table.
func (p *Provider) forgetRouter(database string, router db.Address) {
	p.Forget(database, router)
}

// Forget removes address from database's table and purges the pool
// (spec §4.4 "forget").
func (p *Provider) Forget(database string, address db.Address) {
	p.registry.Forget(database, address)
	p.pool.Purge(address)
}

// ForgetWriter removes address from database's writers only, without
// purging the pool (spec §4.4 "forgetWriter").
func (p *Provider) ForgetWriter(database string, address db.Address) {
	p.registry.ForgetWriter(database, address)
}

// Close closes the underlying pool (spec §4.4 "close").
func (p *Provider) Close() {
	p.pool.Close()
}
