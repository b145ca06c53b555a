package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/internal/pool"
	"github.com/neo4j/neo4j-go-driver/v5/internal/provider"
	"github.com/neo4j/neo4j-go-driver/v5/internal/retry"
	"github.com/neo4j/neo4j-go-driver/v5/internal/routing"
)

// AccessMode selects which server role a Driver.Acquire targets (spec
// §4.4); it mirrors routing.AccessMode without exposing the internal
// package to callers.
type AccessMode int

const (
	AccessModeRead AccessMode = iota
	AccessModeWrite
)

func (m AccessMode) internal() routing.AccessMode {
	if m == AccessModeWrite {
		return routing.AccessModeWrite
	}
	return routing.AccessModeRead
}

// SessionParameters is the per-acquire input of spec §4.4's acquire
// operation.
type SessionParameters struct {
	AccessMode       AccessMode
	Database         string
	Bookmarks        []string
	ImpersonatedUser string
	Auth             AuthToken
}

// Driver is the top-level handle a caller constructs once per cluster:
// spec §4.4's Routing Connection Provider plus the Retry Executor,
// wired over one Resource Pool and one Routing Table Registry. The
// constructor mirrors the teacher's NewConnPool: validate config,
// apply defaults, wire collaborators, fail fast on misconfiguration.
type Driver struct {
	provider *provider.Provider
	executor *retry.Executor
	cfg      *Config
}

// NewDriver constructs a Driver for seed, using factory to create
// connections, resolver to resolve the seed address, and runner to
// invoke the cluster's routing procedure. cfg is validated and
// defaulted in place.
func NewDriver(seed Address, factory ConnectionFactory, resolver HostNameResolver, runner RoutingProcedureRunner, cfg *Config) (*Driver, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := pool.New(factory, pool.Config{
		MaxPoolSize:                    cfg.MaxPoolSize,
		AcquisitionTimeout:             cfg.AcquisitionTimeout,
		ConnectionLivenessCheckTimeout: cfg.ConnectionLivenessCheckTimeout,
		Logger:                         cfg.Logger,
		Tracer:                         cfg.Tracer,
	})

	registry := routing.New(cfg.RoutingTablePurgeDelay, cfg.Logger)

	prov := provider.New(provider.Config{
		Pool:                  p,
		Registry:              registry,
		Resolver:              resolver,
		Runner:                runner,
		Seed:                  seed,
		Logger:                cfg.Logger,
		Tracer:                cfg.Tracer,
		UseSeedRouterFirst:    cfg.UseSeedRouterFirst,
		HomeDatabaseCacheSize: cfg.HomeDatabaseCacheSize,
	})

	executor := retry.New(retry.Config{
		MaxRetryTime: cfg.MaxRetryTime,
		InitialDelay: cfg.InitialRetryDelay,
		Multiplier:   cfg.RetryDelayMultiplier,
		JitterFactor: cfg.RetryDelayJitterFactor,
	}, cfg.Logger, cfg.Tracer)

	return &Driver{provider: prov, executor: executor, cfg: cfg}, nil
}

// Acquire returns a delegating Connection for params (spec §4.4
// "acquire"). The returned Connection must be released by the caller.
func (d *Driver) Acquire(ctx context.Context, params SessionParameters) (Connection, error) {
	return d.provider.Acquire(ctx, provider.AccessRequest{
		AccessMode:       params.AccessMode.internal(),
		Database:         params.Database,
		Bookmarks:        params.Bookmarks,
		ImpersonatedUser: params.ImpersonatedUser,
		Auth:             params.Auth,
	})
}

// ExecuteWithRetry runs work under the Retry Executor (spec §4.5): a
// transaction callable acquiring its own connections via Acquire,
// retried on classified-transient failure up to the configured budget.
func (d *Driver) ExecuteWithRetry(ctx context.Context, work retry.Work, rollback retry.Rollback) (interface{}, error) {
	return d.executor.Execute(ctx, work, rollback)
}

// Forget implements spec §4.4's forget(address): remove address from
// database's routing table and purge the pool.
func (d *Driver) Forget(database string, address Address) {
	d.provider.Forget(database, address)
}

// ForgetWriter implements spec §4.4's forgetWriter(address).
func (d *Driver) ForgetWriter(database string, address Address) {
	d.provider.ForgetWriter(database, address)
}

// Close closes the underlying pool (spec §4.4 "close").
func (d *Driver) Close() {
	d.provider.Close()
}

// String renders a short diagnostic identity for the driver, used in
// log lines that don't carry a more specific address.
func (d *Driver) String() string {
	return fmt.Sprintf("neo4j.Driver{maxPoolSize=%d}", d.cfg.MaxPoolSize)
}
