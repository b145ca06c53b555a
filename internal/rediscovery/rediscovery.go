// Package rediscovery implements spec §4.3: invoking the cluster's
// routing procedure over an already-acquired router connection and
// materializing a routing.Table from the reply.
package rediscovery

import (
	"context"
	"errors"

	"github.com/Masterminds/semver/v3"

	"github.com/neo4j/neo4j-go-driver/v5/internal/db"
	"github.com/neo4j/neo4j-go-driver/v5/internal/routing"
)

// legacyProcedureRange is the protocol-version range that still speaks
// the pre-4.3 "get servers" procedure; anything outside it uses the
// modern routing-table procedure name (SPEC_FULL.md §11). Parsed once
// at package init rather than on every call.
var legacyProcedureRange = mustConstraint("< 4.3.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

const (
	modernProcedure = "dbms.routing.getRoutingTable"
	legacyProcedure = "dbms.cluster.routing.getServers"
)

// procedureNameFor negotiates which routing procedure to invoke based
// on the connection's advertised protocol version (SPEC_FULL.md §11).
// An unparsable version string falls back to the modern procedure,
// since every server that cannot report a semver-shaped version predates
// this driver's minimum supported server version.
func procedureNameFor(protocolVersion string) string {
	v, err := semver.NewVersion(protocolVersion)
	if err != nil {
		return modernProcedure
	}
	if legacyProcedureRange.Check(v) {
		return legacyProcedure
	}
	return modernProcedure
}

// Rediscovery implements spec §4.3's contract: given a router
// connection and session context, call the routing procedure and
// return a routing.Table.
type Rediscovery struct {
	runner db.RoutingProcedureRunner
	logger db.Logger
}

// New constructs a Rediscovery that invokes procedures through runner.
func New(runner db.RoutingProcedureRunner, logger db.Logger) *Rediscovery {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Rediscovery{runner: runner, logger: logger}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// Input bundles spec §4.3's {routingContext, database, routerAddress,
// sessionContext} contract.
type Input struct {
	RoutingContext   map[string]string
	Database         string
	RouterAddress    db.Address
	ImpersonatedUser string
	Bookmarks        []string
}

// Run invokes the routing procedure over conn and returns a
// routing.Table on success; nil (no error) when the router replied but
// the reply is unusable because routing isn't supported there;
// ProtocolError on a malformed reply; ServiceUnavailable when the
// procedure cannot run at all (spec §4.3 "Contract", "Error mapping").
func (r *Rediscovery) Run(ctx context.Context, conn db.Connection, in Input, nowMillisFn func() int64) (*routing.Table, error) {
	record, err := r.runner.RequestRoutingTable(ctx, conn, in.RoutingContext, in.Database, in.ImpersonatedUser, in.Bookmarks)
	if err != nil {
		return mapProcedureError(err, in.RouterAddress)
	}
	if record == nil {
		return nil, nil
	}

	var routers, readers, writers []db.Address
	for _, s := range record.Servers {
		switch s.Role {
		case db.RoleRoute:
			routers = append(routers, s.Addresses...)
		case db.RoleRead:
			readers = append(readers, s.Addresses...)
		case db.RoleWrite:
			writers = append(writers, s.Addresses...)
		}
	}
	if len(routers) == 0 {
		return nil, db.NewProtocolError("routing table from %s has no routers", in.RouterAddress)
	}

	createdAt := nowMillisFn()
	table := routing.NewTable(in.Database, routers, readers, writers, record.TTLSeconds*1000, createdAt)
	r.logger.Debug("refreshed routing table", "database", in.Database, "router", in.RouterAddress.HostPort(), "routers", len(routers), "readers", len(readers), "writers", len(writers))
	return table, nil
}

// ProcedureName exposes the negotiated procedure name so a
// RoutingProcedureRunner implementation can decide what to send on the
// wire (spec §4.3, SPEC_FULL.md §11).
func (r *Rediscovery) ProcedureName(conn db.Connection) string {
	return procedureNameFor(conn.ProtocolVersion())
}

// mapProcedureError implements spec §4.3's "Error mapping" table: a
// ProcedureNotFound becomes ServiceUnavailable naming the router; a
// DatabaseNotFound propagates unchanged; anything else yields (nil,
// nil) so the outer loop tries the next router.
func mapProcedureError(err error, router db.Address) (*routing.Table, error) {
	var rerr *db.RoutingError
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case db.KindProcedureNotFound:
			return nil, db.NewServiceUnavailable("routing procedure not found on %s", router)
		case db.KindDatabaseNotFound:
			return nil, err
		}
	}
	return nil, nil
}
