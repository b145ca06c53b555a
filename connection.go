package neo4j

import "github.com/neo4j/neo4j-go-driver/v5/internal/db"

// Connection is the capability set the core consumes from a live,
// protocol-ready connection (spec §6.1); see internal/db.Connection.
type Connection = db.Connection

// AuthToken is an opaque credential set; see internal/db.AuthToken.
type AuthToken = db.AuthToken

// NewAuthToken builds an AuthToken with the given scheme.
func NewAuthToken(scheme string, data map[string]any) AuthToken {
	return db.NewAuthToken(scheme, data)
}

// ConnectionFactory is the out-of-scope collaborator that dials,
// authenticates and validates connections (spec §6.1).
type ConnectionFactory = db.ConnectionFactory

// HostNameResolver resolves the configured seed address (spec §6.2).
type HostNameResolver = db.HostNameResolver

// ServerRole is the role a server advertises in a routing table
// response (spec §6.3).
type ServerRole = db.ServerRole

const (
	RoleRoute = db.RoleRoute
	RoleRead  = db.RoleRead
	RoleWrite = db.RoleWrite
)

// RoutingProcedureRecord is the materialized shape of a routing
// procedure response (spec §6.3).
type RoutingProcedureRecord = db.RoutingProcedureRecord

// RoutingProcedureServer is one {role, addresses[]} entry.
type RoutingProcedureServer = db.RoutingProcedureServer

// RoutingProcedureRunner invokes the cluster's routing procedure over
// an already-acquired router connection (spec §6.3).
type RoutingProcedureRunner = db.RoutingProcedureRunner

// Tracer receives start/end events for acquisitions, releases, table
// refreshes and retries (spec §10.2).
type Tracer = db.Tracer

// NoopTracer discards every event.
type NoopTracer = db.NoopTracer
