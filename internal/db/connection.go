package db

import "context"

// Connection is the capability set the core consumes from a live,
// protocol-ready connection (spec §6.1). Wire framing, handshake and
// message codec live behind this interface and are out of scope here
// (spec §1).
type Connection interface {
	// Address is the server this connection is attached to.
	Address() Address
	// AuthToken is the credential set this connection authenticated
	// with; liveness checks skip connections whose AuthToken scheme is
	// "none" (spec §4.6).
	AuthToken() AuthToken
	// IdleSince reports the monotonic instant the connection became
	// idle, or 0 if currently in use.
	IdleSince() int64
	// ResetAndFlush issues a protocol-level reset and waits for the
	// round trip to complete; used by the liveness check (spec §4.6).
	ResetAndFlush(ctx context.Context) error
	// HandleAndTransformError lets the connection apply the error
	// taxonomy's per-kind actions (forget, purge, ...) before the error
	// reaches the caller; see DelegateConnection (spec §7).
	HandleAndTransformError(err error, address Address) error
	// Release returns the connection to its owning pool.
	Release()
	// ProtocolVersion is the negotiated wire protocol version, used by
	// rediscovery to choose a routing procedure name (spec §4.3).
	ProtocolVersion() string
	// Close tears the connection down for good, bypassing the pool.
	Close(ctx context.Context) error
}

// AuthToken is an opaque credential set; only its Scheme is inspected by
// the core (spec §4.6: "none" scheme connections skip liveness checks).
type AuthToken struct {
	Scheme string
	data   map[string]any
}

// NewAuthToken builds an AuthToken with the given scheme.
func NewAuthToken(scheme string, data map[string]any) AuthToken {
	return AuthToken{Scheme: scheme, data: data}
}

// ConnectionFactory is the out-of-scope collaborator that actually
// dials, authenticates and validates connections (spec §6.1). The core
// depends only on this interface, never on a concrete transport.
type ConnectionFactory interface {
	Create(ctx context.Context, address Address, releaseCallback func()) (Connection, error)
	Destroy(conn Connection)
	ValidateOnAcquire(ctx context.Context, conn Connection) bool
	ValidateOnRelease(conn Connection) bool
	InstallIdleObserver(conn Connection, onError func(error))
	RemoveIdleObserver(conn Connection)
}

// HostNameResolver resolves the configured seed address into one or
// more addresses to probe, in the order to probe them (spec §6.2). The
// resolver is free to return the seed itself.
type HostNameResolver interface {
	Resolve(ctx context.Context, seed Address) ([]Address, error)
}

// ServerRole is the role a server advertises in a routing table
// response (spec §6.3).
type ServerRole int

const (
	RoleRoute ServerRole = iota
	RoleRead
	RoleWrite
)

// RoutingProcedureRecord is the materialized shape of a routing
// procedure response (spec §6.3): {ttl, servers: [{role, addresses}]}.
type RoutingProcedureRecord struct {
	TTLSeconds int64
	Servers    []RoutingProcedureServer
}

// RoutingProcedureServer is one {role, addresses[]} entry.
type RoutingProcedureServer struct {
	Role      ServerRole
	Addresses []Address
}

// RoutingProcedureRunner invokes the cluster's routing procedure over an
// already-acquired router connection (spec §6.3). The procedure name it
// actually sends on the wire is an implementation detail of the runner,
// not of the core — see internal/rediscovery for the semver-based
// procedure-name negotiation.
type RoutingProcedureRunner interface {
	RequestRoutingTable(ctx context.Context, conn Connection, routingContext map[string]string, database string, impersonatedUser string, bookmarks []string) (*RoutingProcedureRecord, error)
}

// Tracer receives start/end events for acquisitions, releases, table
// refreshes and retries, independent of leveled logging (spec §10.2).
// Implementations must treat every method as safe to call concurrently.
type Tracer interface {
	TraceAcquireStart(ctx context.Context, address Address) context.Context
	TraceAcquireEnd(ctx context.Context, address Address, err error)
	TraceReleaseStart(ctx context.Context, address Address) context.Context
	TraceReleaseEnd(ctx context.Context, address Address, err error)
	TraceRefreshStart(ctx context.Context, database string) context.Context
	TraceRefreshEnd(ctx context.Context, database string, err error)
	TraceRetryAttempt(ctx context.Context, attempt int, delay int64, err error)
}

// NoopTracer discards every event.
type NoopTracer struct{}

func (NoopTracer) TraceAcquireStart(ctx context.Context, _ Address) context.Context { return ctx }
func (NoopTracer) TraceAcquireEnd(context.Context, Address, error)                  {}
func (NoopTracer) TraceReleaseStart(ctx context.Context, _ Address) context.Context { return ctx }
func (NoopTracer) TraceReleaseEnd(context.Context, Address, error)                  {}
func (NoopTracer) TraceRefreshStart(ctx context.Context, _ string) context.Context  { return ctx }
func (NoopTracer) TraceRefreshEnd(context.Context, string, error)                   {}
func (NoopTracer) TraceRetryAttempt(context.Context, int, int64, error)             {}
