package provider

import (
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/internal/db"
)

// delegateConnection wraps a pooled db.Connection with the
// provider's per-connection error handling (spec §7 "Propagation
// policy"). It holds a shared, non-owning reference to the underlying
// connection; Release returns ownership back to the pool (spec §3
// "Ownership").
type delegateConnection struct {
	db.Connection
	address  db.Address
	database string
	provider *Provider
}

func newDelegateConnection(conn db.Connection, address db.Address, database string, p *Provider) *delegateConnection {
	return &delegateConnection{Connection: conn, address: address, database: database, provider: p}
}

// HandleAndTransformError implements spec §7's per-kind action table:
//   - ServiceUnavailable or SessionExpired: forget(address) (removes
//     from this database's table and purges the pool); error passes
//     through unchanged.
//   - NotALeader or ForbiddenOnReadOnlyDatabase: forgetWriter(address);
//     the error is transformed to SessionExpired.
//   - AuthorizationExpired: pool.purge(address) only; error is not
//     transformed.
func (d *delegateConnection) HandleAndTransformError(err error, address db.Address) error {
	var rerr *db.RoutingError
	if !errors.As(err, &rerr) {
		return err
	}

	switch rerr.Kind {
	case db.KindServiceUnavailable, db.KindSessionExpired:
		d.provider.Forget(d.database, address)
		return err
	case db.KindAuthorizationExpired:
		d.provider.pool.Purge(address)
		return err
	case db.KindNotALeader, db.KindForbiddenOnReadOnlyDatabase:
		d.provider.ForgetWriter(d.database, address)
		return db.NewSessionExpired(address.HostPort(), "writer %s is no longer a leader", address)
	default:
		return err
	}
}
