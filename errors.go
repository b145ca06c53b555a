package neo4j

import "github.com/neo4j/neo4j-go-driver/v5/internal/db"

// Kind enumerates the error kinds of spec §7; see internal/db.Kind.
type Kind = db.Kind

const (
	KindUnknown               = db.KindUnknown
	KindServiceUnavailable    = db.KindServiceUnavailable
	KindSessionExpired        = db.KindSessionExpired
	KindProtocolError         = db.KindProtocolError
	KindAuthorizationExpired  = db.KindAuthorizationExpired
	KindAuthenticationError   = db.KindAuthenticationError
	KindTransactionTerminated = db.KindTransactionTerminated
	KindLocksTerminated       = db.KindLocksTerminated
	KindDatabaseError         = db.KindDatabaseError
	KindIllegalAccessMode     = db.KindIllegalAccessMode
	KindAcquisitionTimeout    = db.KindAcquisitionTimeout
	KindPoolClosed            = db.KindPoolClosed
	KindTransientOther        = db.KindTransientOther
)

// RoutingError is the single error type raised by every layer of the
// core (spec §7); see internal/db.RoutingError.
type RoutingError = db.RoutingError

// ErrPoolClosed is returned once a Driver's pool has been closed.
var ErrPoolClosed = db.ErrPoolClosed

// IsKind returns a sentinel error usable with errors.Is to test an
// error's Kind regardless of message or wrapping:
//
//	if errors.Is(err, neo4j.IsKind(neo4j.KindSessionExpired)) { ... }
func IsKind(k Kind) error { return db.IsKind(k) }

// NewServiceUnavailable builds a ServiceUnavailable error.
func NewServiceUnavailable(format string, args ...interface{}) *RoutingError {
	return db.NewServiceUnavailable(format, args...)
}

// NewSessionExpired builds a SessionExpired error, optionally scoped to
// an address.
func NewSessionExpired(address string, format string, args ...interface{}) *RoutingError {
	return db.NewSessionExpired(address, format, args...)
}

// NewProtocolError builds a ProtocolError.
func NewProtocolError(format string, args ...interface{}) *RoutingError {
	return db.NewProtocolError(format, args...)
}
