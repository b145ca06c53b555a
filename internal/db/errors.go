package db

import (
	"errors"
	"fmt"
	"strings"
)

// Kind enumerates the error kinds of spec §7. It is a sum type in
// spirit, not a type hierarchy: every call site switches on Kind, never
// on a raw server error code or a string.
type Kind int

const (
	KindUnknown Kind = iota
	KindServiceUnavailable
	KindSessionExpired
	KindProtocolError
	KindAuthorizationExpired
	KindAuthenticationError
	KindTransactionTerminated
	KindLocksTerminated
	KindDatabaseError
	KindIllegalAccessMode
	KindAcquisitionTimeout
	KindPoolClosed
	KindTransientOther
	// KindProcedureNotFound and KindDatabaseNotFound are raw routing
	// procedure outcomes (spec §4.3 "Error mapping"), not exposed
	// outside internal/rediscovery: the former is translated to
	// ServiceUnavailable, the latter propagated unchanged.
	KindProcedureNotFound
	KindDatabaseNotFound
	// KindNotALeader and KindForbiddenOnReadOnlyDatabase are raw
	// connection-layer faults a DelegateConnection reclassifies as
	// SessionExpired after forgetting the writer (spec §7).
	KindNotALeader
	KindForbiddenOnReadOnlyDatabase
)

func (k Kind) String() string {
	switch k {
	case KindServiceUnavailable:
		return "ServiceUnavailable"
	case KindSessionExpired:
		return "SessionExpired"
	case KindProtocolError:
		return "ProtocolError"
	case KindAuthorizationExpired:
		return "AuthorizationExpired"
	case KindAuthenticationError:
		return "AuthenticationError"
	case KindTransactionTerminated:
		return "TransactionTerminated"
	case KindLocksTerminated:
		return "LocksTerminated"
	case KindDatabaseError:
		return "DatabaseError"
	case KindIllegalAccessMode:
		return "IllegalAccessMode"
	case KindAcquisitionTimeout:
		return "AcquisitionTimeout"
	case KindPoolClosed:
		return "PoolClosed"
	case KindTransientOther:
		return "TransientOther"
	case KindProcedureNotFound:
		return "ProcedureNotFound"
	case KindDatabaseNotFound:
		return "DatabaseNotFound"
	case KindNotALeader:
		return "NotALeader"
	case KindForbiddenOnReadOnlyDatabase:
		return "ForbiddenOnReadOnlyDatabase"
	default:
		return "Unknown"
	}
}

// RoutingError is the single error type raised by every layer of the
// core; its Kind is what callers and the retry executor switch on.
// Chains via Unwrap the way pgconn's linkedError chains an outer and
// inner error.
type RoutingError struct {
	Kind    Kind
	Message string
	Address string // optional: the server address this error pertains to
	cause   error
}

func (e *RoutingError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Address != "" {
		fmt.Fprintf(&b, " (address=%s)", e.Address)
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %s", e.cause.Error())
	}
	return b.String()
}

func (e *RoutingError) Unwrap() error { return e.cause }

// Is lets errors.Is(err, someKindSentinel) work via kindSentinel below,
// and lets two *RoutingErrors of the same Kind compare equal for tests.
func (e *RoutingError) Is(target error) bool {
	var other *RoutingError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	var ks kindSentinel
	if errors.As(target, &ks) {
		return e.Kind == Kind(ks)
	}
	return false
}

// kindSentinel lets callers write errors.Is(err, db.IsKind(KindSessionExpired))
// without constructing a full RoutingError.
type kindSentinel Kind

func (kindSentinel) Error() string { return "" }

// IsKind returns a sentinel error usable with errors.Is to test an
// error's Kind regardless of message or wrapping.
func IsKind(k Kind) error { return kindSentinel(k) }

func newErr(kind Kind, address string, format string, args ...interface{}) *RoutingError {
	return &RoutingError{Kind: kind, Message: fmt.Sprintf(format, args...), Address: address}
}

func wrapErr(kind Kind, address string, cause error, format string, args ...interface{}) *RoutingError {
	return &RoutingError{Kind: kind, Message: fmt.Sprintf(format, args...), Address: address, cause: cause}
}

// NewServiceUnavailable builds a ServiceUnavailable error. format/args
// describe what was tried, per spec §7's "always names the reason"
// requirement.
func NewServiceUnavailable(format string, args ...interface{}) *RoutingError {
	return newErr(KindServiceUnavailable, "", format, args...)
}

// NewSessionExpired builds a SessionExpired error, optionally scoped to
// an address (e.g. a writer that stepped down).
func NewSessionExpired(address string, format string, args ...interface{}) *RoutingError {
	return newErr(KindSessionExpired, address, format, args...)
}

// NewProtocolError builds a ProtocolError, typically from a malformed
// routing-table response (spec §4.3).
func NewProtocolError(format string, args ...interface{}) *RoutingError {
	return newErr(KindProtocolError, "", format, args...)
}

// NewAcquisitionTimeout builds an AcquisitionTimeout error for a pool
// acquire that exceeded acquisitionTimeoutMs (spec §4.1).
func NewAcquisitionTimeout(address string, format string, args ...interface{}) *RoutingError {
	return newErr(KindAcquisitionTimeout, address, format, args...)
}

// ErrPoolClosed is returned by Pool.Acquire once Close has run.
var ErrPoolClosed = newErr(KindPoolClosed, "", "connection pool is closed")

// NewProcedureNotFound builds a ProcedureNotFound error, raised by a
// RoutingProcedureRunner when the server has no routing procedure at
// all (spec §4.3).
func NewProcedureNotFound(address string, format string, args ...interface{}) *RoutingError {
	return newErr(KindProcedureNotFound, address, format, args...)
}

// NewDatabaseNotFound builds a DatabaseNotFound error, propagated
// unchanged by Rediscovery (spec §4.3 "Error mapping").
func NewDatabaseNotFound(format string, args ...interface{}) *RoutingError {
	return newErr(KindDatabaseNotFound, "", format, args...)
}

// NewIllegalAccessMode builds an IllegalAccessMode error for an access
// mode outside {READ, WRITE} (spec §4.4).
func NewIllegalAccessMode(mode string) *RoutingError {
	return newErr(KindIllegalAccessMode, "", "illegal access mode %q", mode)
}

// Retryable reports whether kind is one of the kinds the retry executor
// (spec §4.5) retries: ServiceUnavailable, SessionExpired,
// AuthorizationExpired, and other classified-transient faults.
func (k Kind) Retryable() bool {
	switch k {
	case KindServiceUnavailable, KindSessionExpired, KindAuthorizationExpired, KindTransientOther:
		return true
	default:
		return false
	}
}
