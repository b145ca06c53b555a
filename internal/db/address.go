package db

import (
	"net"
	"strconv"
)

// Address identifies a server by host and port, optionally annotated with
// the host a resolver produced it from. Two addresses are equal iff their
// HostPort strings are equal; the ResolvedHost plays no part in identity,
// it exists purely for diagnostics (spec §3, §6.2).
//
// Address is immutable after construction; ResolveWith returns a copy.
type Address struct {
	host         string
	resolvedHost string
	port         uint16
}

// NewAddress constructs an Address from a host and port.
func NewAddress(host string, port uint16) Address {
	return Address{host: host, port: port}
}

// ParseAddress parses a "host:port" string, as produced by HostPort.
func ParseAddress(hostPort string) (Address, error) {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return Address{}, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{}, err
	}
	return Address{host: host, port: uint16(port)}, nil
}

// Host returns the address's nominal host name, as configured.
func (a Address) Host() string { return a.host }

// Port returns the address's port.
func (a Address) Port() uint16 { return a.port }

// ResolvedHost returns the host name a resolver produced this address
// from, or "" if the address was never resolved.
func (a Address) ResolvedHost() string { return a.resolvedHost }

// HostPort is the canonical key used everywhere as the pool and
// routing-table key: "host:port". Two addresses compare equal iff their
// HostPort strings are equal.
func (a Address) HostPort() string {
	return net.JoinHostPort(a.host, strconv.FormatUint(uint64(a.port), 10))
}

// String implements fmt.Stringer as HostPort, so an Address prints
// usefully in log lines and error messages.
func (a Address) String() string { return a.HostPort() }

// Equal reports whether two addresses share the same HostPort key.
func (a Address) Equal(other Address) bool { return a.HostPort() == other.HostPort() }

// ResolveWith returns a new Address carrying resolvedHost as the address
// actually dialed, leaving the receiver untouched (addresses are
// immutable; ownership is by value, spec §3).
func (a Address) ResolveWith(resolvedHost string) Address {
	return Address{host: a.host, port: a.port, resolvedHost: resolvedHost}
}

// DedupAddresses returns addrs with duplicate HostPort entries removed,
// preserving the order of first occurrence. Used by the rediscovery
// engine to avoid probing the same router twice (spec §4.4).
func DedupAddresses(addrs []Address) []Address {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a.HostPort()]; ok {
			continue
		}
		seen[a.HostPort()] = struct{}{}
		out = append(out, a)
	}
	return out
}
