package neo4j

import "github.com/neo4j/neo4j-go-driver/v5/internal/db"

// Address identifies a server by host and port (spec §3). It is a type
// alias for internal/db.Address so every internal package and the
// public API share one identical, immutable representation.
type Address = db.Address

// NewAddress constructs an Address from a host and port.
func NewAddress(host string, port uint16) Address { return db.NewAddress(host, port) }

// ParseAddress parses a "host:port" string, as produced by
// Address.HostPort.
func ParseAddress(hostPort string) (Address, error) { return db.ParseAddress(hostPort) }

// DedupAddresses returns addrs with duplicate HostPort entries removed,
// preserving the order of first occurrence.
func DedupAddresses(addrs []Address) []Address { return db.DedupAddresses(addrs) }
