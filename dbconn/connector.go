// Package dbconn defines the narrow key-value store abstraction the MIB
// adapters read through: connect to a named logical database, enumerate
// keys by glob pattern, and fetch a hash record's field/value pairs. The
// real backing store (a Redis-compatible operational database, per the
// external-interfaces contract) is reached over a connector the caller
// supplies; this package also ships an in-memory fake for adapter tests.
package dbconn

import "context"

// Connector is the abstract interface every MIB updater reads through. It
// intentionally exposes only the three operations updaters need — nothing
// about the underlying store (connection pooling, pub/sub, transactions) is
// assumed.
type Connector interface {
	// Connect establishes (or re-establishes) the logical connection to the
	// named database. The arp, nexthop, fdb and bridge-port adapters call it
	// at the start of every ReinitData; the ifmib adapter does not call it.
	Connect(ctx context.Context, dbName string) error

	// GetAll returns every field/value pair of the hash stored at key, or
	// (nil, false) if the key does not exist.
	GetAll(ctx context.Context, key string) (map[string][]byte, bool, error)

	// Keys enumerates every key matching a glob-style pattern (e.g.
	// "ASIC_STATE:SAI_OBJECT_TYPE_FDB_ENTRY:*").
	Keys(ctx context.Context, pattern string) ([]string, error)
}
