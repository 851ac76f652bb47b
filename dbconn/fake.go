package dbconn

import (
	"context"
	"fmt"
	"path"
)

// Fake is an in-memory Connector for adapter tests, standing in for the
// real key-value store the way the reference implementation's
// mockredis-backed SwssSyncClient stands in for Redis in its own test
// suite. Tables are preloaded per logical database name; Connect only
// validates that the requested database was seeded.
type Fake struct {
	dbs       map[string]map[string]map[string][]byte // dbName -> key -> field -> value
	connected map[string]bool
}

// NewFake returns an empty Fake. Use Seed to populate tables before use.
func NewFake() *Fake {
	return &Fake{
		dbs:       make(map[string]map[string]map[string][]byte),
		connected: make(map[string]bool),
	}
}

// Seed installs (or replaces) the hash stored at key in dbName.
func (f *Fake) Seed(dbName, key string, fields map[string][]byte) {
	table, ok := f.dbs[dbName]
	if !ok {
		table = make(map[string]map[string][]byte)
		f.dbs[dbName] = table
	}
	table[key] = fields
}

// SeedString is Seed with string field values, for test readability.
func (f *Fake) SeedString(dbName, key string, fields map[string]string) {
	bs := make(map[string][]byte, len(fields))
	for k, v := range fields {
		bs[k] = []byte(v)
	}
	f.Seed(dbName, key, bs)
}

func (f *Fake) Connect(ctx context.Context, dbName string) error {
	if _, ok := f.dbs[dbName]; !ok {
		return fmt.Errorf("dbconn: unknown database %q", dbName)
	}
	f.connected[dbName] = true
	return nil
}

func (f *Fake) GetAll(ctx context.Context, key string) (map[string][]byte, bool, error) {
	for _, table := range f.dbs {
		if fields, ok := table[key]; ok {
			cp := make(map[string][]byte, len(fields))
			for k, v := range fields {
				cp[k] = append([]byte(nil), v...)
			}
			return cp, true, nil
		}
	}
	return nil, false, nil
}

// Keys enumerates keys matching a glob-style pattern across every seeded
// database, mirroring the reference implementation's fnmatch-based `keys`
// override (path.Match implements the same `*`/`?`/`[...]` glob syntax).
func (f *Fake) Keys(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	for _, table := range f.dbs {
		for key := range table {
			matched, err := path.Match(pattern, key)
			if err != nil {
				return nil, fmt.Errorf("dbconn: bad pattern %q: %w", pattern, err)
			}
			if matched {
				out = append(out, key)
			}
		}
	}
	return out, nil
}
