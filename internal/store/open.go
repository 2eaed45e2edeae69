package store

import (
	"context"
	"fmt"
)

// Open builds the Store named by driver. dsn is the SQLite path, Postgres URL
// or Redis URL depending on the driver and is ignored for memory.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	switch driver {
	case "", driverMemory:
		return NewMemoryStore(opts...), nil
	case driverSQLite:
		s, err := NewSQLiteStore(ctx, dsn, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case driverPostgres:
		s, err := NewPostgresStore(ctx, dsn, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case driverRedis:
		s, err := NewRedisStore(ctx, dsn, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
