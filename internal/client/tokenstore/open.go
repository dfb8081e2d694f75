package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ErrNotConfigured is returned by Open when the selected backend is unknown
// or lacks the settings it needs.
var ErrNotConfigured = errors.New("token store not configured")

type Options struct {
	Backend      string
	DatabasePath string
	RedisURL     string
	// Secret enables at-rest sealing for the SQLite backend.
	Secret  string
	Profile string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the store named by opts.Backend. The returned Closer releases
// the underlying database or connection pool.
func Open(ctx context.Context, opts Options) (Store, io.Closer, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nopCloser{}, nil

	case "", BackendSQLite:
		if opts.DatabasePath == "" {
			return nil, nil, fmt.Errorf("%w: sqlite backend needs a database path", ErrNotConfigured)
		}
		db, err := OpenDatabase(ctx, opts.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		if opts.Secret == "" {
			return NewSQLiteStore(db), db, nil
		}
		store, err := NewSealedSQLiteStore(ctx, db, []byte(opts.Secret))
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db, nil

	case BackendRedis:
		if opts.RedisURL == "" {
			return nil, nil, fmt.Errorf("%w: redis backend needs a URL", ErrNotConfigured)
		}
		client, err := NewRedisClient(ctx, opts.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client, opts.Profile), client, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown backend %q", ErrNotConfigured, opts.Backend)
	}
}
