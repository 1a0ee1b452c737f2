package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/lecture-platform/internal/platform/db"
)

// Backend names accepted by Open.
const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendBadger    = "badger"
	BackendRedis     = "redis"
	BackendCassandra = "cassandra"
)

// Options selects and configures a backend.
type Options struct {
	Backend           string
	DatabaseURL       string
	SQLitePath        string
	BadgerPath        string
	RedisURL          string
	CassandraHosts    []string
	CassandraKeyspace string
}

// Open connects to the configured backend, creates its schema where the
// backend has one, and wraps it with metrics.
func Open(ctx context.Context, o Options) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(o.Backend))
	if backend == "" {
		backend = BackendMemory
	}

	var (
		s   Store
		err error
	)
	switch backend {
	case BackendMemory:
		s = NewInMemoryStore()
	case BackendPostgres:
		s, err = openPostgres(ctx, o.DatabaseURL)
	case BackendSQLite:
		if o.SQLitePath == "" {
			return nil, errors.New("SQLITE_PATH is required")
		}
		s, err = OpenSQLite(ctx, o.SQLitePath, DefaultSQLiteConfig())
	case BackendBadger:
		if o.BadgerPath == "" {
			return nil, errors.New("BADGER_PATH is required")
		}
		s, err = OpenBadger(o.BadgerPath)
	case BackendRedis:
		if o.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required")
		}
		rs := OpenRedis(o.RedisURL)
		if err = rs.Ping(ctx); err != nil {
			_ = rs.Close()
		} else {
			s = rs
		}
	case BackendCassandra:
		s, err = openCassandra(ctx, o)
	default:
		return nil, fmt.Errorf("unknown store backend %q", o.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	return NewInstrumentedStore(s, backend), nil
}

func openPostgres(ctx context.Context, dsn string) (Store, error) {
	pool, err := db.Open(ctx, dsn, db.WithApplicationName("transcript-store"))
	if err != nil {
		return nil, err
	}
	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func openCassandra(ctx context.Context, o Options) (Store, error) {
	if len(o.CassandraHosts) == 0 {
		return nil, errors.New("CASSANDRA_HOSTS is required")
	}
	s, err := ConnectCassandra(CassandraConfig{Hosts: o.CassandraHosts, Keyspace: o.CassandraKeyspace})
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
