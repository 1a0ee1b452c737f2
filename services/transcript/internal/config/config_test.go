package config

import (
	"testing"

	"github.com/example/lecture-platform/services/transcript/internal/store"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GRPC_ADDR", "APP_ENV", "STORE_BACKEND", "DATABASE_URL", "SQLITE_PATH", "BADGER_PATH",
		"REDIS_URL", "CASSANDRA_HOSTS", "CASSANDRA_KEYSPACE", "TRANSCRIPT_PAGE_SIZE", "JWT_SECRET",
		"NATS_URL", "INGEST_ENABLED", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Backend != store.BackendMemory || cfg.PageSize != 100 || cfg.GRPCAddr != ":9090" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.IngestEnabled || cfg.Production() {
		t.Fatalf("unexpected flags: %+v", cfg)
	}
}

func TestLoad_ProductionRefusesMemory(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for memory backend in production")
	}

	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/lectures")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad_CassandraHosts(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "Cassandra")
	t.Setenv("CASSANDRA_HOSTS", "c1:9042, c2:9042,")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Backend != store.BackendCassandra {
		t.Fatalf("expected cassandra, got %q", cfg.Store.Backend)
	}
	if len(cfg.Store.CassandraHosts) != 2 || cfg.Store.CassandraHosts[1] != "c2:9042" {
		t.Fatalf("unexpected hosts: %v", cfg.Store.CassandraHosts)
	}
}

func TestLoad_Invalid(t *testing.T) {
	for key, val := range map[string]string{
		"TRANSCRIPT_PAGE_SIZE": "0",
		"RATE_LIMIT_RPS":       "fast",
		"RATE_LIMIT_BURST":     "x",
		"INGEST_ENABLED":       "maybe",
	} {
		clearEnv(t)
		t.Setenv(key, val)
		if _, err := Load(); err == nil {
			t.Fatalf("%s=%q: expected error", key, val)
		}
	}
}

func TestLoad_IngestNeedsNATS(t *testing.T) {
	clearEnv(t)
	t.Setenv("INGEST_ENABLED", "true")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without NATS_URL")
	}
	t.Setenv("NATS_URL", "nats://localhost:4222")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
