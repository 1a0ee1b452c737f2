package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/example/lecture-platform/services/transcript/internal/resolver"
	"github.com/example/lecture-platform/services/transcript/internal/store"
)

type Config struct {
	GRPCAddr string
	AppEnv   string

	Store    store.Options
	PageSize int

	JWTSecret []byte
	NATSURL   string

	IngestEnabled  bool
	RateLimitRPS   float64
	RateLimitBurst int
}

// Production reports whether APP_ENV is "production".
func (c Config) Production() bool { return c.AppEnv == "production" }

func Load() (Config, error) {
	cfg := Config{
		GRPCAddr: env("GRPC_ADDR", ":9090"),
		AppEnv:   strings.ToLower(env("APP_ENV", "development")),
		Store: store.Options{
			Backend:           strings.ToLower(env("STORE_BACKEND", store.BackendMemory)),
			DatabaseURL:       env("DATABASE_URL", ""),
			SQLitePath:        env("SQLITE_PATH", ""),
			BadgerPath:        env("BADGER_PATH", ""),
			RedisURL:          env("REDIS_URL", ""),
			CassandraHosts:    splitList(env("CASSANDRA_HOSTS", "")),
			CassandraKeyspace: env("CASSANDRA_KEYSPACE", "lectures"),
		},
		JWTSecret: []byte(env("JWT_SECRET", "")),
		NATSURL:   env("NATS_URL", ""),
	}

	var err error
	if cfg.PageSize, err = envInt("TRANSCRIPT_PAGE_SIZE", resolver.DefaultPageSize); err != nil {
		return Config{}, err
	}
	if cfg.PageSize <= 0 || cfg.PageSize > store.MaxLimit {
		return Config{}, fmt.Errorf("TRANSCRIPT_PAGE_SIZE must be in 1..%d", store.MaxLimit)
	}
	if cfg.IngestEnabled, err = envBool("INGEST_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS", 50); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = envInt("RATE_LIMIT_BURST", 100); err != nil {
		return Config{}, err
	}

	if cfg.Production() && cfg.Store.Backend == store.BackendMemory {
		return Config{}, errors.New("STORE_BACKEND=memory is not allowed in production")
	}
	if cfg.IngestEnabled && cfg.NATSURL == "" {
		return Config{}, errors.New("NATS_URL is required when INGEST_ENABLED is set")
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("%s: invalid rate %q", key, v)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
