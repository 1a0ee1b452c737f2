package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/example/lecture-platform/internal/platform/analytics"
	"github.com/example/lecture-platform/internal/platform/auth"
	"github.com/example/lecture-platform/internal/platform/config"
	"github.com/example/lecture-platform/internal/platform/httpserver"
	"github.com/example/lecture-platform/internal/platform/logging"
	"github.com/example/lecture-platform/internal/platform/natsconn"
	"github.com/example/lecture-platform/internal/platform/run"
	svcconfig "github.com/example/lecture-platform/services/transcript/internal/config"
	"github.com/example/lecture-platform/services/transcript/internal/handlers"
	"github.com/example/lecture-platform/services/transcript/internal/ingest"
	"github.com/example/lecture-platform/services/transcript/internal/resolver"
	"github.com/example/lecture-platform/services/transcript/internal/store"
	"github.com/example/lecture-platform/services/transcript/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: cfg.ServiceName})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	svc, err := svcconfig.Load()
	if err != nil {
		log.Error("invalid configuration", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}

	st := initStore(log, svc)
	defer func() { _ = st.Close() }()

	res := resolver.New(st, resolver.WithPageSize(svc.PageSize), resolver.WithLogger(log))
	ing := ingest.NewService(st, log)

	var (
		nc     *nats.Conn
		events *analytics.Publisher
	)
	if svc.NATSURL != "" {
		nc, err = natsconn.Connect(natsconn.Options{URL: svc.NATSURL, Name: cfg.ServiceName, Logger: log})
		if err != nil {
			if svc.IngestEnabled {
				log.Error("nats connect", zap.Error(err))
				_ = log.Sync()
				os.Exit(1)
			}
			log.Warn("nats unavailable, analytics disabled", zap.Error(err))
		} else {
			defer nc.Close()
			if js, err := nc.JetStream(); err != nil {
				log.Warn("jetstream unavailable, analytics disabled", zap.Error(err))
			} else {
				events = analytics.New(js, log)
			}
		}
	}

	opts := handlers.Options{Logger: log}
	if events != nil {
		opts.Events = events
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		Logger:    log,
		ReadyFunc: readyFunc(st),
	})
	r.Handle("/metrics", promhttp.Handler())

	limiter := httpserver.NewRateLimiter(svc.RateLimitRPS, svc.RateLimitBurst)
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Get("/transcript", handlers.GetTranscript(res, opts))
	})
	if len(svc.JWTSecret) > 0 {
		verifier := auth.JWTVerifier{Secret: svc.JWTSecret}
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(verifier))
			r.Use(auth.RequireAdmin)
			r.Post("/transcript", handlers.PostTranscript(ing, opts))
		})
	} else {
		log.Warn("JWT_SECRET not set, transcript upload disabled")
	}

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	lis, err := net.Listen("tcp", svc.GRPCAddr)
	if err != nil {
		log.Error("grpc listen", zap.Error(err))
		run.Exit(1)
	}
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)

	var jobs *worker.Worker
	if svc.IngestEnabled && nc != nil {
		if jobs, err = worker.NewWorker(log, nc, ing); err != nil {
			log.Error("ingest worker", zap.Error(err))
			run.Exit(1)
		}
	}

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			err := srv.Start(log)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			log.Info("grpc server starting", zap.String("addr", svc.GRPCAddr))
			return grpcSrv.Serve(lis)
		})
		g.Go(func() error {
			watchHealth(ctx, healthSrv, st, log)
			return nil
		})
		if jobs != nil {
			g.Go(func() error { return jobs.Run(ctx) })
		}

		g.Go(func() error {
			<-ctx.Done()
			healthSrv.Shutdown()
			stopped := make(chan struct{})
			go func() {
				grpcSrv.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-time.After(cfg.HTTP.ShutdownTimeout):
				grpcSrv.Stop()
			}
			return runner.Graceful(cfg.HTTP.ShutdownTimeout, srv.Shutdown)
		})
		return g.Wait()
	})

	log.Info("exit", zap.Int("code", code))
	_ = log.Sync()
	run.Exit(code)
}

// initStore opens the configured backend.
// In production it terminates the process when the backend is unavailable;
// elsewhere it falls back to the in-memory store.
func initStore(log *zap.Logger, svc svcconfig.Config) store.Store {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.Open(ctx, svc.Store)
	if err == nil {
		log.Info("transcript store ready", zap.String("backend", svc.Store.Backend))
		return st
	}
	if svc.Production() {
		log.Error("transcript store is required in production but unavailable",
			zap.String("backend", svc.Store.Backend), zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Warn("transcript store unavailable, falling back to in-memory store (development only)",
		zap.String("backend", svc.Store.Backend), zap.Error(err))
	return store.NewInstrumentedStore(store.NewInMemoryStore(), store.BackendMemory)
}

func readyFunc(st store.Store) func() error {
	p, ok := st.(store.Pinger)
	if !ok {
		return nil
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return p.Ping(ctx)
	}
}

// watchHealth mirrors store reachability into the gRPC health service.
func watchHealth(ctx context.Context, hs *health.Server, st store.Store, log *zap.Logger) {
	check := readyFunc(st)
	set := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if check != nil {
			if err := check(); err != nil {
				log.Warn("store ping failed", zap.Error(err))
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
		}
		hs.SetServingStatus("", status)
	}

	set()
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			set()
		}
	}
}
