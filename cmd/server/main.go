package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"privacore/internal/audit"
	auditHandler "privacore/internal/audit/handler"
	"privacore/internal/audit/publisher"
	auditStore "privacore/internal/audit/store"
	entityHandler "privacore/internal/entity/handler"
	entityService "privacore/internal/entity/service"
	entityStore "privacore/internal/entity/store"
	jwttoken "privacore/internal/jwt_token"
	"privacore/internal/platform/config"
	"privacore/internal/platform/httpserver"
	"privacore/internal/platform/logger"
	"privacore/internal/platform/metrics"
	platformRedis "privacore/internal/platform/redis"
	limitMiddleware "privacore/internal/ratelimit/middleware"
	limitStore "privacore/internal/ratelimit/store"
)

const auditOutboxSize = 256

// main wires dependencies and keeps the lifecycle small. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := buildStores(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var trailOpts []audit.Option
	var outbox chan audit.Entry
	var pub *publisher.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		pub, err = publisher.New(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer pub.Close()
		outbox = make(chan audit.Entry, auditOutboxSize)
		trailOpts = append(trailOpts, audit.WithOutbox(outbox))
		log.Info("audit kafka sink enabled", "topic", cfg.AuditTopic)
	}
	trail := audit.NewTrail(stores.audit, trailOpts...)

	svc := entityService.New(stores.entities, trail, log, m)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "privacore", "privacore-api")
	validator := jwttoken.NewJWTServiceAdapter(jwtService)

	erasureLimit := limitMiddleware.Limit(stores.buckets, cfg.ErasureRateLimit, cfg.ErasureRateWindow, log)

	router := chi.NewRouter()
	entityHandler.New(svc, log, m, validator, erasureLimit).Register(router)
	auditHandler.New(trail, log, m, validator).Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	if pub != nil {
		worker := audit.NewWorker(pub, outbox, log)
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		log.Info("starting privacore", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// storeSet holds the persistence backends selected from config.
type storeSet struct {
	entities entityService.Store
	audit    audit.Store
	buckets  limitStore.BucketStore
}

// buildStores selects postgres-backed stores when a URL is configured and
// falls back to the in-memory implementations otherwise. The returned
// cleanup closes whatever connections were opened.
func buildStores(cfg config.Server, log *slog.Logger) (*storeSet, func(), error) {
	stores := &storeSet{
		entities: entityStore.NewMemoryStore(),
		audit:    auditStore.NewMemoryStore(),
		buckets:  limitStore.NewMemory(),
	}
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, cleanup, err
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, cleanup, err
		}
		closers = append(closers, func() { _ = db.Close() })

		stores.entities, err = entityStore.NewPostgres(db)
		if err != nil {
			return nil, cleanup, err
		}
		stores.audit, err = auditStore.NewPostgres(db)
		if err != nil {
			return nil, cleanup, err
		}
		log.Info("using postgres store")
	} else {
		log.Warn("no postgres configured, state is in-memory and volatile")
	}

	rdb, err := platformRedis.New(cfg.Redis)
	if err != nil {
		return nil, cleanup, err
	}
	if rdb != nil {
		closers = append(closers, func() { _ = rdb.Close() })
		stores.buckets = limitStore.NewRedis(rdb.Client)
		log.Info("using redis rate limiter")
	}

	return stores, cleanup, nil
}
