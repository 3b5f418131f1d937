package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"georef/internal/audit"
	"georef/internal/epsg"
	"georef/internal/operation"
	"georef/internal/platform/config"
	"georef/internal/platform/httpserver"
	"georef/internal/platform/logger"
	"georef/internal/platform/metrics"
	"georef/internal/platform/redis"
	"georef/internal/platform/token"
	"georef/internal/resolve"
	httptransport "georef/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Resolution logic lives in the internal packages.
func main() {
	if err := run(); err != nil {
		logger.New().Fatalf("server error: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New()
	warn := logger.Warn()

	lookup, finder, crss, cleanup, err := openDataset(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	registry, err := operation.NewRegistry(lookup, finder, nil, warn)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	var cache resolve.Cache
	if cfg.RedisURL != "" {
		client, err := redis.New(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		cache = resolve.NewRedisCache(client, cfg.CacheTTL)
		log.Printf("resolution cache enabled (ttl %s)", cfg.CacheTTL)
	}

	var sink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafka(ctx, cfg.KafkaBrokers, cfg.AuditTopic, warn)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafka.Close()
		sink = kafka
		log.Printf("audit trail enabled on topic %s", cfg.AuditTopic)
	}
	recorder := audit.NewRecorder(sink, 0, warn)

	svc, err := resolve.New(registry, crss, cache, cfg.CacheTTL,
		metrics.New(nil), recorder, warn)
	if err != nil {
		return fmt.Errorf("build resolve service: %w", err)
	}

	tokens := token.NewService(cfg.AdminJWTKey, "georef")
	router := httptransport.NewRouter(httptransport.NewHandler(svc, log), tokens, log)
	srv := httpserver.New(cfg.Addr, router)

	log.Printf("starting georef on %s", cfg.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpserver.Run(ctx, srv) })
	g.Go(func() error { return recorder.Run(ctx) })
	return g.Wait()
}

// openDataset picks the EPSG backend: PostgreSQL when configured, otherwise
// the embedded in-memory dataset. A fresh database is initialized and
// seeded from the embedded dataset so it serves immediately.
func openDataset(ctx context.Context, cfg config.Config, log *log.Logger) (
	operation.AuthorityLookup, operation.CodeFinder, resolve.CRSSource, func(), error) {

	if cfg.DatabaseURL == "" {
		mem := epsg.DefaultDataset()
		log.Printf("no database configured, serving the embedded EPSG subset")
		return mem, mem, mem, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, nil, fmt.Errorf("ping database: %w", err)
	}

	store := epsg.NewStore(db)
	if err := store.Init(ctx); err != nil {
		db.Close()
		return nil, nil, nil, nil, err
	}
	if err := store.Seed(ctx, epsg.DefaultDataset()); err != nil {
		db.Close()
		return nil, nil, nil, nil, err
	}
	log.Printf("serving the EPSG dataset from PostgreSQL")
	return store, epsg.NewFinder(store), store, func() { db.Close() }, nil
}
