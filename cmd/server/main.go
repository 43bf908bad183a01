package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/airfare/internal/airport"
	"github.com/neexbeast/airfare/internal/api"
	"github.com/neexbeast/airfare/internal/config"
	"github.com/neexbeast/airfare/internal/fare"
	"github.com/neexbeast/airfare/internal/query"
	"github.com/neexbeast/airfare/internal/stats"
	"github.com/neexbeast/airfare/internal/storage"
	"github.com/neexbeast/airfare/internal/tools"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	var (
		observers  []tools.Observer
		queryLog   api.QueryLog
		routeStats api.RouteStats
		dbPinger   api.Pinger
		redisPing  api.Pinger
	)

	// Query log is optional.
	if cfg.Database.URL != "" {
		pool, err := storage.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		if err := storage.RunMigrations(ctx, pool, storage.Migrations()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("migrations applied")

		repo := storage.NewRepository(pool)
		observers = append(observers, repo)
		queryLog = repo
		dbPinger = &pgxPoolPinger{pool: pool}
	} else {
		log.Info("query log disabled: DATABASE_URL not set")
	}

	// Route statistics are optional.
	if cfg.Redis.URL != "" {
		redisClient, err := stats.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		routes := stats.NewRoutes(redisClient)
		observers = append(observers, routes)
		routeStats = routes
		redisPing = &redisPingerAdapter{client: redisClient}
	} else {
		log.Info("route statistics disabled: REDIS_URL not set")
	}

	// Wire dependencies.
	loc := cfg.Location()
	fetcher := fare.NewClientWithURL(cfg.Fare.BaseURL, cfg.Fare.Timeout)
	svc := query.NewService(airport.Default(), fetcher, log,
		query.WithClock(func() time.Time { return time.Now().In(loc) }))

	registry := tools.NewRegistry(log, observers...)
	if err := tools.RegisterFareTools(registry, svc); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}

	handlers := api.NewHandlers(registry, queryLog, routeStats, log)
	health := api.NewHealth(dbPinger, redisPing, log)
	router := api.NewRouter(handlers, api.RouterConfig{
		BearerToken:        cfg.Server.BearerToken,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}, health, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.Fare.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Server.Port, "tools", len(registry.Tools()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

// pgxPoolPinger adapts pgxpool.Pool to api.Pinger.
type pgxPoolPinger struct {
	pool *pgxpool.Pool
}

func (p *pgxPoolPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// redisPingerAdapter adapts redis.Client to api.Pinger.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
