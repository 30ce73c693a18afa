package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/FitSync-G13/fitsync-progress-service/internal/achievement"
	"github.com/FitSync-G13/fitsync-progress-service/internal/analytics"
	"github.com/FitSync-G13/fitsync-progress-service/internal/api"
	"github.com/FitSync-G13/fitsync-progress-service/internal/auth"
	"github.com/FitSync-G13/fitsync-progress-service/internal/cache"
	"github.com/FitSync-G13/fitsync-progress-service/internal/client"
	"github.com/FitSync-G13/fitsync-progress-service/internal/config"
	"github.com/FitSync-G13/fitsync-progress-service/internal/outbox"
	"github.com/FitSync-G13/fitsync-progress-service/internal/progress"
	"github.com/FitSync-G13/fitsync-progress-service/internal/store/postgres"
	httptransport "github.com/FitSync-G13/fitsync-progress-service/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	store := postgres.NewStore(pool)
	repos := store.Repositories()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	statsCache := cache.NewStatsCache(rdb, cache.DefaultTTL)

	aggregator := analytics.NewAggregator(repos, statsCache)
	engine := achievement.NewEngine()
	service := progress.NewService(store, repos, engine, aggregator)

	siblings := client.New(client.Config{
		UserServiceURL:     cfg.UserServiceURL,
		ScheduleServiceURL: cfg.ScheduleServiceURL,
		TrainingServiceURL: cfg.TrainingServiceURL,
		Timeout:            cfg.ClientTimeout,
	})

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	outboxDispatcher := outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go outboxDispatcher.Start(ctx)

	handler := api.NewHandler(service, aggregator, repos, siblings)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		func(r *http.Request) bool {
			return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
		},
	)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(logger(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("progress-service listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	outboxDispatcher.Wait()
}
