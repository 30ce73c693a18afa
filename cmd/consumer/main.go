package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/FitSync-G13/fitsync-progress-service/internal/achievement"
	"github.com/FitSync-G13/fitsync-progress-service/internal/analytics"
	"github.com/FitSync-G13/fitsync-progress-service/internal/cache"
	"github.com/FitSync-G13/fitsync-progress-service/internal/client"
	"github.com/FitSync-G13/fitsync-progress-service/internal/config"
	"github.com/FitSync-G13/fitsync-progress-service/internal/consumer"
	"github.com/FitSync-G13/fitsync-progress-service/internal/dispatcher"
	"github.com/FitSync-G13/fitsync-progress-service/internal/store/postgres"
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

	siblings := client.New(client.Config{
		UserServiceURL:     cfg.UserServiceURL,
		ScheduleServiceURL: cfg.ScheduleServiceURL,
		TrainingServiceURL: cfg.TrainingServiceURL,
		Timeout:            cfg.ClientTimeout,
	})

	disp := dispatcher.New(dispatcher.Config{
		UnitOfWork:   store,
		Repos:        repos,
		Engine:       achievement.NewEngine(),
		Details:      siblings,
		Invalidator:  analytics.NewAggregator(repos, statsCache),
		ServiceToken: cfg.ServiceToken,
	})
	handler := consumer.NewDispatchHandler(disp)

	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		RequiredAcks: kafka.RequireAll,
	}
	defer dlqWriter.Close()
	deadLetterer := consumer.NewDeadLetterWriter(dlqWriter, cfg.DeadLetterTopic)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}

	go func() {
		log.Printf("consumer metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	for _, topic := range cfg.KafkaTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.KafkaGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})

		proc := consumer.NewProcessor(reader, handler, consumer.WithDeadLetterer(deadLetterer))

		wg.Add(1)
		go func(topic string, r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			log.Printf("consumer started (topic=%s, group=%s)", topic, cfg.KafkaGroupID)
			if err := proc.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("consumer stopped with error (topic=%s): %v", topic, err)
			}
		}(topic, reader)
	}

	<-stop
	log.Println("consumer shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}

	wg.Wait()
}
