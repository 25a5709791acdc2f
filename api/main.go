package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/bounty-radar/internal/alert"
	"github.com/DeafMist/bounty-radar/internal/config"
	"github.com/DeafMist/bounty-radar/internal/dedupe"
	"github.com/DeafMist/bounty-radar/internal/elasticsearch"
	"github.com/DeafMist/bounty-radar/internal/events"
	"github.com/DeafMist/bounty-radar/internal/logger"
	"github.com/DeafMist/bounty-radar/internal/notify"
	"github.com/DeafMist/bounty-radar/internal/scraper"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		log.Error("init dedupe store", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeStore()

	opts := []alert.Option{}
	if len(cfg.KafkaBrokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer pub.Close()
		opts = append(opts, alert.WithPublisher(pub))
		log.Info("publishing notified bounties", slog.String("topic", cfg.KafkaTopic))
	}

	var archive archiveSearcher
	if cfg.ElasticsearchAddr != "" {
		esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			log.Error("init elasticsearch", slog.Any("err", err))
			os.Exit(1)
		}
		archive = esClient
	}

	if cfg.WebhookURL == "" {
		log.Warn("SLACK_WEBHOOK_URL not configured; notify endpoints will report config_error")
	}

	svc := alert.NewService(
		alert.Config{Recency: cfg.Recency},
		scraper.New(cfg.SourceURL, cfg.FetchTimeout, log),
		notify.NewSlack(cfg.WebhookURL, cfg.WebhookTimeout, log),
		store,
		log,
		opts...,
	)

	if cfg.Schedule != "" {
		sched, err := startSchedule(cfg.Schedule, svc, log)
		if err != nil {
			log.Error("init schedule", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() { <-sched.Stop().Done() }()
	}

	srv := &server{log: log, cfg: cfg, alerts: svc, archive: archive}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.FetchTimeout + cfg.WebhookTimeout + 15*time.Second,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr), slog.String("source", cfg.SourceURL))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

func newStore(ctx context.Context, cfg *config.API) (dedupe.Store, func(), error) {
	if cfg.DedupeBackend != config.DedupeRedis {
		return dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL), func() {}, nil
	}

	client, err := dedupe.NewRedisClient(ctx, dedupe.RedisConfig{
		Address:  cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, err
	}
	return dedupe.NewRedisStore(client, dedupe.DefaultKeyPrefix, cfg.DedupeTTL), func() { client.Close() }, nil
}
