package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"production_queue/internal/config"
	"production_queue/internal/production"
	"production_queue/internal/purchasing"
	"production_queue/internal/queue"
	"production_queue/internal/router"
	"production_queue/internal/store"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := setupLogger(cfg)

	// 1. database
	db, err := store.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db open")
	}
	if err := store.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("db migrate")
	}
	st := store.New(db)

	// 2. redis: PO locks, created set, rate limits, event outbox
	rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping")
	}
	cancelPing()

	// 3. kafka
	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaPOEventsTopic, queue.WithWriteTimeout(cfg.KafkaWriteTimeout))
	outbox := queue.NewStreamOutbox(rdb, cfg.POEventStream)
	relay := queue.NewRelay(rdb, producer, cfg.POEventStream, cfg.POEventGroup, cfg.POEventConsumer, logger)
	statusConsumer := queue.NewStatusConsumer(cfg.KafkaBrokers, cfg.KafkaPOStatusTopic, cfg.KafkaGroupID, st, logger)

	opts := production.WithWaste(cfg.WasteFactor)
	svc := purchasing.NewService(st, rdb, outbox, cfg.POLockTTL, opts, logger)
	reconciler := purchasing.NewReconciler(st, rdb, outbox, cfg.ReconcileInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){relay.Run, statusConsumer.Run, reconciler.Run} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx)
		}()
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.New(router.Deps{
		Store:      st,
		Purchasing: svc,
		Reconciler: reconciler,
		Redis:      rdb,
		Config:     cfg,
		Log:        logger,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if err := statusConsumer.Close(); err != nil {
		logger.Warn().Err(err).Msg("close status consumer")
	}
	wg.Wait()
	if err := producer.Close(); err != nil {
		logger.Warn().Err(err).Msg("close producer")
	}
	if err := rdb.Close(); err != nil {
		logger.Warn().Err(err).Msg("close redis")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func setupLogger(cfg config.AppConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	logger = logger.With().Timestamp().Str("service", "production-queue").Logger()
	log.Logger = logger
	return logger
}
