package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voxscribe/voxscribe/internal/common"
	"github.com/voxscribe/voxscribe/internal/devserver"
	"github.com/voxscribe/voxscribe/internal/storage"
	"github.com/voxscribe/voxscribe/pkg/config"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadFromEnv()
	setupLogging(&cfg.Logging)

	log.Info().Msg("starting VoxScribe dev server")

	db, err := common.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(&devserver.User{}, &devserver.Job{}, &devserver.PendingUpload{}); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	var cache common.Cache
	if cfg.Redis.Enabled {
		redisCache, err := common.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		cache = redisCache
	} else {
		cache = common.NewMemoryCache()
	}

	blobs, err := storage.NewLocalStore(cfg.Storage.LocalPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize blob store")
	}

	authService := devserver.NewAuthService(db, cache, &cfg.Auth)
	transcriptionService := devserver.NewTranscriptionService(db, blobs, &cfg.Auth, &cfg.Storage, cfg.Server.PublicURL)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      devserver.NewServer(authService, transcriptionService, &cfg.Auth).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker := devserver.NewWorker(db, blobs, 2*time.Second)
	go worker.Run(workerCtx)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

func setupLogging(cfg *config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
