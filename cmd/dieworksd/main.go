package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"dieworks-backend/config"
	"dieworks-backend/internal/api"
	"dieworks-backend/internal/db"
	"dieworks-backend/internal/logging"
	"dieworks-backend/internal/mw"
	"dieworks-backend/internal/notification"
	"dieworks-backend/internal/sequence"
	"dieworks-backend/internal/storage"
	"dieworks-backend/internal/store"
)

func main() {
	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	gin.SetMode(cfg.Server.Mode)

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seq sequence.Source
	if cfg.Redis.URL != "" {
		client, err := sequence.ConnectRedis(cfg.Redis.URL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer client.Close()
		seq = sequence.NewRedisSource(client, sequence.ProductionOrderFloor)
		logger.Info("production order sequences kept in redis")
	}
	appStore := store.NewGormStore(gormDB, seq)

	var files storage.ObjectStore
	if cfg.Storage.Endpoint != "" {
		minioStore, err := storage.NewMinioStore(ctx, cfg.Storage)
		if err != nil {
			logger.Fatal("failed to initialize object storage", zap.Error(err))
		}
		files = minioStore
		logger.Info("object storage ready", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		logger.Warn("storage.endpoint is not set; die file uploads are disabled")
	}

	var webpushOptions *webpush.Options
	var notifier api.Notifier
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, logger.Named("push"))
		pool.Start(ctx)
		notifier = pool
	} else {
		logger.Warn("VAPID keys are not configured; push notifications are disabled")
	}

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is not set; panel login is disabled")
	}

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, 10*time.Minute)
	go limiter.RunSweeper(ctx, time.Minute)

	handler := api.NewHandler(api.Deps{
		Store: appStore,
		Files: files,
		Resolver: storage.Resolver{
			PublicBaseURL: cfg.Storage.PublicBaseURL,
			DXFViewerURL:  cfg.Storage.DXFViewerURL,
		},
		Notifier:       notifier,
		WebPush:        webpushOptions,
		Auth:           cfg.Auth,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		Log:            logger,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler, cfg.Server, limiter, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}
	cancel()

	logger.Info("server gracefully stopped")
}
