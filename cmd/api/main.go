package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"relationshipai/apps/backend/internal/analysis"
	"relationshipai/apps/backend/internal/config"
	"relationshipai/apps/backend/internal/db"
	"relationshipai/apps/backend/internal/logging"
	"relationshipai/apps/backend/internal/oracle"
	"relationshipai/apps/backend/internal/server"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	client, err := oracle.New(ctx, cfg)
	if err != nil {
		logger.Fatal("oracle init failed", zap.String("provider", cfg.AIProvider), zap.Error(err))
	}
	service := analysis.NewService(client, cfg.AIModel, logger.Named("analysis"))

	var audit server.AuditRecorder
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database connect failed", zap.Error(err))
		}
		defer pool.Close()

		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("audit schema setup failed", zap.Error(err))
		}
		audit = server.NewPostgresAudit(pool)
	} else {
		logger.Info("DATABASE_URL not set; analysis audit disabled")
	}

	app := server.New(cfg, service, audit, logger.Named("http"))
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening",
			zap.String("addr", "http://localhost:"+cfg.AppPort),
			zap.String("provider", cfg.AIProvider),
			zap.String("model", cfg.AIModel),
			zap.Bool("auth", cfg.AuthEnabled()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
