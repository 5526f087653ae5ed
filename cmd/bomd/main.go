package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	appservices "github.com/batchforge/bom/pkg/application/services"
	"github.com/batchforge/bom/pkg/application/services/explosion"
	"github.com/batchforge/bom/pkg/infrastructure/config"
	"github.com/batchforge/bom/pkg/infrastructure/events"
	"github.com/batchforge/bom/pkg/infrastructure/logging"
	"github.com/batchforge/bom/pkg/infrastructure/repositories/memory"
	"github.com/batchforge/bom/pkg/infrastructure/repositories/postgres"
	"github.com/batchforge/bom/pkg/interfaces/rest"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting bomd",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	store, err := postgres.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := store.AutoMigrate(); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	eventStore := events.NewInMemoryEventStore(logger)

	provider := rest.NewCachedProvider(
		func() (*memory.Dataset, error) { return store.FetchDataset() },
		func(source explosion.Source) *appservices.BOMService {
			return appservices.NewBOMService(store, store, source, eventStore, logger, cfg.Explosion.MaxDepth)
		},
		logger,
	)
	if err := provider.SubscribeTo(eventStore); err != nil {
		logger.Fatal("Failed to subscribe dataset cache", zap.Error(err))
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := rest.NewHandler(provider)
	router := rest.NewRouter(handler, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
