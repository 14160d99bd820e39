package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/mnemolabs/mnemo/internal/cache"
	"github.com/mnemolabs/mnemo/internal/config"
	"github.com/mnemolabs/mnemo/internal/database"
	"github.com/mnemolabs/mnemo/internal/embeddings"
	"github.com/mnemolabs/mnemo/internal/llm"
	"github.com/mnemolabs/mnemo/internal/longterm"
	"github.com/mnemolabs/mnemo/internal/vectorstore/qdrant"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mnemo: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config overlay")
	flag.Parse()

	// Missing .env is fine, env vars may come from the environment.
	_ = godotenv.Load()

	cfg := config.Load()
	if *configPath != "" {
		if err := config.LoadFile(cfg, *configPath); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := cache.NewRedisClient(cfg.Redis)
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx); err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	logger.WithField("addr", cfg.Redis.Addr).Info("Connected to Redis")

	db, err := database.NewPostgresDB(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.RunMigrations(ctx); err != nil {
		return err
	}

	qdrantClient, err := qdrant.NewClient(&cfg.Qdrant, logger)
	if err != nil {
		return err
	}
	if err := qdrantClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant unavailable: %w", err)
	}
	if err := qdrantClient.EnsureCollection(ctx, &qdrant.CollectionConfig{
		Name:       longterm.DefaultCollection,
		VectorSize: cfg.Embedding.Dimension,
		Distance:   qdrant.DistanceCosine,
	}); err != nil {
		return fmt.Errorf("failed to ensure memory collection: %w", err)
	}

	embedder := embeddings.NewClient(cfg.Embedding, logger)
	completion := llm.NewClient(cfg.Completion, logger)
	repo := database.NewMemoryRepository(db.Pool(), logger)
	store := longterm.NewStore(embedder, qdrantClient, repo, completion, logger)

	logger.Info("Memory engine ready")

	runCleanupLoop(ctx, store, cfg.Memory.RetentionDays, logger)

	logger.Info("Shutting down")
	return nil
}

// runCleanupLoop expires old memories once a day until the context ends.
func runCleanupLoop(ctx context.Context, store *longterm.Store, retentionDays int, logger *logrus.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.CleanupOldMemories(ctx, retentionDays)
			if err != nil {
				logger.WithError(err).Error("Memory cleanup failed")
				continue
			}
			if deleted > 0 {
				logger.WithField("deleted", deleted).Info("Memory cleanup completed")
			}
		}
	}
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
