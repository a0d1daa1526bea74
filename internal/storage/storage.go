// Package storage opens the configured key/value backend.
package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dtroode/moviecat/internal/config"
	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/model"
	"github.com/dtroode/moviecat/internal/repository/postgres"
	"github.com/dtroode/moviecat/internal/storage/memory"
	minioStorage "github.com/dtroode/moviecat/internal/storage/minio"
	"github.com/dtroode/moviecat/internal/storage/sqlite"
)

// Open returns a handle onto the backend named by cfg.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *logger.Logger) (model.Storage, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), nil

	case config.BackendSQLite:
		s, err := sqlite.New(ctx, cfg.SQLite.Path, cfg.SQLite.PollInterval, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return s, nil

	case config.BackendPostgres:
		db, err := postgres.NewConection(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres storage: %w", err)
		}
		return postgres.NewKVRepository(db, logger), nil

	case config.BackendMinIO:
		client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
			Secure: cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		s, err := minioStorage.NewClient(ctx, client, cfg.Storage.Bucket, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open minio storage: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
