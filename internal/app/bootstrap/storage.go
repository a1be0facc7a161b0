package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/wolfman30/lead-intake/internal/config"
	"github.com/wolfman30/lead-intake/internal/files"
	"github.com/wolfman30/lead-intake/internal/leads"
	"github.com/wolfman30/lead-intake/pkg/logging"
)

// AWSConfigLoader resolves the shared AWS configuration on first use.
type AWSConfigLoader func(ctx context.Context) (aws.Config, error)

// BuildLeadStore opens the configured lead store. A submission cannot be
// accepted without one, so any failure here is fatal to startup.
func BuildLeadStore(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) (leads.Store, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}
	noop := func() {}

	switch cfg.LeadStore {
	case "sheets":
		store, err := leads.NewSheetsStore(ctx, cfg.GoogleServiceAccountJSON, cfg.GoogleSheetID, cfg.GoogleSheetTab)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: sheets lead store: %w", err)
		}
		logger.Info("lead store", "backend", "sheets", "tab", cfg.GoogleSheetTab)
		return store, noop, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, noop, fmt.Errorf("bootstrap: DATABASE_URL required for postgres lead store")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		logger.Info("lead store", "backend", "postgres")
		return leads.NewPostgresStore(pool), pool.Close, nil

	case "dynamodb":
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: aws config: %w", err)
		}
		logger.Info("lead store", "backend", "dynamodb", "table", cfg.LeadsTable)
		return leads.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.LeadsTable), noop, nil

	case "memory":
		logger.Warn("lead store is in-memory; leads are lost on restart")
		return leads.NewMemoryStore(), noop, nil
	}
	return nil, noop, fmt.Errorf("bootstrap: unknown lead store %q", cfg.LeadStore)
}

// BuildFileStore returns the attachment backend. Misconfiguration is not
// fatal: uploads fail and each lead records why.
func BuildFileStore(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) files.Store {
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.FileStore {
	case "drive":
		store, err := files.NewDriveStore(ctx, cfg.GoogleServiceAccountJSON, cfg.GoogleDriveFolderID)
		if err != nil {
			logger.Warn("drive file store unavailable; attachments disabled", "error", err)
			return files.DisabledStore{}
		}
		logger.Info("file store", "backend", "drive")
		return store

	case "s3":
		if cfg.S3Bucket == "" {
			logger.Warn("S3_BUCKET not set; attachments disabled")
			return files.DisabledStore{}
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			logger.Warn("aws config unavailable; attachments disabled", "error", err)
			return files.DisabledStore{}
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		})
		logger.Info("file store", "backend", "s3", "bucket", cfg.S3Bucket)
		return files.NewS3Store(client, cfg.S3Bucket, cfg.S3PublicBaseURL)

	case "", "none":
		logger.Info("file store disabled")
		return files.DisabledStore{}
	}
	logger.Warn("unknown file store; attachments disabled", "file_store", cfg.FileStore)
	return files.DisabledStore{}
}
