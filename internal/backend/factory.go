package backend

import (
	"context"
	"fmt"

	applog "rbudget/internal/log"
	"rbudget/internal/scenario/google"
	"rbudget/internal/scenario/memory"
	"rbudget/internal/scenario/objectstore"
	"rbudget/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case S3Backend:
		return f.createS3Backend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.SeedSample {
		seeded, err := repo.SeedIfEmpty(ctx, memory.DefaultScenario, memory.Sample())
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("failed to seed sample scenario: %w", err)
		}
		if seeded {
			f.logger.Info("Seeded sample scenario", applog.FieldScenario, memory.DefaultScenario)
		}
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Source: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, config.Sheets, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.Sheets.SpreadsheetID)
	return &BackendResult{Source: cli}, nil
}

func (f *DefaultFactory) createS3Backend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := objectstore.New(ctx, config.S3, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 store: %w", err)
	}
	f.logger.Info("Initialized S3 backend", "bucket", config.S3.Bucket, "prefix", config.S3.Prefix)
	return &BackendResult{Source: store}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	if config.DataDirectory == "" {
		f.logger.Info("Initialized memory backend with sample data")
		return &BackendResult{Source: memory.NewSample()}, nil
	}

	store, err := memory.NewFromFiles(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario files: %w", err)
	}
	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)
	return &BackendResult{Source: store}, nil
}
