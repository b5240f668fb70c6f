package backend

import (
	"context"
	"fmt"

	"moneytracker/internal/core"
	"moneytracker/internal/ledger"
	"moneytracker/internal/log"
	"moneytracker/internal/storage"
	"moneytracker/internal/storage/jsonfile"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil

	case FileBackend:
		store, err := jsonfile.New(config.DataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file backend: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized file backend", "data_file", config.DataFile)
		return store, nil

	case MemoryBackend:
		f.logger.WarnContext(ctx, "Initialized memory backend, data will not survive a restart")
		return NewMemory(), nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// OpenStore loads b into a new ledger store. An empty backend is seeded with
// the default categories and saved, so the first run starts usable.
func OpenStore(ctx context.Context, b Backend, logger *log.Logger) (*ledger.Store, error) {
	snap, err := b.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	if snap.IsEmpty() {
		snap.Categories = core.DefaultCategories()
		if err := b.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("seed default categories: %w", err)
		}
		if logger != nil {
			logger.InfoContext(ctx, "Seeded empty ledger with default categories",
				"categories", len(snap.Categories))
		}
	}

	return ledger.NewStore(snap), nil
}
