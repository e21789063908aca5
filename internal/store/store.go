package store

import (
	"context"
	"fmt"

	"github.com/nao1215/drivercatalog/internal/catalog"
	"github.com/nao1215/drivercatalog/internal/config"
)

// Store loads and saves the option tree.
//
// Load returns an empty tree, not an error, when nothing was saved yet.
// Save replaces the persisted catalog with tree.
type Store interface {
	Load(ctx context.Context) (*catalog.Tree, error)
	Save(ctx context.Context, tree *catalog.Tree) error
	Close() error
}

// Open returns the backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendFile, "":
		return NewFile(cfg.StorePath), nil
	case config.BackendSQLite:
		db, err := OpenSQLite(cfg.DBDir, SQLiteOptions{Keep: cfg.SnapshotsKept})
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendS3:
		s3, err := OpenS3(ctx, S3Options{
			Bucket:   cfg.S3Bucket,
			Key:      cfg.S3Key,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.StoreBackend)
	}
}
