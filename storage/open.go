package storage

import (
	"context"
	"fmt"

	"paper-tracker/config"
)

// Open wählt den Objektspeicher anhand von BLOB_DRIVER.
func Open(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	switch cfg.BlobDriver {
	case "s3":
		client, err := NewS3Client(cfg)
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, cfg), nil
	case "minio":
		store, err := NewMinioStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown blob driver %q", cfg.BlobDriver)
}
