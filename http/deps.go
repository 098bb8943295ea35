package http

import (
	"context"

	"github.com/chatflow-dev/chatflow/blob"
	"github.com/chatflow-dev/chatflow/config"
	"github.com/chatflow-dev/chatflow/generate"
	"github.com/chatflow-dev/chatflow/storage"
	"github.com/chatflow-dev/chatflow/utils"
)

// NewDepsFromConfig builds the storage, blob store and generator named by cfg.
func NewDepsFromConfig(ctx context.Context, cfg *config.Config) (Deps, error) {
	store, err := storage.NewStorageFromConfig(cfg.Storage)
	if err != nil {
		return Deps{}, err
	}
	blobs, err := blob.NewDefaultBlobStore(ctx, &cfg.Blob)
	if err != nil {
		store.Close()
		return Deps{}, err
	}
	gen, err := generate.NewGeneratorFromConfig(cfg.Generation)
	if err != nil {
		store.Close()
		return Deps{}, err
	}
	return Deps{Storage: store, Blobs: blobs, Generator: gen}, nil
}

// Close releases the storage connection.
func (d Deps) Close() error {
	if d.Storage == nil {
		return nil
	}
	if err := d.Storage.Close(); err != nil {
		utils.Error("Failed to close storage: %v", err)
		return err
	}
	return nil
}
