package blob

import (
	"context"
	"path"
	"strings"

	"github.com/chatflow-dev/chatflow/config"
	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/model"
	"github.com/chatflow-dev/chatflow/utils"
)

// BlobStore is the interface for pluggable blob storage backends. Keys are
// slash-separated; the backend serves a workspace's documents from the
// "<workspace_id>/" prefix.
type BlobStore interface {
	Put(ctx context.Context, data []byte, mime, key string) (url string, err error)
	Get(ctx context.Context, url string) ([]byte, error)
	// List returns the blobs under prefix as documents ordered by key.
	List(ctx context.Context, prefix string) ([]model.Document, error)
}

// See filesystem.go and s3.go for driver implementations.

// NewDefaultBlobStore returns a BlobStore based on config, or a FilesystemBlobStore in
// .chatflow/files if config is nil or empty.
func NewDefaultBlobStore(ctx context.Context, cfg *config.BlobConfig) (BlobStore, error) {
	if cfg == nil || cfg.Driver == "" || cfg.Driver == constants.BlobDriverFilesystem {
		dir := constants.DefaultBlobDir
		if cfg != nil && cfg.Directory != "" {
			dir = cfg.Directory
		}
		return NewFilesystemBlobStore(dir)
	}
	if cfg.Driver == constants.BlobDriverS3 {
		if cfg.Bucket == "" || cfg.Region == "" {
			return nil, utils.Errorf("s3 driver requires bucket and region")
		}
		return NewS3BlobStore(ctx, S3Options{Bucket: cfg.Bucket, Region: cfg.Region, Endpoint: cfg.Endpoint})
	}
	return nil, utils.Errorf("unsupported blob driver: %s", cfg.Driver)
}

// WorkspacePrefix is the key prefix holding a workspace's documents.
func WorkspacePrefix(workspaceID string) string {
	return strings.TrimSuffix(workspaceID, "/") + "/"
}

// cleanKey normalises a key into a relative slash path. Cleaning it as a rooted path
// keeps ".." segments from leaving the store root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" {
		return "", utils.Errorf("invalid blob key: %q", key)
	}
	return k, nil
}
