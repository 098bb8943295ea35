package blob

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chatflow-dev/chatflow/model"
	"github.com/chatflow-dev/chatflow/utils"
)

const fileURLPrefix = "file://"

// FilesystemBlobStore implements BlobStore using the local filesystem.
// This is the default blob store.
type FilesystemBlobStore struct {
	dir string
}

var _ BlobStore = (*FilesystemBlobStore)(nil)

// NewFilesystemBlobStore creates a new FilesystemBlobStore with the given directory.
// The directory will be created if it does not exist.
func NewFilesystemBlobStore(dir string) (*FilesystemBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FilesystemBlobStore{dir: dir}, nil
}

// Put stores the blob as a file under the directory. Returns a file:// URL.
func (f *FilesystemBlobStore) Put(ctx context.Context, data []byte, mime, key string) (string, error) {
	if key == "" {
		key = fmt.Sprintf("blob-%d", time.Now().UnixNano())
	}
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	path := filepath.Join(f.dir, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	// Write atomically
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", err
	}
	return fileURLPrefix + path, nil
}

// Get retrieves the blob from the file:// URL.
func (f *FilesystemBlobStore) Get(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, fileURLPrefix) {
		return nil, utils.Errorf("invalid file URL: %s", url)
	}
	return os.ReadFile(url[len(fileURLPrefix):])
}

// List walks the directory under prefix. A missing prefix yields no documents.
func (f *FilesystemBlobStore) List(ctx context.Context, prefix string) ([]model.Document, error) {
	docs := []model.Document{}
	root := f.dir
	if prefix != "" {
		k, err := cleanKey(prefix)
		if err != nil {
			return nil, err
		}
		root = filepath.Join(f.dir, filepath.FromSlash(k))
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		docs = append(docs, model.Document{Name: d.Name(), StorageKey: fileURLPrefix + path})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].StorageKey < docs[j].StorageKey })
	return docs, nil
}
