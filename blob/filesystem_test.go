package blob

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chatflow-dev/chatflow/config"
	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Exit(utils.WithCleanDirs(m, constants.DefaultConfigDir))
}

func newTestFilesystemBlobStore(t *testing.T) *FilesystemBlobStore {
	dir := filepath.Join(t.TempDir(), "blobstore")
	store, err := NewFilesystemBlobStore(dir)
	require.NoError(t, err)
	return store
}

func TestFilesystemBlobStore_RoundTrip(t *testing.T) {
	store := newTestFilesystemBlobStore(t)
	ctx := context.Background()
	url, err := store.Put(ctx, []byte("test-data"), "text/plain", "1/test.txt")
	require.NoError(t, err)
	assert.Contains(t, url, "file://")

	got, err := store.Get(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, []byte("test-data"), got)
}

func TestFilesystemBlobStore_EmptyData(t *testing.T) {
	store := newTestFilesystemBlobStore(t)
	url, err := store.Put(context.Background(), nil, "", "empty.txt")
	require.NoError(t, err)
	got, err := store.Get(context.Background(), url)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilesystemBlobStore_GeneratedKey(t *testing.T) {
	store := newTestFilesystemBlobStore(t)
	url, err := store.Put(context.Background(), []byte("x"), "text/plain", "")
	require.NoError(t, err)
	assert.Contains(t, url, "blob-")
}

func TestFilesystemBlobStore_GetErrors(t *testing.T) {
	store := newTestFilesystemBlobStore(t)
	_, err := store.Get(context.Background(), "file:///does/not/exist.txt")
	assert.Error(t, err)
	_, err = store.Get(context.Background(), "s3://bucket/key")
	assert.Error(t, err)
}

func TestFilesystemBlobStore_KeyStaysInsideRoot(t *testing.T) {
	store := newTestFilesystemBlobStore(t)
	url, err := store.Put(context.Background(), []byte("x"), "text/plain", "../../escape.txt")
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.Join(store.dir, "escape.txt"), url)

	_, err = store.Put(context.Background(), []byte("x"), "text/plain", "/")
	assert.Error(t, err)
}

func TestFilesystemBlobStore_List(t *testing.T) {
	store := newTestFilesystemBlobStore(t)
	ctx := context.Background()
	for _, key := range []string{"1/b.pdf", "1/a.txt", "1/sub/c.md", "2/other.txt"} {
		_, err := store.Put(ctx, []byte(key), "text/plain", key)
		require.NoError(t, err)
	}

	docs, err := store.List(ctx, WorkspacePrefix("1"))
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a.txt", docs[0].Name)
	assert.Equal(t, "b.pdf", docs[1].Name)
	assert.Equal(t, "c.md", docs[2].Name)

	data, err := store.Get(ctx, docs[2].StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "1/sub/c.md", string(data))

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := store.List(ctx, WorkspacePrefix("missing"))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestFilesystemBlobStore_Concurrency(t *testing.T) {
	store := newTestFilesystemBlobStore(t)
	var wg sync.WaitGroup
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			url, err := store.Put(context.Background(), []byte(name), "text/plain", name)
			if !assert.NoError(t, err) {
				return
			}
			got, err := store.Get(context.Background(), url)
			assert.NoError(t, err)
			assert.Equal(t, name, string(got))
		}(name)
	}
	wg.Wait()
}

func TestNewDefaultBlobStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "files")
	bs, err := NewDefaultBlobStore(ctx, &config.BlobConfig{Directory: dir})
	require.NoError(t, err)
	assert.IsType(t, &FilesystemBlobStore{}, bs)
	_, err = os.Stat(dir)
	assert.NoError(t, err)

	bs, err = NewDefaultBlobStore(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultBlobDir, bs.(*FilesystemBlobStore).dir)

	_, err = NewDefaultBlobStore(ctx, &config.BlobConfig{Driver: constants.BlobDriverS3})
	assert.Error(t, err)

	_, err = NewDefaultBlobStore(ctx, &config.BlobConfig{Driver: "ftp"})
	assert.Error(t, err)
}

func TestWorkspacePrefix(t *testing.T) {
	assert.Equal(t, "1/", WorkspacePrefix("1"))
	assert.Equal(t, "ws/", WorkspacePrefix("ws/"))
}
