package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/endpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfgJSON := `{
		"endpoints": {"LOADER": "http://localhost:9000/loader"},
		"store": {"strict": true, "workspace_id": "ws-7"},
		"storage": {"driver": "sqlite", "dsn": "/tmp/x.db"},
		"blob": {"driver": "s3", "bucket": "b", "region": "us-east-1"},
		"event": {"driver": "nats", "url": "nats://localhost:4222"},
		"generation": {"driver": "openai", "model": "gpt-4o", "temperature": 0.2},
		"http": {"host": "0.0.0.0", "port": 9000},
		"log": {"level": "debug"},
		"tracing": {"exporter": "otlp", "endpoint": "localhost:4318"}
	}`
	c, err := LoadConfig(writeTemp(t, "chatflow.config.json", cfgJSON))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/loader", c.Endpoints.Loader)
	assert.True(t, c.Store.Strict)
	assert.Equal(t, "ws-7", c.Store.WorkspaceID)
	assert.Equal(t, StorageConfig{Driver: "sqlite", DSN: "/tmp/x.db"}, c.Storage)
	assert.Equal(t, "b", c.Blob.Bucket)
	assert.Equal(t, "nats", c.Event.Driver)
	assert.Equal(t, "gpt-4o", c.Generation.Model)
	assert.Equal(t, "0.0.0.0:9000", c.HTTP.Addr())
	require.NotNil(t, c.Tracing)
	assert.Equal(t, "otlp", c.Tracing.Exporter)
}

func TestLoadConfig_PartialGetsDefaults(t *testing.T) {
	c, err := LoadConfig(writeTemp(t, "c.json", `{"storage":{"driver":"sqlite"}}`))
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultSQLiteDSN, c.Storage.DSN)
	assert.Equal(t, constants.BlobDriverFilesystem, c.Blob.Driver)
	assert.Equal(t, constants.DefaultBlobDir, c.Blob.Directory)
	assert.Equal(t, constants.EventDriverMemory, c.Event.Driver)
	assert.Equal(t, constants.GeneratorEcho, c.Generation.Driver)
	assert.Equal(t, constants.DefaultWorkspaceID, c.Store.WorkspaceID)
	assert.Equal(t, "localhost:8080", c.HTTP.Addr())
	assert.Nil(t, c.Tracing)
}

func TestLoadConfig_YAML(t *testing.T) {
	yamlDoc := `
endpoints:
  TEXT_GENERATION: http://localhost:8080/text-generation
store:
  strict: true
http:
  port: 9100
`
	c, err := LoadConfig(writeTemp(t, "chatflow.yaml", yamlDoc))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/text-generation", c.Endpoints.TextGeneration)
	assert.True(t, c.Store.Strict)
	assert.Equal(t, 9100, c.HTTP.Port)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)

	tests := map[string]string{
		"invalid json":      `not a json`,
		"unknown section":   `{"mcp_servers": {}}`,
		"bad driver":        `{"storage": {"driver": "mongo"}}`,
		"relative endpoint": `{"endpoints": {"LOADER": "/loader"}}`,
		"unknown endpoint":  `{"endpoints": {"RETRIEVAL": "http://x"}}`,
		"bad port":          `{"http": {"port": 70000}}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeTemp(t, "c.json", doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	c, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	_, err = LoadOrDefault(writeTemp(t, "bad.json", "{"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(constants.EnvLoaderURL, "http://127.0.0.1:1/loader")
	t.Setenv(constants.EnvStrict, "true")
	t.Setenv(constants.EnvWorkspaceID, "env-ws")

	c := Default()
	require.NoError(t, c.ApplyEnv())
	assert.Equal(t, "http://127.0.0.1:1/loader", c.Endpoints.Loader)
	assert.True(t, c.Store.Strict)
	assert.Equal(t, "env-ws", c.Store.WorkspaceID)

	t.Setenv(constants.EnvStrict, "maybe")
	assert.Error(t, Default().ApplyEnv())
}

func TestRegistry(t *testing.T) {
	c := Default()
	c.Endpoints.BlockAction = "http://localhost:8080/block-action"
	r, err := c.Registry()
	require.NoError(t, err)

	addr, err := r.Resolve(string(endpoint.BlockAction))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/block-action", addr)
	assert.Equal(t, endpoint.Default().MustResolve(endpoint.Loader), r.MustResolve(endpoint.Loader))
}
