package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/endpoint"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the config file read when no path is given.
const DefaultConfigPath = constants.ConfigFileName

type Config struct {
	Endpoints  EndpointsConfig  `json:"endpoints"`
	Store      StoreConfig      `json:"store"`
	Storage    StorageConfig    `json:"storage"`
	Blob       BlobConfig       `json:"blob"`
	Event      EventConfig      `json:"event"`
	Generation GenerationConfig `json:"generation"`
	HTTP       HTTPConfig       `json:"http"`
	Log        LogConfig        `json:"log"`
	Tracing    *TracingConfig   `json:"tracing,omitempty"`
}

// EndpointsConfig overrides the backend addresses. Empty fields keep the hosted
// defaults.
type EndpointsConfig struct {
	TextGeneration string `json:"TEXT_GENERATION,omitempty"`
	Loader         string `json:"LOADER,omitempty"`
	SaveWorkspace  string `json:"SAVE_WORKSPACE,omitempty"`
	BlockAction    string `json:"BLOCK_ACTION,omitempty"`
}

type StoreConfig struct {
	Strict      bool   `json:"strict"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

type StorageConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn,omitempty"`
}

type BlobConfig struct {
	Driver    string `json:"driver"`
	Directory string `json:"directory,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	Region    string `json:"region,omitempty"`
	// Endpoint points the s3 driver at an S3 compatible service. Requests then use
	// path-style addressing.
	Endpoint string `json:"endpoint,omitempty"`
}

type EventConfig struct {
	Driver string `json:"driver"`
	URL    string `json:"url,omitempty"`
}

type GenerationConfig struct {
	Driver         string  `json:"driver"`
	Model          string  `json:"model,omitempty"`
	Endpoint       string  `json:"endpoint,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	PromptTemplate string  `json:"prompt_template,omitempty"`
}

type HTTPConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

type LogConfig struct {
	Level string `json:"level"`
}

type TracingConfig struct {
	ServiceName string `json:"service_name,omitempty"`
	Exporter    string `json:"exporter,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
}

// Default returns a configuration with every default applied and no file read.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a JSON or YAML (by extension) config file, validates it against the
// embedded schema and fills in defaults. Environment overrides are not applied; see
// ApplyEnv.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return Parse(data)
}

// LoadOrDefault is LoadConfig that falls back to Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse validates and decodes a JSON config document.
func Parse(data []byte) (*Config, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return json.Marshal(doc)
}

func (c *Config) applyDefaults() {
	if c.Store.WorkspaceID == "" {
		c.Store.WorkspaceID = constants.DefaultWorkspaceID
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = constants.StorageDriverMemory
	}
	if c.Storage.Driver == constants.StorageDriverSQLite && c.Storage.DSN == "" {
		c.Storage.DSN = constants.DefaultSQLiteDSN
	}
	if c.Blob.Driver == "" {
		c.Blob.Driver = constants.BlobDriverFilesystem
	}
	if c.Blob.Driver == constants.BlobDriverFilesystem && c.Blob.Directory == "" {
		c.Blob.Directory = constants.DefaultBlobDir
	}
	if c.Event.Driver == "" {
		c.Event.Driver = constants.EventDriverMemory
	}
	if c.Generation.Driver == "" {
		c.Generation.Driver = constants.GeneratorEcho
	}
	if c.HTTP.Host == "" {
		c.HTTP.Host = constants.DefaultHost
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = constants.DefaultPort
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ApplyEnv overrides config values from the environment.
func (c *Config) ApplyEnv() error {
	overrides := []struct {
		env string
		dst *string
	}{
		{constants.EnvTextGenerationURL, &c.Endpoints.TextGeneration},
		{constants.EnvLoaderURL, &c.Endpoints.Loader},
		{constants.EnvSaveWorkspaceURL, &c.Endpoints.SaveWorkspace},
		{constants.EnvBlockActionURL, &c.Endpoints.BlockAction},
		{constants.EnvWorkspaceID, &c.Store.WorkspaceID},
		{constants.EnvStorageDSN, &c.Storage.DSN},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
	if v := os.Getenv(constants.EnvStrict); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", constants.EnvStrict, err)
		}
		c.Store.Strict = strict
	}
	return nil
}

// EndpointAddresses merges the configured addresses over the hosted defaults.
func (c *Config) EndpointAddresses() map[endpoint.Operation]string {
	addrs := endpoint.DefaultAddresses()
	set := func(op endpoint.Operation, v string) {
		if v != "" {
			addrs[op] = v
		}
	}
	set(endpoint.TextGeneration, c.Endpoints.TextGeneration)
	set(endpoint.Loader, c.Endpoints.Loader)
	set(endpoint.SaveWorkspace, c.Endpoints.SaveWorkspace)
	set(endpoint.BlockAction, c.Endpoints.BlockAction)
	return addrs
}

// Registry builds the endpoint registry described by the config.
func (c *Config) Registry() (*endpoint.Registry, error) {
	return endpoint.New(c.EndpointAddresses())
}
