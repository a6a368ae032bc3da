// Package config provides configuration loading and structs for the bookworm server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/bookworm/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Vector     VectorConfig     `yaml:"vector"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Recommend  RecommendConfig  `yaml:"recommend"`
	Queue      QueueConfig      `yaml:"queue"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns host:port.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the record store, catalog index and work queue.
// An empty QueuePath keeps the queue in memory.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	CatalogPath  string `yaml:"catalog_path"`
	QueuePath    string `yaml:"queue_path"`
}

// VectorConfig selects the similarity index backend.
type VectorConfig struct {
	Backend    string `yaml:"backend"`
	Dimensions int    `yaml:"dimensions"`
	// Path is the bbolt file used by the "bolt" backend.
	Path string `yaml:"path"`
}

// SnapshotConfig selects where the memory index is saved on shutdown and restored on startup.
type SnapshotConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Object    string `yaml:"object"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// EmbeddingConfig holds the embedding endpoint and the two models used for ingestion and queries.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"`
	BaseURL           string        `yaml:"base_url"`
	Token             string        `yaml:"token"`
	IngestModel       string        `yaml:"ingest_model"`
	QueryModel        string        `yaml:"query_model"`
	IngestDimensions  int           `yaml:"ingest_dimensions"`
	QueryDimensions   int           `yaml:"query_dimensions"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	CacheSize         int           `yaml:"cache_size"`
}

// GenerationConfig holds the chat model settings.
type GenerationConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url"`
	Token       string        `yaml:"token"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// IngestConfig holds batching and candidate selection settings.
type IngestConfig struct {
	BatchSize  int                   `yaml:"batch_size"`
	BatchDelay time.Duration         `yaml:"batch_delay"`
	Candidates models.CandidateQuery `yaml:"candidates"`
}

// RecommendConfig holds retrieval settings.
type RecommendConfig struct {
	TopK         int    `yaml:"top_k"`
	DefaultQuery string `yaml:"default_query"`
}

// QueueConfig holds work queue worker settings.
type QueueConfig struct {
	Workers      int           `yaml:"workers"`
	MaxAttempts  int           `yaml:"max_attempts"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Load reads and parses the config file at path, expands paths and ${VAR} references in
// credentials, and applies defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	cfg.Embedding.Token = os.ExpandEnv(cfg.Embedding.Token)
	cfg.Generation.Token = os.ExpandEnv(cfg.Generation.Token)
	cfg.Snapshot.AccessKey = os.ExpandEnv(cfg.Snapshot.AccessKey)
	cfg.Snapshot.SecretKey = os.ExpandEnv(cfg.Snapshot.SecretKey)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.CatalogPath = expandPath(cfg.Storage.CatalogPath, configDir)
	if cfg.Storage.QueuePath != "" {
		cfg.Storage.QueuePath = expandPath(cfg.Storage.QueuePath, configDir)
	}
	cfg.Vector.Path = expandPath(cfg.Vector.Path, configDir)
	if cfg.Snapshot.Path != "" {
		cfg.Snapshot.Path = expandPath(cfg.Snapshot.Path, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Vector.Dimensions <= 0 {
		return fmt.Errorf("vector dimensions must be positive")
	}
	if c.Snapshot.Backend != "" && c.Snapshot.Backend != "none" && c.Vector.Backend != "memory" {
		return fmt.Errorf("snapshots require the memory vector backend, got %q", c.Vector.Backend)
	}
	if c.Ingest.Candidates.MinRating < 0 {
		return fmt.Errorf("ingest min_rating must not be negative")
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
