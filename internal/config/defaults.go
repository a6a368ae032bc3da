package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/bookworm/data/db/books.db"
	}
	if cfg.Storage.CatalogPath == "" {
		cfg.Storage.CatalogPath = "/usr/local/var/bookworm/data/indices/catalog"
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "memory"
	}
	if cfg.Vector.Dimensions == 0 {
		cfg.Vector.Dimensions = 1024
	}
	if cfg.Vector.Path == "" {
		cfg.Vector.Path = "/usr/local/var/bookworm/data/indices/vectors.bolt"
	}
	if cfg.Snapshot.Backend == "" {
		cfg.Snapshot.Backend = "none"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Embedding.IngestModel == "" {
		cfg.Embedding.IngestModel = "bge-large-en-v1.5"
	}
	if cfg.Embedding.QueryModel == "" {
		cfg.Embedding.QueryModel = "bge-base-en-v1.5"
	}
	if cfg.Embedding.IngestDimensions == 0 {
		cfg.Embedding.IngestDimensions = cfg.Vector.Dimensions
	}
	if cfg.Embedding.QueryDimensions == 0 {
		cfg.Embedding.QueryDimensions = 768
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "openai"
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "llama3.1:8b"
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 60 * time.Second
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 10
	}
	if cfg.Ingest.BatchDelay == 0 {
		cfg.Ingest.BatchDelay = 500 * time.Millisecond
	}
	if cfg.Ingest.Candidates.Shelf == "" {
		cfg.Ingest.Candidates.Shelf = "read"
	}
	if cfg.Ingest.Candidates.MinRating == 0 {
		cfg.Ingest.Candidates.MinRating = 3.7
	}
	if cfg.Ingest.Candidates.Limit == 0 {
		cfg.Ingest.Candidates.Limit = 200
	}
	if cfg.Recommend.TopK == 0 {
		cfg.Recommend.TopK = 5
	}
	if cfg.Recommend.DefaultQuery == "" {
		cfg.Recommend.DefaultQuery = "Recommend me a book"
	}
	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = 1
	}
	if cfg.Queue.MaxAttempts == 0 {
		cfg.Queue.MaxAttempts = 3
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = time.Second
	}
}
