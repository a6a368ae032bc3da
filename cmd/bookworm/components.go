package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/bookworm/internal/config"
	"github.com/hyperjump/bookworm/internal/embedding"
	"github.com/hyperjump/bookworm/internal/generation"
	"github.com/hyperjump/bookworm/internal/ingest"
	"github.com/hyperjump/bookworm/internal/keyword"
	"github.com/hyperjump/bookworm/internal/models"
	"github.com/hyperjump/bookworm/internal/queue"
	"github.com/hyperjump/bookworm/internal/recommend"
	"github.com/hyperjump/bookworm/internal/snapshot"
	"github.com/hyperjump/bookworm/internal/storage"
	"github.com/hyperjump/bookworm/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Config         *config.Config
	Logger         *zap.Logger
	Storage        *storage.SQLiteStorage
	IngestEmbedder embedding.Embedder
	QueryEmbedder  embedding.Embedder
	VectorIndex    vector.Index
	Catalog        *keyword.BleveIndex
	Queue          *queue.BadgerQueue
	Snapshots      snapshot.Store
	Generator      generation.Generator
	Ingest         *ingest.Pipeline
	Pager          *ingest.Pager
	Recommender    *recommend.Pipeline
}

// initializeComponents opens every store and builds both pipelines. On error, everything opened
// so far is closed.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, progress ingest.ProgressFunc) (*Components, error) {
	c := &Components{Config: cfg, Logger: logger}
	ready := false
	defer func() {
		if !ready {
			c.Close()
		}
	}()

	var err error
	if c.Storage, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embOpts := []embedding.Option{embedding.WithLogger(logger)}
	if c.IngestEmbedder, err = embedding.New(cfg.Embedding.Provider, embeddingConfig(cfg, cfg.Embedding.IngestModel),
		cfg.Embedding.IngestDimensions, embOpts...); err != nil {
		return nil, fmt.Errorf("failed to initialize ingestion embedder: %w", err)
	}
	queryEmbedder, err := embedding.New(cfg.Embedding.Provider, embeddingConfig(cfg, cfg.Embedding.QueryModel),
		cfg.Embedding.QueryDimensions, embOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize query embedder: %w", err)
	}
	c.QueryEmbedder = embedding.NewCachedEmbedder(queryEmbedder, cfg.Embedding.CacheSize)

	if c.VectorIndex, err = vector.NewIndex(cfg.Vector.Backend, cfg.Vector.Dimensions, cfg.Vector.Path); err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if c.Snapshots, err = snapshot.New(ctx, snapshotConfig(cfg)); err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot store: %w", err)
	}
	if err := c.restoreSnapshot(ctx); err != nil {
		return nil, err
	}

	if c.Catalog, err = keyword.NewBleveIndex(cfg.Storage.CatalogPath); err != nil {
		return nil, fmt.Errorf("failed to initialize catalog index: %w", err)
	}
	if c.Queue, err = queue.OpenBadgerQueue(cfg.Storage.QueuePath, logger); err != nil {
		return nil, fmt.Errorf("failed to initialize work queue: %w", err)
	}

	if c.Generator, err = generation.New(cfg.Generation.Provider, generation.OpenAIConfig{
		BaseURL:     cfg.Generation.BaseURL,
		Token:       cfg.Generation.Token,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		Timeout:     cfg.Generation.Timeout,
	}, generation.WithLogger(logger)); err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	ingestOpts := []ingest.Option{
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
		ingest.WithBatchDelay(cfg.Ingest.BatchDelay),
		ingest.WithLogger(logger),
	}
	if progress != nil {
		ingestOpts = append(ingestOpts, ingest.WithProgress(progress))
	}
	c.Ingest = ingest.NewPipeline(ingest.Deps{
		Store:    c.Storage,
		Embedder: c.IngestEmbedder,
		Index:    c.VectorIndex,
		Catalog:  c.Catalog,
	}, ingestOpts...)
	c.Pager = ingest.NewPager(c.Ingest, cfg.Ingest.Candidates, c.Queue, logger)
	c.Recommender = recommend.NewPipeline(recommend.Deps{
		Embedder:  c.QueryEmbedder,
		Index:     c.VectorIndex,
		Generator: c.Generator,
	}, recommend.WithTopK(cfg.Recommend.TopK), recommend.WithDefaultQuery(cfg.Recommend.DefaultQuery),
		recommend.WithLogger(logger))

	logger.Info("components initialized",
		zap.String("vector_backend", cfg.Vector.Backend),
		zap.Int("dimensions", cfg.Vector.Dimensions),
		zap.Int("vectors", c.VectorIndex.Size()),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("snapshot_backend", cfg.Snapshot.Backend))
	ready = true
	return c, nil
}

func embeddingConfig(cfg *config.Config, model string) embedding.OpenAIConfig {
	return embedding.OpenAIConfig{
		BaseURL:           cfg.Embedding.BaseURL,
		Token:             cfg.Embedding.Token,
		Model:             model,
		Timeout:           cfg.Embedding.Timeout,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	}
}

func snapshotConfig(cfg *config.Config) snapshot.Config {
	s := cfg.Snapshot
	return snapshot.Config{
		Backend:   s.Backend,
		Path:      s.Path,
		Endpoint:  s.Endpoint,
		Bucket:    s.Bucket,
		Object:    s.Object,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		UseSSL:    s.UseSSL,
	}
}

// restoreSnapshot loads the last saved memory index, if any.
func (c *Components) restoreSnapshot(ctx context.Context) error {
	mem, ok := c.VectorIndex.(*vector.MemoryIndex)
	if c.Snapshots == nil || !ok {
		return nil
	}
	found, err := snapshot.Restore(ctx, c.Snapshots, mem)
	if err != nil {
		if errors.Is(err, models.ErrDimensionMismatch) {
			return fmt.Errorf("snapshot at %s does not match the configured dimensions: %w", c.Snapshots.Location(), err)
		}
		c.Logger.Warn("vector snapshot restore failed, starting empty",
			zap.String("location", c.Snapshots.Location()), zap.Error(err))
		return nil
	}
	if found {
		c.Logger.Info("vector snapshot restored",
			zap.String("location", c.Snapshots.Location()), zap.Int("vectors", mem.Size()))
	}
	return nil
}

// SaveSnapshot writes the memory index to the snapshot store. It is a no-op without one.
func (c *Components) SaveSnapshot(ctx context.Context) error {
	mem, ok := c.VectorIndex.(*vector.MemoryIndex)
	if c.Snapshots == nil || !ok {
		return nil
	}
	n, err := snapshot.Save(ctx, c.Snapshots, mem)
	if err != nil {
		return fmt.Errorf("save snapshot to %s: %w", c.Snapshots.Location(), err)
	}
	c.Logger.Info("vector snapshot saved",
		zap.String("location", c.Snapshots.Location()), zap.Int64("bytes", n), zap.Int("vectors", mem.Size()))
	return nil
}

// Status reports store sizes.
func (c *Components) Status(ctx context.Context) (*models.Status, error) {
	records, err := c.Storage.CountBooks(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := c.Catalog.DocCount()
	if err != nil {
		return nil, fmt.Errorf("catalog doc count: %w", err)
	}
	pending, err := c.Queue.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue length: %w", err)
	}
	st := &models.Status{
		Records:           records,
		IndexBackend:      c.Config.Vector.Backend,
		IndexDimensions:   c.VectorIndex.Dimensions(),
		IndexSize:         c.VectorIndex.Size(),
		CatalogDocs:       docs,
		QueueLength:       pending,
		EmbeddingProvider: c.Config.Embedding.Provider,
		GenerationModel:   c.Config.Generation.Model,
	}
	db := c.Config.Storage.DatabasePath
	if n, err := storage.DiskUsageBytes(db, db+"-wal", db+"-shm"); err == nil {
		st.DatabaseBytes = n
	}
	if n, err := storage.DiskUsageBytes(c.dataPaths()...); err == nil {
		st.DiskBytes = n
	}
	return st, nil
}

// dataPaths lists every on-disk location the components write to.
func (c *Components) dataPaths() []string {
	db := c.Config.Storage.DatabasePath
	paths := []string{db, db + "-wal", db + "-shm", c.Config.Storage.CatalogPath, c.Config.Storage.QueuePath}
	if c.Config.Vector.Backend == string(vector.IndexTypeBolt) {
		paths = append(paths, c.Config.Vector.Path)
	}
	return paths
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.IngestEmbedder != nil {
		_ = c.IngestEmbedder.Close()
	}
	if c.QueryEmbedder != nil {
		_ = c.QueryEmbedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
	if c.Queue != nil {
		_ = c.Queue.Close()
	}
}
