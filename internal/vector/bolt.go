package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/hyperjump/bookworm/internal/models"
)

var (
	bucketVectors = []byte("vectors")
	bucketMeta    = []byte("meta")
	keyDimensions = []byte("dimensions")
)

// BoltIndex persists vectors in a bbolt file and keeps them cached in memory for search.
type BoltIndex struct {
	db         *bbolt.DB
	dimensions int
	mu         sync.RWMutex
	entries    map[string]entry
}

type storedVector struct {
	Vector   []float32      `json:"v"`
	Metadata map[string]any `json:"m,omitempty"`
}

// NewBoltIndex opens (or creates) the index file at path. An existing file must have been
// created with the same dimension.
func NewBoltIndex(path string, dimensions int) (*BoltIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if path == "" {
		return nil, fmt.Errorf("bolt index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt index: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketVectors); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if raw := meta.Get(keyDimensions); raw != nil {
			if stored := int(binary.LittleEndian.Uint32(raw)); stored != dimensions {
				return &models.DimensionError{Expected: dimensions, Actual: stored}
			}
			return nil
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(dimensions))
		return meta.Put(keyDimensions, buf)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt index: %w", err)
	}

	idx := &BoltIndex{
		db:         db,
		dimensions: dimensions,
		entries:    make(map[string]entry),
	}
	if err := idx.loadVectors(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	return idx, nil
}

func (b *BoltIndex) loadVectors() error {
	return b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketVectors)
		return bucket.ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			b.entries[string(k)] = entry{values: stored.Vector, metadata: stored.Metadata}
			return nil
		})
	})
}

// Type returns the index type identifier.
func (b *BoltIndex) Type() string {
	return string(IndexTypeBolt)
}

// Upsert writes all entries in a single transaction. The in-memory cache is only updated
// once the transaction commits.
func (b *BoltIndex) Upsert(ctx context.Context, entries []models.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateEntries(b.dimensions, entries); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketVectors)
		for _, e := range entries {
			data, err := json.Marshal(storedVector{Vector: e.Values, Metadata: e.Metadata})
			if err != nil {
				return fmt.Errorf("encode %s: %w", e.ID, err)
			}
			if err := bucket.Put([]byte(e.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt upsert: %w", err)
	}
	for _, e := range entries {
		b.entries[e.ID] = newEntry(e)
	}
	return nil
}

// Query returns the nearest entries to vector by cosine similarity.
func (b *BoltIndex) Query(ctx context.Context, vector []float32, opts QueryOptions) ([]models.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateQuery(b.dimensions, vector, opts); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return rank(vector, b.entries, opts), nil
}

// Dimensions returns the vector length accepted by the index.
func (b *BoltIndex) Dimensions() int {
	return b.dimensions
}

// Size returns the number of vectors in the index.
func (b *BoltIndex) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Close closes the underlying database.
func (b *BoltIndex) Close() error {
	return b.db.Close()
}
