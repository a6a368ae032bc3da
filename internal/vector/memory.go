package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/hyperjump/bookworm/internal/models"
)

// snapshotMagic prefixes a serialized MemoryIndex.
const snapshotMagic uint32 = 0x424b5631 // "BKV1"

// Limits applied while reading a snapshot.
const (
	maxSnapshotMetadataLen = 1 << 20
	maxEntriesHint         = 1 << 16
)

// MemoryIndex is an in-memory vector index using brute-force cosine search.
// Its contents can be serialized with WriteTo and restored with ReadFrom.
type MemoryIndex struct {
	dimensions int
	entries    map[string]entry
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		entries:    make(map[string]entry),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Upsert validates all entries, then inserts or replaces them.
func (m *MemoryIndex) Upsert(ctx context.Context, entries []models.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateEntries(m.dimensions, entries); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.ID] = newEntry(e)
	}
	return nil
}

// Query returns the nearest entries to vector by cosine similarity.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, opts QueryOptions) ([]models.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateQuery(m.dimensions, vector, opts); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return rank(vector, m.entries, opts), nil
}

// Dimensions returns the vector length accepted by the index.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

// WriteTo serializes the index. Format (little endian): magic (4), dimension (4), n (4),
// then per entry sorted by ID: idLen (4), id bytes, vector (dimension*4 bytes),
// metaLen (4), metadata JSON.
func (m *MemoryIndex) WriteTo(w io.Writer) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	header := []uint32{snapshotMagic, uint32(m.dimensions), uint32(len(m.entries))}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return cw.n, fmt.Errorf("write header: %w", err)
	}

	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		e := m.entries[id]
		if err := writeBytes(bw, []byte(id)); err != nil {
			return cw.n, fmt.Errorf("write id: %w", err)
		}
		if _, err := bw.Write(float32SliceToBytes(e.values)); err != nil {
			return cw.n, fmt.Errorf("write vector: %w", err)
		}
		meta, err := json.Marshal(e.metadata)
		if err != nil {
			return cw.n, fmt.Errorf("encode metadata for %s: %w", id, err)
		}
		if len(meta) > maxSnapshotMetadataLen {
			return cw.n, fmt.Errorf("metadata for %s is %d bytes, limit %d", id, len(meta), maxSnapshotMetadataLen)
		}
		if err := writeBytes(bw, meta); err != nil {
			return cw.n, fmt.Errorf("write metadata: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// ReadFrom replaces the index contents with a snapshot produced by WriteTo.
// The snapshot dimension must match the index.
func (m *MemoryIndex) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: bufio.NewReader(r)}
	var header [3]uint32
	if err := binary.Read(cr, binary.LittleEndian, &header); err != nil {
		return cr.n, fmt.Errorf("read header: %w", err)
	}
	if header[0] != snapshotMagic {
		return cr.n, fmt.Errorf("not a vector index snapshot")
	}
	if int(header[1]) != m.dimensions {
		return cr.n, fmt.Errorf("snapshot: %w", &models.DimensionError{Expected: m.dimensions, Actual: int(header[1])})
	}

	n := header[2]
	entries := make(map[string]entry, int(min(n, maxEntriesHint)))
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		id, err := readBytes(cr, maxIDLen)
		if err != nil {
			return cr.n, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(cr, buf); err != nil {
			return cr.n, fmt.Errorf("read vector: %w", err)
		}
		raw, err := readBytes(cr, maxSnapshotMetadataLen)
		if err != nil {
			return cr.n, fmt.Errorf("read metadata: %w", err)
		}
		var meta map[string]any
		if err := json.Unmarshal(raw, &meta); err != nil {
			return cr.n, fmt.Errorf("decode metadata for %s: %w", id, err)
		}
		entries[string(id)] = entry{values: bytesToFloat32Slice(buf), metadata: meta}
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return cr.n, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader, limit uint32) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("length %d exceeds limit %d", n, limit)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
