package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search. Contents survive restarts only through snapshots.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeBolt persists vectors in a bbolt file at the configured path.
	IndexTypeBolt IndexType = "bolt"
)

// NewIndex creates a vector index of the specified type.
// Supported types: "memory" (default), "bolt". path is only used by "bolt".
func NewIndex(indexType string, dimensions int, path string) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		idx, err := NewMemoryIndex(dimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case IndexTypeBolt:
		idx, err := NewBoltIndex(path, dimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, bolt)", indexType)
	}
}
