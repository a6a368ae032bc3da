package models

// IndexEntry is a vector stored in the similarity index under a record ID.
// Upserting an existing ID replaces the whole entry.
type IndexEntry struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryResult is a single similarity hit. Scores are comparable only within one query.
type QueryResult struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Values   []float32      `json:"values,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UpsertResult describes the entries written by an upsert.
type UpsertResult struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}
