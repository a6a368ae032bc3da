package models

// Status reports the size of each store and the active backends.
type Status struct {
	Records           int64  `json:"records"`
	IndexBackend      string `json:"index_backend"`
	IndexDimensions   int    `json:"index_dimensions"`
	IndexSize         int    `json:"index_size"`
	CatalogDocs       uint64 `json:"catalog_docs"`
	QueueLength       int    `json:"queue_length"`
	EmbeddingProvider string `json:"embedding_provider"`
	GenerationModel   string `json:"generation_model"`
	DatabaseBytes     int64  `json:"database_bytes"`
	DiskBytes         int64  `json:"disk_bytes"`
}
