package models

// BatchError records an upsert batch that failed during ingestion.
type BatchError struct {
	Batch int    `json:"batch"`
	Size  int    `json:"size"`
	Error string `json:"error"`
}

// PopulateReport summarizes one ingestion run.
//
// Candidates is the number of records fetched. Embedded counts records that produced an
// index entry; Skipped counts records whose embedding failed. Upserted and Failed count
// entries in successful and failed batches respectively.
type PopulateReport struct {
	RunID         string       `json:"run_id"`
	Cursor        string       `json:"cursor,omitempty"`
	NextCursor    string       `json:"next_cursor,omitempty"`
	Candidates    int          `json:"candidates"`
	Embedded      int          `json:"embedded"`
	Skipped       int          `json:"skipped"`
	Upserted      int          `json:"upserted"`
	Failed        int          `json:"failed"`
	Batches       int          `json:"batches"`
	FailedBatches int          `json:"failed_batches"`
	Errors        []BatchError `json:"errors,omitempty"`
	DurationMS    int64        `json:"duration_ms"`
}

// StartPopulateResponse is returned by a chained population step.
type StartPopulateResponse struct {
	Message string `json:"message"`
	*PopulateReport
}

// AddBookResult is returned after a single book has been stored and indexed.
type AddBookResult struct {
	ID       int64        `json:"id"`
	Text     string       `json:"text"`
	Inserted UpsertResult `json:"inserted"`
}
