// Package models defines the core data structures for chunks, collections, and search results.
package models

// Chunk is a bounded segment of a source document, the unit of embedding and retrieval.
type Chunk struct {
	// ID is unique within a collection. Re-indexing the same source mints new IDs.
	ID string `json:"id"`
	// Source is the base file name the chunk was extracted from.
	Source string `json:"source"`
	// Index is the 0-based, contiguous position of the chunk within its source.
	Index int `json:"chunk_index"`
	// Text is the chunk content, at most the configured max_chars long.
	Text string `json:"text"`
	// Start and End are byte offsets of the chunk in the extracted source text.
	Start int `json:"char_start"`
	End   int `json:"char_end"`
}

// SearchResult is a single similarity hit. Score is cosine similarity in [-1, 1]:
// higher means more similar, 1.0 is an identical direction. Results are produced
// per query and never stored.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// CollectionInfo aggregates collection statistics from stored chunk metadata.
type CollectionInfo struct {
	Name        string         `json:"collection_name"`
	TotalChunks int            `json:"total_chunks"`
	FileCount   int            `json:"file_count"`
	SourceFiles map[string]int `json:"source_files"`
}

// FileFailure records a single file that could not be indexed.
type FileFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// IndexReport summarizes one IndexDocuments call. Failures are per-file and do not
// invalidate chunks committed for other files in the same call.
type IndexReport struct {
	Collection   string        `json:"collection"`
	FilesIndexed int           `json:"files_indexed"`
	ChunksAdded  int           `json:"chunks_added"`
	Failures     []FileFailure `json:"failures,omitempty"`
}

// Failed records a file-level failure on the report.
func (r *IndexReport) Failed(path string, err error) {
	r.Failures = append(r.Failures, FileFailure{Path: path, Reason: err.Error()})
}
