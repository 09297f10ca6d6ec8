package model

// ChunkMetadata is the bounded per-chunk metadata stored alongside each
// vector in the index. TextPreview is capped so the record stays within
// backend metadata limits; the full text lives in the local text store.
type ChunkMetadata struct {
	TextPreview string `json:"text_preview"`
	TextLength  int    `json:"text_length"`
	SourceFile  string `json:"source_file"`
	PageNumber  int    `json:"page_number"`
}

// Chunk is one ingested segment of a source legal document. ChunkID is the
// join key between the vector index and the local text store.
type Chunk struct {
	ChunkID    string `json:"chunk_id"`
	Text       string `json:"text"`
	SourceFile string `json:"source_file"`
	PageNumber int    `json:"page_number"`
}

// EmbeddingRecord is what gets upserted into the vector index.
type EmbeddingRecord struct {
	ID       string
	Vector   []float32
	Metadata ChunkMetadata
}

// RetrievalResult holds parallel, rank-ordered slices for one query.
// Documents is hydrated from the local text store; a sync gap shows up as
// an empty string at that position, never as a missing entry.
type RetrievalResult struct {
	IDs       []string
	Documents []string
	Metadatas []ChunkMetadata
	Scores    []float32
}

func (r *RetrievalResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.IDs)
}
