package ingest

import (
	"context"
	"encoding/json"
)

// Contract constants shared with the vector store collection schema.
const (
	ChunkSize           = 750
	ChunkOverlap        = 150
	SimilarityThreshold = 0.98
	VectorField         = "embedding"

	// approximate-search tuning for the nearest-neighbor query
	searchNProbe = 10

	DuplicateMessage = "DUPLICATE REJECTED (Coherence Already Maxed)"
)

// Chunk is a bounded slice of a document's words plus its embedding.
// The embedding is L2-normalized unless the chunk text produced an
// all-zero vector.
type Chunk struct {
	Text      string
	Embedding []float32
}

// ProcessedFile groups the chunks of one upload. It is never persisted
// itself, only its chunks are.
type ProcessedFile struct {
	Filename string
	Chunks   []Chunk
}

// Record is the row shape stored in the vector collection.
type Record struct {
	Embedding  []float32 `json:"embedding"`
	Text       string    `json:"text"`
	Filename   string    `json:"filename"`
	UploadedAt string    `json:"uploaded_at"`
	Identity   string    `json:"identity"`
}

// SearchHit is one nearest-neighbor result. Stores disagree on whether
// the similarity arrives as a score or a distance field, so both are
// kept optional and resolved through Similarity.
type SearchHit struct {
	Score    *float64
	Distance *float64
}

// Similarity returns the comparable similarity value of the hit, if it
// carries one. A distance field is treated as already being on the
// similarity scale.
func (h SearchHit) Similarity() (float64, bool) {
	if h.Score != nil {
		return *h.Score, true
	}
	if h.Distance != nil {
		return *h.Distance, true
	}
	return 0, false
}

// UnmarshalJSON is lenient: a missing or non-numeric score/distance
// leaves the field nil instead of failing the whole response.
func (h *SearchHit) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	h.Score = asFloat(raw["score"])
	h.Distance = asFloat(raw["distance"])
	return nil
}

func asFloat(raw json.RawMessage) *float64 {
	if raw == nil {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}

	return &f
}

// Result is the outcome of processing one upload.
type Result struct {
	Inserted   int
	Duplicates int
	Message    string
}

// Target identifies where records end up and who they belong to.
type Target struct {
	Collection string
	Identity   string
}

// Encoder maps a batch of texts to fixed-dimension vectors, one per
// text, preserving order.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the remote collection the pipeline searches and
// inserts into. Search returns one hit list per query vector.
type VectorStore interface {
	Search(ctx context.Context, collection string, vectors [][]float32, limit int, field string, nprobe int) ([][]SearchHit, error)
	Insert(ctx context.Context, collection string, records []Record) (int, error)
}

// Reader converts a raw file payload into plain text.
type Reader interface {
	Exts() []string
	ReadText(data []byte) (string, error)
}
