package domain

import "time"

// SourceType declares how a document entered the system.
type SourceType string

const (
	SourceText SourceType = "TEXT"
	SourceFile SourceType = "FILE"
	SourceURL  SourceType = "URL"
)

// Valid reports whether the source type is one of the declared values.
func (s SourceType) Valid() bool {
	switch s {
	case SourceText, SourceFile, SourceURL:
		return true
	}
	return false
}

// Document is an ingested source document. Immutable after ingestion.
type Document struct {
	ID         string
	OwnerID    string
	Title      string
	SourceType SourceType
	Content    string
	SourceRef  string // original file name or URL, empty for pasted text
	CreatedAt  time.Time
}

// Chunk is a bounded span of a document's text, the unit of embedding
// and retrieval. Created in batch during ingestion, never mutated.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Embedding  []float32
	Metadata   map[string]string
	Position   int
	CreatedAt  time.Time
}

// ScoredChunk is a chunk with its similarity to a retrieval query.
// Keyword-fallback matches carry a fixed synthetic score so every
// consumer sees a uniform shape.
type ScoredChunk struct {
	Chunk
	Similarity float64
}
