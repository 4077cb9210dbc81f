package ingest

import (
	"context"

	"github.com/studyhall-ai/quizgen/internal/domain"
)

// ChunkWriter defines the storage contract for ingestion.
type ChunkWriter interface {
	InsertDocument(ctx context.Context, doc domain.Document) error
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error
	DeleteDocument(ctx context.Context, ownerID, documentID string) error
}

// DocumentReader reads documents and their chunks for the query surface.
type DocumentReader interface {
	GetDocument(ctx context.Context, ownerID, id string) (domain.Document, error)
	ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error)
	ListChunksByDocument(ctx context.Context, ownerID, documentID string) ([]domain.Chunk, error)
}

// Embedder vectorizes chunk text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// PageScraper fetches a web page as title and readable text.
type PageScraper interface {
	Scrape(ctx context.Context, rawURL string) (title, content string, err error)
}
