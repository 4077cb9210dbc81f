package retrieve

import (
	"context"

	"github.com/studyhall-ai/quizgen/internal/domain"
)

// Searcher defines the storage contract for retrieval.
type Searcher interface {
	SimilaritySearch(
		ctx context.Context, ownerID string, vector []float32, threshold float64, limit int,
	) ([]domain.ScoredChunk, error)
	SubstringSearch(ctx context.Context, ownerID, pattern string, limit int) ([]domain.Chunk, error)
	CountChunks(ctx context.Context, ownerID string) (int64, error)
}

// Embedder vectorizes the topic query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
