// Package retrieve finds the chunks most related to a topic, walking a
// descending ladder of similarity thresholds and falling back to keyword
// matching before giving up.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/studyhall-ai/quizgen/internal/domain"
	"github.com/studyhall-ai/quizgen/internal/metrics"
)

// Params configures the adaptive threshold walk.
type Params struct {
	// MinChunks is the minimum number of chunks required to accept a
	// threshold level (and the overall floor below which retrieval fails).
	MinChunks int
	// Thresholds is the similarity ladder, strictly descending.
	Thresholds []float64
	// MaxResults caps each similarity query.
	MaxResults int
	// FallbackLimit caps the keyword fallback query.
	FallbackLimit int
	// FallbackScore is the synthetic similarity assigned to keyword matches.
	FallbackScore float64
}

// DefaultParams mirror the tuning the pipeline shipped with.
func DefaultParams() Params {
	return Params{
		MinChunks:     2,
		Thresholds:    []float64{0.5, 0.4, 0.3, 0.2},
		MaxResults:    20,
		FallbackLimit: 10,
		FallbackScore: 0.7,
	}
}

// Service is the adaptive retriever.
type Service struct {
	repo   Searcher
	embed  Embedder
	params Params
	logger *zap.Logger
}

// New creates a retriever.
func New(repo Searcher, embed Embedder, params Params, logger *zap.Logger) *Service {
	if params.MinChunks <= 0 {
		params = DefaultParams()
	}
	return &Service{repo: repo, embed: embed, params: params, logger: logger}
}

// Retrieve returns the chunks most related to topic, most similar first.
// The topic is lowercased and embedded exactly once; each threshold level
// runs one similarity query. A level that errors is logged and treated as
// zero results so the walk continues downward. When no level yields enough
// chunks, a case-insensitive keyword search is tried; below MinChunks even
// then, domain.ErrInsufficientContent.
func (s *Service) Retrieve(ctx context.Context, ownerID, topic string) ([]domain.ScoredChunk, error) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return nil, fmt.Errorf("topic is required: %w", domain.ErrValidation)
	}

	embResult, err := s.embed.Embed(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("vectorize topic: %w", err)
	}

	if total, err := s.repo.CountChunks(ctx, ownerID); err != nil {
		s.logger.Warn("chunk count failed", zap.Error(err))
	} else {
		s.logger.Debug("retrieval starting",
			zap.String("topic", topic),
			zap.Int64("indexed_chunks", total),
		)
	}

	for _, threshold := range s.params.Thresholds {
		results, err := s.repo.SimilaritySearch(
			ctx, ownerID, embResult.Embedding, threshold, s.params.MaxResults,
		)
		if err != nil {
			s.logger.Warn("similarity search level failed",
				zap.Float64("threshold", threshold),
				zap.Error(err),
			)
			continue
		}
		if len(results) >= s.params.MinChunks {
			s.logger.Debug("retrieval matched",
				zap.Float64("threshold", threshold),
				zap.Int("chunks", len(results)),
			)
			return results, nil
		}
	}

	return s.fallback(ctx, ownerID, topic)
}

// fallback runs the keyword search and assigns the synthetic score.
func (s *Service) fallback(ctx context.Context, ownerID, topic string) ([]domain.ScoredChunk, error) {
	chunks, err := s.repo.SubstringSearch(ctx, ownerID, topic, s.params.FallbackLimit)
	if err != nil {
		metrics.RetrievalFallbackTotal.WithLabelValues("insufficient").Inc()
		return nil, fmt.Errorf("keyword fallback: %w", err)
	}
	if len(chunks) < s.params.MinChunks {
		metrics.RetrievalFallbackTotal.WithLabelValues("insufficient").Inc()
		s.logger.Info("retrieval found too little content",
			zap.String("topic", topic),
			zap.Int("keyword_matches", len(chunks)),
		)
		return nil, fmt.Errorf("topic %q: %w", topic, domain.ErrInsufficientContent)
	}

	metrics.RetrievalFallbackTotal.WithLabelValues("matched").Inc()
	results := make([]domain.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, domain.ScoredChunk{Chunk: c, Similarity: s.params.FallbackScore})
	}
	return results, nil
}
