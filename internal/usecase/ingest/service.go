// Package ingest turns source material into embedded, searchable chunks.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/studyhall-ai/quizgen/internal/chunker"
	"github.com/studyhall-ai/quizgen/internal/domain"
	"github.com/studyhall-ai/quizgen/internal/extract"
)

// Service orchestrates the ingestion pipeline: validate, persist the
// document, split into chunks, embed each chunk, and batch-insert the
// result. Ingestion is all-or-nothing: any failure after the document row
// is written triggers a best-effort cleanup of the partial document.
type Service struct {
	store    ChunkWriter
	reader   DocumentReader
	embed    Embedder
	scraper  PageScraper
	size     int
	overlap  int
	parallel int
	logger   *zap.Logger
}

// New creates an ingestion service. size and overlap are the chunk window
// parameters in runes; parallel bounds concurrent embedding calls.
func New(
	store ChunkWriter, reader DocumentReader, embed Embedder, scraper PageScraper,
	size, overlap, parallel int, logger *zap.Logger,
) *Service {
	if parallel <= 0 {
		parallel = 4
	}
	return &Service{
		store: store, reader: reader, embed: embed, scraper: scraper,
		size: size, overlap: overlap, parallel: parallel, logger: logger,
	}
}

// IngestText ingests raw pasted text under the given title.
func (s *Service) IngestText(ctx context.Context, ownerID, title, content string) (string, error) {
	return s.ingest(ctx, ownerID, title, content, domain.SourceText, "")
}

// IngestPDF extracts text from a PDF file on disk and ingests it.
// sourceRef is the original file name, kept for display.
func (s *Service) IngestPDF(ctx context.Context, ownerID, title, path, sourceRef string) (string, error) {
	text, err := extract.PDFText(path)
	if err != nil {
		return "", err
	}
	return s.ingest(ctx, ownerID, title, text, domain.SourceFile, sourceRef)
}

// IngestURL scrapes a web page and ingests its readable text. The page
// title becomes the document title.
func (s *Service) IngestURL(ctx context.Context, ownerID, rawURL string) (string, error) {
	title, content, err := s.scraper.Scrape(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return s.ingest(ctx, ownerID, title, content, domain.SourceURL, rawURL)
}

func (s *Service) ingest(
	ctx context.Context, ownerID, title, content string,
	sourceType domain.SourceType, sourceRef string,
) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("owner id is required: %w", domain.ErrUnauthorized)
	}
	if title == "" {
		return "", fmt.Errorf("title is required: %w", domain.ErrValidation)
	}

	normalized := chunker.Normalize(content)
	if normalized == "" {
		return "", fmt.Errorf("document has no usable text: %w", domain.ErrEmptyInput)
	}

	pieces, err := chunker.Split(normalized, s.size, s.overlap)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	doc := domain.Document{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Title:      title,
		SourceType: sourceType,
		Content:    normalized,
		SourceRef:  sourceRef,
		CreatedAt:  now,
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return "", err
	}

	chunks, err := s.embedChunks(ctx, doc, pieces, now)
	if err == nil {
		err = s.store.InsertChunks(ctx, chunks)
	}
	if err != nil {
		s.cleanup(ctx, ownerID, doc.ID)
		return "", err
	}

	s.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.String("source_type", string(sourceType)),
		zap.Int("chunks", len(chunks)),
	)
	return doc.ID, nil
}

// embedChunks vectorizes every chunk with bounded parallelism. Chunk order
// and positions follow the split order regardless of completion order.
func (s *Service) embedChunks(
	ctx context.Context, doc domain.Document, pieces []string, now time.Time,
) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, len(pieces))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for i, piece := range pieces {
		g.Go(func() error {
			result, err := s.embed.Embed(gctx, piece)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			chunks[i] = domain.Chunk{
				ID:         uuid.NewString(),
				DocumentID: doc.ID,
				Content:    piece,
				Embedding:  result.Embedding,
				Metadata: map[string]string{
					"source":   doc.Title,
					"position": strconv.Itoa(i),
				},
				Position:  i,
				CreatedAt: now,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// cleanup removes a partially ingested document. Failure here leaves an
// orphan behind, so it is logged loudly rather than returned.
func (s *Service) cleanup(ctx context.Context, ownerID, documentID string) {
	if err := s.store.DeleteDocument(ctx, ownerID, documentID); err != nil {
		s.logger.Warn("cleanup of partial document failed",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
	}
}

// Get returns an owner's document.
func (s *Service) Get(ctx context.Context, ownerID, id string) (domain.Document, error) {
	return s.reader.GetDocument(ctx, ownerID, id)
}

// List returns an owner's documents, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]domain.Document, error) {
	return s.reader.ListDocuments(ctx, ownerID)
}

// Chunks returns a document's chunks in position order.
func (s *Service) Chunks(ctx context.Context, ownerID, documentID string) ([]domain.Chunk, error) {
	return s.reader.ListChunksByDocument(ctx, ownerID, documentID)
}

// Delete removes an owner's document and its chunks.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteDocument(ctx, ownerID, id)
}
