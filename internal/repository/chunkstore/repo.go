// Package chunkstore persists documents and their embedded chunks in
// Postgres and serves the retriever's similarity and substring searches.
package chunkstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studyhall-ai/quizgen/internal/db/postgres"
	"github.com/studyhall-ai/quizgen/internal/domain"
)

// Repo is the Postgres-backed chunk store.
type Repo struct {
	db        *gorm.DB
	vectorDim int
}

// New creates a chunk store. vectorDim is the canonical embedding width;
// vectors of any other width are rejected before reaching the database.
func New(db *gorm.DB, vectorDim int) *Repo {
	return &Repo{db: db, vectorDim: vectorDim}
}

// InsertDocument persists one document row.
func (r *Repo) InsertDocument(ctx context.Context, doc domain.Document) error {
	model := postgres.DocumentModel{
		ID:         doc.ID,
		OwnerID:    doc.OwnerID,
		Title:      doc.Title,
		SourceType: string(doc.SourceType),
		Content:    doc.Content,
		SourceRef:  doc.SourceRef,
		CreatedAt:  doc.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("insert document: %w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// InsertChunks persists all chunks of one document in batches.
func (r *Repo) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := make([]postgres.ChunkModel, 0, len(chunks))
	for _, c := range chunks {
		if err := r.validateDim(c.Embedding); err != nil {
			return err
		}
		model, err := chunkToModel(c)
		if err != nil {
			return err
		}
		models = append(models, model)
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&models, 200).Error; err != nil {
		return fmt.Errorf("insert chunks: %w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// DeleteDocument removes a document and its chunks in one transaction.
// Scoped to the owning user.
func (r *Repo) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", documentID, ownerID).Delete(&postgres.DocumentModel{})
		if res.Error != nil {
			return fmt.Errorf("delete document: %w: %w", domain.ErrStoreWrite, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
		}
		if err := tx.Where("document_id = ?", documentID).Delete(&postgres.ChunkModel{}).Error; err != nil {
			return fmt.Errorf("delete chunks: %w: %w", domain.ErrStoreWrite, err)
		}
		return nil
	})
}

// GetDocument returns an owner's document by ID.
func (r *Repo) GetDocument(ctx context.Context, ownerID, id string) (domain.Document, error) {
	var model postgres.DocumentModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	return documentFromModel(model), nil
}

// ListDocuments returns an owner's documents, newest first.
func (r *Repo) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	var models []postgres.DocumentModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]domain.Document, 0, len(models))
	for _, m := range models {
		docs = append(docs, documentFromModel(m))
	}
	return docs, nil
}

// ListChunksByDocument returns a document's chunks in ingestion order.
func (r *Repo) ListChunksByDocument(ctx context.Context, ownerID, documentID string) ([]domain.Chunk, error) {
	if _, err := r.GetDocument(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	var models []postgres.ChunkModel
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("position ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	chunks := make([]domain.Chunk, 0, len(models))
	for _, m := range models {
		c, err := chunkFromModel(m)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// CountChunks returns the number of chunks visible to an owner.
func (r *Repo) CountChunks(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&postgres.ChunkModel{}).
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("documents.owner_id = ?", ownerID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// searchRow carries a chunk plus its cosine similarity out of a search query.
type searchRow struct {
	ID         string
	DocumentID string
	Content    string
	Metadata   datatypes.JSON
	Position   int
	CreatedAt  time.Time
	Similarity float64
}

// SimilaritySearch returns the owner's chunks whose cosine similarity to
// vector is at least threshold, most similar first, ties broken by
// insertion order.
func (r *Repo) SimilaritySearch(
	ctx context.Context, ownerID string, vector []float32, threshold float64, limit int,
) ([]domain.ScoredChunk, error) {
	if err := r.validateDim(vector); err != nil {
		return nil, err
	}
	vec := pgvector.NewVector(vector)

	var rows []searchRow
	err := r.db.WithContext(ctx).
		Model(&postgres.ChunkModel{}).
		Select("document_chunks.id, document_chunks.document_id, document_chunks.content, "+
			"document_chunks.metadata, document_chunks.position, document_chunks.created_at, "+
			"1 - (document_chunks.embedding <=> ?) AS similarity", vec).
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("documents.owner_id = ?", ownerID).
		Where("document_chunks.embedding IS NOT NULL").
		Where("1 - (document_chunks.embedding <=> ?) >= ?", vec, threshold).
		Order(clause.Expr{SQL: "document_chunks.embedding <=> ?", Vars: []any{vec}}).
		Order("document_chunks.created_at ASC").
		Order("document_chunks.position ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]domain.ScoredChunk, 0, len(rows))
	for _, row := range rows {
		var meta map[string]string
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &meta); err != nil {
				return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}
		results = append(results, domain.ScoredChunk{
			Chunk: domain.Chunk{
				ID:         row.ID,
				DocumentID: row.DocumentID,
				Content:    row.Content,
				Metadata:   meta,
				Position:   row.Position,
				CreatedAt:  row.CreatedAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results, nil
}

// SubstringSearch returns the owner's chunks whose content contains pattern,
// case-insensitive, in insertion order.
func (r *Repo) SubstringSearch(ctx context.Context, ownerID, pattern string, limit int) ([]domain.Chunk, error) {
	var models []postgres.ChunkModel
	err := r.db.WithContext(ctx).
		Model(&postgres.ChunkModel{}).
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("documents.owner_id = ?", ownerID).
		Where("document_chunks.content ILIKE ?", "%"+pattern+"%").
		Order("document_chunks.created_at ASC").
		Order("document_chunks.position ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	chunks := make([]domain.Chunk, 0, len(models))
	for _, m := range models {
		c, err := chunkFromModel(m)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func (r *Repo) validateDim(vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("embedding vector is empty: %w", domain.ErrVectorDimMismatch)
	}
	if r.vectorDim > 0 && len(vector) != r.vectorDim {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d: %w",
			len(vector), r.vectorDim, domain.ErrVectorDimMismatch)
	}
	return nil
}

func chunkToModel(c domain.Chunk) (postgres.ChunkModel, error) {
	var meta []byte
	if len(c.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(c.Metadata)
		if err != nil {
			return postgres.ChunkModel{}, fmt.Errorf("marshal chunk metadata: %w", err)
		}
	}
	vec := pgvector.NewVector(c.Embedding)
	return postgres.ChunkModel{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		Content:    c.Content,
		Embedding:  &vec,
		Metadata:   meta,
		Position:   c.Position,
		CreatedAt:  c.CreatedAt,
	}, nil
}

func chunkFromModel(m postgres.ChunkModel) (domain.Chunk, error) {
	var meta map[string]string
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &meta); err != nil {
			return domain.Chunk{}, fmt.Errorf("unmarshal chunk metadata: %w", err)
		}
	}
	var emb []float32
	if m.Embedding != nil {
		emb = m.Embedding.Slice()
	}
	return domain.Chunk{
		ID:         m.ID,
		DocumentID: m.DocumentID,
		Content:    m.Content,
		Embedding:  emb,
		Metadata:   meta,
		Position:   m.Position,
		CreatedAt:  m.CreatedAt,
	}, nil
}

func documentFromModel(m postgres.DocumentModel) domain.Document {
	return domain.Document{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		Title:      m.Title,
		SourceType: domain.SourceType(m.SourceType),
		Content:    m.Content,
		SourceRef:  m.SourceRef,
		CreatedAt:  m.CreatedAt,
	}
}
