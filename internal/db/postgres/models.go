package postgres

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// GORM models used for persistence.

// DocumentModel is an ingested source document. Rows are immutable after
// ingestion; deleting a document removes its chunks.
type DocumentModel struct {
	ID         string `gorm:"primaryKey;type:uuid"`
	OwnerID    string `gorm:"not null;index"`
	Title      string `gorm:"not null"`
	SourceType string `gorm:"not null"`
	Content    string `gorm:"type:text;not null"`
	SourceRef  string
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName overrides the default pluralization.
func (DocumentModel) TableName() string { return "documents" }

// ChunkModel is the unit of embedding and retrieval.
type ChunkModel struct {
	ID         string           `gorm:"primaryKey;type:uuid"`
	DocumentID string           `gorm:"not null;index;type:uuid"`
	Content    string           `gorm:"type:text;not null"`
	Embedding  *pgvector.Vector `gorm:"type:vector(1536)"`
	Metadata   datatypes.JSON   `gorm:"type:jsonb"`
	Position   int              `gorm:"not null"`
	CreatedAt  time.Time        `gorm:"not null;index"`
}

func (ChunkModel) TableName() string { return "document_chunks" }

// QuizModel carries the (owner, title) uniqueness constraint that backs the
// title resolver's conflict detection.
type QuizModel struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	OwnerID     string `gorm:"not null;uniqueIndex:idx_quizzes_owner_title"`
	Title       string `gorm:"not null;uniqueIndex:idx_quizzes_owner_title"`
	Topic       string
	Difficulty  string
	Description string
	CreatedAt   time.Time `gorm:"not null;index"`
}

func (QuizModel) TableName() string { return "quizzes" }

// QuestionModel stores one multiple-choice question; options is the ordered
// option list as a JSON array, always containing the correct answer.
type QuestionModel struct {
	ID            string         `gorm:"primaryKey;type:uuid"`
	QuizID        string         `gorm:"not null;index;type:uuid"`
	Question      string         `gorm:"type:text;not null"`
	Options       datatypes.JSON `gorm:"type:jsonb;not null"`
	CorrectAnswer string         `gorm:"not null"`
	Explanation   string         `gorm:"type:text"`
	Position      int            `gorm:"not null"`
}

func (QuestionModel) TableName() string { return "questions" }
