package quiz

import (
	"context"

	"github.com/studyhall-ai/quizgen/internal/domain"
)

// Store defines the persistence contract for quizzes.
type Store interface {
	TitleExists(ctx context.Context, ownerID, title string) (bool, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, ownerID, id string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, ownerID string) ([]domain.Quiz, error)
	DeleteQuiz(ctx context.Context, ownerID, id string) error
}

// Retriever finds the chunks most related to a topic.
type Retriever interface {
	Retrieve(ctx context.Context, ownerID, topic string) ([]domain.ScoredChunk, error)
}

// DocumentReader reads source documents for the document generation path.
type DocumentReader interface {
	GetDocument(ctx context.Context, ownerID, id string) (domain.Document, error)
}

// Completer produces the raw generation output.
type Completer interface {
	Complete(ctx context.Context, systemDirective, userContent string) (domain.CompletionResult, error)
}
