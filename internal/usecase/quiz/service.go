// Package quiz runs the generation pipeline end to end: retrieve or select
// source content, synthesize questions, resolve the title, and persist the
// result atomically.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyhall-ai/quizgen/internal/domain"
	"github.com/studyhall-ai/quizgen/internal/metrics"
)

// Defaults per generation path.
const (
	DefaultTopicQuestions     = 5
	DefaultTopicDifficulty    = "medium"
	DefaultDocumentQuestions  = 10
	DefaultDocumentDifficulty = "hard"

	// maxTitleAttempts bounds the duplicate-title retry loop.
	maxTitleAttempts = 3
)

// TopicRequest asks for a quiz grounded in retrieved content.
type TopicRequest struct {
	Topic        string
	NumQuestions int
	Difficulty   string
	Title        string
}

// DocumentRequest asks for a quiz over one full document.
type DocumentRequest struct {
	DocumentID   string
	NumQuestions int
	Difficulty   string
	Title        string
}

// Service orchestrates quiz generation and owns the quiz query surface.
type Service struct {
	store     Store
	docs      DocumentReader
	retriever Retriever
	synth     *Synthesizer
	logger    *zap.Logger
}

// New creates a quiz service.
func New(store Store, docs DocumentReader, retriever Retriever, synth *Synthesizer, logger *zap.Logger) *Service {
	return &Service{store: store, docs: docs, retriever: retriever, synth: synth, logger: logger}
}

// FromTopic generates a quiz about a topic from the owner's ingested
// material. Fails with domain.ErrInsufficientContent when retrieval finds
// too little related content.
func (s *Service) FromTopic(ctx context.Context, ownerID string, req TopicRequest) (domain.Quiz, error) {
	if req.Topic == "" {
		return domain.Quiz{}, fmt.Errorf("topic is required: %w", domain.ErrValidation)
	}
	if req.NumQuestions <= 0 {
		req.NumQuestions = DefaultTopicQuestions
	}
	if req.Difficulty == "" {
		req.Difficulty = DefaultTopicDifficulty
	}

	chunks, err := s.retriever.Retrieve(ctx, ownerID, req.Topic)
	if err != nil {
		metrics.QuizPipelineTotal.WithLabelValues("topic", "error").Inc()
		return domain.Quiz{}, err
	}

	description, questions, err := s.synth.FromTopicContent(ctx, req.Topic, chunks, req.NumQuestions, req.Difficulty)
	if err != nil {
		metrics.QuizPipelineTotal.WithLabelValues("topic", "error").Inc()
		return domain.Quiz{}, err
	}

	title := req.Title
	if title == "" {
		title = "Quiz: " + req.Topic
	}
	quiz, err := s.persist(ctx, ownerID, title, req.Topic, req.Difficulty, description, questions)
	if err != nil {
		metrics.QuizPipelineTotal.WithLabelValues("topic", "error").Inc()
		return domain.Quiz{}, err
	}

	metrics.QuizPipelineTotal.WithLabelValues("topic", "success").Inc()
	return quiz, nil
}

// FromDocument generates a quiz over one of the owner's documents.
func (s *Service) FromDocument(ctx context.Context, ownerID string, req DocumentRequest) (domain.Quiz, error) {
	if req.DocumentID == "" {
		return domain.Quiz{}, fmt.Errorf("document id is required: %w", domain.ErrValidation)
	}
	if req.NumQuestions <= 0 {
		req.NumQuestions = DefaultDocumentQuestions
	}
	if req.Difficulty == "" {
		req.Difficulty = DefaultDocumentDifficulty
	}

	doc, err := s.docs.GetDocument(ctx, ownerID, req.DocumentID)
	if err != nil {
		metrics.QuizPipelineTotal.WithLabelValues("document", "error").Inc()
		return domain.Quiz{}, err
	}

	description, questions, err := s.synth.FromDocumentContent(ctx, doc.Content, req.NumQuestions, req.Difficulty)
	if err != nil {
		metrics.QuizPipelineTotal.WithLabelValues("document", "error").Inc()
		return domain.Quiz{}, err
	}

	title := req.Title
	if title == "" {
		title = doc.Title + " Quiz"
	}
	quiz, err := s.persist(ctx, ownerID, title, "", req.Difficulty, description, questions)
	if err != nil {
		metrics.QuizPipelineTotal.WithLabelValues("document", "error").Inc()
		return domain.Quiz{}, err
	}

	metrics.QuizPipelineTotal.WithLabelValues("document", "success").Inc()
	return quiz, nil
}

// persist resolves the title and writes the quiz with its questions in one
// transaction. A concurrent title collision surfaces as a duplicate-key
// error; the write retries with a fresh suffix a bounded number of times.
func (s *Service) persist(
	ctx context.Context, ownerID, desiredTitle, topic, difficulty, description string,
	questions []domain.Question,
) (domain.Quiz, error) {
	title, err := resolveTitle(ctx, s.store, ownerID, desiredTitle)
	if err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Topic:       topic,
		Difficulty:  difficulty,
		Description: description,
		Questions:   make([]domain.Question, len(questions)),
		CreatedAt:   time.Now().UTC(),
	}
	for i, q := range questions {
		q.ID = uuid.NewString()
		q.QuizID = quiz.ID
		quiz.Questions[i] = q
	}

	for attempt := 1; ; attempt++ {
		err := s.store.CreateQuiz(ctx, quiz)
		if err == nil {
			s.logger.Info("quiz persisted",
				zap.String("quiz_id", quiz.ID),
				zap.String("title", quiz.Title),
				zap.Int("questions", len(quiz.Questions)),
			)
			return quiz, nil
		}
		if !errors.Is(err, domain.ErrDuplicateTitle) || attempt >= maxTitleAttempts {
			return domain.Quiz{}, err
		}
		suffixed, serr := suffixTitle(desiredTitle)
		if serr != nil {
			return domain.Quiz{}, serr
		}
		s.logger.Warn("quiz title collided, retrying",
			zap.String("title", quiz.Title),
			zap.String("retry_title", suffixed),
		)
		quiz.Title = suffixed
	}
}

// Get returns an owner's quiz with its questions.
func (s *Service) Get(ctx context.Context, ownerID, id string) (domain.Quiz, error) {
	return s.store.GetQuiz(ctx, ownerID, id)
}

// List returns an owner's quizzes, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	return s.store.ListQuizzes(ctx, ownerID)
}

// Delete removes an owner's quiz and its questions.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteQuiz(ctx, ownerID, id)
}
