package quiz

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/studyhall-ai/quizgen/internal/domain"
	"github.com/studyhall-ai/quizgen/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterGenerationMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockStore struct {
	taken map[string]bool
	// duplicateFirstN makes the first n CreateQuiz calls fail with
	// ErrDuplicateTitle, simulating a concurrent title race.
	duplicateFirstN int
	createErr       error

	created []domain.Quiz
	getQuiz domain.Quiz
	getErr  error
	listed  []domain.Quiz
	delErr  error
}

func (m *mockStore) TitleExists(_ context.Context, _, title string) (bool, error) {
	return m.taken[title], nil
}

func (m *mockStore) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	if m.duplicateFirstN > 0 {
		m.duplicateFirstN--
		return domain.ErrDuplicateTitle
	}
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, quiz)
	return nil
}

func (m *mockStore) GetQuiz(_ context.Context, _, _ string) (domain.Quiz, error) {
	return m.getQuiz, m.getErr
}

func (m *mockStore) ListQuizzes(_ context.Context, _ string) ([]domain.Quiz, error) {
	return m.listed, nil
}

func (m *mockStore) DeleteQuiz(_ context.Context, _, _ string) error {
	return m.delErr
}

type mockDocs struct {
	doc domain.Document
	err error
}

func (m *mockDocs) GetDocument(_ context.Context, _, _ string) (domain.Document, error) {
	return m.doc, m.err
}

type mockRetriever struct {
	chunks []domain.ScoredChunk
	err    error
	topic  string
}

func (m *mockRetriever) Retrieve(_ context.Context, _, topic string) ([]domain.ScoredChunk, error) {
	m.topic = topic
	return m.chunks, m.err
}

func newService(store *mockStore, docs *mockDocs, retriever *mockRetriever, completer *mockCompleter) *Service {
	synth := NewSynthesizer(completer, zap.NewNop())
	return New(store, docs, retriever, synth, zap.NewNop())
}

func retrievedChunks() []domain.ScoredChunk {
	return []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "c1", Content: "reducers return the next state"}, Similarity: 0.8},
		{Chunk: domain.Chunk{ID: "c2", Content: "actions are dispatched"}, Similarity: 0.6},
	}
}

// --- Tests ---

func TestFromTopic(t *testing.T) {
	store := &mockStore{taken: map[string]bool{}}
	retriever := &mockRetriever{chunks: retrievedChunks()}
	completer := &mockCompleter{content: validOutput}
	svc := newService(store, &mockDocs{}, retriever, completer)

	quiz, err := svc.FromTopic(context.Background(), "owner-1", TopicRequest{Topic: "redux"})
	if err != nil {
		t.Fatalf("FromTopic failed: %v", err)
	}

	if quiz.Title != "Quiz: redux" {
		t.Errorf("Title = %q", quiz.Title)
	}
	if quiz.Topic != "redux" {
		t.Errorf("Topic = %q", quiz.Topic)
	}
	if quiz.Difficulty != DefaultTopicDifficulty {
		t.Errorf("Difficulty = %q, expected default %q", quiz.Difficulty, DefaultTopicDifficulty)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
	for i, q := range quiz.Questions {
		if q.QuizID != quiz.ID {
			t.Errorf("question %d quiz id = %q", i, q.QuizID)
		}
		if q.ID == "" {
			t.Errorf("question %d has no id", i)
		}
		if !q.HasCorrectOption() {
			t.Errorf("question %d: correct answer missing from options", i)
		}
	}

	if len(store.created) != 1 {
		t.Fatalf("expected 1 persisted quiz, got %d", len(store.created))
	}
	if !strings.Contains(completer.lastDirective, "medium") {
		t.Errorf("directive missing default difficulty: %q", completer.lastDirective)
	}
}

func TestFromTopic_InsufficientContentNotPersisted(t *testing.T) {
	store := &mockStore{taken: map[string]bool{}}
	retriever := &mockRetriever{err: domain.ErrInsufficientContent}
	completer := &mockCompleter{content: validOutput}
	svc := newService(store, &mockDocs{}, retriever, completer)

	_, err := svc.FromTopic(context.Background(), "owner-1", TopicRequest{Topic: "obscure"})
	if !errors.Is(err, domain.ErrInsufficientContent) {
		t.Fatalf("expected ErrInsufficientContent, got %v", err)
	}
	if completer.calls != 0 {
		t.Error("no completion should run without retrieved content")
	}
	if len(store.created) != 0 {
		t.Error("nothing should be persisted")
	}
}

func TestFromTopic_MalformedOutputNotPersisted(t *testing.T) {
	store := &mockStore{taken: map[string]bool{}}
	retriever := &mockRetriever{chunks: retrievedChunks()}
	completer := &mockCompleter{content: "not json at all"}
	svc := newService(store, &mockDocs{}, retriever, completer)

	_, err := svc.FromTopic(context.Background(), "owner-1", TopicRequest{Topic: "redux"})
	if !errors.Is(err, domain.ErrMalformedGeneration) {
		t.Fatalf("expected ErrMalformedGeneration, got %v", err)
	}
	if len(store.created) != 0 {
		t.Error("malformed output must never be persisted")
	}
}

func TestFromTopic_TitleCollision(t *testing.T) {
	store := &mockStore{taken: map[string]bool{"Quiz: redux": true}}
	retriever := &mockRetriever{chunks: retrievedChunks()}
	svc := newService(store, &mockDocs{}, retriever, &mockCompleter{content: validOutput})

	quiz, err := svc.FromTopic(context.Background(), "owner-1", TopicRequest{Topic: "redux"})
	if err != nil {
		t.Fatalf("FromTopic failed: %v", err)
	}
	if !strings.HasPrefix(quiz.Title, "Quiz: redux-") {
		t.Errorf("Title = %q, expected suffixed variant", quiz.Title)
	}
}

func TestFromTopic_DuplicateInsertRetries(t *testing.T) {
	// The pre-check sees the title as free, but a concurrent writer takes
	// it; the unique index rejects the insert and the write retries.
	store := &mockStore{taken: map[string]bool{}, duplicateFirstN: 1}
	retriever := &mockRetriever{chunks: retrievedChunks()}
	svc := newService(store, &mockDocs{}, retriever, &mockCompleter{content: validOutput})

	quiz, err := svc.FromTopic(context.Background(), "owner-1", TopicRequest{Topic: "redux", Title: "Contested"})
	if err != nil {
		t.Fatalf("FromTopic failed: %v", err)
	}
	if !strings.HasPrefix(quiz.Title, "Contested-") {
		t.Errorf("Title = %q, expected suffixed retry title", quiz.Title)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected exactly 1 persisted quiz, got %d", len(store.created))
	}
}

func TestFromTopic_DuplicateRetriesBounded(t *testing.T) {
	store := &mockStore{taken: map[string]bool{}, duplicateFirstN: 10}
	retriever := &mockRetriever{chunks: retrievedChunks()}
	svc := newService(store, &mockDocs{}, retriever, &mockCompleter{content: validOutput})

	_, err := svc.FromTopic(context.Background(), "owner-1", TopicRequest{Topic: "redux"})
	if !errors.Is(err, domain.ErrDuplicateTitle) {
		t.Fatalf("expected ErrDuplicateTitle after bounded retries, got %v", err)
	}
}

func TestFromDocument(t *testing.T) {
	store := &mockStore{taken: map[string]bool{}}
	docs := &mockDocs{doc: domain.Document{
		ID: "doc-1", OwnerID: "owner-1", Title: "Cell Biology",
		Content: strings.Repeat("mitochondria produce energy ", 50),
	}}
	completer := &mockCompleter{content: validOutput}
	svc := newService(store, docs, &mockRetriever{}, completer)

	quiz, err := svc.FromDocument(context.Background(), "owner-1", DocumentRequest{DocumentID: "doc-1"})
	if err != nil {
		t.Fatalf("FromDocument failed: %v", err)
	}
	if quiz.Title != "Cell Biology Quiz" {
		t.Errorf("Title = %q", quiz.Title)
	}
	if quiz.Difficulty != DefaultDocumentDifficulty {
		t.Errorf("Difficulty = %q, expected default %q", quiz.Difficulty, DefaultDocumentDifficulty)
	}
	if !strings.Contains(completer.lastDirective, "10 questions") {
		t.Errorf("directive missing default question count: %q", completer.lastDirective)
	}
}

func TestFromDocument_NotFound(t *testing.T) {
	docs := &mockDocs{err: domain.ErrNotFound}
	svc := newService(&mockStore{taken: map[string]bool{}}, docs, &mockRetriever{}, &mockCompleter{})

	_, err := svc.FromDocument(context.Background(), "owner-1", DocumentRequest{DocumentID: "missing"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFromDocument_MissingID(t *testing.T) {
	svc := newService(&mockStore{taken: map[string]bool{}}, &mockDocs{}, &mockRetriever{}, &mockCompleter{})

	_, err := svc.FromDocument(context.Background(), "owner-1", DocumentRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
