package quiz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/studyhall-ai/quizgen/internal/domain"
)

type mockCompleter struct {
	content       string
	err           error
	lastDirective string
	lastContent   string
	calls         int
}

func (m *mockCompleter) Complete(_ context.Context, directive, content string) (domain.CompletionResult, error) {
	m.calls++
	m.lastDirective = directive
	m.lastContent = content
	if m.err != nil {
		return domain.CompletionResult{}, m.err
	}
	return domain.CompletionResult{Content: m.content, PromptTokens: 10, CompletionTokens: 20}, nil
}

const validOutput = `{
	"description": "A short quiz.",
	"questions": [
		{
			"question": "What does a reducer return?",
			"correctAnswer": "The next state",
			"incorrectAnswers": ["An action", "A dispatch", "A selector"],
			"explanation": "Reducers map state and action to the next state."
		},
		{
			"question": "What triggers a state change?",
			"correctAnswer": "Dispatching an action",
			"incorrectAnswers": ["Mutating the store", "Calling a selector", "Rendering"],
			"explanation": "Only dispatched actions reach the reducer."
		}
	]
}`

func TestSynthesizer_FromTopicContent(t *testing.T) {
	completer := &mockCompleter{content: validOutput}
	synth := NewSynthesizer(completer, zap.NewNop())

	chunks := []domain.ScoredChunk{
		{Chunk: domain.Chunk{Content: "most similar chunk"}, Similarity: 0.9},
		{Chunk: domain.Chunk{Content: "second chunk"}, Similarity: 0.7},
	}
	description, questions, err := synth.FromTopicContent(context.Background(), "redux", chunks, 2, "medium")
	if err != nil {
		t.Fatalf("FromTopicContent failed: %v", err)
	}

	if description != "A short quiz." {
		t.Errorf("description = %q", description)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	// Correct answer must be a member of options, first by construction.
	for i, q := range questions {
		if !q.HasCorrectOption() {
			t.Errorf("question %d: correct answer missing from options", i)
		}
		if q.Options[0] != q.CorrectAnswer {
			t.Errorf("question %d: options[0] = %q, expected the correct answer", i, q.Options[0])
		}
		if len(q.Options) != 4 {
			t.Errorf("question %d: %d options, expected 4", i, len(q.Options))
		}
		if q.Position != i {
			t.Errorf("question %d: position %d", i, q.Position)
		}
	}

	if completer.lastContent != "most similar chunk\nsecond chunk" {
		t.Errorf("chunks joined as %q, expected newline join in similarity order", completer.lastContent)
	}
	if !strings.Contains(completer.lastDirective, `"redux"`) {
		t.Errorf("directive does not mention the topic: %q", completer.lastDirective)
	}
	if !strings.Contains(completer.lastDirective, "2 questions") {
		t.Errorf("directive does not carry the question count: %q", completer.lastDirective)
	}
}

func TestSynthesizer_LenientDistractorCount(t *testing.T) {
	// Two distractors instead of three must still be accepted.
	completer := &mockCompleter{content: `{
		"questions": [{
			"question": "Q?",
			"correctAnswer": "right",
			"incorrectAnswers": ["wrong1", "wrong2"],
			"explanation": ""
		}]
	}`}
	synth := NewSynthesizer(completer, zap.NewNop())

	_, questions, err := synth.FromTopicContent(context.Background(), "t",
		[]domain.ScoredChunk{{Chunk: domain.Chunk{Content: "c"}}}, 1, "easy")
	if err != nil {
		t.Fatalf("expected 2-distractor question to pass, got %v", err)
	}
	if len(questions[0].Options) != 3 {
		t.Errorf("expected 3 options, got %d", len(questions[0].Options))
	}
}

func TestSynthesizer_NonJSONOutput(t *testing.T) {
	completer := &mockCompleter{content: "Sure! Here is your quiz:\n1. What..."}
	synth := NewSynthesizer(completer, zap.NewNop())

	_, _, err := synth.FromTopicContent(context.Background(), "t",
		[]domain.ScoredChunk{{Chunk: domain.Chunk{Content: "c"}}}, 1, "easy")
	if !errors.Is(err, domain.ErrMalformedGeneration) {
		t.Fatalf("expected ErrMalformedGeneration, got %v", err)
	}
}

func TestSynthesizer_EmptyQuestions(t *testing.T) {
	completer := &mockCompleter{content: `{"questions": []}`}
	synth := NewSynthesizer(completer, zap.NewNop())

	_, _, err := synth.FromTopicContent(context.Background(), "t",
		[]domain.ScoredChunk{{Chunk: domain.Chunk{Content: "c"}}}, 1, "easy")
	if !errors.Is(err, domain.ErrMalformedGeneration) {
		t.Fatalf("expected ErrMalformedGeneration, got %v", err)
	}
}

func TestSynthesizer_MissingCorrectAnswer(t *testing.T) {
	completer := &mockCompleter{content: `{
		"questions": [{
			"question": "Q?",
			"correctAnswer": "",
			"incorrectAnswers": ["a", "b", "c"]
		}]
	}`}
	synth := NewSynthesizer(completer, zap.NewNop())

	_, _, err := synth.FromTopicContent(context.Background(), "t",
		[]domain.ScoredChunk{{Chunk: domain.Chunk{Content: "c"}}}, 1, "easy")
	if !errors.Is(err, domain.ErrMalformedGeneration) {
		t.Fatalf("expected ErrMalformedGeneration, got %v", err)
	}
}

func TestSynthesizer_NoDistractors(t *testing.T) {
	completer := &mockCompleter{content: `{
		"questions": [{
			"question": "Q?",
			"correctAnswer": "right",
			"incorrectAnswers": []
		}]
	}`}
	synth := NewSynthesizer(completer, zap.NewNop())

	_, _, err := synth.FromTopicContent(context.Background(), "t",
		[]domain.ScoredChunk{{Chunk: domain.Chunk{Content: "c"}}}, 1, "easy")
	if !errors.Is(err, domain.ErrMalformedGeneration) {
		t.Fatalf("expected ErrMalformedGeneration for single-option question, got %v", err)
	}
}

func TestSynthesizer_ProviderError(t *testing.T) {
	completer := &mockCompleter{err: domain.ErrGenerationProvider}
	synth := NewSynthesizer(completer, zap.NewNop())

	_, _, err := synth.FromDocumentContent(context.Background(), "content", 5, "hard")
	if !errors.Is(err, domain.ErrGenerationProvider) {
		t.Fatalf("expected ErrGenerationProvider, got %v", err)
	}
}

func TestSynthesizer_DocumentContentWordCap(t *testing.T) {
	completer := &mockCompleter{content: validOutput}
	synth := NewSynthesizer(completer, zap.NewNop())

	long := strings.Repeat("word ", 3000)
	if _, _, err := synth.FromDocumentContent(context.Background(), long, 5, "hard"); err != nil {
		t.Fatalf("FromDocumentContent failed: %v", err)
	}
	if got := len(strings.Fields(completer.lastContent)); got != maxContentWords {
		t.Errorf("prompt content has %d words, expected cap %d", got, maxContentWords)
	}
}

func TestTrimWords_ShortTextUnchanged(t *testing.T) {
	if got := trimWords("one two three", 10); got != "one two three" {
		t.Errorf("trimWords = %q", got)
	}
}
