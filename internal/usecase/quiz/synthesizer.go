package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/studyhall-ai/quizgen/internal/domain"
)

// maxContentWords caps the document-path prompt content.
const maxContentWords = 1000

// generatedQuiz is the shape the completion provider is asked to produce.
// The provider gives no structural guarantee; every field is validated
// before anything is persisted.
type generatedQuiz struct {
	Description string              `json:"description"`
	Questions   []generatedQuestion `json:"questions"`
}

type generatedQuestion struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
	Explanation      string   `json:"explanation"`
}

// Synthesizer turns retrieved or document content into validated questions.
type Synthesizer struct {
	completer Completer
	logger    *zap.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(completer Completer, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{completer: completer, logger: logger}
}

// FromTopicContent generates questions grounded in retrieved chunk texts.
// Chunks are joined most-similar-first with newlines.
func (s *Synthesizer) FromTopicContent(
	ctx context.Context, topic string, chunks []domain.ScoredChunk, numQuestions int, difficulty string,
) (string, []domain.Question, error) {
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Content)
	}
	directive := topicDirective(topic, numQuestions, difficulty)
	return s.synthesize(ctx, directive, strings.Join(texts, "\n"))
}

// FromDocumentContent generates questions from a document's full text,
// capped at maxContentWords words.
func (s *Synthesizer) FromDocumentContent(
	ctx context.Context, content string, numQuestions int, difficulty string,
) (string, []domain.Question, error) {
	directive := documentDirective(numQuestions, difficulty)
	return s.synthesize(ctx, directive, trimWords(content, maxContentWords))
}

func (s *Synthesizer) synthesize(
	ctx context.Context, directive, content string,
) (string, []domain.Question, error) {
	result, err := s.completer.Complete(ctx, directive, content)
	if err != nil {
		return "", nil, err
	}

	description, questions, err := parseQuestions(result.Content)
	if err != nil {
		s.logger.Warn("generation output failed validation",
			zap.String("raw", result.Content),
			zap.Error(err),
		)
		return "", nil, err
	}
	return description, questions, nil
}

// parseQuestions validates the raw completion text against the quiz shape
// contract. Violations are never coerced into a partial quiz.
func parseQuestions(raw string) (string, []domain.Question, error) {
	var parsed generatedQuiz
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", nil, fmt.Errorf("output is not a JSON object: %w", domain.ErrMalformedGeneration)
	}
	if len(parsed.Questions) == 0 {
		return "", nil, fmt.Errorf("output has no questions: %w", domain.ErrMalformedGeneration)
	}

	questions := make([]domain.Question, 0, len(parsed.Questions))
	for i, gq := range parsed.Questions {
		distractors := make([]string, 0, len(gq.IncorrectAnswers))
		for _, d := range gq.IncorrectAnswers {
			if strings.TrimSpace(d) != "" {
				distractors = append(distractors, d)
			}
		}
		q, err := domain.NewQuestion(
			strings.TrimSpace(gq.Question),
			strings.TrimSpace(gq.CorrectAnswer),
			distractors,
			strings.TrimSpace(gq.Explanation),
			i,
		)
		if err != nil {
			return "", nil, fmt.Errorf("question %d: %w: %w", i, domain.ErrMalformedGeneration, err)
		}
		questions = append(questions, q)
	}
	return strings.TrimSpace(parsed.Description), questions, nil
}

func topicDirective(topic string, numQuestions int, difficulty string) string {
	return fmt.Sprintf(`You are a quiz generator. Using only the study material provided by the user, create a multiple-choice quiz about "%s" with exactly %d questions at %s difficulty.
Respond with a JSON object of the shape {"description": string, "questions": [{"question": string, "correctAnswer": string, "incorrectAnswers": [string, string, string], "explanation": string}]}.
Every question must be answerable from the provided material. Provide exactly 3 incorrect answers per question.`, topic, numQuestions, difficulty)
}

func documentDirective(numQuestions int, difficulty string) string {
	return fmt.Sprintf(`You are a quiz generator. Using only the document text provided by the user, create a multiple-choice quiz with exactly %d questions at %s difficulty.
Respond with a JSON object of the shape {"description": string, "questions": [{"question": string, "correctAnswer": string, "incorrectAnswers": [string, string, string], "explanation": string}]}.
Every question must be answerable from the document. Provide exactly 3 incorrect answers per question.`, numQuestions, difficulty)
}

// trimWords caps text at n whitespace-separated words.
func trimWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}
