package domain

import (
	"fmt"
	"time"
)

// Quiz is a generated multiple-choice quiz. (owner, title) is unique at
// creation time; a quiz with zero questions is a valid degenerate state
// and must be treated as "no content", not an error.
type Quiz struct {
	ID          string
	OwnerID     string
	Title       string
	Topic       string
	Difficulty  string
	Description string
	Questions   []Question
	CreatedAt   time.Time
}

// Question is one multiple-choice question. Options is ordered and always
// contains CorrectAnswer; the rest are distractors.
type Question struct {
	ID            string
	QuizID        string
	Question      string
	Options       []string
	CorrectAnswer string
	Explanation   string
	Position      int
}

// NewQuestion builds a question from a correct answer and distractors,
// enforcing the correct-answer-in-options invariant by construction.
func NewQuestion(text, correct string, distractors []string, explanation string, position int) (Question, error) {
	if text == "" {
		return Question{}, fmt.Errorf("question text is empty: %w", ErrValidation)
	}
	if correct == "" {
		return Question{}, fmt.Errorf("correct answer is empty: %w", ErrValidation)
	}
	options := make([]string, 0, len(distractors)+1)
	options = append(options, correct)
	options = append(options, distractors...)
	if len(options) < 2 {
		return Question{}, fmt.Errorf("question needs at least 2 options, got %d: %w", len(options), ErrValidation)
	}
	return Question{
		Question:      text,
		Options:       options,
		CorrectAnswer: correct,
		Explanation:   explanation,
		Position:      position,
	}, nil
}

// HasCorrectOption reports whether CorrectAnswer is a member of Options.
func (q Question) HasCorrectOption() bool {
	for _, o := range q.Options {
		if o == q.CorrectAnswer {
			return true
		}
	}
	return false
}
