// Package chunker splits normalized text into overlapping fixed-size windows.
package chunker

import (
	"fmt"
	"strings"

	"github.com/studyhall-ai/quizgen/internal/domain"
)

// Normalize collapses whitespace and strips bytes that break text processing.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}

// Split cuts text into contiguous rune windows of size runes, each window
// overlapping the previous by overlap runes; the final window may be shorter.
// Deterministic: identical input and parameters produce an identical sequence.
// Returns domain.ErrEmptyInput when the text has no non-whitespace content.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be non-negative, got %d", overlap)
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil, fmt.Errorf("no content to split: %w", domain.ErrEmptyInput)
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		part := strings.TrimSpace(string(runes[start:end]))
		if part != "" {
			chunks = append(chunks, part)
		}
		if end == len(runes) {
			break
		}
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("no content to split: %w", domain.ErrEmptyInput)
	}
	return chunks, nil
}
