package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/studyhall-ai/quizgen/internal/domain"
)

func TestSplit_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t  \n"} {
		_, err := Split(input, 100, 20)
		if !errors.Is(err, domain.ErrEmptyInput) {
			t.Errorf("Split(%q): expected ErrEmptyInput, got %v", input, err)
		}
	}
}

func TestSplit_SingleWindow(t *testing.T) {
	chunks, err := Split("short text", 100, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Errorf("unexpected chunks: %v", chunks)
	}
}

func TestSplit_OverlappingWindows(t *testing.T) {
	text := strings.Repeat("abcdefghij", 10) // 100 runes
	chunks, err := Split(text, 40, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// step = 30: windows start at 0, 30, 60, 90
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i := 0; i < len(chunks)-1; i++ {
		if len([]rune(chunks[i])) != 40 {
			t.Errorf("chunk %d has %d runes, want 40", i, len([]rune(chunks[i])))
		}
	}
	// Final window is the 10-rune tail.
	if len([]rune(chunks[3])) != 10 {
		t.Errorf("final chunk has %d runes, want 10", len([]rune(chunks[3])))
	}
	// Consecutive windows share the overlap region.
	if !strings.HasPrefix(chunks[1], chunks[0][30:]) {
		t.Error("second window does not overlap the first")
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox ", 50)
	a, err := Split(text, 120, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Split(text, 120, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_OverlapNotSmallerThanSize(t *testing.T) {
	// step falls back to size, windows become disjoint instead of looping forever
	chunks, err := Split(strings.Repeat("x", 30), 10, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Errorf("expected 3 disjoint chunks, got %d", len(chunks))
	}
}

func TestSplit_InvalidParams(t *testing.T) {
	if _, err := Split("text", 0, 0); err == nil {
		t.Error("expected error for zero size")
	}
	if _, err := Split("text", 10, -1); err == nil {
		t.Error("expected error for negative overlap")
	}
}

func TestSplit_MultibyteRunes(t *testing.T) {
	text := strings.Repeat("даные", 10) // 50 runes, 100 bytes
	chunks, err := Split(text, 25, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !strings.ContainsRune(c, 'д') {
			t.Errorf("chunk %d lost multibyte runes: %q", i, c)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  \n\t ", ""},
		{"a  b\n\nc", "a b c"},
		{"nul\x00byte", "nul byte"},
	}
	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
