// Package extract turns uploaded files and URLs into plain text.
package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/studyhall-ai/quizgen/internal/chunker"
	"github.com/studyhall-ai/quizgen/internal/domain"
)

// PDFText extracts plain text from a PDF file on disk. Problematic pages
// are skipped rather than failing the whole document.
func PDFText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = chunker.Normalize(text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
	}

	out := sb.String()
	if out == "" {
		return "", fmt.Errorf("no text extracted from pdf: %w", domain.ErrEmptyInput)
	}
	return out, nil
}
