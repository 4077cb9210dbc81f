package quizstore

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/studyhall-ai/quizgen/internal/domain"
)

func TestTranslateInsertErr_DuplicatedKey(t *testing.T) {
	err := translateInsertErr(gorm.ErrDuplicatedKey, "My Quiz")
	if !errors.Is(err, domain.ErrDuplicateTitle) {
		t.Fatalf("expected ErrDuplicateTitle, got %v", err)
	}
	if errors.Is(err, domain.ErrStoreWrite) {
		t.Error("duplicate key must not be classified as a store failure")
	}
}

func TestTranslateInsertErr_WrappedDuplicatedKey(t *testing.T) {
	// The dialector may add context around the translated error.
	wrapped := fmt.Errorf("create quizzes: %w", gorm.ErrDuplicatedKey)
	if !errors.Is(translateInsertErr(wrapped, "My Quiz"), domain.ErrDuplicateTitle) {
		t.Fatal("wrapped duplicate-key error not recognized")
	}
}

func TestTranslateInsertErr_OtherError(t *testing.T) {
	err := translateInsertErr(errors.New("connection reset"), "My Quiz")
	if !errors.Is(err, domain.ErrStoreWrite) {
		t.Fatalf("expected ErrStoreWrite, got %v", err)
	}
	if errors.Is(err, domain.ErrDuplicateTitle) {
		t.Error("plain failures must not trigger a title retry")
	}
}
