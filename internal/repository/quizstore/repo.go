// Package quizstore persists generated quizzes and their questions in
// Postgres. Quiz and question rows are written atomically; the (owner, title)
// unique index backs the title resolver's collision handling.
package quizstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyhall-ai/quizgen/internal/db/postgres"
	"github.com/studyhall-ai/quizgen/internal/domain"
)

// Repo is the Postgres-backed quiz store.
type Repo struct {
	db *gorm.DB
}

// New creates a quiz store.
func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// TitleExists reports whether the owner already has a quiz with this title.
func (r *Repo) TitleExists(ctx context.Context, ownerID, title string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&postgres.QuizModel{}).
		Where("owner_id = ? AND title = ?", ownerID, title).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check quiz title: %w", err)
	}
	return count > 0, nil
}

// CreateQuiz persists a quiz and all of its questions in one transaction.
// A concurrent insert of the same (owner, title) surfaces as
// domain.ErrDuplicateTitle so the caller can retry with a new title.
func (r *Repo) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	model := postgres.QuizModel{
		ID:          quiz.ID,
		OwnerID:     quiz.OwnerID,
		Title:       quiz.Title,
		Topic:       quiz.Topic,
		Difficulty:  quiz.Difficulty,
		Description: quiz.Description,
		CreatedAt:   quiz.CreatedAt,
	}
	questions := make([]postgres.QuestionModel, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		qm, err := questionToModel(q)
		if err != nil {
			return err
		}
		questions = append(questions, qm)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return translateInsertErr(err, quiz.Title)
		}
		if len(questions) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&questions, 100).Error; err != nil {
			return fmt.Errorf("insert questions: %w: %w", domain.ErrStoreWrite, err)
		}
		return nil
	})
}

// translateInsertErr maps the driver's unique-index violation, surfaced by
// gorm's TranslateError mode as ErrDuplicatedKey, onto the retryable
// duplicate-title sentinel. Anything else is a plain store failure.
func translateInsertErr(err error, title string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("quiz title %q: %w", title, domain.ErrDuplicateTitle)
	}
	return fmt.Errorf("insert quiz: %w: %w", domain.ErrStoreWrite, err)
}

// GetQuiz returns an owner's quiz with its questions in order.
func (r *Repo) GetQuiz(ctx context.Context, ownerID, id string) (domain.Quiz, error) {
	var model postgres.QuizModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Quiz{}, fmt.Errorf("quiz %s: %w", id, domain.ErrNotFound)
		}
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}

	var questionModels []postgres.QuestionModel
	err = r.db.WithContext(ctx).
		Where("quiz_id = ?", id).
		Order("position ASC").
		Find(&questionModels).Error
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz questions: %w", err)
	}

	quiz := quizFromModel(model)
	quiz.Questions = make([]domain.Question, 0, len(questionModels))
	for _, qm := range questionModels {
		q, err := questionFromModel(qm)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz, nil
}

// ListQuizzes returns an owner's quizzes, newest first, without questions.
func (r *Repo) ListQuizzes(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	var models []postgres.QuizModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	quizzes := make([]domain.Quiz, 0, len(models))
	for _, m := range models {
		quizzes = append(quizzes, quizFromModel(m))
	}
	return quizzes, nil
}

// DeleteQuiz removes a quiz and its questions in one transaction.
// Scoped to the owning user.
func (r *Repo) DeleteQuiz(ctx context.Context, ownerID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&postgres.QuizModel{})
		if res.Error != nil {
			return fmt.Errorf("delete quiz: %w: %w", domain.ErrStoreWrite, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("quiz %s: %w", id, domain.ErrNotFound)
		}
		if err := tx.Where("quiz_id = ?", id).Delete(&postgres.QuestionModel{}).Error; err != nil {
			return fmt.Errorf("delete questions: %w: %w", domain.ErrStoreWrite, err)
		}
		return nil
	})
}

func questionToModel(q domain.Question) (postgres.QuestionModel, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return postgres.QuestionModel{}, fmt.Errorf("marshal question options: %w", err)
	}
	return postgres.QuestionModel{
		ID:            q.ID,
		QuizID:        q.QuizID,
		Question:      q.Question,
		Options:       datatypes.JSON(options),
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Position:      q.Position,
	}, nil
}

func questionFromModel(m postgres.QuestionModel) (domain.Question, error) {
	var options []string
	if err := json.Unmarshal(m.Options, &options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question options: %w", err)
	}
	return domain.Question{
		ID:            m.ID,
		QuizID:        m.QuizID,
		Question:      m.Question,
		Options:       options,
		CorrectAnswer: m.CorrectAnswer,
		Explanation:   m.Explanation,
		Position:      m.Position,
	}, nil
}

func quizFromModel(m postgres.QuizModel) domain.Quiz {
	return domain.Quiz{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Title:       m.Title,
		Topic:       m.Topic,
		Difficulty:  m.Difficulty,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}
