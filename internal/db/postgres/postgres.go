// Package postgres owns the Postgres connection and schema migration.
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres, enables the pgvector extension, and migrates
// the schema. vectorDim is the canonical embedding dimension; stored chunk
// vectors always use this width.
func Open(dsn string, vectorDim int) (*gorm.DB, error) {
	if vectorDim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", vectorDim)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := migrate(db, vectorDim); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func migrate(db *gorm.DB, vectorDim int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("create pgvector extension: %w", err)
		}
		if err := tx.AutoMigrate(
			&DocumentModel{},
			&ChunkModel{},
			&QuizModel{},
			&QuestionModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		// AutoMigrate keeps the column type from the struct tag; realign the
		// vector width when the configured dimension differs.
		if err := tx.Exec(fmt.Sprintf(`
			DO $$ BEGIN
				IF EXISTS (
					SELECT 1 FROM information_schema.columns
					WHERE table_name = 'document_chunks' AND column_name = 'embedding'
				) THEN
					ALTER TABLE document_chunks ALTER COLUMN embedding TYPE vector(%d);
				END IF;
			END $$;
		`, vectorDim)).Error; err != nil {
			return fmt.Errorf("alter chunk embedding type: %w", err)
		}
		return nil
	})
}

// Pinger adapts *gorm.DB to the health check contract.
type Pinger struct {
	db *gorm.DB
}

// NewPinger wraps a gorm handle for connectivity checks.
func NewPinger(db *gorm.DB) *Pinger {
	return &Pinger{db: db}
}

// Ping checks database connectivity.
func (p *Pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("unwrap sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (p *Pinger) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := p.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}
