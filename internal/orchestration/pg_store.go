package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// PgStore keeps generations in the book_generations table.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a store on an existing pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Create(ctx context.Context, gen *models.BookGeneration) error {
	progress, book, genErr, err := encodeGeneration(gen)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO book_generations (id, status, progress, book, error, created_at, updated_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		gen.ID, string(gen.Status), progress, book, genErr, gen.CreatedAt, gen.UpdatedAt, gen.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create book generation: %w", err)
	}
	return nil
}

func (s *PgStore) Get(ctx context.Context, id string) (*models.BookGeneration, error) {
	var (
		gen                  models.BookGeneration
		status               string
		progress, book, gErr []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, status, progress, book, error, created_at, updated_at, completed_at
		FROM book_generations
		WHERE id = $1
	`, id).Scan(&gen.ID, &status, &progress, &book, &gErr, &gen.CreatedAt, &gen.UpdatedAt, &gen.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGenerationNotFound
		}
		return nil, fmt.Errorf("failed to get book generation: %w", err)
	}
	gen.Status = models.GenerationStatus(status)

	if len(progress) > 0 {
		if err := json.Unmarshal(progress, &gen.Progress); err != nil {
			return nil, fmt.Errorf("failed to decode progress: %w", err)
		}
	}
	if len(book) > 0 {
		gen.Book = &models.Book{}
		if err := json.Unmarshal(book, gen.Book); err != nil {
			return nil, fmt.Errorf("failed to decode book: %w", err)
		}
	}
	if len(gErr) > 0 {
		gen.Error = &models.PipelineError{}
		if err := json.Unmarshal(gErr, gen.Error); err != nil {
			return nil, fmt.Errorf("failed to decode error: %w", err)
		}
	}
	return &gen, nil
}

func (s *PgStore) Update(ctx context.Context, gen *models.BookGeneration, from models.GenerationStatus) error {
	progress, book, genErr, err := encodeGeneration(gen)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the row so concurrent writers serialize on the status check
	var current string
	err = tx.QueryRow(ctx, `
		SELECT status FROM book_generations
		WHERE id = $1
		FOR UPDATE
	`, gen.ID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrGenerationNotFound
		}
		return fmt.Errorf("failed to lock book generation: %w", err)
	}
	if models.GenerationStatus(current) != from {
		return fmt.Errorf("book generation %s is %s, expected %s", gen.ID, current, from)
	}

	_, err = tx.Exec(ctx, `
		UPDATE book_generations
		SET status = $2, progress = $3, book = $4, error = $5, updated_at = $6, completed_at = $7
		WHERE id = $1
	`, gen.ID, string(gen.Status), progress, book, genErr, gen.UpdatedAt, gen.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update book generation: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func encodeGeneration(gen *models.BookGeneration) (progress, book, genErr []byte, err error) {
	progress, err = json.Marshal(gen.Progress)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode progress: %w", err)
	}
	if gen.Book != nil {
		if book, err = json.Marshal(gen.Book); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to encode book: %w", err)
		}
	}
	if gen.Error != nil {
		if genErr, err = json.Marshal(gen.Error); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to encode error: %w", err)
		}
	}
	return progress, book, genErr, nil
}
