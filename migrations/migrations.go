// Package migrations holds the SQL schema of the book generation store.
package migrations

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed 001_book_generations.up.sql
var bookGenerationsUp string

//go:embed 001_book_generations.down.sql
var bookGenerationsDown string

// Up creates the schema. It is safe to run repeatedly.
func Up(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, bookGenerationsUp); err != nil {
		return fmt.Errorf("failed to apply book_generations schema: %w", err)
	}
	return nil
}

// Down drops the schema.
func Down(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, bookGenerationsDown); err != nil {
		return fmt.Errorf("failed to drop book_generations schema: %w", err)
	}
	return nil
}
