package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
)

// Schema creates the drafts table. Migrate runs it.
const Schema = `
	CREATE TABLE IF NOT EXISTS checkout_drafts (
		draft_key     TEXT PRIMARY KEY,
		rental_window JSONB NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// PostgresStore keeps drafts in the checkout_drafts table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore over pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the drafts table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create checkout_drafts: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (models.RentalWindow, bool, error) {
	query := `SELECT rental_window FROM checkout_drafts WHERE draft_key = $1`

	var raw []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RentalWindow{}, false, nil
		}
		return models.RentalWindow{}, false, fmt.Errorf("failed to get draft: %w", err)
	}

	var w models.RentalWindow
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.RentalWindow{}, false, fmt.Errorf("failed to decode draft: %w", err)
	}
	return w, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, w models.RentalWindow) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	query := `
		INSERT INTO checkout_drafts (draft_key, rental_window, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (draft_key) DO UPDATE SET rental_window = EXCLUDED.rental_window, updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, key, raw); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM checkout_drafts WHERE draft_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
