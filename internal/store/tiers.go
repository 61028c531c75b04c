package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tierColumns = `id, creator_id, level, name, description, price, created_at`

// UpsertTier inserts or replaces one catalog level for a creator
func (s *Store) UpsertTier(ctx context.Context, t *models.Tier) (*models.Tier, error) {
	if !s.ready() {
		return nil, ErrNotConfigured
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO tiers (creator_id, level, name, description, price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (creator_id, level) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price
		RETURNING `+tierColumns,
		t.CreatorID, t.Level, t.Name, t.Description, t.Price,
	)
	return scanTier(row)
}

// DeleteTier removes one catalog level. The subscription ledger is left
// untouched: existing subscribers at that level keep access until expiry.
func (s *Store) DeleteTier(ctx context.Context, creatorID uuid.UUID, level int) error {
	if !s.ready() {
		return ErrNotConfigured
	}
	_, err := s.db.Exec(ctx, `DELETE FROM tiers WHERE creator_id = $1 AND level = $2`, creatorID, level)
	if err != nil {
		return fmt.Errorf("failed to delete tier: %w", err)
	}
	return nil
}

// ListTiers returns a creator's catalog ordered by level
func (s *Store) ListTiers(ctx context.Context, creatorID uuid.UUID) ([]models.Tier, error) {
	if !s.ready() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+tierColumns+`
		FROM tiers
		WHERE creator_id = $1
		ORDER BY level`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tiers: %w", err)
	}
	defer rows.Close()

	var tiers []models.Tier
	for rows.Next() {
		var t models.Tier
		if err := rows.Scan(&t.ID, &t.CreatorID, &t.Level, &t.Name, &t.Description, &t.Price, &t.CreatedAt); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

func scanTier(row pgx.Row) (*models.Tier, error) {
	var t models.Tier
	err := row.Scan(&t.ID, &t.CreatorID, &t.Level, &t.Name, &t.Description, &t.Price, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
