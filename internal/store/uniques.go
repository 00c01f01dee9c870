package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
)

// LoadDefaultUniques returns the stored curated pool, or nil when none has
// been saved.
func (s *Store) LoadDefaultUniques(ctx context.Context) ([]gift.Product, error) {
	row, err := s.q.GetDefaultUniques(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LoadDefaultUniques: %w", err)
	}

	var products []gift.Product
	if err := json.Unmarshal(row.Products, &products); err != nil {
		return nil, fmt.Errorf("LoadDefaultUniques: unmarshal: %w", err)
	}
	return products, nil
}

// SaveDefaultUniques replaces the stored curated pool.
func (s *Store) SaveDefaultUniques(ctx context.Context, products []gift.Product) error {
	b, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("SaveDefaultUniques: marshal: %w", err)
	}
	if _, err := s.q.UpsertDefaultUniques(ctx, b); err != nil {
		return fmt.Errorf("SaveDefaultUniques: %w", err)
	}
	return nil
}

// ClearDefaultUniques deletes the stored curated pool.
func (s *Store) ClearDefaultUniques(ctx context.Context) error {
	if err := s.q.DeleteDefaultUniques(ctx); err != nil {
		return fmt.Errorf("ClearDefaultUniques: %w", err)
	}
	return nil
}
