package db

import (
	"context"
	"encoding/json"
)

const getDefaultUniques = `-- name: GetDefaultUniques :one
SELECT id, products, fetched_at
FROM default_uniques
WHERE id = 1`

func (q *Queries) GetDefaultUniques(ctx context.Context) (DefaultUnique, error) {
	row := q.db.QueryRowContext(ctx, getDefaultUniques)
	var i DefaultUnique
	err := row.Scan(&i.ID, &i.Products, &i.FetchedAt)
	return i, err
}

const upsertDefaultUniques = `-- name: UpsertDefaultUniques :one
INSERT INTO default_uniques (id, products, fetched_at)
VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE
SET products = EXCLUDED.products, fetched_at = EXCLUDED.fetched_at
RETURNING id, products, fetched_at`

func (q *Queries) UpsertDefaultUniques(ctx context.Context, products json.RawMessage) (DefaultUnique, error) {
	row := q.db.QueryRowContext(ctx, upsertDefaultUniques, products)
	var i DefaultUnique
	err := row.Scan(&i.ID, &i.Products, &i.FetchedAt)
	return i, err
}

const deleteDefaultUniques = `-- name: DeleteDefaultUniques :exec
DELETE FROM default_uniques`

func (q *Queries) DeleteDefaultUniques(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteDefaultUniques)
	return err
}
