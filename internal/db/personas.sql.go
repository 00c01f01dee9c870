package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
)

const personaColumns = `id, user_id, name, birthday, loves, hates, allergies, dietary_restrictions,
       description, email_reminders, user_email, last_gift, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPersona(row rowScanner) (Persona, error) {
	var i Persona
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Birthday,
		&i.Loves,
		&i.Hates,
		&i.Allergies,
		&i.DietaryRestrictions,
		&i.Description,
		&i.EmailReminders,
		&i.UserEmail,
		&i.LastGift,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanPersonas(rows *sql.Rows) ([]Persona, error) {
	defer rows.Close()
	var items []Persona
	for rows.Next() {
		i, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createPersona = `-- name: CreatePersona :one
INSERT INTO personas (
    id, user_id, name, birthday, loves, hates, allergies, dietary_restrictions,
    description, email_reminders, user_email, last_gift
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + personaColumns

type CreatePersonaParams struct {
	ID                  uuid.UUID       `json:"id"`
	UserID              string          `json:"user_id"`
	Name                string          `json:"name"`
	Birthday            sql.NullTime    `json:"birthday"`
	Loves               json.RawMessage `json:"loves"`
	Hates               json.RawMessage `json:"hates"`
	Allergies           json.RawMessage `json:"allergies"`
	DietaryRestrictions json.RawMessage `json:"dietary_restrictions"`
	Description         string          `json:"description"`
	EmailReminders      bool            `json:"email_reminders"`
	UserEmail           sql.NullString  `json:"user_email"`
	LastGift            sql.NullString  `json:"last_gift"`
}

func (q *Queries) CreatePersona(ctx context.Context, arg CreatePersonaParams) (Persona, error) {
	row := q.db.QueryRowContext(ctx, createPersona,
		arg.ID,
		arg.UserID,
		arg.Name,
		arg.Birthday,
		arg.Loves,
		arg.Hates,
		arg.Allergies,
		arg.DietaryRestrictions,
		arg.Description,
		arg.EmailReminders,
		arg.UserEmail,
		arg.LastGift,
	)
	return scanPersona(row)
}

const getPersonaByID = `-- name: GetPersonaByID :one
SELECT ` + personaColumns + `
FROM personas
WHERE id = $1`

func (q *Queries) GetPersonaByID(ctx context.Context, id uuid.UUID) (Persona, error) {
	return scanPersona(q.db.QueryRowContext(ctx, getPersonaByID, id))
}

const listPersonasByUser = `-- name: ListPersonasByUser :many
SELECT ` + personaColumns + `
FROM personas
WHERE user_id = $1
ORDER BY created_at, id`

func (q *Queries) ListPersonasByUser(ctx context.Context, userID string) ([]Persona, error) {
	rows, err := q.db.QueryContext(ctx, listPersonasByUser, userID)
	if err != nil {
		return nil, err
	}
	return scanPersonas(rows)
}

const listReminderPersonas = `-- name: ListReminderPersonas :many
SELECT ` + personaColumns + `
FROM personas
WHERE email_reminders AND birthday IS NOT NULL
ORDER BY created_at, id`

func (q *Queries) ListReminderPersonas(ctx context.Context) ([]Persona, error) {
	rows, err := q.db.QueryContext(ctx, listReminderPersonas)
	if err != nil {
		return nil, err
	}
	return scanPersonas(rows)
}

const updatePersona = `-- name: UpdatePersona :one
UPDATE personas
SET name                 = $2,
    birthday             = $3,
    loves                = $4,
    hates                = $5,
    allergies            = $6,
    dietary_restrictions = $7,
    description          = $8,
    email_reminders      = $9,
    user_email           = $10,
    last_gift            = $11,
    updated_at           = now()
WHERE id = $1
RETURNING ` + personaColumns

type UpdatePersonaParams struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	Birthday            sql.NullTime    `json:"birthday"`
	Loves               json.RawMessage `json:"loves"`
	Hates               json.RawMessage `json:"hates"`
	Allergies           json.RawMessage `json:"allergies"`
	DietaryRestrictions json.RawMessage `json:"dietary_restrictions"`
	Description         string          `json:"description"`
	EmailReminders      bool            `json:"email_reminders"`
	UserEmail           sql.NullString  `json:"user_email"`
	LastGift            sql.NullString  `json:"last_gift"`
}

func (q *Queries) UpdatePersona(ctx context.Context, arg UpdatePersonaParams) (Persona, error) {
	row := q.db.QueryRowContext(ctx, updatePersona,
		arg.ID,
		arg.Name,
		arg.Birthday,
		arg.Loves,
		arg.Hates,
		arg.Allergies,
		arg.DietaryRestrictions,
		arg.Description,
		arg.EmailReminders,
		arg.UserEmail,
		arg.LastGift,
	)
	return scanPersona(row)
}

const deletePersona = `-- name: DeletePersona :execrows
DELETE FROM personas
WHERE id = $1`

func (q *Queries) DeletePersona(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePersona, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
