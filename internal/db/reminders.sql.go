package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const countRemindersForPersona = `-- name: CountRemindersForPersona :one
SELECT count(*)
FROM reminder_log
WHERE persona_id = $1 AND birthday_year = $2`

type CountRemindersForPersonaParams struct {
	PersonaID    uuid.UUID `json:"persona_id"`
	BirthdayYear int32     `json:"birthday_year"`
}

func (q *Queries) CountRemindersForPersona(ctx context.Context, arg CountRemindersForPersonaParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countRemindersForPersona, arg.PersonaID, arg.BirthdayYear)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const insertReminderLog = `-- name: InsertReminderLog :one
INSERT INTO reminder_log (persona_id, birthday_year, recipient, subject, suggestions)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, persona_id, birthday_year, recipient, subject, suggestions, sent_at`

type InsertReminderLogParams struct {
	PersonaID    uuid.UUID             `json:"persona_id"`
	BirthdayYear int32                 `json:"birthday_year"`
	Recipient    string                `json:"recipient"`
	Subject      string                `json:"subject"`
	Suggestions  pqtype.NullRawMessage `json:"suggestions"`
}

func (q *Queries) InsertReminderLog(ctx context.Context, arg InsertReminderLogParams) (ReminderLog, error) {
	row := q.db.QueryRowContext(ctx, insertReminderLog,
		arg.PersonaID,
		arg.BirthdayYear,
		arg.Recipient,
		arg.Subject,
		arg.Suggestions,
	)
	var i ReminderLog
	err := row.Scan(
		&i.ID,
		&i.PersonaID,
		&i.BirthdayYear,
		&i.Recipient,
		&i.Subject,
		&i.Suggestions,
		&i.SentAt,
	)
	return i, err
}
