package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/gift-genius-backend/internal/db"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// Suggestion is one gift idea included in a reminder email.
type Suggestion struct {
	Label    string  `json:"label"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url,omitempty"`
}

// RecordReminderParams describes a reminder that was just sent.
type RecordReminderParams struct {
	PersonaID    string
	BirthdayYear int
	Recipient    string
	Subject      string
	Suggestions  []Suggestion
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrReminderAlreadySent is returned when a reminder for the same persona and
// birthday year is already logged. The worker treats it as success.
var ErrReminderAlreadySent = errors.New("store: reminder already sent")

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// ─── METHODS ─────────────────────────────────────────────────────────────────

// ReminderSent reports whether a reminder was logged for the persona and
// birthday year.
func (s *Store) ReminderSent(ctx context.Context, personaID string, year int) (bool, error) {
	pid, err := uuid.Parse(personaID)
	if err != nil {
		return false, ErrPersonaNotFound
	}
	n, err := s.q.CountRemindersForPersona(ctx, db.CountRemindersForPersonaParams{
		PersonaID:    pid,
		BirthdayYear: int32(year),
	})
	if err != nil {
		return false, fmt.Errorf("ReminderSent: %w", err)
	}
	return n > 0, nil
}

// RecordReminder logs a sent reminder. The existence check and insert run in
// one serializable transaction, and the (persona_id, birthday_year) unique key
// backs it up, so a second record for the same year returns
// ErrReminderAlreadySent.
func (s *Store) RecordReminder(ctx context.Context, p RecordReminderParams) error {
	pid, err := uuid.Parse(p.PersonaID)
	if err != nil {
		return ErrPersonaNotFound
	}

	suggestions := pqtype.NullRawMessage{}
	if len(p.Suggestions) > 0 {
		b, err := json.Marshal(p.Suggestions)
		if err != nil {
			return fmt.Errorf("RecordReminder: marshal suggestions: %w", err)
		}
		suggestions = pqtype.NullRawMessage{RawMessage: b, Valid: true}
	}

	err = s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		n, err := q.CountRemindersForPersona(ctx, db.CountRemindersForPersonaParams{
			PersonaID:    pid,
			BirthdayYear: int32(p.BirthdayYear),
		})
		if err != nil {
			return fmt.Errorf("RecordReminder: count: %w", err)
		}
		if n > 0 {
			return ErrReminderAlreadySent
		}

		if _, err := q.InsertReminderLog(ctx, db.InsertReminderLogParams{
			PersonaID:    pid,
			BirthdayYear: int32(p.BirthdayYear),
			Recipient:    p.Recipient,
			Subject:      p.Subject,
			Suggestions:  suggestions,
		}); err != nil {
			return fmt.Errorf("RecordReminder: insert: %w", err)
		}
		return nil
	})

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrReminderAlreadySent
	}
	if errors.Is(err, ErrReminderAlreadySent) {
		return ErrReminderAlreadySent
	}
	return err
}
