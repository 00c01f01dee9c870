package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nyashahama/gift-genius-backend/internal/db"
	"github.com/nyashahama/gift-genius-backend/internal/gift"
)

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrPersonaNotFound is returned for an unknown or malformed persona id.
var ErrPersonaNotFound = errors.New("store: persona not found")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// CreatePersona inserts p with a fresh id. An empty UserID is stored as
// gift.DefaultUserID.
func (s *Store) CreatePersona(ctx context.Context, p gift.Persona) (gift.Persona, error) {
	if p.UserID == "" {
		p.UserID = gift.DefaultUserID
	}
	lists, err := encodeLists(p)
	if err != nil {
		return gift.Persona{}, fmt.Errorf("CreatePersona: %w", err)
	}

	row, err := s.q.CreatePersona(ctx, db.CreatePersonaParams{
		ID:                  uuid.New(),
		UserID:              p.UserID,
		Name:                p.Name,
		Birthday:            nullTime(p.Birthday),
		Loves:               lists[0],
		Hates:               lists[1],
		Allergies:           lists[2],
		DietaryRestrictions: lists[3],
		Description:         p.Description,
		EmailReminders:      p.EmailReminders,
		UserEmail:           nullString(p.UserEmail),
		LastGift:            nullString(p.LastGift),
	})
	if err != nil {
		return gift.Persona{}, fmt.Errorf("CreatePersona: %w", err)
	}
	return personaFromRow(row)
}

// GetPersona returns the persona with the given id.
func (s *Store) GetPersona(ctx context.Context, id string) (gift.Persona, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return gift.Persona{}, ErrPersonaNotFound
	}
	row, err := s.q.GetPersonaByID(ctx, pid)
	if errors.Is(err, sql.ErrNoRows) {
		return gift.Persona{}, ErrPersonaNotFound
	}
	if err != nil {
		return gift.Persona{}, fmt.Errorf("GetPersona: %w", err)
	}
	return personaFromRow(row)
}

// ListPersonas returns the personas owned by userID, oldest first.
func (s *Store) ListPersonas(ctx context.Context, userID string) ([]gift.Persona, error) {
	if userID == "" {
		userID = gift.DefaultUserID
	}
	rows, err := s.q.ListPersonasByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ListPersonas: %w", err)
	}
	return personasFromRows(rows)
}

// ListReminderPersonas returns every persona with reminders enabled and a
// birthday set.
func (s *Store) ListReminderPersonas(ctx context.Context) ([]gift.Persona, error) {
	rows, err := s.q.ListReminderPersonas(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListReminderPersonas: %w", err)
	}
	return personasFromRows(rows)
}

// UpdatePersona replaces the editable fields of the persona identified by
// p.ID. UserID and CreatedAt are not changed.
func (s *Store) UpdatePersona(ctx context.Context, p gift.Persona) (gift.Persona, error) {
	pid, err := uuid.Parse(p.ID)
	if err != nil {
		return gift.Persona{}, ErrPersonaNotFound
	}
	lists, err := encodeLists(p)
	if err != nil {
		return gift.Persona{}, fmt.Errorf("UpdatePersona: %w", err)
	}

	row, err := s.q.UpdatePersona(ctx, db.UpdatePersonaParams{
		ID:                  pid,
		Name:                p.Name,
		Birthday:            nullTime(p.Birthday),
		Loves:               lists[0],
		Hates:               lists[1],
		Allergies:           lists[2],
		DietaryRestrictions: lists[3],
		Description:         p.Description,
		EmailReminders:      p.EmailReminders,
		UserEmail:           nullString(p.UserEmail),
		LastGift:            nullString(p.LastGift),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return gift.Persona{}, ErrPersonaNotFound
	}
	if err != nil {
		return gift.Persona{}, fmt.Errorf("UpdatePersona: %w", err)
	}
	return personaFromRow(row)
}

// DeletePersona removes the persona and, through the foreign key, its
// reminder log.
func (s *Store) DeletePersona(ctx context.Context, id string) error {
	pid, err := uuid.Parse(id)
	if err != nil {
		return ErrPersonaNotFound
	}
	n, err := s.q.DeletePersona(ctx, pid)
	if err != nil {
		return fmt.Errorf("DeletePersona: %w", err)
	}
	if n == 0 {
		return ErrPersonaNotFound
	}
	return nil
}

// ─── CONVERSION ──────────────────────────────────────────────────────────────

// encodeLists marshals loves, hates, allergies and dietary restrictions, in
// that order. Nil lists are stored as [].
func encodeLists(p gift.Persona) ([4][]byte, error) {
	var out [4][]byte
	for i, list := range [][]string{p.Loves, p.Hates, p.Allergies, p.Dietary} {
		if list == nil {
			list = []string{}
		}
		b, err := json.Marshal(list)
		if err != nil {
			return out, fmt.Errorf("marshal list: %w", err)
		}
		out[i] = b
	}
	return out, nil
}

func decodeList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func personaFromRow(r db.Persona) (gift.Persona, error) {
	p := gift.Persona{
		ID:             r.ID.String(),
		UserID:         r.UserID,
		Name:           r.Name,
		Description:    r.Description,
		EmailReminders: r.EmailReminders,
		UserEmail:      r.UserEmail.String,
		LastGift:       r.LastGift.String,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Birthday.Valid {
		b := r.Birthday.Time
		p.Birthday = &b
	}

	var err error
	for _, f := range []struct {
		dst *[]string
		raw []byte
	}{
		{&p.Loves, r.Loves},
		{&p.Hates, r.Hates},
		{&p.Allergies, r.Allergies},
		{&p.Dietary, r.DietaryRestrictions},
	} {
		if *f.dst, err = decodeList(f.raw); err != nil {
			return gift.Persona{}, fmt.Errorf("store: decode persona %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func personasFromRows(rows []db.Persona) ([]gift.Persona, error) {
	out := make([]gift.Persona, 0, len(rows))
	for _, r := range rows {
		p, err := personaFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
