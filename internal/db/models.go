package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Persona struct {
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
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type ReminderLog struct {
	ID           int64                 `json:"id"`
	PersonaID    uuid.UUID             `json:"persona_id"`
	BirthdayYear int32                 `json:"birthday_year"`
	Recipient    string                `json:"recipient"`
	Subject      string                `json:"subject"`
	Suggestions  pqtype.NullRawMessage `json:"suggestions"`
	SentAt       time.Time             `json:"sent_at"`
}

type DefaultUnique struct {
	ID        int16           `json:"id"`
	Products  json.RawMessage `json:"products"`
	FetchedAt time.Time       `json:"fetched_at"`
}
