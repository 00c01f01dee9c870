package db

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

type Querier interface {
	CountRemindersForPersona(ctx context.Context, arg CountRemindersForPersonaParams) (int64, error)
	CreatePersona(ctx context.Context, arg CreatePersonaParams) (Persona, error)
	DeleteDefaultUniques(ctx context.Context) error
	DeletePersona(ctx context.Context, id uuid.UUID) (int64, error)
	GetDefaultUniques(ctx context.Context) (DefaultUnique, error)
	GetPersonaByID(ctx context.Context, id uuid.UUID) (Persona, error)
	InsertReminderLog(ctx context.Context, arg InsertReminderLogParams) (ReminderLog, error)
	ListPersonasByUser(ctx context.Context, userID string) ([]Persona, error)
	ListReminderPersonas(ctx context.Context) ([]Persona, error)
	UpdatePersona(ctx context.Context, arg UpdatePersonaParams) (Persona, error)
	UpsertDefaultUniques(ctx context.Context, products json.RawMessage) (DefaultUnique, error)
}
