package store_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/nyashahama/gift-genius-backend/internal/db"
	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/store"
)

// ─── TEST INFRASTRUCTURE ──────────────────────────────────────────────────────

// openTestDB returns a migrated *sql.DB from DATABASE_URL. Skips if the env
// var is not set so the suite still passes without a Postgres instance.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set — skipping store integration tests")
	}
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if err := pool.PingContext(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("ping: %v", err)
	}
	if err := db.Migrate(context.Background(), pool); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// seedPersona creates a persona owned by a per-test user and deletes it when
// the test ends.
func seedPersona(t *testing.T, ctx context.Context, pool *sql.DB, st *store.Store) gift.Persona {
	t.Helper()
	birthday := time.Date(1990, time.March, 14, 0, 0, 0, 0, time.UTC)
	p, err := st.CreatePersona(ctx, gift.Persona{
		UserID:         "user_" + t.Name(),
		Name:           "Ana",
		Birthday:       &birthday,
		Loves:          []string{"chocolate", "tea"},
		Allergies:      []string{"nuts"},
		EmailReminders: true,
		UserEmail:      "ana@example.com",
	})
	if err != nil {
		t.Fatalf("seed persona: %v", err)
	}
	t.Cleanup(func() { _, _ = pool.ExecContext(ctx, "DELETE FROM personas WHERE id=$1", p.ID) })
	return p
}

// ─── Personas ─────────────────────────────────────────────────────────────────

func TestCreatePersona_RoundTrip(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))

	created := seedPersona(t, ctx, pool, st)
	if created.ID == "" {
		t.Fatal("expected an id")
	}

	got, err := st.GetPersona(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPersona: %v", err)
	}
	if got.Name != "Ana" || len(got.Loves) != 2 || got.Allergies[0] != "nuts" {
		t.Errorf("persona = %+v", got)
	}
	if got.Hates == nil || len(got.Hates) != 0 {
		t.Errorf("hates should be empty, got %v", got.Hates)
	}
	if got.Birthday == nil || got.Birthday.Month() != time.March || got.Birthday.Day() != 14 {
		t.Errorf("birthday = %v", got.Birthday)
	}
}

func TestCreatePersona_DefaultUser(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))

	p, err := st.CreatePersona(ctx, gift.Persona{Name: "Sam"})
	if err != nil {
		t.Fatalf("CreatePersona: %v", err)
	}
	t.Cleanup(func() { _, _ = pool.ExecContext(ctx, "DELETE FROM personas WHERE id=$1", p.ID) })

	if p.UserID != gift.DefaultUserID {
		t.Errorf("user id = %q", p.UserID)
	}
}

func TestGetPersona_NotFound(t *testing.T) {
	pool := openTestDB(t)
	st := store.New(pool, db.New(pool))

	for _, id := range []string{"not-a-uuid", "00000000-0000-0000-0000-000000000000"} {
		if _, err := st.GetPersona(context.Background(), id); !errors.Is(err, store.ErrPersonaNotFound) {
			t.Errorf("GetPersona(%q) err = %v", id, err)
		}
	}
}

func TestUpdateAndDeletePersona(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))
	p := seedPersona(t, ctx, pool, st)

	p.Description = "loves hiking"
	p.LastGift = "Berry Box"
	p.Hates = []string{"licorice"}
	updated, err := st.UpdatePersona(ctx, p)
	if err != nil {
		t.Fatalf("UpdatePersona: %v", err)
	}
	if updated.Description != "loves hiking" || updated.LastGift != "Berry Box" || updated.Hates[0] != "licorice" {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) && !updated.UpdatedAt.Equal(updated.CreatedAt) {
		t.Error("updated_at before created_at")
	}

	if err := st.DeletePersona(ctx, p.ID); err != nil {
		t.Fatalf("DeletePersona: %v", err)
	}
	if err := st.DeletePersona(ctx, p.ID); !errors.Is(err, store.ErrPersonaNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestListPersonas_ByUser(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))
	p := seedPersona(t, ctx, pool, st)

	list, err := st.ListPersonas(ctx, p.UserID)
	if err != nil {
		t.Fatalf("ListPersonas: %v", err)
	}
	if len(list) != 1 || list[0].ID != p.ID {
		t.Errorf("list = %+v", list)
	}

	reminders, err := st.ListReminderPersonas(ctx)
	if err != nil {
		t.Fatalf("ListReminderPersonas: %v", err)
	}
	found := false
	for _, r := range reminders {
		found = found || r.ID == p.ID
	}
	if !found {
		t.Error("persona with birthday and reminders enabled not listed")
	}
}

// ─── Reminders ────────────────────────────────────────────────────────────────

func TestRecordReminder_OncePerYear(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))
	p := seedPersona(t, ctx, pool, st)

	params := store.RecordReminderParams{
		PersonaID:    p.ID,
		BirthdayYear: 2026,
		Recipient:    "ana@example.com",
		Subject:      "Gift reminder: Ana's birthday is in 3 days",
		Suggestions:  []store.Suggestion{{Label: "Best Match", Name: "Berry Box", Price: 45}},
	}
	if err := st.RecordReminder(ctx, params); err != nil {
		t.Fatalf("first RecordReminder: %v", err)
	}
	if err := st.RecordReminder(ctx, params); !errors.Is(err, store.ErrReminderAlreadySent) {
		t.Errorf("second RecordReminder err = %v", err)
	}

	sent, err := st.ReminderSent(ctx, p.ID, 2026)
	if err != nil || !sent {
		t.Errorf("ReminderSent(2026) = %v, %v", sent, err)
	}
	sent, err = st.ReminderSent(ctx, p.ID, 2027)
	if err != nil || sent {
		t.Errorf("ReminderSent(2027) = %v, %v", sent, err)
	}
}

// ─── Default uniques ──────────────────────────────────────────────────────────

func TestDefaultUniques_SaveLoadClear(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))
	t.Cleanup(func() { _ = st.ClearDefaultUniques(ctx) })

	if err := st.ClearDefaultUniques(ctx); err != nil {
		t.Fatal(err)
	}
	got, err := st.LoadDefaultUniques(ctx)
	if err != nil || got != nil {
		t.Fatalf("empty load = %v, %v", got, err)
	}

	products := []gift.Product{
		{ID: "1", Name: "Hot Sauce Trio", Price: 30, PopularityRank: gift.Rank(1)},
		{ID: "2", Name: "Fern", Price: 25, Occasions: []string{"birthday"}},
	}
	if err := st.SaveDefaultUniques(ctx, products); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.SaveDefaultUniques(ctx, products[:1]); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err = st.LoadDefaultUniques(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Hot Sauce Trio" || *got[0].PopularityRank != 1 {
		t.Errorf("loaded = %+v", got)
	}
}
