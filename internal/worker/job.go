package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nyashahama/gift-genius-backend/internal/email"
	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/metrics"
	"github.com/nyashahama/gift-genius-backend/internal/store"
)

// Reminder outcomes recorded per persona.
const (
	OutcomeSent         = "sent"
	OutcomeAlreadySent  = "already_sent"
	OutcomeNoRecipient  = "no_recipient"
	OutcomeSendFailed   = "send_failed"
	OutcomeRecordFailed = "record_failed"
)

// DefaultWindowDays is how far ahead a birthday triggers a reminder.
const DefaultWindowDays = 10

// maxSuggestions caps the gift ideas included in one reminder.
const maxSuggestions = 3

// ─── COLLABORATORS ────────────────────────────────────────────────────────────

// ReminderStore is the slice of *store.Store the job needs.
type ReminderStore interface {
	ListReminderPersonas(ctx context.Context) ([]gift.Persona, error)
	ReminderSent(ctx context.Context, personaID string, year int) (bool, error)
	RecordReminder(ctx context.Context, p store.RecordReminderParams) error
}

// Recommender produces gift picks for a profile. *recommend.Pipeline
// satisfies it.
type Recommender interface {
	Recommend(ctx context.Context, profile gift.Profile) (*gift.Picks, error)
}

// ─── JOB ──────────────────────────────────────────────────────────────────────

// JobConfig tunes the reminder scan.
type JobConfig struct {
	// WindowDays is the maximum number of days before a birthday a reminder
	// is sent. Default: 10.
	WindowDays int

	// DefaultRecipient receives reminders for personas without user_email.
	// Empty means such personas are skipped.
	DefaultRecipient string

	// Now returns the current time. Default: time.Now.
	Now func() time.Time
}

// Result summarises one scan.
type Result struct {
	Checked int
	Sent    int
	Failed  int
}

// Job scans personas for upcoming birthdays and sends one reminder per
// persona per birthday year.
type Job struct {
	store   ReminderStore
	rec     Recommender
	mailer  email.Sender
	cfg     JobConfig
	logger  *slog.Logger
	metrics *metrics.Collectors
}

// NewJob constructs a Job with all required dependencies.
func NewJob(
	st ReminderStore,
	rec Recommender,
	mailer email.Sender,
	cfg JobConfig,
	logger *slog.Logger,
	m *metrics.Collectors,
) *Job {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultWindowDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Job{
		store:   st,
		rec:     rec,
		mailer:  mailer,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// Run executes one reminder scan:
//
//  1. List personas with reminders enabled and a birthday.
//  2. Skip those whose next birthday is outside the window or already
//     reminded for that year.
//  3. Ask the recommender for up to three suggestions (failure → none).
//  4. Send the email and record it.
//
// Only a failure to list personas is returned; per-persona failures are
// logged and retried on the next scan.
func (j *Job) Run(ctx context.Context) (Result, error) {
	var res Result

	personas, err := j.store.ListReminderPersonas(ctx)
	if err != nil {
		return res, fmt.Errorf("job: list personas: %w", err)
	}

	today := dateOf(j.cfg.Now())
	for _, p := range personas {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if p.Birthday == nil {
			continue
		}
		next := NextBirthday(*p.Birthday, today)
		days := DaysUntil(today, next)
		if days < 0 || days > j.cfg.WindowDays {
			continue
		}

		res.Checked++
		sent, err := j.remind(ctx, p, next.Year(), days)
		if err != nil {
			res.Failed++
			j.logger.Error("job: reminder failed", "persona_id", p.ID, "error", err)
			continue
		}
		if sent {
			res.Sent++
		}
	}

	j.logger.Info("job: reminder scan complete",
		"personas", len(personas),
		"due", res.Checked,
		"sent", res.Sent,
		"failed", res.Failed,
	)
	return res, nil
}

func (j *Job) remind(ctx context.Context, p gift.Persona, year, days int) (bool, error) {
	log := j.logger.With("persona_id", p.ID, "birthday_year", year)

	done, err := j.store.ReminderSent(ctx, p.ID, year)
	if err != nil {
		return false, fmt.Errorf("job: check reminder log: %w", err)
	}
	if done {
		return false, nil
	}

	to := p.UserEmail
	if to == "" {
		to = j.cfg.DefaultRecipient
	}
	if to == "" {
		log.Warn("job: no recipient address, skipping reminder")
		j.metrics.Reminder(OutcomeNoRecipient)
		return false, nil
	}

	params := email.BirthdayReminderParams{
		To:          to,
		PersonaName: p.Name,
		WhenText:    WhenText(days),
		LastGift:    p.LastGift,
		Suggestions: j.suggestions(ctx, p, log),
	}

	if err := j.mailer.SendBirthdayReminder(ctx, params); err != nil {
		j.metrics.Reminder(OutcomeSendFailed)
		return false, fmt.Errorf("job: send reminder: %w", err)
	}

	logged := make([]store.Suggestion, len(params.Suggestions))
	for i, s := range params.Suggestions {
		logged[i] = store.Suggestion{Label: s.Label, Name: s.Name, Price: s.Price, ImageURL: s.ImageURL}
	}
	err = j.store.RecordReminder(ctx, store.RecordReminderParams{
		PersonaID:    p.ID,
		BirthdayYear: year,
		Recipient:    to,
		Subject:      params.Subject(),
		Suggestions:  logged,
	})
	switch {
	case errors.Is(err, store.ErrReminderAlreadySent):
		log.Warn("job: reminder logged concurrently")
		j.metrics.Reminder(OutcomeAlreadySent)
		return false, nil
	case err != nil:
		j.metrics.Reminder(OutcomeRecordFailed)
		return false, fmt.Errorf("job: record reminder: %w", err)
	}

	log.Info("job: reminder sent", "to", to, "when", params.WhenText, "suggestions", len(params.Suggestions))
	j.metrics.Reminder(OutcomeSent)
	return true, nil
}

// suggestions runs the recommender for a birthday. A failure yields no
// suggestions rather than blocking the reminder.
func (j *Job) suggestions(ctx context.Context, p gift.Persona, log *slog.Logger) []email.Suggestion {
	if j.rec == nil {
		return nil
	}
	picks, err := j.rec.Recommend(ctx, p.ToProfile(gift.DefaultOccasion, nil, nil))
	if err != nil {
		log.Warn("job: recommendations unavailable, sending reminder without suggestions", "error", err)
		return nil
	}

	var out []email.Suggestion
	for _, r := range picks.All() {
		if len(out) == maxSuggestions {
			break
		}
		image := r.Product.ImageURL
		if image == "" {
			image = r.Product.ThumbnailURL
		}
		out = append(out, email.Suggestion{
			Label:       r.Category.Label(),
			Name:        r.Product.Name,
			Price:       r.Product.Price,
			Description: r.Product.Description,
			ImageURL:    image,
		})
	}
	return out
}

// ─── DATES ────────────────────────────────────────────────────────────────────

// NextBirthday returns the first anniversary of birthday on or after today.
// A 29 February birthday falls on 28 February in non-leap years.
func NextBirthday(birthday, today time.Time) time.Time {
	today = dateOf(today)
	next := anniversary(birthday, today.Year())
	if next.Before(today) {
		next = anniversary(birthday, today.Year()+1)
	}
	return next
}

// DaysUntil returns the whole days from one date to another.
func DaysUntil(from, to time.Time) int {
	return int(dateOf(to).Sub(dateOf(from)).Hours() / 24)
}

// WhenText renders a day count for the reminder subject and body.
func WhenText(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "in 1 day"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

func anniversary(birthday time.Time, year int) time.Time {
	month, day := birthday.Month(), birthday.Day()
	if month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
