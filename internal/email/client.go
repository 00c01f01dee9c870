// Package email defines the interface for transactional email delivery and
// provides a Resend-backed implementation.
package email

import (
	"context"
	"fmt"
)

// Suggestion is one gift idea shown in a reminder.
type Suggestion struct {
	Label       string // "Best Match", "Safe Bet", "Something Unique"
	Name        string
	Price       float64
	Description string
	ImageURL    string
}

// BirthdayReminderParams holds the data for an upcoming-birthday reminder.
type BirthdayReminderParams struct {
	To          string
	PersonaName string
	WhenText    string // "today" or "in N days"
	LastGift    string // may be empty
	Suggestions []Suggestion
}

// Subject is the reminder subject line.
func (p BirthdayReminderParams) Subject() string {
	return fmt.Sprintf("Gift reminder: %s's birthday is %s", p.PersonaName, p.WhenText)
}

// Sender is the interface the reminder worker uses to send email. Tests
// inject a stub that records calls without hitting the network.
type Sender interface {
	SendBirthdayReminder(ctx context.Context, p BirthdayReminderParams) error
}
