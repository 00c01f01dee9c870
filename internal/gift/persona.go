package gift

import "time"

// DefaultUserID owns personas created without an explicit user.
const DefaultUserID = "default_user"

// DefaultOccasion is used when a persona is turned into a profile without an
// occasion, and by the birthday reminder job.
const DefaultOccasion = "Birthday"

// Persona is a saved recipient profile.
type Persona struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Name           string     `json:"name"`
	Birthday       *time.Time `json:"birthday,omitempty"`
	Loves          []string   `json:"loves"`
	Hates          []string   `json:"hates"`
	Allergies      []string   `json:"allergies"`
	Dietary        []string   `json:"dietary_restrictions"`
	Description    string     `json:"description"`
	EmailReminders bool       `json:"email_reminders"`
	UserEmail      string     `json:"user_email,omitempty"`
	LastGift       string     `json:"last_gift,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ToProfile builds a normalized recipient profile from the persona.
func (p Persona) ToProfile(occasion string, budgetMin, budgetMax *float64) Profile {
	if occasion == "" {
		occasion = DefaultOccasion
	}
	return Profile{
		RecipientName: p.Name,
		Occasion:      occasion,
		BudgetMin:     budgetMin,
		BudgetMax:     budgetMax,
		Loves:         p.Loves,
		Hates:         p.Hates,
		Allergies:     p.Allergies,
		Dietary:       p.Dietary,
		Description:   p.Description,
	}.Normalize()
}
