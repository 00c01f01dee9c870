package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the minimum env for a valid config. t.Setenv restores the
// previous values when the test ends.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/gift?sslmode=disable")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ENV", "development")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	for _, k := range []string{"PORT", "REMINDER_INTERVAL", "REMINDER_WINDOW_DAYS", "RESEND_API_KEY", "CATALOG_TIMEOUT", "AI_REQUESTS_PER_SECOND"} {
		t.Setenv(k, "")
	}

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Port != "8080" {
		t.Errorf("Port = %q", c.Port)
	}
	if c.OpenAIChatModel != "gpt-4o-mini" || c.OpenAIEmbeddingModel != "text-embedding-3-small" {
		t.Errorf("models = %q / %q", c.OpenAIChatModel, c.OpenAIEmbeddingModel)
	}
	if c.ReminderInterval != 24*time.Hour || c.ReminderWindowDays != 10 {
		t.Errorf("reminders = %v / %d", c.ReminderInterval, c.ReminderWindowDays)
	}
	if c.CatalogTimeout != 10*time.Second {
		t.Errorf("CatalogTimeout = %v", c.CatalogTimeout)
	}
	if c.AIRequestsPerSecond != 5 {
		t.Errorf("AIRequestsPerSecond = %v", c.AIRequestsPerSecond)
	}
	if c.RemindersEnabled() {
		t.Error("reminders enabled without RESEND_API_KEY")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("REMINDER_INTERVAL", "90")
	t.Setenv("CATALOG_TIMEOUT", "2500ms")
	t.Setenv("AI_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("ENV", "production")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ReminderInterval != 90*time.Second {
		t.Errorf("ReminderInterval = %v", c.ReminderInterval)
	}
	if c.CatalogTimeout != 2500*time.Millisecond {
		t.Errorf("CatalogTimeout = %v", c.CatalogTimeout)
	}
	if c.AIRequestsPerSecond != 0.5 {
		t.Errorf("AIRequestsPerSecond = %v", c.AIRequestsPerSecond)
	}
	if !c.RemindersEnabled() || !c.IsProduction() {
		t.Error("expected reminders enabled in production")
	}
}

func TestLoad_ValidationAggregatesErrors(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ENV", "prod")
	t.Setenv("REMINDER_WINDOW_DAYS", "400")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"DATABASE_URL", "OPENAI_API_KEY", "ENV must be", "REMINDER_WINDOW_DAYS"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		key, value string
		want       time.Duration
	}{
		{"X_TIMEOUT", "", time.Minute},
		{"X_TIMEOUT", "15", 15 * time.Second},
		{"X_MINUTES", "3", 3 * time.Minute},
		{"X_HOURS", "2", 2 * time.Hour},
		{"X_TIMEOUT", "1h30m", 90 * time.Minute},
		{"X_TIMEOUT", "soon", time.Minute},
	}
	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if got := getEnvAsDuration(tc.key, time.Minute); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
