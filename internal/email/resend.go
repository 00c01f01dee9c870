package email

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultResendURL is the Resend send-email endpoint.
const DefaultResendURL = "https://api.resend.com/emails"

// resendClient is the concrete Sender backed by the Resend API.
type resendClient struct {
	apiKey     string
	fromAddr   string // e.g. "reminders@giftgenius.app"
	fromName   string // e.g. "Gift Genius"
	baseURL    string // app URL linked from the email, e.g. "https://giftgenius.app"
	apiURL     string
	httpClient *http.Client
}

// Option customises the Resend client.
type Option func(*resendClient)

// WithAPIURL overrides the Resend endpoint. Used by tests.
func WithAPIURL(u string) Option {
	return func(c *resendClient) { c.apiURL = u }
}

// NewResendClient returns a Sender that delivers email via Resend.
func NewResendClient(apiKey, fromAddr, fromName, baseURL string, opts ...Option) Sender {
	c := &resendClient{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiURL:   DefaultResendURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Name       string `json:"name"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

// SendBirthdayReminder sends the upcoming-birthday email with any gift
// suggestions.
func (c *resendClient) SendBirthdayReminder(ctx context.Context, p BirthdayReminderParams) error {
	if p.To == "" {
		return fmt.Errorf("email: reminder for %s has no recipient", p.PersonaName)
	}
	return c.send(ctx, p.To, p.Subject(), reminderHTML(p, c.baseURL), reminderText(p))
}

// ─── HTTP SEND ────────────────────────────────────────────────────────────────

func (c *resendClient) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	from := fmt.Sprintf("%s <%s>", c.fromName, c.fromAddr)

	reqBody := resendRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("email: read response: %w", err)
	}

	var parsed resendResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return fmt.Errorf("email: unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if parsed.Error != nil {
		return fmt.Errorf("email: Resend error %s: %s", parsed.Error.Name, parsed.Error.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	return nil
}

// ─── TEMPLATES ────────────────────────────────────────────────────────────────

func reminderText(p BirthdayReminderParams) string {
	lines := []string{
		"Hi there,",
		"",
		fmt.Sprintf("Reminder: %s's birthday is %s.", p.PersonaName, p.WhenText),
		"",
	}
	if p.LastGift != "" {
		lines = append(lines, "Last gift picked: "+p.LastGift, "")
	}
	if len(p.Suggestions) > 0 {
		lines = append(lines, "Here are a few gift ideas:")
		for _, s := range p.Suggestions {
			lines = append(lines, fmt.Sprintf("- %s: %s ($%.2f)", s.Label, s.Name, s.Price))
		}
		lines = append(lines, "")
	}
	lines = append(lines, "Open Gift Genius to see more gift suggestions.")
	return strings.Join(lines, "\n")
}

func reminderHTML(p BirthdayReminderParams, baseURL string) string {
	esc := html.EscapeString
	link := baseURL
	if link == "" {
		link = "#"
	}

	lastGift := ""
	if p.LastGift != "" {
		lastGift = fmt.Sprintf(`<p style="margin: 0 0 12px; color: #555;">Last gift picked: %s</p>`, esc(p.LastGift))
	}

	var cards strings.Builder
	if len(p.Suggestions) > 0 {
		cards.WriteString(`<p style="margin: 0 0 12px; color: #555;">Here are a few gift ideas:</p>`)
	}
	for _, s := range p.Suggestions {
		image := `<div style="height: 140px; background: #f5f5f5; text-align: center; line-height: 140px; font-size: 32px;">&#127873;</div>`
		if s.ImageURL != "" {
			image = fmt.Sprintf(`<img src="%s" alt="%s" style="display: block; width: 100%%; height: 140px; object-fit: cover;">`,
				esc(s.ImageURL), esc(s.Name))
		}
		fmt.Fprintf(&cards, `
  <table role="presentation" width="100%%" cellpadding="0" cellspacing="0"
         style="border: 1px solid #e6e6e6; border-radius: 10px; overflow: hidden; margin-bottom: 16px;">
    <tr><td>%s</td></tr>
    <tr>
      <td style="padding: 16px;">
        <span style="display: inline-block; background: #d4403b; color: #ffffff; padding: 4px 10px;
                     border-radius: 999px; font-size: 12px; font-weight: 600;">%s</span>
        <h3 style="margin: 10px 0 4px; font-size: 16px; color: #333;">%s</h3>
        <p style="margin: 0 0 8px; color: #d4403b; font-weight: 700;">$%.2f</p>
        <p style="margin: 0; color: #555; font-size: 13px; line-height: 1.4;">%s</p>
      </td>
    </tr>
  </table>`, image, esc(s.Label), esc(s.Name), s.Price, esc(s.Description))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="background: #f6f6f6; padding: 24px; font-family: Arial, Helvetica, sans-serif;">
<div style="max-width: 560px; margin: 0 auto; background: #ffffff; border: 1px solid #e6e6e6; border-radius: 12px; overflow: hidden;">
  <div style="background: #d4403b; color: #ffffff; padding: 20px 24px;">
    <h1 style="margin: 0; font-size: 20px;">Gift Genius Reminder</h1>
    <p style="margin: 8px 0 0; font-size: 14px;">Birthday coming up %s</p>
  </div>
  <div style="padding: 24px;">
    <p style="margin: 0 0 12px; color: #333; font-size: 16px;">Hi there,</p>
    <p style="margin: 0 0 12px; color: #555;">Reminder: %s's birthday is %s.</p>
    %s
    %s
    <p style="margin-top: 20px;">
      <a href="%s" style="display: inline-block; padding: 10px 16px; background: #d4403b; color: #ffffff;
                          text-decoration: none; border-radius: 6px; font-weight: 600;">View More Gift Ideas</a>
    </p>
  </div>
  <div style="padding: 16px 24px; background: #fafafa; color: #888; font-size: 12px;">
    You are receiving this reminder because email reminders are enabled in Gift Genius.
  </div>
</div>
</body>
</html>`, esc(p.WhenText), esc(p.PersonaName), esc(p.WhenText), lastGift, cards.String(), esc(link))
}
