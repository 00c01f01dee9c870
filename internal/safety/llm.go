package safety

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/nyashahama/gift-genius-backend/internal/ai"
	"github.com/nyashahama/gift-genius-backend/internal/gift"
)

// promptDescriptionChars caps each product description sent to the model.
const promptDescriptionChars = 150

// LLMValidator asks a text generator for a strict JSON verdict per product.
type LLMValidator struct {
	gen ai.Generator
}

// NewLLMValidator returns a Validator backed by gen.
func NewLLMValidator(gen ai.Generator) *LLMValidator {
	return &LLMValidator{gen: gen}
}

// ─── RESPONSE JSON ────────────────────────────────────────────────────────────
// Pointers distinguish a missing field from its zero value; a response
// missing validations or a reject flag is rejected as non-conforming.

type validationsJSON struct {
	Validations *[]validationJSON `json:"validations"`
}

type validationJSON struct {
	ProductID json.RawMessage `json:"product_id"`
	Reject    *bool           `json:"reject"`
	Reason    *string         `json:"reason"`
}

type promptProduct struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// Validate sends one JSON-mode request covering every product.
func (v *LLMValidator) Validate(ctx context.Context, products []gift.Product, c Constraints, pool string) ([]Decision, error) {
	prompt, err := buildPrompt(products, c, pool)
	if err != nil {
		return nil, err
	}

	raw, err := v.gen.Generate(ctx, ai.Request{
		Prompt:      prompt,
		JSON:        true,
		Temperature: ai.TemperatureJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("safety: generate: %w", err)
	}

	return parseDecisions(ai.StripFences(raw))
}

func parseDecisions(raw string) ([]Decision, error) {
	var parsed validationsJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("safety: parse response JSON: %w (raw: %.200s)", err, raw)
	}
	if parsed.Validations == nil {
		return nil, errors.New("safety: response missing validations")
	}

	out := make([]Decision, 0, len(*parsed.Validations))
	for i, v := range *parsed.Validations {
		id, err := decodeID(v.ProductID)
		if err != nil {
			return nil, fmt.Errorf("safety: validations[%d].product_id: %w", i, err)
		}
		if v.Reject == nil {
			return nil, fmt.Errorf("safety: validations[%d] missing reject", i)
		}
		d := Decision{ProductID: id, Reject: *v.Reject}
		if v.Reason != nil {
			d.Reason = *v.Reason
		}
		out = append(out, d)
	}
	return out, nil
}

// decodeID accepts a string or a bare number; models echo numeric-looking
// ids either way.
func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("missing")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func buildPrompt(products []gift.Product, c Constraints, pool string) (string, error) {
	items := make([]promptProduct, len(products))
	for i, p := range products {
		items[i] = promptProduct{
			ProductID:   p.ID,
			Name:        p.Name,
			Description: truncate(p.Description, promptDescriptionChars),
		}
	}
	listing, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("safety: marshal products: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are a safety validator for a gift recommendation system.\n")
	sb.WriteString("Identify products that should be REJECTED based on the recipient's restrictions.\n\n")
	sb.WriteString("RECIPIENT RESTRICTIONS:\n")
	fmt.Fprintf(&sb, "- HATES: %s\n", joinOr(c.Hates, "nothing specified"))
	fmt.Fprintf(&sb, "- ALLERGIES: %s\n", joinOr(c.Allergies, "none"))
	fmt.Fprintf(&sb, "- DIETARY: %s\n\n", joinOr(c.Dietary, "none"))
	fmt.Fprintf(&sb, "PRODUCTS TO VALIDATE (from %s):\n%s\n\n", pool, listing)
	sb.WriteString(`For each product, determine if it should be REJECTED.

REJECTION CRITERIA:
1. Contains hated items (exact or obvious variants)
   - If hates "nuts", reject products with almonds/peanuts/cashews
   - BUT: "nut-free" should NOT be rejected (negation)

2. Contains allergens (be very careful)
   - Look for explicit mentions AND hidden sources
   - Example: dairy allergy → reject "cream", "butter", "milk chocolate"

3. Violates dietary restrictions
   - Vegan → reject dairy, eggs, honey
   - Gluten-free → reject wheat, flour

IMPORTANT:
- Be conservative (when in doubt, don't reject)
- Understand negation: "nut-free" is SAFE for nut allergies
- Only reject if confident
- Provide clear reasoning

Return ONLY a JSON object:
{
  "validations": [
    {"product_id": "product_id", "reject": true/false, "reason": "explanation or null"}
  ]
}
`)
	return sb.String(), nil
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
