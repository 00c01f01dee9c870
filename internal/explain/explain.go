// Package explain writes the short natural-language justification shown
// with each pick.
package explain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nyashahama/gift-genius-backend/internal/ai"
	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/metrics"
)

// promptDescriptionChars caps the product description included in a prompt.
const promptDescriptionChars = 200

// Explainer generates explanations with a text generator and falls back to
// a fixed template when generation fails or returns nothing.
type Explainer struct {
	gen     ai.Generator
	logger  *slog.Logger
	metrics *metrics.Collectors
}

// New returns an Explainer. gen may be nil, in which case every explanation
// uses the template. m may be nil.
func New(gen ai.Generator, logger *slog.Logger, m *metrics.Collectors) *Explainer {
	return &Explainer{gen: gen, logger: logger, metrics: m}
}

// Fill sets the explanation of every pick, in order: best match, safe bet,
// unique. Calls are sequential.
func (e *Explainer) Fill(ctx context.Context, picks *gift.Picks, profile gift.Profile) {
	for _, rec := range picks.All() {
		rec.Explanation = e.Explain(ctx, *rec, profile)
	}
}

// Explain returns an explanation for rec. It never fails.
func (e *Explainer) Explain(ctx context.Context, rec gift.Recommendation, profile gift.Profile) string {
	if e.gen == nil {
		e.metrics.ExplanationFallback(string(rec.Category))
		return Template(rec, profile)
	}

	out, err := e.gen.Generate(ctx, ai.Request{
		Prompt:      Prompt(rec, profile),
		Temperature: ai.TemperatureProse,
		MaxTokens:   300,
	})
	out = strings.TrimSpace(out)
	if err != nil || out == "" {
		e.logger.Warn("explain: generation failed, using template",
			"category", rec.Category,
			"product_id", rec.Product.ID,
			"error", err,
		)
		e.metrics.ExplanationFallback(string(rec.Category))
		return Template(rec, profile)
	}
	return out
}

// Template is the fixed one-sentence explanation per category.
func Template(rec gift.Recommendation, profile gift.Profile) string {
	name := profile.NameOrThem()
	switch rec.Category {
	case gift.CategoryBestMatch:
		return fmt.Sprintf("This %s is a great match for %s's preferences!", rec.Product.Name, name)
	case gift.CategorySafeBet:
		return fmt.Sprintf("This %s is a reliable choice for %s that's popular with many customers.", rec.Product.Name, name)
	default:
		return fmt.Sprintf("This %s is a unique option we think %s will love!", rec.Product.Name, name)
	}
}

// Prompt builds the category-specific generation prompt.
func Prompt(rec gift.Recommendation, profile gift.Profile) string {
	name := profile.NameOrThem()
	category := strings.ReplaceAll(string(rec.Category), "_", " ")

	var sb strings.Builder
	sb.WriteString("You are explaining why a product was recommended as a gift.\n\n")
	fmt.Fprintf(&sb, "CATEGORY: %s\n\n", categoryContext(rec.Category, name))
	sb.WriteString("PRODUCT:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", rec.Product.Name)
	fmt.Fprintf(&sb, "- Price: $%.2f\n", rec.Product.Price)
	fmt.Fprintf(&sb, "- Description: %s\n\n", truncate(rec.Product.Description, promptDescriptionChars))
	fmt.Fprintf(&sb, "RECIPIENT (%s):\n", name)
	fmt.Fprintf(&sb, "- Loves: %s\n", joinOr(profile.Loves, "not specified"))
	fmt.Fprintf(&sb, "- Hates: %s\n", joinOr(profile.Hates, "not specified"))
	fmt.Fprintf(&sb, "- Description: %s\n\n", orDefault(profile.Description, "not provided"))
	sb.WriteString("SCORING BREAKDOWN:\n")
	for _, line := range rec.BreakdownText() {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "\nWrite a natural, friendly 2-3 sentence explanation of why this product is a great %s.\n\n", category)
	sb.WriteString("Rules:\n")
	sb.WriteString("1. ONLY mention details that appear in the product description\n")
	sb.WriteString("2. Reference specific items from their loves/hates if relevant\n")
	sb.WriteString("3. Keep it concise and conversational\n")
	fmt.Fprintf(&sb, "4. Use %s's name\n", name)
	sb.WriteString("5. Don't mention any score or number from the breakdown\n\n")
	sb.WriteString("Generate explanation:")
	return sb.String()
}

func categoryContext(c gift.Category, name string) string {
	switch c {
	case gift.CategoryBestMatch:
		return fmt.Sprintf("This is the BEST MATCH because it aligns with %s's explicit preferences.", name)
	case gift.CategorySafeBet:
		return fmt.Sprintf("This is a SAFE BET - a popular, well-reviewed choice that %s will likely enjoy.", name)
	default:
		return fmt.Sprintf("This is SOMETHING UNIQUE - a creative choice based on %s's lifestyle and personality.", name)
	}
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
