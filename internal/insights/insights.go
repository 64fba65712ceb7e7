// Package insights turns monthly activity aggregates into short
// natural-language insight strings using an external text-generation model.
// The model is opaque and unreliable; callers should wrap generators with
// Fallback so report generation is never blocked on it.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MonthlyStats holds one user's aggregated activity for a calendar month.
// ByAssetName sums BUY amounts per asset.
type MonthlyStats struct {
	TotalBuy         decimal.Decimal
	TotalSell        decimal.Decimal
	TransactionCount int
	ByAssetName      map[string]decimal.Decimal
}

// TextGenerator is the opaque text-generation collaborator. It may fail or
// return malformed content; callers must tolerate both.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator produces insight strings for a month of activity.
type Generator interface {
	MonthlyInsights(ctx context.Context, stats MonthlyStats, month string) ([]string, error)
}

// modelGenerator prompts a TextGenerator and parses its JSON response.
type modelGenerator struct {
	gen TextGenerator
}

// NewGenerator creates a Generator backed by the given text model.
func NewGenerator(gen TextGenerator) Generator {
	return &modelGenerator{gen: gen}
}

// MonthlyInsights asks the model for three insight strings.
func (g *modelGenerator) MonthlyInsights(ctx context.Context, stats MonthlyStats, month string) ([]string, error) {
	raw, err := g.gen.Generate(ctx, buildPrompt(stats, month))
	if err != nil {
		return nil, fmt.Errorf("generate insights: %w", err)
	}

	var parsed []string
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse insights response: %w", err)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("model returned no insights")
	}
	return parsed, nil
}

func buildPrompt(stats MonthlyStats, month string) string {
	assets := make([]string, 0, len(stats.ByAssetName))
	for name, amount := range stats.ByAssetName {
		assets = append(assets, fmt.Sprintf("%s: %s", name, amount.StringFixed(2)))
	}

	return fmt.Sprintf(`You are an intelligent financial assistant.

Analyze the user's investment activity for %s and generate 3 clear, friendly, and actionable insights based on the following data:

- Total Buy Amount (money spent on investments): %s
- Total Sell Amount (money earned from sales): %s
- Number of Transactions: %d
- Asset Breakdown: %s

Focus on identifying useful patterns (e.g., over-concentration in one asset, frequent buys without selling, or vice versa), suggest risk balancing or diversification if needed, and keep the tone helpful and easy to understand.

Respond only with a JSON array of strings like:
["insight 1", "insight 2", "insight 3"]`,
		month, stats.TotalBuy.StringFixed(2), stats.TotalSell.StringFixed(2),
		stats.TransactionCount, strings.Join(assets, ", "))
}

// cleanModelJSON strips Markdown code fences and surrounding junk that
// models emit despite instructions, keeping the outermost JSON array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

// fallbackInsights are used whenever the model is unavailable or returns
// content we cannot parse, so reports are never blocked on it.
var fallbackInsights = []string{
	"Diversifying your investments across different asset types can help reduce risk and improve long-term returns.",
	"Review your portfolio regularly to ensure it aligns with your financial goals and risk tolerance.",
	"Consider setting up automatic recurring investments to build wealth steadily over time.",
}

// disabledGenerator always fails; wrap it with Fallback when no model is
// configured so reports still carry the static insights.
type disabledGenerator struct{}

// Disabled returns a Generator for deployments without a text model.
func Disabled() Generator {
	return disabledGenerator{}
}

func (disabledGenerator) MonthlyInsights(context.Context, MonthlyStats, string) ([]string, error) {
	return nil, fmt.Errorf("insight generation disabled")
}

// fallbackGenerator decorates a Generator with static fallback insights.
type fallbackGenerator struct {
	inner Generator
}

// Fallback wraps a Generator so that any failure yields three static
// insights instead of an error.
func Fallback(inner Generator) Generator {
	return &fallbackGenerator{inner: inner}
}

// MonthlyInsights delegates to the wrapped generator and substitutes the
// static insights on any failure.
func (f *fallbackGenerator) MonthlyInsights(ctx context.Context, stats MonthlyStats, month string) ([]string, error) {
	result, err := f.inner.MonthlyInsights(ctx, stats, month)
	if err != nil {
		out := make([]string, len(fallbackInsights))
		copy(out, fallbackInsights)
		return out, nil
	}
	return result, nil
}
