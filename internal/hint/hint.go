// Package hint generates escalating hints and defines the score penalty
// hints carry.
package hint

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/llm"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/llm/prompts"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/model"
)

const (
	// PenaltyPerHint is the fractional score deduction per hint taken.
	PenaltyPerHint = 0.15
	// MaxPerQuestion is the hint cap per question.
	MaxPerQuestion = 3
)

// Penalty returns the total fractional deduction for the given number of
// hints, capped at MaxPerQuestion hints.
func Penalty(hintsIssued int) float64 {
	if hintsIssued > MaxPerQuestion {
		hintsIssued = MaxPerQuestion
	}
	if hintsIssued < 0 {
		hintsIssued = 0
	}
	return float64(hintsIssued) * PenaltyPerHint
}

// ApplyPenalty reduces a raw score by the hint penalty, rounding to one
// decimal place.
func ApplyPenalty(rawScore float64, hintsIssued int) float64 {
	factor := math.Max(0, 1-Penalty(hintsIssued))
	return model.Round1(rawScore * factor)
}

// Generator produces hint text for pending questions.
type Generator struct {
	gateway llm.Completer
	model   string // optional override of the gateway's default model
}

// New creates a hint generator.
func New(gateway llm.Completer, modelName string) *Generator {
	return &Generator{gateway: gateway, model: modelName}
}

// Hint returns hint text for the given question. It never fails: when the
// model is unreachable or its output is empty, a fixed generic hint for
// the hint number is returned instead.
func (g *Generator) Hint(ctx context.Context, questionText string, category model.Category, hintNumber int, codeSnippet string) string {
	prompt, err := prompts.Hint(questionText, category, hintNumber, codeSnippet)
	if err != nil {
		slog.Warn("hint prompt build failed, using fallback", "error", err)
		return prompts.FallbackHint(hintNumber)
	}

	raw, err := g.gateway.Complete(ctx, llm.Request{
		Prompt:      prompt,
		Model:       g.model,
		Temperature: 0.7,
	})
	if err != nil {
		slog.Warn("hint generation failed, using fallback", "hint_number", hintNumber, "error", err)
		return prompts.FallbackHint(hintNumber)
	}

	// Models sometimes wrap the hint in a JSON object despite instructions.
	if fields, err := llm.Extract(raw); err == nil {
		if s, ok := fields["hint"].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	if text := strings.TrimSpace(raw); text != "" {
		return text
	}
	return prompts.FallbackHint(hintNumber)
}
