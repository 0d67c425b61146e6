// Package pipeline runs a fixed, ordered sequence of completion stages
// where each stage's prompt may depend on the parsed output of the stages
// before it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/llm"
)

// Stage describes one step of a sequential completion pipeline. Prompt
// receives the parsed outputs of all prior stages keyed by stage name; a
// stage whose output could not be parsed maps to nil.
type Stage struct {
	Name        string
	System      string
	Model       string
	Temperature float32
	Prompt      func(prior map[string]map[string]any) (string, error)
}

// Runner executes stages strictly in order against a completion gateway.
type Runner struct {
	gateway llm.Completer
}

// New creates a pipeline runner.
func New(gateway llm.Completer) *Runner {
	return &Runner{gateway: gateway}
}

// Run executes the stages sequentially and returns their parsed outputs
// keyed by stage name.
//
// A completion failure aborts the whole run so the caller can fall back to
// a cheaper strategy. A parse failure does not: the stage's output is
// recorded as nil and later stages (and the caller) substitute defaults.
func (r *Runner) Run(ctx context.Context, stages []Stage) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, len(stages))
	for _, st := range stages {
		prompt, err := st.Prompt(out)
		if err != nil {
			return nil, fmt.Errorf("build %s stage prompt: %w", st.Name, err)
		}
		raw, err := r.gateway.Complete(ctx, llm.Request{
			Prompt:      prompt,
			System:      st.System,
			Model:       st.Model,
			Temperature: st.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("%s stage: %w", st.Name, err)
		}
		fields, err := llm.Extract(raw)
		if err != nil {
			slog.Warn("stage output not parseable, leaving defaults", "stage", st.Name, "error", err)
			out[st.Name] = nil
			continue
		}
		out[st.Name] = fields
	}
	return out, nil
}
