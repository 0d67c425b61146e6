// Package generator produces interview-style questions via the language
// model and persists every generated question for auditing.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/llm"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/llm/prompts"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/model"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/pipeline"
)

// ErrGenerationFailed means all generation attempts, including fallbacks,
// were exhausted without producing a valid question.
var ErrGenerationFailed = errors.New("question generation failed")

// QuestionStore persists generated questions.
type QuestionStore interface {
	SaveQuestion(q model.SavedQuestion) error
}

// Config holds generator settings.
type Config struct {
	MaxRetries int
	Model      string // optional override for the generation stage
}

// Generator builds category-specific prompts and turns model output into
// validated question payloads.
type Generator struct {
	gateway llm.Completer
	pipe    *pipeline.Runner // nil disables the pipeline path
	store   QuestionStore
	cfg     Config
}

// New creates a question generator. pipe may be nil, in which case only
// the direct single-call path is used.
func New(gateway llm.Completer, pipe *pipeline.Runner, store QuestionStore, cfg Config) *Generator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Generator{gateway: gateway, pipe: pipe, store: store, cfg: cfg}
}

// Generate produces one question for the given parameters. history carries
// the texts of previously asked questions so the model does not repeat
// them. The question is persisted before it is returned.
func (g *Generator) Generate(ctx context.Context, topic string, difficulty model.Difficulty, modality model.Modality, category model.Category, history []string) (model.QuestionPayload, error) {
	prompt, err := prompts.Question(category, modality, topic, difficulty, history)
	if err != nil {
		return model.QuestionPayload{}, err
	}

	payload, err := g.viaPipeline(ctx, prompt, modality)
	if err != nil {
		if g.pipe != nil {
			slog.Warn("pipeline question generation failed, using direct fallback", "error", err)
		}
		payload, err = g.direct(ctx, prompt, modality)
		if err != nil {
			return model.QuestionPayload{}, err
		}
	}

	saved := model.SavedQuestion{
		ID:            uuid.NewString(),
		Topic:         topic,
		Difficulty:    difficulty,
		Modality:      modality,
		Category:      category,
		QuestionText:  payload.QuestionText,
		CorrectAnswer: payload.CorrectAnswer,
		Explanation:   payload.Explanation,
		Options:       payload.Options,
		CodeSnippet:   payload.CodeSnippet,
		CreatedAt:     time.Now().UTC(),
	}
	if err := g.store.SaveQuestion(saved); err != nil {
		return model.QuestionPayload{}, fmt.Errorf("save generated question: %w", err)
	}

	return payload, nil
}

func (g *Generator) viaPipeline(ctx context.Context, prompt string, modality model.Modality) (model.QuestionPayload, error) {
	if g.pipe == nil {
		return model.QuestionPayload{}, errors.New("pipeline disabled")
	}
	out, err := g.pipe.Run(ctx, []pipeline.Stage{{
		Name:        "generate",
		System:      prompts.GeneratorSystem,
		Model:       g.cfg.Model,
		Temperature: 0.7,
		Prompt: func(map[string]map[string]any) (string, error) {
			return prompt, nil
		},
	}})
	if err != nil {
		return model.QuestionPayload{}, err
	}
	fields := out["generate"]
	if fields == nil {
		return model.QuestionPayload{}, llm.ErrMalformedOutput
	}
	return payloadFrom(fields, modality)
}

// direct is the single-call fallback path: each attempt re-extracts and
// re-validates; a validation failure counts as a retry.
func (g *Generator) direct(ctx context.Context, prompt string, modality model.Modality) (model.QuestionPayload, error) {
	for attempt := 1; attempt <= g.cfg.MaxRetries; attempt++ {
		raw, err := g.gateway.Complete(ctx, llm.Request{
			Prompt:      prompt,
			System:      prompts.GeneratorSystem,
			Model:       g.cfg.Model,
			Temperature: 0.7,
		})
		if err != nil {
			slog.Warn("direct generation attempt failed", "attempt", attempt, "error", err)
			continue
		}
		fields, err := llm.Extract(raw)
		if err != nil {
			slog.Warn("generation output not parseable", "attempt", attempt, "error", err)
			continue
		}
		payload, err := payloadFrom(fields, modality)
		if err != nil {
			slog.Warn("generated question invalid", "attempt", attempt, "error", err)
			continue
		}
		return payload, nil
	}
	return model.QuestionPayload{}, fmt.Errorf("%w after %d attempts", ErrGenerationFailed, g.cfg.MaxRetries)
}

// payloadFrom validates extracted fields and converts them into a payload.
func payloadFrom(fields map[string]any, modality model.Modality) (model.QuestionPayload, error) {
	p := model.QuestionPayload{
		QuestionText:  stringField(fields, "question_text"),
		CorrectAnswer: stringField(fields, "correct_answer"),
		Explanation:   stringField(fields, "explanation"),
		CodeSnippet:   stringField(fields, "code_snippet"),
	}
	if strings.TrimSpace(p.QuestionText) == "" {
		return model.QuestionPayload{}, errors.New("missing question_text")
	}
	if strings.TrimSpace(p.CorrectAnswer) == "" {
		return model.QuestionPayload{}, errors.New("missing correct_answer")
	}
	if modality == model.ModalityMultipleChoice {
		opts, ok := fields["options"].(map[string]any)
		if !ok {
			return model.QuestionPayload{}, errors.New("missing options")
		}
		p.Options = make(map[string]string, len(opts))
		for k, v := range opts {
			if s, ok := v.(string); ok {
				p.Options[strings.ToUpper(strings.TrimSpace(k))] = s
			}
		}
		// The choice prompt demands exactly four options labeled A-D.
		if len(p.Options) != 4 {
			return model.QuestionPayload{}, fmt.Errorf("got %d options, want 4", len(p.Options))
		}
		for _, label := range []string{"A", "B", "C", "D"} {
			if strings.TrimSpace(p.Options[label]) == "" {
				return model.QuestionPayload{}, fmt.Errorf("missing option %s", label)
			}
		}
	}
	return p, nil
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}
