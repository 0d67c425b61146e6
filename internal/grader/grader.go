// Package grader assesses student answers. Multiple-choice answers are
// graded deterministically; written answers go through a tiered strategy
// that degrades from a multi-stage pipeline down to lexical similarity so
// that grading itself never fails.
package grader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/llm"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/llm/prompts"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/model"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/pipeline"
)

// Config holds grader settings. The per-stage models are optional
// overrides of the gateway's default.
type Config struct {
	MaxRetries    int
	ScoreModel    string
	FeedbackModel string
	ReviewModel   string
}

// Grader evaluates student answers against the stored correct answer.
type Grader struct {
	gateway llm.Completer
	pipe    *pipeline.Runner // nil disables the pipeline tier
	cfg     Config
}

// New creates a grader. pipe may be nil.
func New(gateway llm.Completer, pipe *pipeline.Runner, cfg Config) *Grader {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Grader{gateway: gateway, pipe: pipe, cfg: cfg}
}

// Grade evaluates an answer and always returns a usable result: when every
// model-backed tier fails, the result comes from lexical similarity.
// Passed is recomputed from the final score regardless of what any tier
// claimed.
func (g *Grader) Grade(ctx context.Context, question, correctAnswer, studentAnswer string, modality model.Modality, options map[string]string) model.GradeResult {
	var result model.GradeResult
	if modality == model.ModalityMultipleChoice {
		result = g.gradeChoice(ctx, question, correctAnswer, studentAnswer, options)
	} else {
		result = g.gradeWritten(ctx, question, correctAnswer, studentAnswer)
	}

	result.Score = model.ClampScore(result.Score)
	result.MaxScore = 10
	result.Passed = result.Score >= 5.0
	if result.GradeLetter == "" {
		result.GradeLetter = model.LetterForScore(result.Score)
	}
	if result.Mistakes == nil {
		result.Mistakes = []model.Mistake{}
	}
	if result.Strengths == nil {
		result.Strengths = []string{}
	}
	if result.Recommendations == nil {
		result.Recommendations = []model.Recommendation{}
	}
	return result
}

// gradeChoice scores a multiple-choice answer by label comparison. The
// score never depends on the model; the pipeline only enriches the
// feedback text when it succeeds.
func (g *Grader) gradeChoice(ctx context.Context, question, correctAnswer, studentAnswer string, options map[string]string) model.GradeResult {
	correct := strings.ToUpper(strings.TrimSpace(correctAnswer))
	student := strings.ToUpper(strings.TrimSpace(studentAnswer))
	matched := correct != "" && strings.EqualFold(correct, student)

	var result model.GradeResult
	if matched {
		result = model.GradeResult{
			Score:         10.0,
			MaxScore:      10,
			GradeLetter:   "A",
			Passed:        true,
			Feedback:      "Correct!",
			Strengths:     []string{"Correct answer selected"},
			Mistakes:      []model.Mistake{},
			Encouragement: "Great job!",
		}
	} else {
		result = model.GradeResult{
			Score:       0.0,
			MaxScore:    10,
			GradeLetter: "F",
			Passed:      false,
			Feedback:    fmt.Sprintf("The correct answer was %s.", correct),
			Strengths:   []string{},
			Mistakes: []model.Mistake{{
				Type:        "incorrect",
				Description: fmt.Sprintf("Selected %s instead of %s", student, correct),
			}},
			Encouragement: "Keep studying, you'll get it next time!",
		}
	}

	if g.pipe == nil {
		return result
	}

	out, err := g.pipe.Run(ctx, []pipeline.Stage{
		{
			Name:        "feedback",
			Model:       g.cfg.FeedbackModel,
			Temperature: 0.5,
			Prompt: func(map[string]map[string]any) (string, error) {
				return prompts.FeedbackMCQ(question, options, correct, student, matched)
			},
		},
		{
			Name:        "review",
			Model:       g.cfg.ReviewModel,
			Temperature: 0.7,
			Prompt: func(prior map[string]map[string]any) (string, error) {
				feedback := result.Feedback
				if fb := stringField(prior["feedback"], "feedback"); fb != "" {
					feedback = fb
				}
				return prompts.Review(question, student, result.Score, result.GradeLetter, matched, feedback)
			},
		},
	})
	if err != nil {
		slog.Warn("choice feedback pipeline failed, keeping canned feedback", "error", err)
		return result
	}

	if fb := out["feedback"]; fb != nil {
		if s := stringField(fb, "feedback"); s != "" {
			result.Feedback = s
		}
		if m := mistakesField(fb); m != nil {
			result.Mistakes = m
		}
		if s := stringsField(fb, "strengths"); s != nil {
			result.Strengths = s
		}
		if r := recommendationsField(fb); r != nil {
			result.Recommendations = r
		}
	}
	if rv := out["review"]; rv != nil {
		if s := stringField(rv, "encouragement"); s != "" {
			result.Encouragement = s
		}
	}
	return result
}

// gradeWritten works through the tiers in order: staged pipeline, single
// prompt with retries, lexical similarity.
func (g *Grader) gradeWritten(ctx context.Context, question, correctAnswer, studentAnswer string) model.GradeResult {
	if g.pipe != nil {
		result, err := g.staged(ctx, question, correctAnswer, studentAnswer)
		if err == nil {
			return result
		}
		slog.Warn("staged grading failed, trying single prompt", "error", err)
	}

	result, err := g.singlePrompt(ctx, question, correctAnswer, studentAnswer)
	if err == nil {
		return result
	}
	slog.Warn("single-prompt grading failed, falling back to similarity", "error", err)

	return similarityResult(correctAnswer, studentAnswer)
}

// staged runs the score, feedback, and review stages. A stage whose output
// does not parse contributes defaults rather than failing the run.
func (g *Grader) staged(ctx context.Context, question, correctAnswer, studentAnswer string) (model.GradeResult, error) {
	out, err := g.pipe.Run(ctx, []pipeline.Stage{
		{
			Name:        "score",
			Model:       g.cfg.ScoreModel,
			Temperature: 0.2,
			Prompt: func(map[string]map[string]any) (string, error) {
				return prompts.ScoreStage(question, correctAnswer, studentAnswer)
			},
		},
		{
			Name:        "feedback",
			Model:       g.cfg.FeedbackModel,
			Temperature: 0.5,
			Prompt: func(prior map[string]map[string]any) (string, error) {
				score, letter := scoreFrom(prior["score"])
				return prompts.FeedbackWritten(question, correctAnswer, studentAnswer, score, letter)
			},
		},
		{
			Name:        "review",
			Model:       g.cfg.ReviewModel,
			Temperature: 0.7,
			Prompt: func(prior map[string]map[string]any) (string, error) {
				score, letter := scoreFrom(prior["score"])
				feedback := stringField(prior["feedback"], "feedback")
				return prompts.Review(question, studentAnswer, score, letter, score >= 5.0, feedback)
			},
		},
	})
	if err != nil {
		return model.GradeResult{}, err
	}

	result := model.DefaultGradeResult()
	score, letter := scoreFrom(out["score"])
	result.Score = score
	result.GradeLetter = letter

	if fb := out["feedback"]; fb != nil {
		if s := stringField(fb, "feedback"); s != "" {
			result.Feedback = s
		}
		if m := mistakesField(fb); m != nil {
			result.Mistakes = m
		}
		if s := stringsField(fb, "strengths"); s != nil {
			result.Strengths = s
		}
		if r := recommendationsField(fb); r != nil {
			result.Recommendations = r
		}
	}
	if rv := out["review"]; rv != nil {
		if s := stringField(rv, "encouragement"); s != "" {
			result.Encouragement = s
		}
	}
	return result, nil
}

// singlePrompt grades with one completion. The first retry re-sends the
// prompt with a format reminder; further retries use the simplified
// prompt.
func (g *Grader) singlePrompt(ctx context.Context, question, correctAnswer, studentAnswer string) (model.GradeResult, error) {
	base, err := prompts.SingleGrade(question, correctAnswer, studentAnswer)
	if err != nil {
		return model.GradeResult{}, err
	}

	var lastErr error
	for attempt := 0; attempt < g.cfg.MaxRetries; attempt++ {
		prompt := base
		switch {
		case attempt == 1:
			prompt = base + prompts.RetryNotice
		case attempt >= 2:
			prompt, err = prompts.SimplifiedGrade(question, correctAnswer, studentAnswer)
			if err != nil {
				return model.GradeResult{}, err
			}
		}

		raw, err := g.gateway.Complete(ctx, llm.Request{
			Prompt:      prompt,
			System:      prompts.SingleGradeSystem,
			Model:       g.cfg.ScoreModel,
			Temperature: 0.2,
		})
		if err != nil {
			lastErr = err
			slog.Warn("single-prompt grading attempt failed", "attempt", attempt, "error", err)
			continue
		}

		fields, err := llm.Extract(raw)
		if err != nil {
			lastErr = err
			slog.Warn("grading output not parseable", "attempt", attempt, "error", err)
			continue
		}
		if _, ok := numberField(fields, "score"); !ok {
			lastErr = fmt.Errorf("grading output missing score")
			slog.Warn("grading output missing score", "attempt", attempt)
			continue
		}
		return resultFrom(fields), nil
	}
	return model.GradeResult{}, fmt.Errorf("single-prompt grading exhausted %d attempts: %w", g.cfg.MaxRetries, lastErr)
}

// resultFrom builds a result from a parsed grading object, substituting
// defaults for anything missing.
func resultFrom(fields map[string]any) model.GradeResult {
	result := model.DefaultGradeResult()
	if score, ok := numberField(fields, "score"); ok {
		result.Score = model.ClampScore(score)
	}
	if letter := stringField(fields, "grade_letter"); letter != "" {
		result.GradeLetter = letter
	} else {
		result.GradeLetter = model.LetterForScore(result.Score)
	}
	if fb := stringField(fields, "feedback"); fb != "" {
		result.Feedback = fb
	}
	if enc := stringField(fields, "encouragement"); enc != "" {
		result.Encouragement = enc
	}
	if m := mistakesField(fields); m != nil {
		result.Mistakes = m
	}
	if s := stringsField(fields, "strengths"); s != nil {
		result.Strengths = s
	}
	if r := recommendationsField(fields); r != nil {
		result.Recommendations = r
	}
	return result
}

// similarityResult is the last-resort tier: Jaccard similarity between the
// token sets of the correct and student answers, scaled to 0-10.
func similarityResult(correctAnswer, studentAnswer string) model.GradeResult {
	score := model.Round1(jaccard(correctAnswer, studentAnswer) * 10)
	return model.GradeResult{
		Score:           score,
		MaxScore:        10,
		GradeLetter:     model.LetterForScore(score),
		Passed:          score >= 5.0,
		Mistakes:        []model.Mistake{},
		Strengths:       []string{},
		Feedback:        fmt.Sprintf("Your answer received a score of %.1f/10.", score),
		Recommendations: []model.Recommendation{},
		Encouragement:   "Keep learning and improving!",
	}
}

// jaccard computes |intersection| / |union| over lowercase whitespace
// tokens. Two empty answers count as identical.
func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}
	common := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			common++
		}
	}
	union := len(setA) + len(setB) - common
	return float64(common) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		set[tok] = struct{}{}
	}
	return set
}

// scoreFrom reads the scoring stage's output, defaulting to 5.0 / "C".
func scoreFrom(fields map[string]any) (float64, string) {
	score := 5.0
	if v, ok := numberField(fields, "score"); ok {
		score = model.ClampScore(v)
	}
	letter := stringField(fields, "grade_letter")
	if letter == "" {
		letter = model.LetterForScore(score)
	}
	return score, letter
}

func stringField(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	s, _ := fields[key].(string)
	return s
}

func numberField(fields map[string]any, key string) (float64, bool) {
	if fields == nil {
		return 0, false
	}
	switch v := fields[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func stringsField(fields map[string]any, key string) []string {
	items, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mistakesField(fields map[string]any) []model.Mistake {
	items, ok := fields["mistakes"].([]any)
	if !ok {
		return nil
	}
	out := make([]model.Mistake, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, model.Mistake{
			Type:        stringField(m, "type"),
			Description: stringField(m, "description"),
		})
	}
	return out
}

func recommendationsField(fields map[string]any) []model.Recommendation {
	items, ok := fields["recommendations"].([]any)
	if !ok {
		return nil
	}
	out := make([]model.Recommendation, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, model.Recommendation{
			Topic:        stringField(m, "topic"),
			Action:       stringField(m, "action"),
			ResourceType: stringField(m, "resource_type"),
		})
	}
	return out
}
