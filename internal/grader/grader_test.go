package grader

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/llm"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/model"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/pipeline"
)

// scriptedCompleter returns its responses in order; a nil entry means the
// call fails.
type scriptedCompleter struct {
	responses []string
	errs      []error
	prompts   []string
	calls     int
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, req.Prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no more scripted responses")
}

var mcqOptions = map[string]string{
	"A": "a list", "B": "a tuple", "C": "a dict", "D": "a set",
}

func TestGradeChoiceCorrect(t *testing.T) {
	g := New(&scriptedCompleter{}, nil, Config{})
	got := g.Grade(context.Background(), "Which type is immutable?", "B", "b", model.ModalityMultipleChoice, mcqOptions)

	if got.Score != 10.0 {
		t.Errorf("Score = %v, want 10.0", got.Score)
	}
	if got.GradeLetter != "A" {
		t.Errorf("GradeLetter = %q, want A", got.GradeLetter)
	}
	if !got.Passed {
		t.Error("correct choice should pass")
	}
	if got.Feedback != "Correct!" {
		t.Errorf("Feedback = %q", got.Feedback)
	}
}

func TestGradeChoiceIncorrect(t *testing.T) {
	g := New(&scriptedCompleter{}, nil, Config{})
	got := g.Grade(context.Background(), "Which type is immutable?", "B", "D", model.ModalityMultipleChoice, mcqOptions)

	if got.Score != 0.0 {
		t.Errorf("Score = %v, want 0.0", got.Score)
	}
	if got.GradeLetter != "F" {
		t.Errorf("GradeLetter = %q, want F", got.GradeLetter)
	}
	if got.Passed {
		t.Error("wrong choice should not pass")
	}
	if len(got.Mistakes) != 1 || got.Mistakes[0].Type != "incorrect" {
		t.Errorf("Mistakes = %+v", got.Mistakes)
	}
	if !strings.Contains(got.Feedback, "B") {
		t.Errorf("Feedback should name the correct label, got %q", got.Feedback)
	}
}

func TestGradeChoiceScoreIgnoresModel(t *testing.T) {
	// Even when the feedback pipeline runs, the model must not change the
	// deterministic score.
	sc := &scriptedCompleter{responses: []string{
		`{"feedback": "Nice pick.", "score": 2.0}`,
		`{"encouragement": "Keep it up!"}`,
	}}
	g := New(sc, pipeline.New(sc), Config{})
	got := g.Grade(context.Background(), "q", "A", "A", model.ModalityMultipleChoice, mcqOptions)

	if got.Score != 10.0 {
		t.Errorf("Score = %v, want 10.0", got.Score)
	}
	if got.Feedback != "Nice pick." {
		t.Errorf("Feedback = %q, want model feedback", got.Feedback)
	}
	if got.Encouragement != "Keep it up!" {
		t.Errorf("Encouragement = %q", got.Encouragement)
	}
}

func TestGradeWrittenStagedPipeline(t *testing.T) {
	sc := &scriptedCompleter{responses: []string{
		`{"score": 8.5, "grade_letter": "B"}`,
		`{"feedback": "Good coverage of the basics.", "strengths": ["clear"], "mistakes": []}`,
		`{"encouragement": "Well done!"}`,
	}}
	g := New(sc, pipeline.New(sc), Config{})
	got := g.Grade(context.Background(), "q", "correct", "student", model.ModalityWritten, nil)

	if got.Score != 8.5 {
		t.Errorf("Score = %v, want 8.5", got.Score)
	}
	if got.GradeLetter != "B" {
		t.Errorf("GradeLetter = %q, want B", got.GradeLetter)
	}
	if !got.Passed {
		t.Error("8.5 should pass")
	}
	if got.Feedback != "Good coverage of the basics." {
		t.Errorf("Feedback = %q", got.Feedback)
	}
	if len(got.Strengths) != 1 || got.Strengths[0] != "clear" {
		t.Errorf("Strengths = %v", got.Strengths)
	}
	if got.Encouragement != "Well done!" {
		t.Errorf("Encouragement = %q", got.Encouragement)
	}
	if sc.calls != 3 {
		t.Errorf("expected 3 stage calls, got %d", sc.calls)
	}
}

func TestGradeWrittenStageParseFailureUsesDefaults(t *testing.T) {
	// Score stage output is garbage: score defaults to 5.0 / C, later
	// stages still run.
	sc := &scriptedCompleter{responses: []string{
		"not json at all",
		`{"feedback": "partial"}`,
		`{"encouragement": "onward"}`,
	}}
	g := New(sc, pipeline.New(sc), Config{})
	got := g.Grade(context.Background(), "q", "correct", "student", model.ModalityWritten, nil)

	if got.Score != 5.0 {
		t.Errorf("Score = %v, want default 5.0", got.Score)
	}
	if got.GradeLetter != "C" {
		t.Errorf("GradeLetter = %q, want C", got.GradeLetter)
	}
	if !got.Passed {
		t.Error("default score should pass")
	}
	if got.Feedback != "partial" {
		t.Errorf("Feedback = %q", got.Feedback)
	}
}

func TestGradeWrittenSinglePromptFallback(t *testing.T) {
	// Pipeline disabled: the single-prompt path grades directly.
	sc := &scriptedCompleter{responses: []string{
		`{"score": 6.0, "feedback": "decent", "passed": false}`,
	}}
	g := New(sc, nil, Config{})
	got := g.Grade(context.Background(), "q", "correct", "student", model.ModalityWritten, nil)

	if got.Score != 6.0 {
		t.Errorf("Score = %v, want 6.0", got.Score)
	}
	// Passed is recomputed from the score, not taken from the model.
	if !got.Passed {
		t.Error("6.0 should pass regardless of the model's passed field")
	}
	if got.GradeLetter != "C" {
		t.Errorf("GradeLetter = %q, want C", got.GradeLetter)
	}
}

func TestGradeWrittenSinglePromptRetries(t *testing.T) {
	sc := &scriptedCompleter{responses: []string{
		"sorry, I cannot grade this",
		`{"no_score_here": true}`,
		`{"score": 4.0}`,
	}}
	g := New(sc, nil, Config{MaxRetries: 3})
	got := g.Grade(context.Background(), "q", "correct", "student", model.ModalityWritten, nil)

	if got.Score != 4.0 {
		t.Errorf("Score = %v, want 4.0", got.Score)
	}
	if got.Passed {
		t.Error("4.0 should not pass")
	}
	if sc.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", sc.calls)
	}
	// Attempt 2 carries the format reminder; attempt 3 uses the simplified
	// prompt.
	if !strings.Contains(sc.prompts[1], "not valid JSON") {
		t.Error("second attempt should carry the retry notice")
	}
	if strings.Contains(sc.prompts[2], "not valid JSON") {
		t.Error("third attempt should use the simplified prompt, not the retry notice")
	}
}

func TestGradeWrittenSimilarityFallback(t *testing.T) {
	sc := &scriptedCompleter{errs: []error{
		llm.ErrUnavailable, llm.ErrUnavailable, llm.ErrUnavailable,
	}}
	g := New(sc, nil, Config{MaxRetries: 3})
	got := g.Grade(context.Background(), "q", "a b c d", "a b", model.ModalityWritten, nil)

	// Jaccard: |{a,b}| / |{a,b,c,d}| = 0.5, scaled to 5.0.
	if got.Score != 5.0 {
		t.Errorf("Score = %v, want 5.0", got.Score)
	}
	if !got.Passed {
		t.Error("5.0 should pass")
	}
	if got.GradeLetter != "C" {
		t.Errorf("GradeLetter = %q, want C", got.GradeLetter)
	}
	if !strings.Contains(got.Feedback, "5.0/10") {
		t.Errorf("Feedback = %q", got.Feedback)
	}
}

func TestGradeClampsModelScore(t *testing.T) {
	sc := &scriptedCompleter{responses: []string{`{"score": 15.0}`}}
	g := New(sc, nil, Config{})
	got := g.Grade(context.Background(), "q", "correct", "student", model.ModalityWritten, nil)
	if got.Score != 10.0 {
		t.Errorf("Score = %v, want clamped 10.0", got.Score)
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"a b", "", 0.0},
		{"a b c", "a b c", 1.0},
		{"a b c d", "c d e f", 1.0 / 3.0},
		{"Hello World", "hello world", 1.0},
	}
	for _, tt := range tests {
		got := jaccard(tt.a, tt.b)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("jaccard(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
