package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/llm"
)

type scriptedCompleter struct {
	responses []string
	errs      []error
	requests  []llm.Request
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no more scripted responses")
}

func TestRunPassesPriorOutputsForward(t *testing.T) {
	sc := &scriptedCompleter{responses: []string{
		`{"score": 7.0}`,
		`{"feedback": "ok"}`,
	}}
	r := New(sc)

	var seenScore float64
	out, err := r.Run(context.Background(), []Stage{
		{
			Name:   "score",
			Prompt: func(map[string]map[string]any) (string, error) { return "rate this", nil },
		},
		{
			Name: "feedback",
			Prompt: func(prior map[string]map[string]any) (string, error) {
				seenScore, _ = prior["score"]["score"].(float64)
				return "explain", nil
			},
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seenScore != 7.0 {
		t.Errorf("second stage saw score %v, want 7.0", seenScore)
	}
	if out["feedback"]["feedback"] != "ok" {
		t.Errorf("out = %v", out)
	}
}

func TestRunCompletionFailureAborts(t *testing.T) {
	sc := &scriptedCompleter{errs: []error{llm.ErrUnavailable}}
	r := New(sc)

	_, err := r.Run(context.Background(), []Stage{
		{Name: "score", Prompt: func(map[string]map[string]any) (string, error) { return "p", nil }},
		{Name: "feedback", Prompt: func(map[string]map[string]any) (string, error) { return "p", nil }},
	})
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if len(sc.requests) != 1 {
		t.Errorf("expected run to stop after the failing stage, got %d calls", len(sc.requests))
	}
}

func TestRunParseFailureContinuesWithNil(t *testing.T) {
	sc := &scriptedCompleter{responses: []string{
		"garbage output",
		`{"feedback": "still here"}`,
	}}
	r := New(sc)

	out, err := r.Run(context.Background(), []Stage{
		{Name: "score", Prompt: func(map[string]map[string]any) (string, error) { return "p", nil }},
		{Name: "feedback", Prompt: func(map[string]map[string]any) (string, error) { return "p", nil }},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out["score"] != nil {
		t.Errorf("unparseable stage output = %v, want nil", out["score"])
	}
	if out["feedback"]["feedback"] != "still here" {
		t.Errorf("out = %v", out)
	}
}

func TestRunForwardsStageSettings(t *testing.T) {
	sc := &scriptedCompleter{responses: []string{`{}`}}
	r := New(sc)

	_, err := r.Run(context.Background(), []Stage{{
		Name:        "score",
		System:      "be strict",
		Model:       "small-model",
		Temperature: 0.2,
		Prompt:      func(map[string]map[string]any) (string, error) { return "p", nil },
	}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	req := sc.requests[0]
	if req.System != "be strict" || req.Model != "small-model" || req.Temperature != 0.2 {
		t.Errorf("request = %+v", req)
	}
}
