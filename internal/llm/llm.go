package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Completion failure conditions. Callers are expected to treat both as
// ordinary failures subject to their own retry/fallback policy.
var (
	ErrTimeout     = errors.New("completion request timed out")
	ErrUnavailable = errors.New("completion backend unreachable")
)

// HTTPError is a non-2xx response from the completion backend.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("completion backend returned HTTP %d: %s", e.Status, e.Message)
}

// Request is a single text-completion request.
type Request struct {
	Prompt      string
	System      string  // optional system instruction
	Model       string  // optional override of the configured model
	Temperature float32 // zero means backend default
}

// Completer is the text-completion contract consumed by the generator,
// grader, and hint components.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds completion backend settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// New creates a completion gateway client.
func New(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		model:   cfg.Model,
		timeout: timeout,
	}
}

// Complete sends a prompt (and optional system instruction) to the backend
// and returns the generated text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	var msgs []openai.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", c.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: backend returned no choices", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Ping checks that the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := c.api.ListModels(ctx); err != nil {
		return c.mapError(err)
	}
	return nil
}
