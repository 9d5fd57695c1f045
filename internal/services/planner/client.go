package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/services"
	"reelforge/internal/workflow"
)

const (
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 60 * time.Second
)

// Client turns a natural-language brief into a structured workflow plan via
// an OpenRouter-compatible chat completion endpoint.
type Client struct {
	cfg        config.Service
	httpClient *http.Client
	retry      services.RetryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the default retry behavior.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient constructs a planner from the supplied configuration.
func NewClient(cfg config.Service, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: config.Service{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether the planner has the credentials it needs.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != "" && c.cfg.BaseURL != ""
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Plan asks the model for a complete workflow spec matching the brief. The
// returned spec is validated before it is handed back.
func (c *Client) Plan(ctx context.Context, brief string) (*workflow.Spec, error) {
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return nil, services.Wrap(services.ErrValidation, "", "plan", "brief is empty", nil)
	}
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "", "plan", "planner api key or base url missing", nil)
	}

	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: planSystemPrompt},
			{Role: "user", Content: brief},
		},
		Temperature:    0.7,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}

	var content string
	err := c.retry.Do(ctx, "plan", func() error {
		var err error
		content, err = c.complete(ctx, payload)
		return err
	})
	if err != nil {
		return nil, services.Wrap(services.ErrCapability, "", "plan", "completion failed", err)
	}

	var spec workflow.Spec
	if err := DecodeJSON(content, &spec); err != nil {
		return nil, services.Wrap(services.ErrCapability, "", "plan", "parse plan payload", err)
	}
	if len(spec.Exports) == 0 {
		spec.Exports = workflow.DefaultExports()
	}
	if err := spec.Validate(); err != nil {
		return nil, services.Wrap(services.ErrCapability, "", "plan", "model returned unusable plan", err)
	}
	return &spec, nil
}

// HealthCheck issues a minimal completion to verify credentials and model.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.Configured() {
		return services.Wrap(services.ErrConfiguration, "", "health", "planner api key or base url missing", nil)
	}
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You must respond with JSON only."},
			{Role: "user", Content: `Respond with {"ok":true}`},
		},
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	content, err := c.complete(ctx, payload)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return fmt.Errorf("planner health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("planner health: unexpected response")
	}
	return nil
}

func (c *Client) complete(ctx context.Context, payload chatRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("planner request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("planner request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("planner request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("planner request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := services.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &services.StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("planner request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("planner request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", errors.New("planner request: empty completion")
}
