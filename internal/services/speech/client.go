package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/services"
	"reelforge/internal/workflow"
)

const defaultHTTPTimeout = 120 * time.Second

// Client produces audio tracks through an HTTP generation API. The same
// backend serves narration synthesis and music composition on separate
// endpoints under one base URL.
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

// NewClient constructs an audio generation client.
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

// Configured reports whether the client has the credentials it needs.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != "" && c.cfg.BaseURL != ""
}

type speechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice,omitempty"`
}

type musicRequest struct {
	Model           string  `json:"model"`
	Description     string  `json:"description"`
	Genre           string  `json:"genre,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

type audioResponse struct {
	AudioB64 string `json:"audio_b64"`
	Error    string `json:"error"`
}

// Synthesize renders the script as narration and returns the encoded audio.
func (c *Client) Synthesize(ctx context.Context, script, style string) ([]byte, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil, services.Wrap(services.ErrValidation, "audio", "synthesize", "script is empty", nil)
	}
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "audio", "synthesize", "speech api key or base url missing", nil)
	}

	body, err := json.Marshal(speechRequest{Model: c.cfg.Model, Input: script, Voice: style})
	if err != nil {
		return nil, fmt.Errorf("encode speech request: %w", err)
	}
	audio, err := c.generate(ctx, "speech", c.cfg.BaseURL+"/speech", body)
	if err != nil {
		return nil, services.Wrap(services.ErrCapability, "audio", "synthesize", "speech request failed", err)
	}
	return audio, nil
}

// Compose renders a background music track from the music description.
func (c *Client) Compose(ctx context.Context, spec workflow.MusicSpec) ([]byte, error) {
	if strings.TrimSpace(spec.Description) == "" {
		return nil, services.Wrap(services.ErrValidation, "audio", "compose", "music description is empty", nil)
	}
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "audio", "compose", "speech api key or base url missing", nil)
	}

	body, err := json.Marshal(musicRequest{
		Model:           c.cfg.Model,
		Description:     spec.Description,
		Genre:           spec.Genre,
		DurationSeconds: spec.DurationSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("encode music request: %w", err)
	}
	audio, err := c.generate(ctx, "music", c.cfg.BaseURL+"/music", body)
	if err != nil {
		return nil, services.Wrap(services.ErrCapability, "audio", "compose", "music request failed", err)
	}
	return audio, nil
}

func (c *Client) generate(ctx context.Context, op, url string, body []byte) ([]byte, error) {
	var audio []byte
	err := c.retry.Do(ctx, op, func() error {
		var err error
		audio, err = c.generateOnce(ctx, url, body)
		return err
	})
	return audio, err
}

func (c *Client) generateOnce(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := services.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &services.StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
			RetryAfter: retryAfter,
		}
	}

	var decoded audioResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("api error: %s", decoded.Error)
	}
	if decoded.AudioB64 == "" {
		return nil, fmt.Errorf("response carries no audio data")
	}
	audio, err := base64.StdEncoding.DecodeString(decoded.AudioB64)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	return audio, nil
}
