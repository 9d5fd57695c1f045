package imagegen

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
)

const defaultHTTPTimeout = 120 * time.Second

// Client generates still images from text prompts through an HTTP image
// generation API. The backend returns the image inline as base64 or behind a
// download URL; both forms are handled.
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

// NewClient constructs an image generation client.
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

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	ImageB64 string `json:"image_b64"`
	ImageURL string `json:"image_url"`
	Error    string `json:"error"`
}

// Generate produces one image for the prompt and returns the encoded bytes.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, services.Wrap(services.ErrValidation, "keyframes", "generate", "prompt is empty", nil)
	}
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "keyframes", "generate", "image api key or base url missing", nil)
	}

	var image []byte
	err := c.retry.Do(ctx, "imagegen", func() error {
		var err error
		image, err = c.generateOnce(ctx, prompt)
		return err
	})
	if err != nil {
		return nil, services.Wrap(services.ErrCapability, "keyframes", "generate", "image request failed", err)
	}
	return image, nil
}

func (c *Client) generateOnce(ctx context.Context, prompt string) ([]byte, error) {
	encoded, err := json.Marshal(generateRequest{Model: c.cfg.Model, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
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

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := services.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &services.StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("api error: %s", decoded.Error)
	}
	if decoded.ImageB64 != "" {
		image, err := base64.StdEncoding.DecodeString(decoded.ImageB64)
		if err != nil {
			return nil, fmt.Errorf("decode image payload: %w", err)
		}
		return image, nil
	}
	if decoded.ImageURL != "" {
		return c.download(ctx, decoded.ImageURL)
	}
	return nil, fmt.Errorf("response carries neither image data nor url")
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &services.StatusError{StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
