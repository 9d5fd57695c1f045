package videogen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/services"
)

const (
	defaultHTTPTimeout  = 120 * time.Second
	defaultPollInterval = 2 * time.Second
)

// Client animates keyframes into clips through an asynchronous video
// generation API: submit a render, poll until it settles, download the
// result. Render times run from seconds to minutes depending on the backend,
// so the request timeout only covers individual HTTP calls.
type Client struct {
	cfg          config.Service
	httpClient   *http.Client
	retry        services.RetryPolicy
	pollInterval time.Duration
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

// WithRetryPolicy overrides the default retry behavior for submissions.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithPollInterval overrides how often render status is checked.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// NewClient constructs a video generation client.
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
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: defaultPollInterval,
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

type renderRequest struct {
	Model           string  `json:"model"`
	Prompt          string  `json:"prompt"`
	DurationSeconds float64 `json:"duration_seconds"`
	ImageB64        string  `json:"image_b64"`
}

type renderStatus struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
	Error    string `json:"error"`
}

// Animate renders a clip from the keyframe and prompt, writing the video into
// workDir and returning its path.
func (c *Client) Animate(ctx context.Context, keyframePath, prompt string, durationSeconds float64, workDir string) (string, error) {
	if !c.Configured() {
		return "", services.Wrap(services.ErrConfiguration, "videos", "animate", "video api key or base url missing", nil)
	}
	keyframe, err := os.ReadFile(keyframePath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "videos", "animate", "read keyframe", err)
	}

	var renderID string
	err = c.retry.Do(ctx, "videogen submit", func() error {
		var err error
		renderID, err = c.submit(ctx, keyframe, prompt, durationSeconds)
		return err
	})
	if err != nil {
		return "", services.Wrap(services.ErrCapability, "videos", "animate", "submit render", err)
	}

	videoURL, err := c.await(ctx, renderID)
	if err != nil {
		return "", services.Wrap(services.ErrCapability, "videos", "animate", "render "+renderID, err)
	}

	path, err := c.downloadTo(ctx, videoURL, workDir, renderID)
	if err != nil {
		return "", services.Wrap(services.ErrCapability, "videos", "animate", "download render "+renderID, err)
	}
	return path, nil
}

func (c *Client) submit(ctx context.Context, keyframe []byte, prompt string, durationSeconds float64) (string, error) {
	encoded, err := json.Marshal(renderRequest{
		Model:           c.cfg.Model,
		Prompt:          prompt,
		DurationSeconds: durationSeconds,
		ImageB64:        base64.StdEncoding.EncodeToString(keyframe),
	})
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}

	var status renderStatus
	if err := c.doJSON(ctx, http.MethodPost, c.cfg.BaseURL, encoded, &status); err != nil {
		return "", err
	}
	if status.ID == "" {
		return "", fmt.Errorf("submit response carries no render id")
	}
	return status.ID, nil
}

func (c *Client) await(ctx context.Context, renderID string) (string, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var status renderStatus
		if err := c.doJSON(ctx, http.MethodGet, c.cfg.BaseURL+"/"+renderID, nil, &status); err != nil {
			return "", err
		}
		switch status.Status {
		case "succeeded":
			if status.VideoURL == "" {
				return "", fmt.Errorf("render succeeded without a video url")
			}
			return status.VideoURL, nil
		case "failed":
			msg := status.Error
			if msg == "" {
				msg = "render failed"
			}
			return "", fmt.Errorf("%s", msg)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) downloadTo(ctx context.Context, url, workDir, renderID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("new download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &services.StatusError{StatusCode: resp.StatusCode}
	}

	path := filepath.Join(workDir, "render-"+renderID+".mp4")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create clip file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("write clip file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close clip file: %w", err)
	}
	return path, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := services.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return &services.StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
