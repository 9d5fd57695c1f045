package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelforge/internal/config"
)

const userAgent = "ReelForge/0.1.0"

// Service defines the notification surface exposed to the daemon.
type Service interface {
	NotifyJobCompleted(ctx context.Context, title string, exports int, duration time.Duration) error
	NotifyJobFailed(ctx context.Context, title, stage, reason string) error
	NotifyJobCancelled(ctx context.Context, title string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, title string, exports int, duration time.Duration) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "untitled"
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title:    "ReelForge - Job Complete",
		message:  fmt.Sprintf("Rendered %q: %d exports in %s", title, exports, duration),
		tags:     []string{"reelforge", "job", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, title, stage, reason string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "untitled"
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "Job %q failed", title)
	if stage = strings.TrimSpace(stage); stage != "" {
		fmt.Fprintf(&builder, " in %s", stage)
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		builder.WriteString(": ")
		builder.WriteString(reason)
	}
	data := payload{
		title:    "ReelForge - Job Failed",
		message:  builder.String(),
		tags:     []string{"reelforge", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCancelled(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "untitled"
	}
	data := payload{
		title:   "ReelForge - Job Cancelled",
		message: fmt.Sprintf("Job %q was cancelled", title),
		tags:    []string{"reelforge", "job", "cancelled"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "ReelForge - Test",
		message:  "Notification system test",
		tags:     []string{"reelforge", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, int, time.Duration) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string, string) error        { return nil }
func (noopService) NotifyJobCancelled(context.Context, string) error                     { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
