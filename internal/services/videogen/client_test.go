package videogen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/services"
)

func writeKeyframe(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keyframe.png")
	if err := os.WriteFile(path, []byte("png bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testClient(url string) *Client {
	cfg := config.Service{APIKey: "test-key", BaseURL: url, Model: "test-model"}
	return NewClient(cfg,
		WithPollInterval(time.Millisecond),
		WithRetryPolicy(services.RetryPolicy{MaxAttempts: 2, Sleep: func(time.Duration) {}}),
	)
}

// handle registers h for pattern, rejecting other methods. Equivalent to the
// Go 1.22+ "METHOD /pattern" ServeMux syntax, which go1.21 cannot parse.
func handle(mux *http.ServeMux, method, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	})
}

func TestAnimateSubmitsPollsAndDownloads(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	handle(mux, http.MethodPost, "/", func(w http.ResponseWriter, r *http.Request) {
		var req renderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad submit body: %v", err)
		}
		if req.Prompt == "" || req.ImageB64 == "" || req.DurationSeconds != 5 {
			t.Errorf("incomplete submit request: %+v", req)
		}
		fmt.Fprint(w, `{"id": "r-42", "status": "queued"}`)
	})
	handle(mux, http.MethodGet, "/r-42", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&polls, 1) < 3 {
			fmt.Fprint(w, `{"id": "r-42", "status": "processing"}`)
			return
		}
		fmt.Fprintf(w, `{"id": "r-42", "status": "succeeded", "video_url": %q}`, server.URL+"/blob/r-42")
	})
	handle(mux, http.MethodGet, "/blob/r-42", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp4 bytes"))
	})

	workDir := t.TempDir()
	path, err := testClient(server.URL).Animate(context.Background(), writeKeyframe(t), "slow pan", 5, workDir)
	if err != nil {
		t.Fatalf("Animate failed: %v", err)
	}
	if !strings.HasPrefix(path, workDir) {
		t.Fatalf("clip %q not under work dir %q", path, workDir)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "mp4 bytes" {
		t.Fatalf("clip payload = %q", data)
	}
	if atomic.LoadInt32(&polls) < 3 {
		t.Fatalf("saw %d polls, want at least 3", polls)
	}
}

func TestAnimateSurfacesRenderFailure(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	handle(mux, http.MethodPost, "/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "r-9", "status": "queued"}`)
	})
	handle(mux, http.MethodGet, "/r-9", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "r-9", "status": "failed", "error": "nsfw content"}`)
	})

	_, err := testClient(server.URL).Animate(context.Background(), writeKeyframe(t), "prompt", 4, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "nsfw content") {
		t.Fatalf("error = %v, want the backend failure reason", err)
	}
	if !errors.Is(err, services.ErrCapability) {
		t.Fatalf("error = %v, want a capability error", err)
	}
}

func TestAnimateStopsPollingOnCancellation(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	handle(mux, http.MethodPost, "/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "r-1", "status": "queued"}`)
	})
	handle(mux, http.MethodGet, "/r-1", func(w http.ResponseWriter, r *http.Request) {
		cancel()
		fmt.Fprint(w, `{"id": "r-1", "status": "processing"}`)
	})

	_, err := testClient(server.URL).Animate(ctx, writeKeyframe(t), "prompt", 4, t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled in the chain", err)
	}
}

func TestAnimateRequiresConfiguration(t *testing.T) {
	_, err := NewClient(config.Service{}).Animate(context.Background(), "nope.png", "prompt", 4, t.TempDir())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want a configuration error", err)
	}
}

func TestAnimateRejectsMissingKeyframe(t *testing.T) {
	client := testClient("http://localhost:0")
	_, err := client.Animate(context.Background(), filepath.Join(t.TempDir(), "missing.png"), "prompt", 4, t.TempDir())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want a validation error", err)
	}
}
