package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/services"
)

func testClient(url string) *Client {
	cfg := config.Service{APIKey: "test-key", BaseURL: url, Model: "test-model"}
	return NewClient(cfg, WithRetryPolicy(services.RetryPolicy{MaxAttempts: 2, Sleep: func(time.Duration) {}}))
}

func TestGenerateDecodesInlineImage(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"image_b64": %q}`, base64.StdEncoding.EncodeToString(payload))
	}))
	defer server.Close()

	image, err := testClient(server.URL).Generate(context.Background(), "a lighthouse at dusk")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !bytes.Equal(image, payload) {
		t.Fatalf("decoded image = %v, want %v", image, payload)
	}
}

func TestGenerateFollowsImageURL(t *testing.T) {
	payload := []byte("image bytes")
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/blob", func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"image_url": %q}`, server.URL+"/blob")
	})

	image, err := testClient(server.URL).Generate(context.Background(), "a lighthouse at dusk")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !bytes.Equal(image, payload) {
		t.Fatalf("downloaded image = %q, want %q", image, payload)
	}
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		fmt.Fprintf(w, `{"image_b64": %q}`, base64.StdEncoding.EncodeToString([]byte("ok")))
	}))
	defer server.Close()

	if _, err := testClient(server.URL).Generate(context.Background(), "prompt"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("server saw %d calls, want 2", calls)
	}
}

func TestGenerateSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "content policy violation"}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Generate(context.Background(), "prompt")
	if !errors.Is(err, services.ErrCapability) {
		t.Fatalf("error = %v, want a capability error", err)
	}
}

func TestGenerateRequiresConfiguration(t *testing.T) {
	_, err := NewClient(config.Service{}).Generate(context.Background(), "prompt")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want a configuration error", err)
	}
}
