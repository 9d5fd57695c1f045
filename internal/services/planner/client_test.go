package planner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/services"
)

const planJSON = `{
  "title": "Coffee at dawn",
  "shots": [
    {"scene_description": "steam rising from a cup", "duration_seconds": 5},
    {"scene_description": "sunrise over the city", "duration_seconds": 4}
  ],
  "style": {"aspect_ratio": "16:9"}
}`

func completionBody(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func testClient(url string, opts ...Option) *Client {
	cfg := config.Service{APIKey: "test-key", BaseURL: url, Model: "test-model"}
	opts = append(opts, WithRetryPolicy(services.RetryPolicy{MaxAttempts: 2, Sleep: func(time.Duration) {}}))
	return NewClient(cfg, opts...)
}

func TestPlanDecodesSpec(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(completionBody(planJSON)))
	}))
	defer server.Close()

	spec, err := testClient(server.URL).Plan(context.Background(), "a coffee ad")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("Authorization header = %q", gotAuth)
	}
	if spec.Title != "Coffee at dawn" || len(spec.Shots) != 2 {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if len(spec.Exports) != 3 {
		t.Fatalf("plan without exports should get the defaults, got %d", len(spec.Exports))
	}
}

func TestPlanToleratesCodeFences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("```json\n" + planJSON + "\n```")))
	}))
	defer server.Close()

	spec, err := testClient(server.URL).Plan(context.Background(), "a coffee ad")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(spec.Shots) != 2 {
		t.Fatalf("got %d shots, want 2", len(spec.Shots))
	}
}

func TestPlanRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(completionBody(planJSON)))
	}))
	defer server.Close()

	if _, err := testClient(server.URL).Plan(context.Background(), "a coffee ad"); err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("server saw %d calls, want 2", calls)
	}
}

func TestPlanRejectsUnusablePlan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(`{"shots": []}`)))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Plan(context.Background(), "a coffee ad")
	if !errors.Is(err, services.ErrCapability) {
		t.Fatalf("error = %v, want a capability error", err)
	}
}

func TestPlanRequiresConfiguration(t *testing.T) {
	client := NewClient(config.Service{})
	_, err := client.Plan(context.Background(), "a coffee ad")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want a configuration error", err)
	}
}

func TestPlanRejectsEmptyBrief(t *testing.T) {
	client := testClient("http://localhost:0")
	_, err := client.Plan(context.Background(), "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want a validation error", err)
	}
}

func TestDecodeJSONExtractsEmbeddedObject(t *testing.T) {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON("Here is the result: {\"ok\": true} hope that helps", &out); err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if !out.OK {
		t.Fatal("embedded object not decoded")
	}
}
