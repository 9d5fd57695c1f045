package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reelforge/internal/api"
)

func TestAPIClientSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req api.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Prompt != "a reel about tea" {
			t.Errorf("unexpected prompt %q", req.Prompt)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(api.SubmitResponse{ID: "job-1"})
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)
	resp, err := client.Submit(context.Background(), api.SubmitRequest{Prompt: "a reel about tea"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.ID != "job-1" {
		t.Fatalf("unexpected id %q", resp.ID)
	}
}

func TestAPIClientSurfacesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "workflow spec has no shots"})
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)
	_, err := client.Submit(context.Background(), api.SubmitRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "workflow spec has no shots" {
		t.Fatalf("unexpected error %q", err)
	}
}

func TestAPIClientListEncodesStatusFilter(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(api.JobListResponse{})
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)
	if _, err := client.List(context.Background(), []string{"queued", "running"}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if !strings.Contains(gotQuery, "status=queued") || !strings.Contains(gotQuery, "status=running") {
		t.Fatalf("status filter missing from query %q", gotQuery)
	}
}

func TestNewAPIClientAddsScheme(t *testing.T) {
	client := newAPIClient("127.0.0.1:7519")
	if client.base != "http://127.0.0.1:7519" {
		t.Fatalf("unexpected base %q", client.base)
	}
	client = newAPIClient("https://example.test/")
	if client.base != "https://example.test" {
		t.Fatalf("unexpected base %q", client.base)
	}
}
