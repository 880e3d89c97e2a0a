package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestEmbed(t *testing.T) {
	var gotPrompt, gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotModel, gotPrompt = req.Model, req.Prompt
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "nomic-embed-text", 5*time.Second)
	vec, err := client.Embed(context.Background(), "DuroSeal Bobst 16S")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3 dims, got %d", len(vec))
	}
	if gotModel != "nomic-embed-text" || gotPrompt != "DuroSeal Bobst 16S" {
		t.Fatalf("unexpected request: model=%q prompt=%q", gotModel, gotPrompt)
	}
}

func TestEmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "nomic-embed-text", 5*time.Second)
	if _, err := client.Embed(context.Background(), "anything"); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestEmbedEmptyVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "nomic-embed-text", 5*time.Second)
	if _, err := client.Embed(context.Background(), "anything"); err == nil {
		t.Fatal("expected error on empty vector")
	}
}

func TestEmbedReportedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "nomic-embed-text", 5*time.Second)
	if _, err := client.Embed(context.Background(), "anything"); err == nil {
		t.Fatal("expected error when the endpoint reports one")
	}
}

func TestRateLimiterPaces(t *testing.T) {
	limiter := NewRateLimiter(100)

	started := time.Now()
	for i := 0; i < 5; i++ {
		limiter.WaitTurn()
	}
	// 5 turns at 100 rps need at least 40ms after the first.
	if elapsed := time.Since(started); elapsed < 40*time.Millisecond {
		t.Fatalf("limiter did not pace: %v", elapsed)
	}
}
