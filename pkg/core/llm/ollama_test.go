package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateResponsePostsGeneratePayload(t *testing.T) {
	var got generateRequest
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Write([]byte(`{"response":"[]"}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3.2")
	out, err := p.GenerateResponse(context.Background(), "the prompt", "the system prompt", map[string]interface{}{
		"temperature": 0.0,
	})
	if err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}
	if out != "[]" {
		t.Errorf("Expected response [], got %q", out)
	}
	if method != http.MethodPost || path != "/api/generate" {
		t.Errorf("Expected POST /api/generate, got %s %s", method, path)
	}
	if got.Model != "llama3.2" || got.Prompt != "the prompt" || got.System != "the system prompt" {
		t.Errorf("Unexpected request payload: %+v", got)
	}
	if got.Stream {
		t.Errorf("Expected a non-streaming request")
	}
	if _, ok := got.Options["temperature"]; !ok {
		t.Errorf("Expected temperature option to pass through, got %v", got.Options)
	}
}

func TestGenerateResponseModelOverride(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3.2")
	if _, err := p.GenerateResponse(context.Background(), "p", "s", map[string]interface{}{
		"model":   "mistral",
		"num_ctx": 2048,
	}); err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}
	if got.Model != "mistral" {
		t.Errorf("Expected model override mistral, got %s", got.Model)
	}
	if _, ok := got.Options["model"]; ok {
		t.Errorf("Expected model key to be stripped from options, got %v", got.Options)
	}
	if _, ok := got.Options["num_ctx"]; !ok {
		t.Errorf("Expected num_ctx option to pass through, got %v", got.Options)
	}
}

func TestGenerateResponseServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3.2")
	_, err := p.GenerateResponse(context.Background(), "p", "s", nil)
	if err == nil {
		t.Fatalf("Expected error on server failure")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Expected status in error, got %v", err)
	}
}

func TestGenerateResponseEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":""}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3.2")
	if _, err := p.GenerateResponse(context.Background(), "p", "s", nil); err == nil {
		t.Fatalf("Expected error on empty completion")
	}
}

func TestIsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("Expected availability probe on /api/tags, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[]}`))
	}))

	p := NewOllamaProvider(srv.URL, "")
	if !p.IsAvailable(context.Background()) {
		t.Errorf("Expected a running host to be available")
	}

	srv.Close()
	if p.IsAvailable(context.Background()) {
		t.Errorf("Expected a stopped host to be unavailable")
	}
}

func TestNewOllamaProviderDefaults(t *testing.T) {
	p := NewOllamaProvider("", "")
	if p.baseURL != DefaultBaseURL {
		t.Errorf("Expected default base URL %s, got %s", DefaultBaseURL, p.baseURL)
	}
	if p.Model() != DefaultModel {
		t.Errorf("Expected default model %s, got %s", DefaultModel, p.Model())
	}
}
