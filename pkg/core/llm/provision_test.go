package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// pullRecorder fakes an Ollama host whose pulls succeed only for model
// names accepted by allow.
type pullRecorder struct {
	mu        sync.Mutex
	installed string
	allow     func(name string) bool
	pulls     []string
}

func (rec *pullRecorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(rec.installed))
		case "/api/pull":
			var req struct {
				Name string `json:"name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode pull request: %v", err)
			}
			rec.mu.Lock()
			rec.pulls = append(rec.pulls, req.Name)
			rec.mu.Unlock()
			if rec.allow != nil && !rec.allow(req.Name) {
				http.Error(w, "manifest not found", http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"status":"success"}`))
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}
}

func TestEnsureSkipsInstalledModel(t *testing.T) {
	rec := &pullRecorder{installed: `{"models":[{"name":"llama3.2:latest"}]}`}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	p := NewModelProvisioner(srv.URL)
	name, err := p.Ensure(context.Background(), "llama3.2")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if name != "llama3.2" {
		t.Errorf("Expected llama3.2, got %s", name)
	}
	if len(rec.pulls) != 0 {
		t.Errorf("Expected no pull for an installed model, got %v", rec.pulls)
	}
}

func TestEnsurePullsMissingModel(t *testing.T) {
	rec := &pullRecorder{installed: `{"models":[]}`}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	p := NewModelProvisioner(srv.URL)
	name, err := p.Ensure(context.Background(), "llama3.2")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if name != "llama3.2" {
		t.Errorf("Expected llama3.2, got %s", name)
	}
	if len(rec.pulls) != 1 || rec.pulls[0] != "llama3.2" {
		t.Errorf("Expected one pull of llama3.2, got %v", rec.pulls)
	}
}

func TestEnsureRetriesWithoutTag(t *testing.T) {
	rec := &pullRecorder{
		installed: `{"models":[]}`,
		allow:     func(name string) bool { return !strings.Contains(name, ":") },
	}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	p := NewModelProvisioner(srv.URL)
	name, err := p.Ensure(context.Background(), "llama3.2:9b")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if name != "llama3.2" {
		t.Errorf("Expected fallback to untagged model, got %s", name)
	}
	if len(rec.pulls) != 2 || rec.pulls[0] != "llama3.2:9b" || rec.pulls[1] != "llama3.2" {
		t.Errorf("Expected tagged then untagged pulls, got %v", rec.pulls)
	}
}

func TestEnsureFallsBackToDefaultModel(t *testing.T) {
	rec := &pullRecorder{
		installed: `{"models":[]}`,
		allow:     func(name string) bool { return name == DefaultModel },
	}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	p := NewModelProvisioner(srv.URL)
	name, err := p.Ensure(context.Background(), "mistral")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if name != DefaultModel {
		t.Errorf("Expected fallback to %s, got %s", DefaultModel, name)
	}
}

func TestEnsureErrorsWhenNothingAvailable(t *testing.T) {
	rec := &pullRecorder{
		installed: `{"models":[]}`,
		allow:     func(string) bool { return false },
	}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	p := NewModelProvisioner(srv.URL)
	if _, err := p.Ensure(context.Background(), DefaultModel); err == nil {
		t.Fatalf("Expected error when no model can be pulled")
	}
}

func TestHasModel(t *testing.T) {
	installed := []string{"llama3.2:latest", "mistral:7b"}
	cases := []struct {
		model string
		want  bool
	}{
		{"llama3.2", true},
		{"llama3.2:latest", true},
		{"mistral:7b", true},
		{"mistral:13b", false},
		{"llama3", false},
		{"qwen", false},
	}
	for _, c := range cases {
		if got := hasModel(installed, c.model); got != c.want {
			t.Errorf("hasModel(%q): expected %v, got %v", c.model, c.want, got)
		}
	}
}
