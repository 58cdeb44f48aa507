package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// pullTimeout bounds a model download, which can run for minutes.
const pullTimeout = 10 * time.Minute

// ModelProvisioner makes sure a model is present on the Ollama host,
// pulling it on demand.
type ModelProvisioner struct {
	baseURL string
	client  *http.Client
}

// NewModelProvisioner targets an Ollama host; empty falls back to the
// local default.
func NewModelProvisioner(baseURL string) *ModelProvisioner {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &ModelProvisioner{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: pullTimeout},
	}
}

// Ensure returns the name of an installed model, preferring the requested
// one. A tagged model that cannot be pulled is retried without its tag,
// then the default model is tried as a last resort.
func (p *ModelProvisioner) Ensure(ctx context.Context, model string) (string, error) {
	installed, err := p.listModels(ctx)
	if err != nil {
		return model, fmt.Errorf("failed to list ollama models: %w", err)
	}
	if hasModel(installed, model) {
		return model, nil
	}

	fmt.Printf("Model %s not found. Downloading, this may take a few minutes...\n", model)
	err = p.pull(ctx, model)
	if err == nil {
		fmt.Printf("Downloaded model %s.\n", model)
		return model, nil
	}
	fmt.Printf("Warning: failed to pull model %s: %v\n", model, err)

	if base, _, tagged := strings.Cut(model, ":"); tagged {
		fmt.Printf("Trying base model %s instead...\n", base)
		return p.Ensure(ctx, base)
	}
	if model != DefaultModel {
		fmt.Printf("Warning: falling back to default model %s.\n", DefaultModel)
		return p.Ensure(ctx, DefaultModel)
	}
	return model, fmt.Errorf("model %s is not available", model)
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (p *ModelProvisioner) listModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama api call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama api returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode ollama tags: %w", err)
	}
	names := make([]string, len(tags.Models))
	for i, model := range tags.Models {
		names[i] = model.Name
	}
	return names, nil
}

// hasModel matches an exact installed name or any tag of the requested
// base name.
func hasModel(installed []string, model string) bool {
	for _, name := range installed {
		if name == model || strings.HasPrefix(name, model+":") {
			return true
		}
	}
	return false
}

func (p *ModelProvisioner) pull(ctx context.Context, model string) error {
	body, err := json.Marshal(map[string]interface{}{"name": model, "stream": false})
	if err != nil {
		return fmt.Errorf("failed to marshal pull request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama api call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode pull response: %w", err)
	}
	if result.Status != "success" {
		return fmt.Errorf("model pull ended with status %q", result.Status)
	}
	return nil
}
