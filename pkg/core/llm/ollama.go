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

const (
	// DefaultBaseURL is the standard local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel is pulled automatically when nothing else is configured.
	DefaultModel = "llama3.2"

	generateTimeout = 120 * time.Second
)

// OllamaProvider generates completions against an Ollama host.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider wires a provider to a host and default model. Empty
// arguments fall back to the local defaults.
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: generateTimeout},
	}
}

// Model returns the provider's default model name.
func (p *OllamaProvider) Model() string {
	return p.model
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// GenerateResponse posts a single non-streaming completion request. An
// options entry "model" overrides the provider default; everything else is
// passed through as model options.
func (p *OllamaProvider) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	model := p.model
	modelOptions := make(map[string]interface{})
	for key, val := range options {
		if key == "model" {
			if name, ok := val.(string); ok && name != "" {
				model = name
			}
			continue
		}
		modelOptions[key] = val
	}

	body, err := json.Marshal(generateRequest{
		Model:   model,
		Prompt:  prompt,
		System:  systemPrompt,
		Stream:  false,
		Options: modelOptions,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama api call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if result.Response == "" {
		return "", fmt.Errorf("empty response from ollama api")
	}
	return result.Response, nil
}

// IsAvailable reports whether the Ollama host answers at all.
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
