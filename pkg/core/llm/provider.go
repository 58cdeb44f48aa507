// Package llm talks to the local model service that supplements pattern
// extraction with model-read person-company relationships. The provider
// seam keeps the extraction client independent of any one backend.
package llm

import "context"

// Provider generates one completion for a prompt pair. Options are
// backend-specific knobs such as temperature or a per-call model override.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error)
}
