// Package commands implements the orion CLI verbs. Each verb is built by a
// NewXCommand constructor that owns its flags and wires the core packages
// together; the commands themselves hold no pipeline logic.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"orion/pkg/core/config"
	"orion/pkg/core/edgar"
	"orion/pkg/core/graph"
	"orion/pkg/core/llm"
)

// signalContext is the root context for every verb. SIGINT and SIGTERM
// cancel it; a second signal falls through to the default handler.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// banner prints a section header framed by 60-character rules.
func banner(title string) {
	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Println(title)
	fmt.Println(line)
}

// wideBanner is the 80-character variant used by the query surface.
func wideBanner(title string) {
	line := strings.Repeat("=", 80)
	fmt.Println(line)
	fmt.Println(title)
	fmt.Println(line)
}

// connectGraph opens a verified Neo4j connection from the config. On
// failure it prints the operator checklist before returning the error.
func connectGraph(ctx context.Context, cfg *config.Config) (*graph.Connection, error) {
	conn := graph.NewConnection(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err := conn.Connect(ctx); err != nil {
		fmt.Println("\n❌ Failed to connect to Neo4j.")
		fmt.Println("Please check your .env settings and make sure Neo4j is running:")
		fmt.Println("   docker-compose up -d neo4j")
		return nil, err
	}
	return conn, nil
}

// seedCompanyIndex registers the cached filer list with the builder when it
// exists so ownership claims can resolve company names to CIKs. A missing
// list is fine; ownership edges are then limited to same-filing matches.
func seedCompanyIndex(builder *graph.Builder, dataDir string) {
	companies, err := edgar.LoadFPIList(edgar.FPIListPath(dataDir))
	if err != nil || len(companies) == 0 {
		return
	}
	builder.RegisterCompanies(companies)
	fmt.Printf("Registered %d known filers for ownership resolution\n", len(companies))
}

// provisionProvider returns an Ollama-backed provider with the requested
// model verified present, pulling it when missing. An empty model falls
// back to the configured default.
func provisionProvider(ctx context.Context, cfg *config.Config, model string) (*llm.OllamaProvider, error) {
	if model == "" {
		model = cfg.OllamaModel
	}
	provider := llm.NewOllamaProvider(cfg.OllamaURL, model)
	if !provider.IsAvailable(ctx) {
		return nil, fmt.Errorf("ollama not reachable at %s", cfg.OllamaURL)
	}
	resolved, err := llm.NewModelProvisioner(cfg.OllamaURL).Ensure(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("failed to provision model %s: %w", model, err)
	}
	if resolved != model {
		provider = llm.NewOllamaProvider(cfg.OllamaURL, resolved)
	}
	return provider, nil
}

// setupAIExtractor wires the model-backed people extractor into the builder
// when the local model service is reachable. Processing degrades to
// pattern-only extraction when it is not.
func setupAIExtractor(ctx context.Context, cfg *config.Config, builder *graph.Builder) {
	provider, err := provisionProvider(ctx, cfg, "")
	if err != nil {
		fmt.Printf("Warning: AI extraction disabled: %v\n", err)
		return
	}
	builder.SetAIExtractor(llm.NewExtractionClient(provider))
	fmt.Printf("AI extraction enabled with model %s\n", provider.Model())
}
