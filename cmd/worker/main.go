// Command worker runs a single queue worker as a long-lived process. It is
// the unit docker-compose scales horizontally: every replica claims jobs
// from the shared queue directory and writes to the same graph.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"orion/pkg/core/config"
	"orion/pkg/core/edgar"
	"orion/pkg/core/graph"
	"orion/pkg/core/llm"
	"orion/pkg/core/queue"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerID := os.Getenv("WORKER_ID")
	if workerID == "" {
		workerID = "worker-" + uuid.NewString()[:8]
	}

	conn := graph.NewConnection(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err := conn.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to Neo4j at %s: %v", cfg.Neo4jURI, err)
	}
	defer conn.Close(context.Background())

	builder := graph.NewBuilder(conn)
	if companies, err := edgar.LoadFPIList(edgar.FPIListPath(cfg.DataDir)); err == nil && len(companies) > 0 {
		builder.RegisterCompanies(companies)
		log.Printf("Registered %d known filers for ownership resolution", len(companies))
	}

	provider := llm.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel)
	if provider.IsAvailable(ctx) {
		if model, err := llm.NewModelProvisioner(cfg.OllamaURL).Ensure(ctx, cfg.OllamaModel); err == nil {
			builder.SetAIExtractor(llm.NewExtractionClient(llm.NewOllamaProvider(cfg.OllamaURL, model)))
			log.Printf("AI extraction enabled with model %s", model)
		} else {
			log.Printf("Warning: AI extraction disabled: %v", err)
		}
	} else {
		log.Printf("Warning: Ollama not reachable at %s, AI extraction disabled", cfg.OllamaURL)
	}

	worker, err := queue.NewWorker(workerID, cfg.QueueDir(), builder)
	if err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	processed := worker.Run(ctx)
	fmt.Printf("Worker %s exiting after %d jobs.\n", workerID, processed)
}
