package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"orion/pkg/core/config"
	"orion/pkg/core/graph"
	"orion/pkg/core/nlquery"
)

// QueryCommand answers natural-language questions over the filing graph.
// With a question argument it answers once; without one it drops into an
// interactive loop.
type QueryCommand struct {
	showCypher bool
	maxRows    int
	model      string
}

func NewQueryCommand() *cobra.Command {
	qc := &QueryCommand{}
	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask natural-language questions about the filing graph",
		Args:  cobra.MaximumNArgs(1),
		RunE:  qc.run,
	}
	cmd.Flags().BoolVar(&qc.showCypher, "show-cypher", false, "print the generated Cypher query")
	cmd.Flags().IntVar(&qc.maxRows, "max-rows", nlquery.DefaultMaxRows, "maximum rows to display")
	cmd.Flags().StringVar(&qc.model, "model", "", "model to use (default from config)")
	return cmd
}

func (qc *QueryCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	wideBanner("Cypher RAG - Natural Language Query Interface")

	fmt.Println("\nInitializing query service...")
	provider, err := provisionProvider(ctx, cfg, qc.model)
	if err != nil {
		fmt.Println("❌ Model service is not available. Start Ollama with:")
		fmt.Println("   docker-compose up -d ollama")
		return err
	}
	fmt.Printf("✓ Query service ready (model: %s)\n", provider.Model())

	fmt.Println("\nConnecting to Neo4j...")
	conn, err := connectGraph(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected to Neo4j")

	translator := nlquery.NewTranslator(provider)

	if len(args) == 1 {
		return qc.answer(ctx, translator, conn, args[0])
	}
	return qc.interactive(ctx, translator, conn)
}

// interactive reads questions from stdin until exit, quit, q, or EOF. Errors
// on individual questions are reported and the loop continues.
func (qc *QueryCommand) interactive(ctx context.Context, translator *nlquery.Translator, runner graph.Runner) error {
	fmt.Println()
	wideBanner("Interactive Query Mode (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n💬 Enter your question: ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "", "exit", "quit", "q":
			fmt.Println("Goodbye!")
			return nil
		}
		if err := qc.answer(ctx, translator, runner, question); err != nil {
			fmt.Printf("\n❌ Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func (qc *QueryCommand) answer(ctx context.Context, translator *nlquery.Translator, runner graph.Runner, question string) error {
	fmt.Println("\n🤖 Generating Cypher query...")
	results, cypher, err := translator.QueryWithRetry(ctx, question, runner, nlquery.DefaultMaxRetries)
	if err != nil {
		if qc.showCypher && cypher != "" {
			fmt.Printf("\nLast generated Cypher query:\n%s\n", cypher)
		}
		return err
	}

	if qc.showCypher {
		rule := strings.Repeat("-", 80)
		fmt.Println("\n✅ Generated Cypher Query:")
		fmt.Println(rule)
		fmt.Println(cypher)
		fmt.Println(rule)
	}

	fmt.Print(nlquery.FormatResults(results, qc.maxRows))
	return nil
}
