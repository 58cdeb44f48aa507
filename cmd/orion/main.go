// Command orion is the operator CLI for the SEC EDGAR filing graph
// pipeline: download filings, load them into Neo4j, run distributed
// processing, and query the graph in natural language.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"orion/cmd/orion/commands"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	root := &cobra.Command{
		Use:   "orion",
		Short: "SEC EDGAR 6-K pipeline and graph query tool",
		Long: `Orion downloads SEC EDGAR 6-K filings from Foreign Private Issuers,
extracts companies, people and events, loads them into a Neo4j property
graph, and answers natural-language questions over that graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		commands.NewDownloadCommand(),
		commands.NewSetupDBCommand(),
		commands.NewTestDBCommand(),
		commands.NewLoadGraphCommand(),
		commands.NewClearGraphCommand(),
		commands.NewDistributedLoadCommand(),
		commands.NewWorkerCommand(),
		commands.NewStatusCommand(),
		commands.NewQueryCommand(),
		commands.NewAnalyzeCommand(),
	)

	if err := root.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\n⚠️  Interrupted by user")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
