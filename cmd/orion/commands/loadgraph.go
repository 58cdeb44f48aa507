package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"orion/pkg/core/config"
	"orion/pkg/core/graph"
)

// LoadGraphCommand parses staged filings, extracts entities, and writes
// them into Neo4j in a single process.
type LoadGraphCommand struct {
	year       int
	limit      int
	skipSchema bool
	useAI      bool
}

func NewLoadGraphCommand() *cobra.Command {
	lc := &LoadGraphCommand{}
	cmd := &cobra.Command{
		Use:   "load-graph",
		Short: "Extract entities from downloaded filings and load them into Neo4j",
		Args:  cobra.NoArgs,
		RunE:  lc.run,
	}
	cmd.Flags().IntVar(&lc.year, "year", 0, "only process filings from this year (0 means all)")
	cmd.Flags().IntVar(&lc.limit, "limit", 0, "stop after this many filings, 0 means no cap")
	cmd.Flags().BoolVar(&lc.skipSchema, "skip-schema", false, "skip constraint and index creation")
	cmd.Flags().BoolVar(&lc.useAI, "use-ai", false, "supplement pattern extraction with the local model")
	return cmd
}

func (lc *LoadGraphCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	banner("Loading EDGAR Filings into Neo4j Graph")

	conn, err := connectGraph(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	if !lc.skipSchema {
		fmt.Println("Setting up Neo4j schema...")
		if err := graph.SetupSchema(ctx, conn); err != nil {
			return fmt.Errorf("failed to set up schema: %w", err)
		}
	}

	builder := graph.NewBuilder(conn)
	seedCompanyIndex(builder, cfg.DataDir)
	if lc.useAI {
		setupAIExtractor(ctx, cfg, builder)
	}

	scope := "all years"
	if lc.year > 0 {
		scope = fmt.Sprintf("year %d", lc.year)
	}
	if lc.limit > 0 {
		scope += fmt.Sprintf(", first %d filings", lc.limit)
	}
	fmt.Printf("\nProcessing filings (%s)...\n", scope)

	stats, err := builder.ProcessFilings(ctx, cfg.FilingsDir(), lc.year, lc.limit)
	if err != nil {
		return err
	}

	fmt.Println()
	banner("Graph Loading Complete")
	fmt.Printf("✅ Companies created: %d\n", stats.Companies)
	fmt.Printf("✅ People created: %d\n", stats.People)
	fmt.Printf("✅ Events created: %d\n", stats.Events)
	fmt.Printf("✅ Relationships created: %d\n", stats.Relationships)
	fmt.Printf("✅ Filings processed: %d\n", stats.FilingsProcessed)
	if stats.FilingsProcessed > 0 {
		fmt.Printf("\nPattern extractions: %d (%.2fs total, %.0fms avg)\n",
			stats.PatternExtractions,
			stats.PatternTime.Seconds(),
			float64(stats.PatternTime.Milliseconds())/float64(max(stats.PatternExtractions, 1)))
		fmt.Printf("Total time: %.2fs\n", stats.TotalTime.Seconds())
	}

	fmt.Println("\nGraph is ready for querying!")
	fmt.Println("\nExample queries:")
	fmt.Println("  MATCH (c:Company) RETURN c.name LIMIT 10")
	fmt.Println("  MATCH (p:Person)-[:WORKS_AT]->(c:Company) RETURN p.name, c.name LIMIT 10")
	fmt.Println("  MATCH (c:Company)-[:HAS_EVENT]->(e:Event) RETURN c.name, e.title LIMIT 10")
	return nil
}
