package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"orion/pkg/core/config"
	"orion/pkg/core/graph"
)

// ClearGraphCommand deletes every node and relationship. Constraints and
// indexes survive, so a reload needs no setup-db.
type ClearGraphCommand struct {
	confirm bool
}

func NewClearGraphCommand() *cobra.Command {
	cc := &ClearGraphCommand{}
	cmd := &cobra.Command{
		Use:   "clear-graph",
		Short: "Delete all nodes and relationships from the graph",
		Args:  cobra.NoArgs,
		RunE:  cc.run,
	}
	cmd.Flags().BoolVar(&cc.confirm, "confirm", false, "confirm the irreversible deletion")
	return cmd
}

func (cc *ClearGraphCommand) run(cmd *cobra.Command, args []string) error {
	if !cc.confirm {
		fmt.Println("⚠️  WARNING: This will delete ALL nodes and relationships from the graph!")
		fmt.Println("This action cannot be undone.")
		fmt.Println()
		fmt.Println("To proceed, run with the --confirm flag:")
		fmt.Println("  orion clear-graph --confirm")
		return fmt.Errorf("confirmation required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	banner("Clearing Neo4j Graph")

	conn, err := connectGraph(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	nodes, relationships, err := graph.ClearGraph(ctx, conn)
	if err != nil {
		return err
	}
	if nodes == 0 {
		fmt.Println("✅ Graph is already empty.")
		return nil
	}

	fmt.Printf("✅ Deleted %d nodes and %d relationships\n", nodes, relationships)
	return nil
}
