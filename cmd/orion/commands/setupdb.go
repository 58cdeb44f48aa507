package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"orion/pkg/core/config"
	"orion/pkg/core/graph"
)

// NewSetupDBCommand creates the Neo4j constraints and indexes the loaders
// rely on. Safe to run repeatedly.
func NewSetupDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup-db",
		Short: "Create the Neo4j schema (constraints and indexes)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			banner("Neo4j Database Setup")
			fmt.Printf("Connecting to %s...\n", cfg.Neo4jURI)

			conn, err := connectGraph(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close(ctx)

			if err := conn.TestConnection(ctx); err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}
			fmt.Println("✓ Connected")

			fmt.Println("\nSetting up schema...")
			if err := graph.SetupSchema(ctx, conn); err != nil {
				return fmt.Errorf("failed to set up schema: %w", err)
			}

			fmt.Println("\n✅ Database setup completed successfully!")
			return nil
		},
	}
}
