package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"orion/pkg/core/config"
	"orion/pkg/core/vectorstore"
)

// TestDBCommand checks connectivity to the configured databases. With no
// flags both backends are tested; --neo4j or --oracle narrows the check.
type TestDBCommand struct {
	neo4j  bool
	oracle bool
}

func NewTestDBCommand() *cobra.Command {
	tc := &TestDBCommand{}
	cmd := &cobra.Command{
		Use:   "test-db",
		Short: "Test database connections",
		Args:  cobra.NoArgs,
		RunE:  tc.run,
	}
	cmd.Flags().BoolVar(&tc.neo4j, "neo4j", false, "test only the Neo4j connection")
	cmd.Flags().BoolVar(&tc.oracle, "oracle", false, "test only the Oracle vector store connection")
	return cmd
}

func (tc *TestDBCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	testNeo4j := tc.neo4j || !tc.oracle
	testOracle := tc.oracle || !tc.neo4j

	var failed error
	if testNeo4j {
		banner("Testing Neo4j Connection")
		fmt.Printf("URI: %s\n", cfg.Neo4jURI)
		if err := tc.checkNeo4j(ctx, cfg); err != nil {
			fmt.Printf("❌ Neo4j connection test failed: %v\n", err)
			failed = err
		} else {
			fmt.Println("✅ Neo4j connection test passed!")
		}
		fmt.Println()
	}

	if testOracle {
		banner("Testing Oracle AI Vector DB Connection")
		if err := tc.checkOracle(cfg); err != nil {
			failed = err
		} else {
			fmt.Println("✅ Oracle connection test passed!")
		}
	}

	return failed
}

func (tc *TestDBCommand) checkNeo4j(ctx context.Context, cfg *config.Config) error {
	conn, err := connectGraph(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	return conn.TestConnection(ctx)
}

func (tc *TestDBCommand) checkOracle(cfg *config.Config) error {
	store := vectorstore.NewOracleStore(cfg.OracleDSN)
	err := store.Connect()
	switch {
	case errors.Is(err, vectorstore.ErrNotConfigured):
		fmt.Println("❌ Oracle vector store is not configured.")
		fmt.Println("Set ORACLE_DSN in .env to enable vector search.")
	case errors.Is(err, vectorstore.ErrUnavailable):
		fmt.Println("⚠️  Oracle DSN is set but no driver is wired in this build.")
		fmt.Println("Vector search remains a placeholder.")
	case err != nil:
		fmt.Printf("❌ Oracle connection test failed: %v\n", err)
	}
	if err != nil {
		return err
	}
	defer store.Close()
	return store.TestConnection()
}
