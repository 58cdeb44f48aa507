// Package graph loads extracted filing entities into a Neo4j property
// graph: Company, Sector, Person, and Event nodes joined by
// BELONGS_TO_SECTOR, WORKS_AT, HAS_EVENT, OWNS, and SUBSIDIARY_OF edges.
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Runner executes one Cypher statement and returns its rows. The builder
// depends on this seam rather than the driver itself so tests can observe
// writes without a live database.
type Runner interface {
	ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

// Connection wraps the Neo4j driver. A single connection is shared across
// all per-worker upserts; the driver is safe for concurrent use.
type Connection struct {
	uri      string
	username string
	password string
	driver   neo4j.DriverWithContext
}

// NewConnection prepares a connection; Connect must be called before use.
func NewConnection(uri, username, password string) *Connection {
	return &Connection{uri: uri, username: username, password: password}
}

// Connect establishes the driver and verifies connectivity.
func (c *Connection) Connect(ctx context.Context) error {
	driver, err := neo4j.NewDriverWithContext(c.uri, neo4j.BasicAuth(c.username, c.password, ""))
	if err != nil {
		return fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return fmt.Errorf("failed to connect to Neo4j at %s: %w", c.uri, err)
	}
	c.driver = driver
	return nil
}

// ExecuteQuery runs one statement in a fresh session and materializes the
// result rows.
func (c *Connection) ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if c.driver == nil {
		return nil, fmt.Errorf("not connected to Neo4j")
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	for result.Next(ctx) {
		rows = append(rows, result.Record().AsMap())
	}
	return rows, result.Err()
}

// TestConnection round-trips a trivial statement.
func (c *Connection) TestConnection(ctx context.Context) error {
	rows, err := c.ExecuteQuery(ctx, "RETURN 1 as test", nil)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("connection test returned no rows")
	}
	return nil
}

// Close releases the driver.
func (c *Connection) Close(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}
	err := c.driver.Close(ctx)
	c.driver = nil
	return err
}

var schemaConstraints = []string{
	"CREATE CONSTRAINT company_cik_unique IF NOT EXISTS FOR (c:Company) REQUIRE c.cik IS UNIQUE",
	"CREATE CONSTRAINT company_id_unique IF NOT EXISTS FOR (c:Company) REQUIRE c.id IS UNIQUE",
	"CREATE CONSTRAINT person_id_unique IF NOT EXISTS FOR (p:Person) REQUIRE p.id IS UNIQUE",
	"CREATE CONSTRAINT event_id_unique IF NOT EXISTS FOR (e:Event) REQUIRE e.id IS UNIQUE",
	"CREATE CONSTRAINT sector_sic_unique IF NOT EXISTS FOR (s:Sector) REQUIRE s.sic_code IS UNIQUE",
	"CREATE CONSTRAINT rating_id_unique IF NOT EXISTS FOR (r:Rating) REQUIRE r.id IS UNIQUE",
	"CREATE CONSTRAINT debenture_id_unique IF NOT EXISTS FOR (d:Debenture) REQUIRE d.id IS UNIQUE",
}

var schemaIndexes = []string{
	"CREATE INDEX company_cik IF NOT EXISTS FOR (c:Company) ON (c.cik)",
	"CREATE INDEX company_name IF NOT EXISTS FOR (c:Company) ON (c.name)",
	"CREATE INDEX company_sic_code IF NOT EXISTS FOR (c:Company) ON (c.sic_code)",
	"CREATE INDEX person_name IF NOT EXISTS FOR (p:Person) ON (p.name)",
	"CREATE INDEX person_role_type IF NOT EXISTS FOR (p:Person) ON (p.role_type)",
	"CREATE INDEX event_type IF NOT EXISTS FOR (e:Event) ON (e.event_type)",
	"CREATE INDEX event_date IF NOT EXISTS FOR (e:Event) ON (e.event_date)",
	"CREATE INDEX event_filing_id IF NOT EXISTS FOR (e:Event) ON (e.filing_id)",
	"CREATE INDEX sector_sic_code IF NOT EXISTS FOR (s:Sector) ON (s.sic_code)",
	"CREATE INDEX rating_agency IF NOT EXISTS FOR (r:Rating) ON (r.rating_agency)",
	"CREATE INDEX rating_date IF NOT EXISTS FOR (r:Rating) ON (r.rating_date)",
}

// SetupSchema creates the uniqueness constraints and lookup indexes. Every
// statement carries IF NOT EXISTS, so repeated runs are no-ops; a statement
// that still fails is reported and the rest continue.
func SetupSchema(ctx context.Context, runner Runner) error {
	fmt.Println("Creating constraints...")
	applySchemaStatements(ctx, runner, schemaConstraints)

	fmt.Println("Creating indexes...")
	applySchemaStatements(ctx, runner, schemaIndexes)
	return nil
}

func applySchemaStatements(ctx context.Context, runner Runner, statements []string) {
	for _, stmt := range statements {
		if _, err := runner.ExecuteQuery(ctx, stmt, nil); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			fmt.Printf("Warning: schema statement failed: %v\n", err)
		}
	}
}

// ClearGraph deletes every node and relationship, returning the counts that
// were present beforehand. Constraints and indexes are left in place.
func ClearGraph(ctx context.Context, runner Runner) (nodes, relationships int64, err error) {
	nodes, err = singleCount(ctx, runner, "MATCH (n) RETURN count(n) as count")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	relationships, err = singleCount(ctx, runner, "MATCH ()-[r]->() RETURN count(r) as count")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count relationships: %w", err)
	}
	if nodes == 0 {
		return nodes, relationships, nil
	}

	// Relationships go first so node deletion never touches attached edges.
	if _, err = runner.ExecuteQuery(ctx, "MATCH ()-[r]->() DELETE r", nil); err != nil {
		return 0, 0, fmt.Errorf("failed to delete relationships: %w", err)
	}
	if _, err = runner.ExecuteQuery(ctx, "MATCH (n) DELETE n", nil); err != nil {
		return 0, 0, fmt.Errorf("failed to delete nodes: %w", err)
	}
	return nodes, relationships, nil
}

func singleCount(ctx context.Context, runner Runner, cypher string) (int64, error) {
	rows, err := runner.ExecuteQuery(ctx, cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if n, ok := rows[0]["count"].(int64); ok {
		return n, nil
	}
	return 0, nil
}
