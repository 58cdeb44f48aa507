package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSetupSchemaAppliesEveryStatement(t *testing.T) {
	runner := &fakeRunner{}

	if err := SetupSchema(context.Background(), runner); err != nil {
		t.Fatalf("SetupSchema failed: %v", err)
	}

	want := len(schemaConstraints) + len(schemaIndexes)
	if len(runner.queries) != want {
		t.Errorf("Expected %d schema statements, got %d", want, len(runner.queries))
	}

	// Constraints run before indexes.
	first := runner.queries[0].cypher
	if !strings.Contains(first, "CREATE CONSTRAINT") {
		t.Errorf("Expected constraints first, got %q", first)
	}
	runner.find(t, "company_cik_unique")
	runner.find(t, "sector_sic_unique")
	runner.find(t, "CREATE INDEX person_name")
	runner.find(t, "CREATE INDEX event_filing_id")
}

func TestSetupSchemaToleratesFailures(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{
		"company_cik_unique": errors.New("constraint already exists"),
		"person_role_type":   errors.New("out of memory"),
	}}

	if err := SetupSchema(context.Background(), runner); err != nil {
		t.Fatalf("Expected schema setup to absorb statement errors, got %v", err)
	}

	want := len(schemaConstraints) + len(schemaIndexes)
	if len(runner.queries) != want {
		t.Errorf("Expected all %d statements attempted, got %d", want, len(runner.queries))
	}
}

func TestClearGraphReportsCounts(t *testing.T) {
	runner := &fakeRunner{rows: map[string][]map[string]any{
		"count(n)": {{"count": int64(12)}},
		"count(r)": {{"count": int64(34)}},
	}}

	nodes, relationships, err := ClearGraph(context.Background(), runner)
	if err != nil {
		t.Fatalf("ClearGraph failed: %v", err)
	}
	if nodes != 12 {
		t.Errorf("Expected 12 nodes, got %d", nodes)
	}
	if relationships != 34 {
		t.Errorf("Expected 34 relationships, got %d", relationships)
	}

	if len(runner.queries) != 4 {
		t.Fatalf("Expected 4 queries, got %d", len(runner.queries))
	}
	if !strings.Contains(runner.queries[2].cypher, "DELETE r") {
		t.Errorf("Expected relationships deleted first, got %q", runner.queries[2].cypher)
	}
	if !strings.Contains(runner.queries[3].cypher, "MATCH (n) DELETE n") {
		t.Errorf("Expected nodes deleted last, got %q", runner.queries[3].cypher)
	}
}

func TestClearGraphEmptyGraphSkipsDelete(t *testing.T) {
	runner := &fakeRunner{}

	nodes, relationships, err := ClearGraph(context.Background(), runner)
	if err != nil {
		t.Fatalf("ClearGraph failed: %v", err)
	}
	if nodes != 0 || relationships != 0 {
		t.Errorf("Expected zero counts, got %d nodes %d relationships", nodes, relationships)
	}
	if len(runner.queries) != 2 {
		t.Errorf("Expected only count queries on an empty graph, got %d", len(runner.queries))
	}
}

func TestClearGraphCountFailure(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{"count(n)": errExec}}

	if _, _, err := ClearGraph(context.Background(), runner); err == nil {
		t.Error("Expected error when node count fails")
	}
}

func TestClearGraphDeleteFailure(t *testing.T) {
	runner := &fakeRunner{
		rows: map[string][]map[string]any{"count(n)": {{"count": int64(3)}}},
		fail: map[string]error{"DELETE r": errExec},
	}

	_, _, err := ClearGraph(context.Background(), runner)
	if err == nil {
		t.Fatal("Expected error when delete fails")
	}
	if !strings.Contains(err.Error(), "failed to delete relationships") {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestConnectionRequiresConnect(t *testing.T) {
	conn := NewConnection("bolt://localhost:7687", "neo4j", "password")

	if _, err := conn.ExecuteQuery(context.Background(), "RETURN 1", nil); err == nil {
		t.Error("Expected error from unconnected ExecuteQuery")
	}
	if err := conn.TestConnection(context.Background()); err == nil {
		t.Error("Expected error from unconnected TestConnection")
	}
	if err := conn.Close(context.Background()); err != nil {
		t.Errorf("Expected Close on unconnected to be a no-op, got %v", err)
	}
}
