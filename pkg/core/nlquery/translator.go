// Package nlquery converts natural-language questions about the filing
// graph into Cypher, executes them read-only, and renders the results.
package nlquery

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"orion/pkg/core/graph"
	"orion/pkg/core/llm"
)

// DefaultMaxRetries is how often a failed query is regenerated with the
// error fed back to the model.
const DefaultMaxRetries = 2

// schemaContext describes the filing graph to the model.
const schemaContext = `# Neo4j Graph Schema for SEC EDGAR Filings

## Node Types

### Company
- Properties: id, cik (unique), name, sic_code, sic_description, fiscal_year_end,
  address_street1, address_city, address_state, address_zip, phone, sec_file_number
- Example: (:Company {cik: "0001234567", name: "Example Corp"})

### Person
- Properties: id (unique), name, title, role_type (CEO, Director, Officer, Signatory, Contact, Executive)
- Example: (:Person {id: "person_john_doe_1234567", name: "John Doe", role_type: "CEO"})

### Event
- Properties: id (unique), event_type (Financial Results, Merger, Acquisition, Restructuring, Filing),
  title, event_date, filing_id, description
- Example: (:Event {id: "event_123_Acquisition", event_type: "Acquisition", title: "Corporate Acquisition"})

### Sector
- Properties: id, sic_code (unique), name, description
- Example: (:Sector {sic_code: "6029", name: "Commercial Banking"})

## Relationship Types

### OWNS
- Pattern: (:Company)-[:OWNS {ownership_type, acquisition_date?, ownership_percentage?}]->(:Company)
- Meaning: Company A owns Company B

### SUBSIDIARY_OF
- Pattern: (:Company)-[:SUBSIDIARY_OF {ownership_type, acquisition_date?}]->(:Company)
- Meaning: Company A is a subsidiary of Company B

### WORKS_AT
- Pattern: (:Person)-[:WORKS_AT {title, role_type, start_date?, end_date?}]->(:Company)
- Meaning: Person works at Company

### HAS_EVENT
- Pattern: (:Company)-[:HAS_EVENT {event_date, filing_id}]->(:Event)
- Meaning: Company has an Event

### BELONGS_TO_SECTOR
- Pattern: (:Company)-[:BELONGS_TO_SECTOR {sic_code}]->(:Sector)
- Meaning: Company belongs to a Sector

## Common Query Patterns

1. Find companies: MATCH (c:Company) RETURN c.name, c.cik LIMIT 10
2. Find people at a company: MATCH (p:Person)-[:WORKS_AT]->(c:Company {name: "Company Name"}) RETURN p.name, p.role_type
3. Find company events: MATCH (c:Company {name: "Company Name"})-[:HAS_EVENT]->(e:Event) RETURN e.event_type, e.title, e.event_date
4. Find ownership chain: MATCH (parent:Company {name: "Parent"})-[:OWNS*]->(sub:Company) RETURN parent.name, sub.name
5. Find companies in sector: MATCH (c:Company)-[:BELONGS_TO_SECTOR]->(s:Sector {sic_code: "6029"}) RETURN c.name
6. Find executives: MATCH (p:Person)-[:WORKS_AT]->(c:Company) WHERE p.role_type IN ["CEO", "Director", "Officer"] RETURN p.name, c.name

## Important Notes

- Always use MATCH before RETURN
- Use WHERE for filtering conditions
- Use LIMIT to restrict results (default: 10-20)
- Property names are case-sensitive: c.name, c.cik, p.role_type
- Use relationships like -[:RELATIONSHIP_TYPE]-> for traversing
- Use * for variable-length paths: -[:OWNS*]->
- Use OPTIONAL MATCH for optional relationships
- Use DISTINCT to remove duplicates
- Use ORDER BY for sorting
- Use COUNT(), SUM(), AVG() for aggregations`

const systemPromptTemplate = `You are a Cypher query expert for Neo4j graph databases.
Your task is to convert natural language questions into valid Cypher queries.

%s

IMPORTANT RULES:
1. Return ONLY the Cypher query, no explanations or markdown formatting
2. Do not wrap the query in markdown code fences
3. Use proper Cypher syntax
4. Always include LIMIT when appropriate (default: 20)
5. Use WHERE clauses for filtering
6. Return relevant properties in RETURN clause
7. Handle case-insensitive name matching with toLower() if needed
8. Use OPTIONAL MATCH for relationships that might not exist
9. Always validate the query structure before returning

Example:
User: "Find all companies"
You: MATCH (c:Company) RETURN c.name, c.cik, c.sic_code LIMIT 20

User: "Who works at Apple Inc?"
You: MATCH (p:Person)-[:WORKS_AT]->(c:Company) WHERE toLower(c.name) CONTAINS toLower('Apple Inc') RETURN p.name, p.role_type, p.title, c.name LIMIT 20`

const fixPrompt = `The previous Cypher query failed with error: %v

Original question: %s
Previous query: %s

Please generate a corrected Cypher query that fixes the error.`

var systemPrompt = fmt.Sprintf(systemPromptTemplate, schemaContext)

// reWriteClause catches graph-mutating clauses. The translator only ever
// runs read queries; anything that writes is rejected outright.
var reWriteClause = regexp.MustCompile(`\b(CREATE|DELETE|DROP|REMOVE|SET|MERGE)\b`)

// Translator turns questions into Cypher through a model provider.
type Translator struct {
	provider llm.Provider
}

// NewTranslator binds the translator to a provider.
func NewTranslator(provider llm.Provider) *Translator {
	return &Translator{provider: provider}
}

// GenerateCypher asks the model for a query answering the question and
// strips any markdown fencing from the response.
func (t *Translator) GenerateCypher(ctx context.Context, question string) (string, error) {
	raw, err := t.provider.GenerateResponse(ctx, question, systemPrompt, map[string]interface{}{
		"temperature": 0.1,
		"num_ctx":     4096,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate cypher query: %w", err)
	}
	cypher := strings.ReplaceAll(raw, "```cypher", "")
	cypher = strings.ReplaceAll(cypher, "```", "")
	return strings.TrimSpace(cypher), nil
}

// ValidateCypher rejects queries that are not plainly read-only.
func ValidateCypher(cypher string) error {
	upper := strings.ToUpper(cypher)
	if !strings.Contains(upper, "MATCH") && !strings.Contains(upper, "RETURN") {
		return fmt.Errorf("query must contain a MATCH or RETURN clause")
	}
	if clause := reWriteClause.FindString(upper); clause != "" {
		return fmt.Errorf("query contains write clause %s; only read queries are allowed", clause)
	}
	if strings.Contains(upper, "MATCH") && !strings.Contains(upper, "RETURN") {
		return fmt.Errorf("query has MATCH but no RETURN clause")
	}
	return nil
}

// QueryWithRetry generates, validates, and executes a query. A validation
// or execution failure is fed back to the model for up to maxRetries
// regenerations. The last generated query is returned alongside the
// results so callers can show what ran.
func (t *Translator) QueryWithRetry(ctx context.Context, question string, runner graph.Runner, maxRetries int) ([]map[string]any, string, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var cypher string
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		var err error
		if attempt == 0 {
			cypher, err = t.GenerateCypher(ctx, question)
		} else {
			cypher, err = t.GenerateCypher(ctx, fmt.Sprintf(fixPrompt, lastErr, question, cypher))
		}
		if err != nil {
			return nil, cypher, err
		}

		if err := ValidateCypher(cypher); err != nil {
			lastErr = err
			if attempt < maxRetries {
				fmt.Printf("Warning: generated query failed validation, retrying... (attempt %d/%d)\n", attempt+1, maxRetries+1)
				continue
			}
			return nil, cypher, err
		}

		results, err := runner.ExecuteQuery(ctx, cypher, nil)
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				fmt.Printf("Warning: query failed, retrying... (attempt %d/%d)\n", attempt+1, maxRetries+1)
				continue
			}
			return nil, cypher, err
		}
		return results, cypher, nil
	}
	return nil, cypher, lastErr
}
