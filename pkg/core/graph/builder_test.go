package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"orion/pkg/core/edgar"
	"orion/pkg/core/extract"
)

var errExec = errors.New("statement failed")

type recordedQuery struct {
	cypher string
	params map[string]any
}

// fakeRunner records every statement and can fail or answer selected ones
// by cypher substring.
type fakeRunner struct {
	queries []recordedQuery
	fail    map[string]error
	rows    map[string][]map[string]any
}

func (f *fakeRunner) ExecuteQuery(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	f.queries = append(f.queries, recordedQuery{cypher: cypher, params: params})
	for sub, err := range f.fail {
		if strings.Contains(cypher, sub) {
			return nil, err
		}
	}
	for sub, rows := range f.rows {
		if strings.Contains(cypher, sub) {
			return rows, nil
		}
	}
	return nil, nil
}

func (f *fakeRunner) find(t *testing.T, sub string) recordedQuery {
	t.Helper()
	for _, q := range f.queries {
		if strings.Contains(q.cypher, sub) {
			return q
		}
	}
	t.Fatalf("no recorded query contains %q", sub)
	return recordedQuery{}
}

func (f *fakeRunner) countContaining(sub string) int {
	n := 0
	for _, q := range f.queries {
		if strings.Contains(q.cypher, sub) {
			n++
		}
	}
	return n
}

const minimalFiling = `ACCESSION NUMBER:		0000950123-09-012345
CONFORMED PERIOD OF REPORT:	20090930
FILED AS OF DATE:		20091116
COMPANY CONFORMED NAME:			Example Corp
CENTRAL INDEX KEY:			123456
STANDARD INDUSTRIAL CLASSIFICATION:	COMMERCIAL BANKING [6029]
FORM TYPE:		6-K
<DOCUMENT>
<TYPE>6-K
<TEXT>
<html><body>
<p>Example Corp announces Q3 2009 Results.</p>
<p>By /s/ Jane A. Doe</p>
</body></html>
</TEXT>
</DOCUMENT>
`

func stageFiling(t *testing.T, content string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "2009")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	path := filepath.Join(dir, "0000950123-09-012345.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func TestProcessFilingMinimal(t *testing.T) {
	runner := &fakeRunner{}
	builder := NewBuilder(runner)
	path := stageFiling(t, minimalFiling)

	stats, err := builder.ProcessFiling(context.Background(), path, false)
	if err != nil {
		t.Fatalf("ProcessFiling failed: %v", err)
	}

	want := Stats{Companies: 1, People: 1, Events: 1, Relationships: 3}
	if stats != want {
		t.Errorf("Expected stats %+v, got %+v", want, stats)
	}

	company := runner.find(t, "MERGE (c:Company")
	if company.params["cik"] != "0000123456" {
		t.Errorf("Expected padded CIK, got %v", company.params["cik"])
	}
	if company.params["name"] != "Example Corp" {
		t.Errorf("Expected company name, got %v", company.params["name"])
	}
	if company.params["id"] != "company_0000123456" {
		t.Errorf("Expected company id, got %v", company.params["id"])
	}
	if !strings.Contains(company.cypher, "COALESCE(NULLIF($name, ''), c.name)") {
		t.Error("Expected monotone enrichment on company properties")
	}

	sector := runner.find(t, "MERGE (s:Sector")
	if sector.params["sic_code"] != "6029" {
		t.Errorf("Expected SIC 6029, got %v", sector.params["sic_code"])
	}
	if sector.params["name"] != "COMMERCIAL BANKING" {
		t.Errorf("Expected sector name from description, got %v", sector.params["name"])
	}

	belongs := runner.find(t, "BELONGS_TO_SECTOR")
	if belongs.params["cik"] != "0000123456" {
		t.Errorf("Expected padded CIK on sector edge, got %v", belongs.params["cik"])
	}

	person := runner.find(t, "MERGE (p:Person")
	if person.params["id"] != "person_jane_a._doe_0000123456" {
		t.Errorf("Unexpected person id %v", person.params["id"])
	}
	if person.params["role_type"] != extract.RoleSignatory {
		t.Errorf("Expected Signatory role, got %v", person.params["role_type"])
	}

	works := runner.find(t, "WORKS_AT")
	if works.params["title"] != "Authorised Signatory" {
		t.Errorf("Expected WORKS_AT title, got %v", works.params["title"])
	}

	event := runner.find(t, "MERGE (e:Event")
	if event.params["id"] != "event_0000950123-09-012345_Financial Results" {
		t.Errorf("Unexpected event id %v", event.params["id"])
	}
	if event.params["event_type"] != extract.EventFinancialResults {
		t.Errorf("Expected Financial Results, got %v", event.params["event_type"])
	}
	if event.params["title"] != "Q3 2009 Results" {
		t.Errorf("Expected quarterly title, got %v", event.params["title"])
	}

	hasEvent := runner.find(t, "HAS_EVENT")
	if hasEvent.params["filing_date"] != "2009-11-16" {
		t.Errorf("Expected filing date on HAS_EVENT, got %v", hasEvent.params["filing_date"])
	}
	if hasEvent.params["filing_id"] != "0000950123-09-012345" {
		t.Errorf("Expected accession on HAS_EVENT, got %v", hasEvent.params["filing_id"])
	}
}

func TestProcessFilingIdempotentReload(t *testing.T) {
	runner := &fakeRunner{}
	builder := NewBuilder(runner)
	path := stageFiling(t, minimalFiling)
	ctx := context.Background()

	first, err := builder.ProcessFiling(ctx, path, false)
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	firstQueries := len(runner.queries)

	second, err := builder.ProcessFiling(ctx, path, false)
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}

	if first != second {
		t.Errorf("Expected identical stats across reloads, got %+v then %+v", first, second)
	}

	// The dedup caches skip the node re-writes; edge upserts still run
	// and stay idempotent through MERGE.
	if got := runner.countContaining("MERGE (c:Company"); got != 1 {
		t.Errorf("Expected 1 company write, got %d", got)
	}
	if got := runner.countContaining("MERGE (p:Person"); got != 1 {
		t.Errorf("Expected 1 person write, got %d", got)
	}
	if got := runner.countContaining("MERGE (s:Sector"); got != 1 {
		t.Errorf("Expected 1 sector write, got %d", got)
	}
	if got := runner.countContaining("MERGE (e:Event"); got != 1 {
		t.Errorf("Expected 1 event write, got %d", got)
	}
	secondQueries := len(runner.queries) - firstQueries
	if secondQueries != 3 {
		t.Errorf("Expected 3 edge queries on reload, got %d", secondQueries)
	}
}

func TestProcessFilingNoCIK(t *testing.T) {
	runner := &fakeRunner{}
	builder := NewBuilder(runner)
	content := "COMPANY CONFORMED NAME:\t\tMystery Corp\n<TEXT>hello</TEXT>\n"
	path := stageFiling(t, content)

	stats, err := builder.ProcessFiling(context.Background(), path, false)
	if err != nil {
		t.Fatalf("Expected skip without error, got %v", err)
	}
	if stats != (Stats{}) {
		t.Errorf("Expected zero stats, got %+v", stats)
	}
	if len(runner.queries) != 0 {
		t.Errorf("Expected no graph writes, got %d", len(runner.queries))
	}
}

func TestProcessFilingHeaderOnly(t *testing.T) {
	runner := &fakeRunner{}
	builder := NewBuilder(runner)
	content := "COMPANY CONFORMED NAME:\t\tExample Corp\nCENTRAL INDEX KEY:\t\t123456\n"
	path := stageFiling(t, content)

	stats, err := builder.ProcessFiling(context.Background(), path, false)
	if err != nil {
		t.Fatalf("ProcessFiling failed: %v", err)
	}
	want := Stats{Companies: 1}
	if stats != want {
		t.Errorf("Expected only the company write, got %+v", stats)
	}
}

func TestProcessFilingSubStepFailureContinues(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{"MERGE (s:Sector": errExec}}
	builder := NewBuilder(runner)
	path := stageFiling(t, minimalFiling)

	stats, err := builder.ProcessFiling(context.Background(), path, false)
	if err != nil {
		t.Fatalf("Expected sub-step failure to be absorbed, got %v", err)
	}
	if stats.Companies != 1 || stats.People != 1 || stats.Events != 1 {
		t.Errorf("Expected later steps to run, got %+v", stats)
	}
	// Sector edge never written, so one relationship is missing.
	if stats.Relationships != 2 {
		t.Errorf("Expected 2 relationships after sector failure, got %d", stats.Relationships)
	}
}

func TestProcessFilingOwnershipResolution(t *testing.T) {
	runner := &fakeRunner{}
	builder := NewBuilder(runner)
	builder.RegisterCompanies([]edgar.Company{
		{Name: "ALPHA HOLDINGS PLC", CIK: "111"},
		{Name: "BETA SHIPPING LTD", CIK: "222"},
	})

	content := `ACCESSION NUMBER:		0000950123-09-000111
FILED AS OF DATE:		20091116
COMPANY CONFORMED NAME:			ALPHA HOLDINGS PLC
CENTRAL INDEX KEY:			111
<DOCUMENT>
<TYPE>6-K
<TEXT>
Beta Shipping Ltd is a wholly owned subsidiary of Alpha Holdings PLC.
Delta Unknown Corp is a subsidiary of Alpha Holdings PLC.
</TEXT>
</DOCUMENT>
`
	path := stageFiling(t, content)

	stats, err := builder.ProcessFiling(context.Background(), path, false)
	if err != nil {
		t.Fatalf("ProcessFiling failed: %v", err)
	}

	if got := runner.countContaining("SUBSIDIARY_OF"); got != 1 {
		t.Fatalf("Expected 1 resolved ownership write, got %d", got)
	}
	ownership := runner.find(t, "SUBSIDIARY_OF")
	if ownership.params["parent_cik"] != "0000000111" {
		t.Errorf("Expected parent CIK resolved, got %v", ownership.params["parent_cik"])
	}
	if ownership.params["child_cik"] != "0000000222" {
		t.Errorf("Expected child CIK resolved, got %v", ownership.params["child_cik"])
	}
	if ownership.params["ownership_type"] != "wholly owned" {
		t.Errorf("Expected wholly owned tag, got %v", ownership.params["ownership_type"])
	}

	// company + has_event + ownership; the unresolved Delta pair is skipped.
	if stats.Relationships != 2 {
		t.Errorf("Expected 2 relationships, got %+v", stats)
	}
}

type fakeAIExtractor struct {
	people []extract.Person
	err    error
	calls  int
}

func (f *fakeAIExtractor) ExtractPeople(_ context.Context, content, companyName string) ([]extract.Person, error) {
	f.calls++
	return f.people, f.err
}

func TestProcessFilingAISupplement(t *testing.T) {
	runner := &fakeRunner{}
	builder := NewBuilder(runner)
	ai := &fakeAIExtractor{people: []extract.Person{
		{Name: "Jane A. Doe", Title: "Director", RoleType: extract.RoleDirector},
		{Name: "John Q. Smith", Title: "Chief Financial Officer", RoleType: extract.RoleOfficer},
	}}
	builder.SetAIExtractor(ai)
	path := stageFiling(t, minimalFiling)

	stats, err := builder.ProcessFiling(context.Background(), path, true)
	if err != nil {
		t.Fatalf("ProcessFiling failed: %v", err)
	}
	if ai.calls != 1 {
		t.Fatalf("Expected 1 extractor call, got %d", ai.calls)
	}
	if stats.People != 2 {
		t.Errorf("Expected pattern person plus AI person, got %+v", stats)
	}

	jane := runner.find(t, "MERGE (p:Person")
	if jane.params["role_type"] != extract.RoleSignatory {
		t.Errorf("Expected pattern extraction to win for Jane, got %v", jane.params["role_type"])
	}
	if got := runner.countContaining("MERGE (p:Person"); got != 2 {
		t.Errorf("Expected 2 person writes, got %d", got)
	}
}

func TestProcessFilingAIFailureFallsBack(t *testing.T) {
	runner := &fakeRunner{}
	builder := NewBuilder(runner)
	ai := &fakeAIExtractor{err: errExec}
	builder.SetAIExtractor(ai)
	path := stageFiling(t, minimalFiling)

	stats, err := builder.ProcessFiling(context.Background(), path, true)
	if err != nil {
		t.Fatalf("Expected AI failure to be absorbed, got %v", err)
	}
	if stats.People != 1 {
		t.Errorf("Expected pattern results only, got %+v", stats)
	}
}

func TestProcessFilingWithoutExtractorIgnoresFlag(t *testing.T) {
	runner := &fakeRunner{}
	builder := NewBuilder(runner)
	path := stageFiling(t, minimalFiling)

	stats, err := builder.ProcessFiling(context.Background(), path, true)
	if err != nil {
		t.Fatalf("ProcessFiling failed: %v", err)
	}
	if stats.People != 1 {
		t.Errorf("Expected pattern extraction only, got %+v", stats)
	}
}

func TestProcessFilingsAggregates(t *testing.T) {
	runner := &fakeRunner{}
	builder := NewBuilder(runner)

	root := t.TempDir()
	dir := filepath.Join(root, "2009")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	for _, name := range []string{"0000950123-09-000001.txt", "0000950123-09-000002.txt"} {
		content := strings.Replace(minimalFiling, "0000950123-09-012345", strings.TrimSuffix(name, ".txt"), 2)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	agg, err := builder.ProcessFilings(context.Background(), root, 0, 0)
	if err != nil {
		t.Fatalf("ProcessFilings failed: %v", err)
	}
	if agg.FilingsProcessed != 2 {
		t.Errorf("Expected 2 filings processed, got %d", agg.FilingsProcessed)
	}
	if agg.Companies != 2 {
		t.Errorf("Expected 2 company upserts, got %d", agg.Companies)
	}
	// Same company and person across filings, distinct events.
	if agg.Events != 2 {
		t.Errorf("Expected 2 events, got %d", agg.Events)
	}
	if agg.PatternExtractions != 2 {
		t.Errorf("Expected 2 pattern extractions, got %d", agg.PatternExtractions)
	}

	limited, err := NewBuilder(&fakeRunner{}).ProcessFilings(context.Background(), root, 2009, 1)
	if err != nil {
		t.Fatalf("limited ProcessFilings failed: %v", err)
	}
	if limited.FilingsProcessed != 1 {
		t.Errorf("Expected limit to cap processing, got %d", limited.FilingsProcessed)
	}
}

func TestNormalizeCompanyName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Alpha Holdings PLC", "ALPHA HOLDINGS"},
		{"ALPHA HOLDINGS PLC.", "ALPHA HOLDINGS"},
		{"alpha  holdings", "ALPHA HOLDINGS"},
		{"Beta Shipping Ltd", "BETA SHIPPING"},
		{"Gamma Corp", "GAMMA"},
		{"PLC", "PLC"}, // lone suffix is kept, nothing else to key on
	}
	for _, c := range cases {
		if got := normalizeCompanyName(c.in); got != c.want {
			t.Errorf("normalizeCompanyName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMergePeopleKeepsFirstWins(t *testing.T) {
	base := []extract.Person{{Name: "Jane A. Doe", Title: "Authorised Signatory", RoleType: extract.RoleSignatory}}
	supplement := []extract.Person{
		{Name: "Jane A. Doe", Title: "Director", RoleType: extract.RoleDirector},
		{Name: "John Q. Smith", Title: "Chief Financial Officer", RoleType: extract.RoleOfficer},
		{Name: "Not aperson", Title: "x", RoleType: extract.RoleExecutive},
	}

	merged := mergePeople(base, supplement)
	if len(merged) != 2 {
		t.Fatalf("Expected 2 people, got %d: %v", len(merged), merged)
	}
	if merged[0].RoleType != extract.RoleSignatory {
		t.Errorf("Expected pattern extraction to win, got %v", merged[0])
	}
	if merged[1].Name != "John Q. Smith" {
		t.Errorf("Expected valid AI person appended, got %v", merged[1])
	}
}
