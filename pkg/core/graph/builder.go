package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"orion/pkg/core/edgar"
	"orion/pkg/core/extract"
	"orion/pkg/core/filing"
)

// Stats counts the graph writes for one filing. Counts reflect successful
// upserts, cached or not; the upserts themselves are idempotent.
type Stats struct {
	Companies     int `json:"companies"`
	People        int `json:"people"`
	Events        int `json:"events"`
	Relationships int `json:"relationships"`
}

// Add accumulates another filing's counts.
func (s *Stats) Add(o Stats) {
	s.Companies += o.Companies
	s.People += o.People
	s.Events += o.Events
	s.Relationships += o.Relationships
}

// AggregateStats extends Stats with corpus-level counters.
type AggregateStats struct {
	Stats
	FilingsProcessed   int
	PatternExtractions int
	PatternTime        time.Duration
	TotalTime          time.Duration
}

// AIExtractor supplements pattern extraction with model-extracted people.
type AIExtractor interface {
	ExtractPeople(ctx context.Context, content, companyName string) ([]extract.Person, error)
}

// Builder writes extracted entities into the graph. The four dedup caches
// span the builder's lifetime and skip redundant node writes; one builder
// serves one worker, so the caches need no locking. Cross-worker duplicates
// are absorbed by the upserts being idempotent.
type Builder struct {
	runner Runner

	processedCompanies map[string]struct{}
	processedPeople    map[string]struct{}
	processedEvents    map[string]struct{}
	processedSectors   map[string]struct{}

	// nameToCIK resolves ownership claims, which arrive as company names.
	nameToCIK map[string]string

	ai AIExtractor

	patternExtractions int
	patternTime        time.Duration
}

// NewBuilder wires a builder to a statement runner.
func NewBuilder(runner Runner) *Builder {
	return &Builder{
		runner:             runner,
		processedCompanies: make(map[string]struct{}),
		processedPeople:    make(map[string]struct{}),
		processedEvents:    make(map[string]struct{}),
		processedSectors:   make(map[string]struct{}),
		nameToCIK:          make(map[string]string),
	}
}

// SetAIExtractor enables the optional AI supplement consulted by
// ProcessFiling when a job requests it.
func (b *Builder) SetAIExtractor(ai AIExtractor) {
	b.ai = ai
}

// RegisterCompanies seeds the name index used to resolve ownership claims,
// typically from the discovered filer list.
func (b *Builder) RegisterCompanies(companies []edgar.Company) {
	for _, company := range companies {
		if company.CIK != "" {
			b.registerName(company.Name, FormatCIK(company.CIK))
		}
	}
}

func (b *Builder) registerName(name, cik string) {
	if key := normalizeCompanyName(name); key != "" {
		b.nameToCIK[key] = cik
	}
}

// FormatCIK left-pads a CIK to the canonical 10-digit form.
func FormatCIK(cik string) string {
	return edgar.PadCIK(cik)
}

// normalizeCompanyName folds case and punctuation and drops a trailing
// legal suffix so filing-text names line up with index names.
func normalizeCompanyName(name string) string {
	name = strings.ToUpper(strings.Join(strings.Fields(name), " "))
	name = strings.Trim(name, " .,&-")
	tokens := strings.Split(name, " ")
	if len(tokens) > 1 {
		switch strings.Trim(tokens[len(tokens)-1], ".") {
		case "PLC", "LTD", "LIMITED", "INC", "CORP", "CORPORATION", "LLC", "SA", "NV":
			tokens = tokens[:len(tokens)-1]
		}
	}
	return strings.Join(tokens, " ")
}

func (b *Builder) resolveCIK(name string) string {
	return b.nameToCIK[normalizeCompanyName(name)]
}

// UpsertCompany creates or enriches a Company node keyed by CIK. Property
// writes only overwrite with non-empty values, so repeated ingestion never
// erases known fields. A CIK this builder already wrote is served from the
// cache.
func (b *Builder) UpsertCompany(ctx context.Context, rec *filing.Record) error {
	if rec.CIK == "" {
		return fmt.Errorf("company record has no CIK")
	}
	cik := FormatCIK(rec.CIK)
	if _, cached := b.processedCompanies[cik]; cached {
		b.registerName(rec.CompanyName, cik)
		return nil
	}

	query := `
	MERGE (c:Company {cik: $cik})
	SET c.id = $id,
	    c.name = COALESCE(NULLIF($name, ''), c.name),
	    c.sic_code = COALESCE(NULLIF($sic_code, ''), c.sic_code),
	    c.sic_description = COALESCE(NULLIF($sic_description, ''), c.sic_description),
	    c.fiscal_year_end = COALESCE(NULLIF($fiscal_year_end, ''), c.fiscal_year_end),
	    c.address_street1 = COALESCE(NULLIF($address_street1, ''), c.address_street1),
	    c.address_city = COALESCE(NULLIF($address_city, ''), c.address_city),
	    c.address_state = COALESCE(NULLIF($address_state, ''), c.address_state),
	    c.address_zip = COALESCE(NULLIF($address_zip, ''), c.address_zip),
	    c.phone = COALESCE(NULLIF($phone, ''), c.phone),
	    c.sec_file_number = COALESCE(NULLIF($sec_file_number, ''), c.sec_file_number)
	RETURN c`

	params := map[string]any{
		"cik":             cik,
		"id":              "company_" + cik,
		"name":            strings.TrimSpace(rec.CompanyName),
		"sic_code":        rec.SICCode,
		"sic_description": rec.SICDescription,
		"fiscal_year_end": rec.FiscalYearEnd,
		"address_street1": rec.AddressStreet1,
		"address_city":    rec.AddressCity,
		"address_state":   rec.AddressState,
		"address_zip":     rec.AddressZip,
		"phone":           rec.Phone,
		"sec_file_number": rec.SECFileNumber,
	}

	if _, err := b.runner.ExecuteQuery(ctx, query, params); err != nil {
		return err
	}
	b.processedCompanies[cik] = struct{}{}
	b.registerName(rec.CompanyName, cik)
	return nil
}

// UpsertSector creates or refreshes a Sector node keyed by SIC code.
func (b *Builder) UpsertSector(ctx context.Context, sicCode, sicDescription string) error {
	if sicCode == "" {
		return fmt.Errorf("sector has no SIC code")
	}
	sectorID := "sector_" + sicCode
	if _, cached := b.processedSectors[sectorID]; cached {
		return nil
	}

	name := sicDescription
	if name == "" {
		name = "SIC " + sicCode
	}
	query := `
	MERGE (s:Sector {sic_code: $sic_code})
	SET s.id = $id,
	    s.name = $name,
	    s.description = $description
	RETURN s`
	params := map[string]any{
		"id":          sectorID,
		"sic_code":    sicCode,
		"name":        name,
		"description": sicDescription,
	}

	if _, err := b.runner.ExecuteQuery(ctx, query, params); err != nil {
		return err
	}
	b.processedSectors[sectorID] = struct{}{}
	return nil
}

// LinkCompanySector upserts the BELONGS_TO_SECTOR edge.
func (b *Builder) LinkCompanySector(ctx context.Context, cik, sicCode string) error {
	if cik == "" || sicCode == "" {
		return fmt.Errorf("company-sector link needs both keys")
	}
	query := `
	MATCH (c:Company {cik: $cik})
	MATCH (s:Sector {sic_code: $sic_code})
	MERGE (c)-[r:BELONGS_TO_SECTOR]->(s)
	SET r.sic_code = $sic_code
	RETURN r`
	params := map[string]any{"cik": FormatCIK(cik), "sic_code": sicCode}
	_, err := b.runner.ExecuteQuery(ctx, query, params)
	return err
}

// personID derives the Person node key: lowercased name joined with
// underscores, scoped by company CIK.
func personID(name, cik string) string {
	return "person_" + strings.ReplaceAll(strings.ToLower(name), " ", "_") + "_" + cik
}

// UpsertPerson creates or refreshes a Person node scoped to a company.
func (b *Builder) UpsertPerson(ctx context.Context, person extract.Person, cik string) error {
	if person.Name == "" {
		return fmt.Errorf("person has no name")
	}
	cik = FormatCIK(cik)
	id := personID(person.Name, cik)
	if _, cached := b.processedPeople[id]; cached {
		return nil
	}

	query := `
	MERGE (p:Person {id: $id})
	SET p.name = $name,
	    p.title = $title,
	    p.role_type = $role_type
	RETURN p`
	params := map[string]any{
		"id":        id,
		"name":      person.Name,
		"title":     person.Title,
		"role_type": person.RoleType,
	}

	if _, err := b.runner.ExecuteQuery(ctx, query, params); err != nil {
		return err
	}
	b.processedPeople[id] = struct{}{}
	return nil
}

// LinkWorksAt upserts the WORKS_AT edge carrying title and role.
func (b *Builder) LinkWorksAt(ctx context.Context, person extract.Person, cik string) error {
	if person.Name == "" || cik == "" {
		return fmt.Errorf("works-at link needs a person and a company")
	}
	cik = FormatCIK(cik)

	query := `
	MATCH (p:Person {id: $person_id})
	MATCH (c:Company {cik: $company_cik})
	MERGE (p)-[r:WORKS_AT]->(c)
	SET r.title = $title,
	    r.role_type = $role_type
	RETURN r`
	params := map[string]any{
		"person_id":   personID(person.Name, cik),
		"company_cik": cik,
		"title":       person.Title,
		"role_type":   person.RoleType,
	}
	_, err := b.runner.ExecuteQuery(ctx, query, params)
	return err
}

// UpsertEvent creates or refreshes an Event node.
func (b *Builder) UpsertEvent(ctx context.Context, event *extract.Event) error {
	if event == nil || event.ID == "" {
		return fmt.Errorf("event has no id")
	}
	if _, cached := b.processedEvents[event.ID]; cached {
		return nil
	}

	query := `
	MERGE (e:Event {id: $id})
	SET e.event_type = $event_type,
	    e.title = $title,
	    e.event_date = $event_date,
	    e.filing_id = $filing_id,
	    e.description = $description
	RETURN e`
	params := map[string]any{
		"id":          event.ID,
		"event_type":  event.EventType,
		"title":       event.Title,
		"event_date":  event.EventDate,
		"filing_id":   event.FilingID,
		"description": event.Description,
	}

	if _, err := b.runner.ExecuteQuery(ctx, query, params); err != nil {
		return err
	}
	b.processedEvents[event.ID] = struct{}{}
	return nil
}

// LinkHasEvent upserts the HAS_EVENT edge carrying the filing date and id.
func (b *Builder) LinkHasEvent(ctx context.Context, cik string, event *extract.Event, filingDate string) error {
	if cik == "" || event == nil || event.ID == "" {
		return fmt.Errorf("has-event link needs a company and an event")
	}
	query := `
	MATCH (c:Company {cik: $company_cik})
	MATCH (e:Event {id: $event_id})
	MERGE (c)-[r:HAS_EVENT]->(e)
	SET r.event_date = $filing_date,
	    r.filing_id = $filing_id
	RETURN r`
	params := map[string]any{
		"company_cik": FormatCIK(cik),
		"event_id":    event.ID,
		"filing_date": filingDate,
		"filing_id":   event.FilingID,
	}
	_, err := b.runner.ExecuteQuery(ctx, query, params)
	return err
}

// UpsertOwnership writes an OWNS or SUBSIDIARY_OF edge between two resolved
// companies.
func (b *Builder) UpsertOwnership(ctx context.Context, parentCIK, childCIK string, claim extract.Ownership) error {
	if parentCIK == "" || childCIK == "" {
		return fmt.Errorf("ownership link needs both CIKs")
	}

	var query string
	if claim.RelType == extract.RelSubsidiaryOf {
		query = `
		MATCH (child:Company {cik: $child_cik})
		MATCH (parent:Company {cik: $parent_cik})
		MERGE (child)-[r:SUBSIDIARY_OF]->(parent)
		SET r.ownership_type = $ownership_type
		RETURN r`
	} else {
		query = `
		MATCH (parent:Company {cik: $parent_cik})
		MATCH (child:Company {cik: $child_cik})
		MERGE (parent)-[r:OWNS]->(child)
		SET r.ownership_type = $ownership_type
		RETURN r`
	}
	params := map[string]any{
		"parent_cik":     FormatCIK(parentCIK),
		"child_cik":      FormatCIK(childCIK),
		"ownership_type": claim.OwnershipType,
	}
	_, err := b.runner.ExecuteQuery(ctx, query, params)
	return err
}

// ProcessFiling ingests one staged filing: company, sector, people, event,
// then ownership. A sub-step failure is reported and the next step runs; the
// returned stats reflect what was written. useAI additionally consults the
// configured AI extractor; without one the flag is a no-op.
func (b *Builder) ProcessFiling(ctx context.Context, path string, useAI bool) (Stats, error) {
	var stats Stats

	rec, err := filing.Parse(path)
	if err != nil {
		return stats, err
	}
	if rec.CIK == "" {
		fmt.Printf("Warning: no CIK found in %s. Skipping.\n", rec.FileName)
		return stats, nil
	}
	content := rec.RawText + rec.HTMLContent

	// 1. Company node.
	if err := b.UpsertCompany(ctx, rec); err != nil {
		fmt.Printf("Error creating company node: %v\n", err)
	} else {
		stats.Companies++
	}

	// 2. Sector node and membership edge.
	if rec.SICCode != "" {
		if err := b.UpsertSector(ctx, rec.SICCode, rec.SICDescription); err != nil {
			fmt.Printf("Error creating sector node: %v\n", err)
		} else if err := b.LinkCompanySector(ctx, rec.CIK, rec.SICCode); err != nil {
			fmt.Printf("Error creating sector relationship: %v\n", err)
		} else {
			stats.Relationships++
		}
	}

	// 3. People and WORKS_AT edges.
	extractStart := time.Now()
	people := extract.ExtractPeople(content)
	b.patternTime += time.Since(extractStart)
	b.patternExtractions++

	if useAI && b.ai != nil {
		aiPeople, err := b.ai.ExtractPeople(ctx, content, rec.CompanyName)
		if err != nil {
			fmt.Printf("Warning: AI extraction failed for %s: %v. Using pattern results only.\n", rec.FileName, err)
		} else {
			people = mergePeople(people, aiPeople)
		}
	}

	for _, person := range people {
		if err := b.UpsertPerson(ctx, person, rec.CIK); err != nil {
			fmt.Printf("Error creating person node: %v\n", err)
			continue
		}
		stats.People++
		if err := b.LinkWorksAt(ctx, person, rec.CIK); err != nil {
			fmt.Printf("Error creating WORKS_AT relationship: %v\n", err)
			continue
		}
		stats.Relationships++
	}

	// 4. Event and HAS_EVENT edge.
	if event := extract.ExtractEvent(content, rec.AccessionNumber, rec.FilingDate); event != nil {
		if err := b.UpsertEvent(ctx, event); err != nil {
			fmt.Printf("Error creating event node: %v\n", err)
		} else {
			stats.Events++
			if err := b.LinkHasEvent(ctx, rec.CIK, event, rec.FilingDate); err != nil {
				fmt.Printf("Error creating HAS_EVENT relationship: %v\n", err)
			} else {
				stats.Relationships++
			}
		}
	}

	// 5. Ownership claims, resolved through the name index. Unresolved
	// names are skipped; the claim text alone cannot key a company node.
	for _, claim := range extract.ExtractOwnership(content, rec.CompanyName) {
		parentCIK := b.resolveCIK(claim.Parent)
		childCIK := b.resolveCIK(claim.Child)
		if parentCIK == "" || childCIK == "" || parentCIK == childCIK {
			continue
		}
		if err := b.UpsertOwnership(ctx, parentCIK, childCIK, claim); err != nil {
			fmt.Printf("Error creating ownership relationship: %v\n", err)
			continue
		}
		stats.Relationships++
	}

	return stats, nil
}

// mergePeople appends AI-extracted people that pattern extraction missed,
// preserving the first-extraction-wins rule on case-folded names.
func mergePeople(base, supplement []extract.Person) []extract.Person {
	seen := make(map[string]struct{}, len(base))
	for _, p := range base {
		seen[strings.ToLower(p.Name)] = struct{}{}
	}
	for _, p := range supplement {
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup || !extract.ValidName(p.Name) {
			continue
		}
		seen[key] = struct{}{}
		base = append(base, p)
	}
	return base
}

// ProcessFilings ingests the staged corpus, optionally filtered by year and
// capped by limit. The AI supplement runs whenever an extractor is configured.
func (b *Builder) ProcessFilings(ctx context.Context, filingsDir string, year, limit int) (AggregateStats, error) {
	var agg AggregateStats

	files, err := filing.ListFilings(filingsDir, year)
	if err != nil {
		return agg, err
	}
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	fmt.Printf("Processing %d filings...\n", len(files))
	start := time.Now()

	for i, path := range files {
		if ctx.Err() != nil {
			return agg, ctx.Err()
		}
		if (i+1)%10 == 0 {
			fmt.Printf("  Processed %d/%d filings...\n", i+1, len(files))
		}
		stats, err := b.ProcessFiling(ctx, path, b.ai != nil)
		if err != nil {
			fmt.Printf("Error processing filing %s: %v\n", path, err)
			continue
		}
		agg.Stats.Add(stats)
		agg.FilingsProcessed++
	}

	agg.TotalTime = time.Since(start)
	agg.PatternExtractions = b.patternExtractions
	agg.PatternTime = b.patternTime
	return agg, nil
}
