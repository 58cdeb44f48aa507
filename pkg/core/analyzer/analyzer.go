// Package analyzer reviews extraction quality over sampled filings. It
// feeds pattern-extraction output back to the local model and stores the
// resulting markdown reports next to the corpus metadata.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"orion/pkg/core/extract"
	"orion/pkg/core/filing"
	"orion/pkg/core/llm"
)

// Analysis kinds, used as report filename stems.
const (
	KindExtraction = "extraction"
	KindPatterns   = "patterns"
	KindMissing    = "missing_entities"
	KindSchema     = "schema"
)

const (
	maxSamples          = 5
	previewChars        = 2000
	patternContentChars = 3000
	missingContentChars = 8000
	maxPatterns         = 10
)

const extractionSystem = `You are an expert reviewer of entity extraction pipelines for SEC EDGAR filings.

The pipeline parses 6-K filings and extracts entities (companies, people, events)
to build a Neo4j graph database.

Analyze the extraction output and suggest improvements based on:
1. Pattern matching effectiveness
2. Missing entity types or relationships
3. Data quality issues (empty fields, incorrect parsing)
4. Edge cases not handled
5. Better extraction patterns

Provide specific, actionable suggestions with examples when possible.`

const extractionPrompt = `Extraction results for the sampled filings:

%s

Based on the filing previews and the extracted entities, provide:
1. **Extraction Analysis**: What the pipeline currently captures well
2. **Issues Found**: Problems or limitations in the current output
3. **Suggestions**: Specific improvements with examples
4. **Missing Patterns**: Entities or relationships that might be missed
5. **Edge Cases**: Scenarios not currently handled

Format your response as structured analysis with clear sections.`

const patternsSystem = `You are a regex pattern expert. Analyze filing content and suggest
improved regex patterns for extracting person names, titles, and relationships.

Provide patterns that are:
- More accurate (fewer false positives)
- More comprehensive (catch more cases)
- Well-documented with examples`

const patternsPrompt = `Current patterns being used:
%s

Sample filing content:
%s

Suggest improved regex patterns for extracting:
1. Person names (executives, directors, signatories)
2. Job titles
3. Company relationships
4. Event information

For each pattern, provide:
- The regex pattern
- Explanation of what it matches
- Example matches from the content`

const missingSystem = `You are an expert at analyzing SEC EDGAR filings. Identify all entities
(people, companies, events, relationships) that should be extracted from the filing.

Compare what was extracted vs what should have been extracted.`

const missingPrompt = `Filing content:
%s

Currently extracted entities:
%s

Identify:
1. Missing people (names, titles, roles)
2. Missing companies or subsidiaries
3. Missing events or filings
4. Missing relationships
5. Data quality issues in extracted entities

Provide specific examples from the content.`

const schemaSystem = `You are a graph database design expert. Analyze the current Neo4j schema
and suggest improvements based on the actual data being stored.

Consider:
- Missing node types or properties
- Missing relationship types
- Better indexing strategies
- Data normalization opportunities
- Query performance improvements`

const schemaPrompt = `Current graph schema:
%s

Sample extracted data:
%s

Suggest improvements to:
1. Node types and properties
2. Relationship types and properties
3. Indexes for better query performance
4. Data structure optimizations
5. Missing relationships that could be valuable`

// Sample is one staged filing with the pattern extractor already run over
// its body.
type Sample struct {
	Record *filing.Record
	People []extract.Person
	Event  *extract.Event
}

// LoadSamples parses up to limit staged filings for a year and runs the
// pattern extractor on each. Unreadable filings are skipped with a warning.
func LoadSamples(filingsDir string, year, limit int) ([]Sample, error) {
	paths, err := filing.ListFilings(filingsDir, year)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}

	var samples []Sample
	for _, path := range paths {
		rec, err := filing.Parse(path)
		if err != nil {
			fmt.Printf("Warning: could not load %s: %v. Skipping.\n", path, err)
			continue
		}
		content := rec.RawText + rec.HTMLContent
		samples = append(samples, Sample{
			Record: rec,
			People: extract.ExtractPeople(content),
			Event:  extract.ExtractEvent(content, rec.AccessionNumber, rec.FilingDate),
		})
	}
	return samples, nil
}

func (s Sample) content() string {
	if s.Record == nil {
		return ""
	}
	return s.Record.RawText + s.Record.HTMLContent
}

// filingSummary is the per-filing digest handed to the model.
type filingSummary struct {
	CIK            string   `json:"cik"`
	CompanyName    string   `json:"company_name"`
	FilingType     string   `json:"filing_type"`
	ContentPreview string   `json:"content_preview"`
	People         []string `json:"people"`
	Events         []string `json:"events"`
}

func newFilingSummary(s Sample) filingSummary {
	sum := filingSummary{
		People: []string{},
		Events: []string{},
	}
	if s.Record != nil {
		sum.CIK = s.Record.CIK
		sum.CompanyName = s.Record.CompanyName
		sum.FilingType = s.Record.FormType
	}
	sum.ContentPreview = head(s.content(), previewChars)
	for _, p := range s.People {
		sum.People = append(sum.People, fmt.Sprintf("%s (%s)", p.Name, p.Title))
	}
	if s.Event != nil {
		sum.Events = append(sum.Events, fmt.Sprintf("%s: %s", s.Event.EventType, s.Event.Title))
	}
	return sum
}

// Analyzer asks the model to review extraction output.
type Analyzer struct {
	provider llm.Provider
}

// New binds the analyzer to a model provider.
func New(provider llm.Provider) *Analyzer {
	return &Analyzer{provider: provider}
}

// AnalyzeExtraction reviews what the pattern extractor pulled from the
// sampled filings. At most five samples are sent.
func (a *Analyzer) AnalyzeExtraction(ctx context.Context, samples []Sample) (string, error) {
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	summaries := make([]filingSummary, 0, len(samples))
	for _, s := range samples {
		summaries = append(summaries, newFilingSummary(s))
	}
	payload, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal filing summaries: %w", err)
	}
	return a.generate(ctx, fmt.Sprintf(extractionPrompt, payload), extractionSystem)
}

// AnalyzePatterns asks for improved patterns given the extractor's current
// pattern set and content from the first two samples.
func (a *Analyzer) AnalyzePatterns(ctx context.Context, samples []Sample) (string, error) {
	patterns := extract.PatternSources()
	if len(patterns) > maxPatterns {
		patterns = patterns[:maxPatterns]
	}

	var content strings.Builder
	for i, s := range samples {
		if i >= 2 {
			break
		}
		content.WriteString(head(s.content(), patternContentChars))
	}

	prompt := fmt.Sprintf(patternsPrompt, strings.Join(patterns, "\n"), content.String())
	return a.generate(ctx, prompt, patternsSystem)
}

// AnalyzeMissing compares one filing's body against what was extracted
// from it and asks what was missed.
func (a *Analyzer) AnalyzeMissing(ctx context.Context, sample Sample) (string, error) {
	people := make([]map[string]string, 0, len(sample.People))
	for _, p := range sample.People {
		people = append(people, map[string]string{"name": p.Name, "title": p.Title})
	}
	events := []map[string]string{}
	if sample.Event != nil {
		events = append(events, map[string]string{"type": sample.Event.EventType, "title": sample.Event.Title})
	}
	extracted := map[string]any{
		"people": people,
		"events": events,
	}
	if sample.Record != nil {
		extracted["company"] = map[string]string{
			"name": sample.Record.CompanyName,
			"cik":  sample.Record.CIK,
		}
	}
	payload, err := json.MarshalIndent(extracted, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal extracted entities: %w", err)
	}

	prompt := fmt.Sprintf(missingPrompt, head(sample.content(), missingContentChars), payload)
	return a.generate(ctx, prompt, missingSystem)
}

// AnalyzeSchema asks for graph-schema improvements given the current node
// and relationship types plus sample extracted data.
func (a *Analyzer) AnalyzeSchema(ctx context.Context, samples []Sample) (string, error) {
	schema := map[string][]string{
		"nodes":         {"Company", "Person", "Event", "Sector"},
		"relationships": {"OWNS", "SUBSIDIARY_OF", "WORKS_AT", "HAS_EVENT", "BELONGS_TO_SECTOR"},
	}
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	summaries := make([]filingSummary, 0, len(samples))
	for _, s := range samples {
		summaries = append(summaries, newFilingSummary(s))
	}
	dataJSON, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal sample data: %w", err)
	}

	return a.generate(ctx, fmt.Sprintf(schemaPrompt, schemaJSON, dataJSON), schemaSystem)
}

func (a *Analyzer) generate(ctx context.Context, prompt, system string) (string, error) {
	raw, err := a.provider.GenerateResponse(ctx, prompt, system, map[string]interface{}{
		"temperature": 0.1,
		"num_ctx":     4096,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run analysis: %w", err)
	}
	report := CleanMarkdown(raw)
	if report == "" {
		return "", fmt.Errorf("empty analysis from model")
	}
	if !ValidateMarkdown(report) {
		fmt.Printf("Warning: analysis is not well-formed markdown.\n")
	}
	return report, nil
}

func head(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
