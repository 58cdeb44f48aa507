package llm

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"orion/pkg/core/extract"
)

const extractionSystemPrompt = `Extract person-company employment relationships from SEC EDGAR filing text.

CRITICAL: Return ONLY valid JSON array, no other text. Format:
[
  {"name": "Full Name", "title": "Job Title", "company": "Company Name", "role_type": "CEO|Director|Officer|Executive|Signatory|Contact|Other"}
]

Rules:
- Extract signatories, executives, directors, officers, contacts
- Use exact names/titles from document
- If company not mentioned, use filing company
- Return [] if none found
- Return ONLY the JSON array, no explanations or markdown
- Ensure all JSON is properly closed with brackets`

const extractionPrompt = `Company Information:
- Filing Company: %s
- CIK: %s

Filing Content:
%s

Extract all person-company employment relationships from this filing.`

const (
	// maxPromptContent caps the filing text sent to the model.
	maxPromptContent = 5000
	// headLines of the filing always go in; the SEC header block names the
	// company and its officers.
	headLines    = 50
	contextLines = 2
)

// relevantKeywords marks lines likely to name people and their roles.
var relevantKeywords = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(signature|signed|by\s*/\s*s\s*/)`),
	regexp.MustCompile(`(?i)(director|officer|executive|chief|president|ceo|cfo|coo)`),
	regexp.MustCompile(`(?i)(contact\s*(?:person|information)?|investor\s*relations)`),
	regexp.MustCompile(`(?i)(board\s*of\s*directors|management|leadership)`),
}

// Relationship is one person-company employment relationship reported by
// the model.
type Relationship struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	RoleType string `json:"role_type"`
}

// ExtractionClient asks a provider for the people named in a filing.
type ExtractionClient struct {
	provider Provider
}

// NewExtractionClient binds the client to a provider.
func NewExtractionClient(provider Provider) *ExtractionClient {
	return &ExtractionClient{provider: provider}
}

// Extract samples the filing for relationship-bearing sections, queries the
// model, and decodes its response. An unparseable response is reported and
// yields no relationships rather than an error.
func (c *ExtractionClient) Extract(ctx context.Context, content, companyName, cik string) ([]Relationship, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	if companyName == "" {
		companyName = "Unknown Company"
	}
	if cik == "" {
		cik = "unknown"
	}

	prompt := fmt.Sprintf(extractionPrompt, companyName, cik, relevantSections(content, maxPromptContent))
	raw, err := c.provider.GenerateResponse(ctx, prompt, extractionSystemPrompt, map[string]interface{}{
		"temperature": 0.0,
		"num_ctx":     2048,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query extraction model: %w", err)
	}

	rels, ok := decodeRelationshipArray(raw)
	if !ok {
		preview := strings.ReplaceAll(raw, "\n", " ")
		if len(preview) > 300 {
			preview = preview[:300] + "..."
		}
		fmt.Printf("Warning: could not parse model response: %s\n", preview)
		return nil, nil
	}
	return normalizeRelationships(rels, companyName), nil
}

// ExtractPeople adapts Extract to the graph builder's extractor seam.
func (c *ExtractionClient) ExtractPeople(ctx context.Context, content, companyName string) ([]extract.Person, error) {
	rels, err := c.Extract(ctx, content, companyName, "")
	if err != nil {
		return nil, err
	}
	people := make([]extract.Person, 0, len(rels))
	for _, rel := range rels {
		people = append(people, extract.Person{Name: rel.Name, Title: rel.Title, RoleType: rel.RoleType})
	}
	return people, nil
}

// normalizeRelationships drops entries without a plausible name and fills
// the defaults the model tends to omit.
func normalizeRelationships(rels []Relationship, companyName string) []Relationship {
	var out []Relationship
	for _, rel := range rels {
		rel.Name = strings.TrimSpace(rel.Name)
		if len(rel.Name) <= 2 {
			continue
		}
		rel.Title = strings.TrimSpace(rel.Title)
		if rel.Title == "" {
			rel.Title = "Unknown Title"
		}
		rel.Company = strings.TrimSpace(rel.Company)
		if rel.Company == "" {
			rel.Company = companyName
		}
		rel.RoleType = strings.TrimSpace(rel.RoleType)
		if rel.RoleType == "" {
			rel.RoleType = "Other"
		}
		out = append(out, rel)
	}
	return out
}

// relevantSections samples the lines most likely to carry person-company
// information: every keyword hit with two lines of context on each side,
// plus the header block, capped at maxLen characters.
func relevantSections(content string, maxLen int) string {
	lines := strings.Split(content, "\n")
	keep := make(map[int]struct{})

	for i, line := range lines {
		for _, pattern := range relevantKeywords {
			if pattern.MatchString(line) {
				for j := max(0, i-contextLines); j < min(len(lines), i+contextLines+1); j++ {
					keep[j] = struct{}{}
				}
				break
			}
		}
	}
	for i := 0; i < len(lines) && i < headLines; i++ {
		keep[i] = struct{}{}
	}

	indexes := make([]int, 0, len(keep))
	for i := range keep {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	picked := make([]string, len(indexes))
	for i, idx := range indexes {
		picked[i] = lines[idx]
	}
	extracted := strings.Join(picked, "\n")

	if len(extracted) > maxLen {
		extracted = extracted[:maxLen] + "\n\n[... content truncated ...]"
	}
	if extracted == "" && len(content) > maxLen {
		return content[:maxLen]
	}
	if extracted == "" {
		return content
	}
	return extracted
}
