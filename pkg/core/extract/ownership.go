package extract

import (
	"regexp"
	"strings"
)

// Relationship kinds emitted by the ownership pattern families.
const (
	RelOwns         = "OWNS"
	RelSubsidiaryOf = "SUBSIDIARY_OF"
)

// Ownership is a directed parent/child claim between two company names.
// Names appear as written in the filing; CIK resolution happens in the
// graph loader.
type Ownership struct {
	Parent        string
	Child         string
	RelType       string
	OwnershipType string
}

// companyPat matches a capitalized company name. Periods and newlines stay
// out of the class so captures cannot cross sentence boundaries.
const companyPat = `[A-Z][A-Za-z&' -]+`

// ownershipSpec is one (pattern, relationship kind) record. swap marks
// patterns whose capture order is (child, parent).
type ownershipSpec struct {
	re      *regexp.Regexp
	relType string
	swap    bool
}

var ownershipSpecs = []ownershipSpec{
	{regexp.MustCompile(`(` + companyPat + `)\s+(?:owns|acquired|purchased)\s+(` + companyPat + `)`), RelOwns, false},
	{regexp.MustCompile(`(` + companyPat + `)\s+is\s+(?:a\s+)?subsidiary\s+of\s+(` + companyPat + `)`), RelSubsidiaryOf, true},
	{regexp.MustCompile(`(` + companyPat + `)\s+is\s+(?:the\s+)?parent\s+company\s+of\s+(` + companyPat + `)`), RelOwns, false},
	{regexp.MustCompile(`(` + companyPat + `)\s+is\s+(?:a\s+)?wholly[\s\-]+owned\s+subsidiary\s+of\s+(` + companyPat + `)`), RelSubsidiaryOf, true},
}

// reFormerName finds former-name declarations in the SEC header. The value
// must sit on the label's own line; a bare FORMER COMPANY: label followed by
// an indented block yields no match for the label itself.
var reFormerName = regexp.MustCompile(`(?i:FORMER\s+(?:COMPANY|CONFORMED\s+NAME):)[ \t]*([A-Za-z][A-Za-z0-9&.,\-' ]+)`)

// ExtractOwnership scans a filing body for directed ownership claims.
// filerName is the filing company; former-name declarations attach to it as
// the parent side.
func ExtractOwnership(content, filerName string) []Ownership {
	var claims []Ownership

	for _, spec := range ownershipSpecs {
		for _, m := range spec.re.FindAllStringSubmatch(content, -1) {
			first := trimCompanyName(m[1])
			second := trimCompanyName(m[2])
			if first == "" || second == "" || strings.EqualFold(first, second) {
				continue
			}
			parent, child := first, second
			if spec.swap {
				parent, child = second, first
			}
			ownershipType := "unknown"
			if strings.Contains(strings.ToLower(m[0]), "wholly") {
				ownershipType = "wholly owned"
			}
			claims = append(claims, Ownership{
				Parent:        parent,
				Child:         child,
				RelType:       spec.relType,
				OwnershipType: ownershipType,
			})
		}
	}

	if filerName != "" {
		for _, m := range reFormerName.FindAllStringSubmatch(content, -1) {
			former := trimCompanyName(m[1])
			if former == "" || strings.EqualFold(former, filerName) {
				continue
			}
			claims = append(claims, Ownership{
				Parent:        filerName,
				Child:         former,
				RelType:       RelSubsidiaryOf,
				OwnershipType: "former company",
			})
		}
	}

	return claims
}

func trimCompanyName(s string) string {
	s = trimTrailingLowerWords(s)
	return strings.Trim(s, " .,&-")
}
