// Package extract pulls people, events, and ownership claims out of 6-K
// filing bodies using ordered regex pattern families. This is the primary
// extraction engine for graph loading and stays dependency-free.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Role classifications assigned by the people pattern families.
const (
	RoleSignatory = "Signatory"
	RoleDirector  = "Director"
	RoleCEO       = "CEO"
	RoleOfficer   = "Officer"
	RoleContact   = "Contact"
	RoleExecutive = "Executive"
)

// Person is one individual extracted from a filing body.
type Person struct {
	Name     string
	Title    string
	RoleType string
}

// namePat matches two to four capitalized tokens; initials, hyphens, and
// apostrophes allowed. Token separators stay on one line.
const namePat = `[A-Z][a-zA-Z.\-']*(?:[ \t]+[A-Z][a-zA-Z.\-']*){1,3}`

// personSpec is one (pattern, title classifier, role) record. Specs run in
// order, and the first family to produce a given name wins.
type personSpec struct {
	re       *regexp.Regexp
	role     string
	classify func(m []string) string
}

func fixedTitle(title string) func([]string) string {
	return func([]string) string { return title }
}

// groupTitle prefers a captured group when it validates as a job title.
func groupTitle(group int, fallback string) func([]string) string {
	return func(m []string) string {
		if group < len(m) {
			title := strings.TrimSpace(m[group])
			if ValidTitle(title) {
				return title
			}
		}
		return fallback
	}
}

var personSpecs = []personSpec{
	// Signature blocks.
	{regexp.MustCompile(`By\s*/\s*[sS]\s*/\s*:?[ \t]*(` + namePat + `)`), RoleSignatory, fixedTitle("Authorised Signatory")},
	{regexp.MustCompile(`Signed:[ \t]*(` + namePat + `)`), RoleSignatory, fixedTitle("Authorised Signatory")},
	{regexp.MustCompile(`Signature:[ \t]*(` + namePat + `)`), RoleSignatory, fixedTitle("Authorised Signatory")},
	{regexp.MustCompile(`Authorised Signatory:[ \t]*(` + namePat + `)`), RoleSignatory, fixedTitle("Authorised Signatory")},
	// Directors.
	{regexp.MustCompile(`(` + namePat + `),[ \t]*Director\b`), RoleDirector, fixedTitle("Director")},
	{regexp.MustCompile(`(` + namePat + `)[ \t]*\([ \t]*([^)]*Director[^)]*)\)`), RoleDirector, groupTitle(2, "Director")},
	{regexp.MustCompile(`(` + namePat + `)[ \t]*-[ \t]*Director\b`), RoleDirector, fixedTitle("Director")},
	{regexp.MustCompile(`Board of Directors:[ \t]*(` + namePat + `)`), RoleDirector, fixedTitle("Director")},
	// Chief executives.
	{regexp.MustCompile(`Chief Executive Officer:[ \t]*(` + namePat + `)`), RoleCEO, fixedTitle("Chief Executive Officer")},
	{regexp.MustCompile(`CEO:[ \t]*(` + namePat + `)`), RoleCEO, fixedTitle("Chief Executive Officer")},
	{regexp.MustCompile(`(` + namePat + `),[ \t]*(Chief Executive(?:[ \t]+Officer)?)\b`), RoleCEO, groupTitle(2, "Chief Executive")},
	{regexp.MustCompile(`Chief Executive:[ \t]*(` + namePat + `)`), RoleCEO, fixedTitle("Chief Executive")},
	// Named officers, title preserved.
	{regexp.MustCompile(`(` + namePat + `),[ \t]*((?:Chief|President|Vice|Senior|Executive)[A-Za-z ]{0,40}Officer)`), RoleOfficer, groupTitle(2, "Officer")},
	{regexp.MustCompile(`(` + namePat + `)[ \t]*\([ \t]*((?:Chief|President|Vice|Senior|Executive)[A-Za-z ]{0,40}Officer)[ \t]*\)`), RoleOfficer, groupTitle(2, "Officer")},
	// Contacts.
	{regexp.MustCompile(`Contact:[ \t]*(` + namePat + `)(?:,[ \t]*([A-Za-z ]{2,40}))?`), RoleContact, groupTitle(2, "Contact")},
	{regexp.MustCompile(`Communications Director:[ \t]*(` + namePat + `)`), RoleContact, fixedTitle("Communications Director")},
	{regexp.MustCompile(`(` + namePat + `),[ \t]*Investor Relations\b`), RoleContact, fixedTitle("Investor Relations")},
}

// ExtractPeople runs the people pattern families over a filing body and
// deduplicates by case-folded name. The first extraction for a name wins;
// later families cannot reassign a person's role.
func ExtractPeople(content string) []Person {
	var people []Person
	seen := make(map[string]struct{})
	for _, spec := range personSpecs {
		for _, m := range spec.re.FindAllStringSubmatch(content, -1) {
			name := cleanName(m[1])
			if !ValidName(name) {
				continue
			}
			key := strings.ToLower(name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			people = append(people, Person{
				Name:     name,
				Title:    spec.classify(m),
				RoleType: spec.role,
			})
		}
	}
	return people
}

// PatternSources returns the source text of every people pattern, in the
// order they run.
func PatternSources() []string {
	sources := make([]string, len(personSpecs))
	for i, spec := range personSpecs {
		sources[i] = spec.re.String()
	}
	return sources
}

// ClassifyRole maps a free-form job title onto a role classification.
func ClassifyRole(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "chief executive") || strings.Contains(lower, "ceo"):
		return RoleCEO
	case strings.Contains(lower, "director"):
		return RoleDirector
	case strings.Contains(lower, "officer"):
		return RoleOfficer
	case strings.Contains(lower, "signatory"):
		return RoleSignatory
	case strings.Contains(lower, "contact") || strings.Contains(lower, "relations"):
		return RoleContact
	default:
		return RoleExecutive
	}
}

func cleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var reLongDigits = regexp.MustCompile(`\d{3,}`)

// nameStopWords reject capitalized phrases that the name patterns pick up
// but that are never personal names: corporate suffixes, SEC header
// vocabulary, units, and month names.
var nameStopWords = map[string]struct{}{
	// Corporate suffixes.
	"inc": {}, "corp": {}, "corporation": {}, "ltd": {}, "limited": {},
	"llc": {}, "plc": {}, "company": {}, "co": {}, "group": {},
	"holdings": {}, "trust": {}, "bank": {}, "fund": {}, "partners": {},
	// SEC header vocabulary.
	"securities": {}, "exchange": {}, "commission": {}, "washington": {},
	"form": {}, "pursuant": {}, "registrant": {}, "report": {},
	"annual": {}, "quarterly": {}, "section": {}, "act": {}, "rule": {},
	"exhibit": {}, "filing": {}, "statement": {}, "signatory": {},
	// Units.
	"million": {}, "billion": {}, "thousand": {}, "dollars": {},
	"dollar": {}, "euro": {}, "usd": {}, "gbp": {}, "percent": {},
	// Month names.
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {},
	"june": {}, "july": {}, "august": {}, "september": {}, "october": {},
	"november": {}, "december": {},
}

// ValidName reports whether a captured string is plausibly a person's name:
// 2-4 tokens, each leading-uppercase and mostly alphabetic, no long digit
// runs, and no stop-list token.
func ValidName(name string) bool {
	if reLongDigits.MatchString(name) {
		return false
	}
	tokens := strings.Fields(name)
	if len(tokens) < 2 || len(tokens) > 4 {
		return false
	}
	for _, tok := range tokens {
		runes := []rune(tok)
		if !unicode.IsUpper(runes[0]) {
			return false
		}
		letters := 0
		for _, r := range runes {
			if unicode.IsLetter(r) {
				letters++
			}
		}
		if letters*2 < len(runes) {
			return false
		}
		if _, stop := nameStopWords[strings.ToLower(strings.Trim(tok, ".,"))]; stop {
			return false
		}
	}
	return true
}

var (
	rePureNumeric = regexp.MustCompile(`^[\d\s.,%$£€\-]+$`)

	titleUnits = map[string]struct{}{
		"million": {}, "billion": {}, "thousand": {}, "percent": {},
		"dollars": {}, "usd": {}, "gbp": {}, "euro": {},
	}

	titleKeywords = []string{
		"director", "officer", "chief", "president", "vice", "executive",
		"secretary", "treasurer", "chairman", "manager", "counsel",
		"relations", "signatory", "contact",
	}
)

// ValidTitle reports whether a captured string reads like a job title.
// Pure numbers and unit words never qualify; short strings need a title
// keyword, longer ones pass on length alone.
func ValidTitle(title string) bool {
	t := strings.TrimSpace(title)
	if t == "" || rePureNumeric.MatchString(t) {
		return false
	}
	lower := strings.ToLower(t)
	if _, unit := titleUnits[lower]; unit {
		return false
	}
	if len(t) >= 10 {
		return true
	}
	for _, kw := range titleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
