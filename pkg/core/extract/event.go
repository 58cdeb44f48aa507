package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Event types in detection priority order.
const (
	EventFinancialResults = "Financial Results"
	EventMerger           = "Merger"
	EventAcquisition      = "Acquisition"
	EventRestructuring    = "Restructuring"
	EventFiling           = "Filing"
)

// descriptionLimit caps the stored event description.
const descriptionLimit = 500

// Event is the single corporate event classified for one filing.
type Event struct {
	ID          string
	EventType   string
	Title       string
	EventDate   string
	FilingID    string
	Description string
}

var (
	reQuarter    = regexp.MustCompile(`(?i)Q([1-4])\s*(\d{4})`)
	reMergerOf   = regexp.MustCompile(`([Mm]erger|[Cc]ombination)\s+(?:of|between)\s+([A-Z][A-Za-z&. ]+)`)
	reAcquiredCo = regexp.MustCompile(`[Aa]cquisition of\s+([A-Z][A-Za-z&.]*(?:[ ][A-Z][A-Za-z&.]*){0,5})`)
	reAcquiredOn = regexp.MustCompile(`[Aa]cqui(?:sition|red)[^.\n]{0,80}?\bon\s+([A-Z][a-z]+ \d{1,2}, \d{4})`)
)

// ExtractEvent classifies the one event a filing reports. Keyword checks run
// in priority order and the first hit decides the type; the title is refined
// when a more specific capture succeeds. Returns nil when the filing has no
// accession number to key the event by.
func ExtractEvent(content, accession, filingDate string) *Event {
	if accession == "" {
		return nil
	}
	lower := strings.ToLower(content)

	eventType := EventFiling
	title := fmt.Sprintf("6-K Filing %s", accession)
	date := filingDate

	switch {
	case containsAny(lower, "quarterly", "q1", "q2", "q3", "q4"):
		eventType = EventFinancialResults
		if m := reQuarter.FindStringSubmatch(content); m != nil {
			title = fmt.Sprintf("Q%s %s Results", m[1], m[2])
		}
	case containsAny(lower, "merger", "combine"):
		eventType = EventMerger
		if m := reMergerOf.FindStringSubmatch(content); m != nil {
			title = fmt.Sprintf("%s - %s", m[1], trimTrailingLowerWords(m[2]))
		}
	case containsAny(lower, "acquisition", "acquired"):
		eventType = EventAcquisition
		title = "Corporate Acquisition"
		if m := reAcquiredCo.FindStringSubmatch(content); m != nil {
			title = "Acquisition of " + strings.TrimSpace(m[1])
		}
		if m := reAcquiredOn.FindStringSubmatch(content); m != nil {
			if d, err := time.Parse("January 2, 2006", m[1]); err == nil {
				date = d.Format("2006-01-02")
			}
		}
	case containsAny(lower, "restructuring", "legal structure"):
		eventType = EventRestructuring
		title = "Corporate Restructuring"
	}

	return &Event{
		ID:          fmt.Sprintf("event_%s_%s", accession, eventType),
		EventType:   eventType,
		Title:       title,
		EventDate:   date,
		FilingID:    accession,
		Description: truncate(content, descriptionLimit),
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// truncate cuts at a rune boundary after limit runes.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// trimTrailingLowerWords drops trailing all-lowercase tokens that greedy
// captures pick up past the end of a proper name.
func trimTrailingLowerWords(s string) string {
	tokens := strings.Fields(s)
	for len(tokens) > 0 {
		runes := []rune(tokens[len(tokens)-1])
		if unicode.IsUpper(runes[0]) {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}
