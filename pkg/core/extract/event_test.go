package extract

import (
	"strings"
	"testing"
)

const accession = "0001234567-09-000123"

func TestExtractEventQuarterlyResults(t *testing.T) {
	body := "Global Marine PLC announces Q3 2009 Results for the quarter ended September 30."

	ev := ExtractEvent(body, accession, "2009-11-16")
	if ev == nil {
		t.Fatal("Expected an event")
	}
	if ev.EventType != EventFinancialResults {
		t.Errorf("Expected %s, got %s", EventFinancialResults, ev.EventType)
	}
	if ev.Title != "Q3 2009 Results" {
		t.Errorf("Expected title Q3 2009 Results, got %q", ev.Title)
	}
	if ev.ID != "event_"+accession+"_Financial Results" {
		t.Errorf("Unexpected event id %q", ev.ID)
	}
	if ev.EventDate != "2009-11-16" {
		t.Errorf("Expected filing date, got %q", ev.EventDate)
	}
	if ev.FilingID != accession {
		t.Errorf("Expected filing id %s, got %s", accession, ev.FilingID)
	}
}

func TestExtractEventTypes(t *testing.T) {
	cases := []struct {
		body      string
		eventType string
		title     string
	}{
		{"The proposed merger of Alpha Holdings and Beta Group was approved.", EventMerger, "merger - Alpha Holdings and Beta Group"},
		{"The company completed the acquisition of Gamma Industries today.", EventAcquisition, "Acquisition of Gamma Industries"},
		{"The board approved a restructuring of operations.", EventRestructuring, "Corporate Restructuring"},
		{"Ordinary course business update.", EventFiling, "6-K Filing " + accession},
	}

	for _, c := range cases {
		ev := ExtractEvent(c.body, accession, "2009-11-16")
		if ev == nil {
			t.Errorf("%q: expected an event", c.body)
			continue
		}
		if ev.EventType != c.eventType {
			t.Errorf("%q: expected type %s, got %s", c.body, c.eventType, ev.EventType)
		}
		if ev.Title != c.title {
			t.Errorf("%q: expected title %q, got %q", c.body, c.title, ev.Title)
		}
	}
}

func TestExtractEventPriorityOrder(t *testing.T) {
	// Quarterly results outrank a merger mention in the same filing.
	body := "Q1 2010 Results. The report also discusses the merger of Alpha and Beta."

	ev := ExtractEvent(body, accession, "2010-05-01")
	if ev.EventType != EventFinancialResults {
		t.Errorf("Expected quarterly keyword to win, got %s", ev.EventType)
	}
}

func TestExtractEventAcquisitionDate(t *testing.T) {
	body := "The acquisition of Delta Shipping closed on March 15, 2009 as planned."

	ev := ExtractEvent(body, accession, "2009-04-01")
	if ev.EventType != EventAcquisition {
		t.Fatalf("Expected acquisition, got %s", ev.EventType)
	}
	if ev.EventDate != "2009-03-15" {
		t.Errorf("Expected captured acquisition date 2009-03-15, got %q", ev.EventDate)
	}
}

func TestExtractEventNoAccession(t *testing.T) {
	if ev := ExtractEvent("some body", "", "2009-01-01"); ev != nil {
		t.Errorf("Expected nil event without accession, got %+v", ev)
	}
}

func TestExtractEventDescriptionCap(t *testing.T) {
	body := strings.Repeat("a", 1200)

	ev := ExtractEvent(body, accession, "2009-01-01")
	if len(ev.Description) != 500 {
		t.Errorf("Expected 500-char description, got %d", len(ev.Description))
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 10)
	got := truncate(s, 3)
	if got != "ééé" {
		t.Errorf("Expected rune-safe cut, got %q", got)
	}
	if truncate("short", 500) != "short" {
		t.Error("Expected short strings unchanged")
	}
}
