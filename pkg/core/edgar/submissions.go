package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Submissions is the top-level company submissions response.
type Submissions struct {
	CIK            string  `json:"cik"`
	Name           string  `json:"name"`
	SIC            string  `json:"sic"`
	SICDescription string  `json:"sicDescription"`
	Filings        Filings `json:"filings"`
}

// Filings wraps the recent filing list.
type Filings struct {
	Recent RecentFilings `json:"recent"`
}

// RecentFilings holds filing attributes as parallel arrays; index i across
// the arrays describes one filing.
type RecentFilings struct {
	AccessionNumber []string `json:"accessionNumber"` // e.g., "0001104659-09-047749"
	FilingDate      []string `json:"filingDate"`      // e.g., "2009-08-07"
	Form            []string `json:"form"`            // "6-K", "20-F", ...
	PrimaryDocument []string `json:"primaryDocument"` // filename
}

// FilingRef identifies one filing to download (denormalized from the
// parallel arrays).
type FilingRef struct {
	CIK             string
	CompanyName     string
	AccessionNumber string
	FilingDate      string
	FormType        string
	PrimaryDocument string
}

// IndexURL is the filing's landing page in the archive.
func (f FilingRef) IndexURL() string {
	return FilingIndexURL(f.CIK, f.AccessionNumber)
}

// Year is the filing date's year, or 0 when the date is malformed.
func (f FilingRef) Year() int {
	if len(f.FilingDate) < 4 {
		return 0
	}
	y, err := strconv.Atoi(f.FilingDate[:4])
	if err != nil {
		return 0
	}
	return y
}

// FetchSubmissions retrieves the submissions manifest for a CIK. The CIK is
// zero-padded to 10 digits before use.
func (c *Client) FetchSubmissions(ctx context.Context, cik string) (*Submissions, error) {
	url := fmt.Sprintf(SubmissionsURL, PadCIK(cik))

	body, err := c.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submissions for CIK %s: %w", cik, err)
	}
	return ParseSubmissions(body)
}

// ParseSubmissions decodes a submissions manifest payload. Exposed for local
// files and tests.
func ParseSubmissions(body []byte) (*Submissions, error) {
	var subs Submissions
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("failed to parse submissions JSON: %w", err)
	}
	return &subs, nil
}

// FilingRefs converts the parallel arrays into FilingRef values, keeping only
// filings whose form matches and whose filing year falls within
// [startYear, endYear]. Rows with short parallel arrays are skipped.
func (s *Submissions) FilingRefs(form string, startYear, endYear int) []FilingRef {
	recent := s.Filings.Recent
	refs := make([]FilingRef, 0)

	for i := range recent.AccessionNumber {
		if i >= len(recent.Form) || i >= len(recent.FilingDate) {
			break
		}
		if recent.Form[i] != form {
			continue
		}

		ref := FilingRef{
			CIK:             PadCIK(s.CIK),
			CompanyName:     s.Name,
			AccessionNumber: recent.AccessionNumber[i],
			FilingDate:      recent.FilingDate[i],
			FormType:        recent.Form[i],
		}
		if i < len(recent.PrimaryDocument) {
			ref.PrimaryDocument = recent.PrimaryDocument[i]
		}

		year := ref.Year()
		if year == 0 || year < startYear || year > endYear {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}
