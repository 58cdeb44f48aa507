// Package filing parses staged EDGAR 6-K documents: the SEC header block
// that opens every complete submission text file, and the first embedded
// document body. It also enumerates the staged corpus on disk.
package filing

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// headerBytes bounds the header scan. EDGAR places the SEC header at the top
// of the submission file, well inside the first 10 KB.
const headerBytes = 10000

// Record is the parsed view of one staged filing document.
type Record struct {
	FilePath string
	FileName string
	Year     string

	CIK             string
	CompanyName     string
	FormType        string
	AccessionNumber string
	FilingDate      string // YYYY-MM-DD
	SICCode         string
	SICDescription  string
	FiscalYearEnd   string // MMDD

	AddressStreet1 string
	AddressCity    string
	AddressState   string
	AddressZip     string
	Phone          string
	SECFileNumber  string

	RawText     string
	HTMLContent string
}

// SEC header labels are fixed uppercase strings followed by whitespace and
// the value, one per line.
var (
	reCompanyName = regexp.MustCompile(`COMPANY CONFORMED NAME:\s+(.+)`)
	reCIK         = regexp.MustCompile(`CENTRAL INDEX KEY:\s+(\d+)`)
	reSIC         = regexp.MustCompile(`STANDARD INDUSTRIAL CLASSIFICATION:\s+(.+?)\s*\[(\d+)\]`)
	reAccession   = regexp.MustCompile(`ACCESSION NUMBER:\s+(.+)`)
	reFiledDate   = regexp.MustCompile(`FILED AS OF DATE:\s+(\d{8})`)
	reFormType    = regexp.MustCompile(`FORM TYPE:\s+(.+)`)
	reStreet1     = regexp.MustCompile(`STREET 1:\s+(.+)`)
	reCity        = regexp.MustCompile(`CITY:\s+(.+)`)
	reState       = regexp.MustCompile(`STATE:\s+(.+)`)
	reZip         = regexp.MustCompile(`ZIP:\s+(.+)`)
	rePhone       = regexp.MustCompile(`BUSINESS PHONE:\s+(.+)`)
	reFileNumber  = regexp.MustCompile(`SEC FILE NUMBER:\s+(.+)`)
	reFiscalYear  = regexp.MustCompile(`FISCAL YEAR END:\s+(\d{4})`)
	rePeriod      = regexp.MustCompile(`CONFORMED PERIOD OF REPORT:\s+(\d{4})`)
	reTextBlock   = regexp.MustCompile(`(?s)<TEXT>(.*?)</TEXT>`)
)

// Parse reads one staged filing and extracts its header identity, raw text,
// and the first embedded document body.
func Parse(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filing %s: %w", path, err)
	}

	rec := &Record{
		FilePath: path,
		FileName: filepath.Base(path),
		RawText:  string(data),
	}

	head := rec.RawText
	if len(head) > headerBytes {
		head = head[:headerBytes]
	}
	parseHeader(rec, head)

	rec.Year = filingYear(head, path)
	if m := reTextBlock.FindStringSubmatch(rec.RawText); m != nil {
		rec.HTMLContent = m[1]
	}
	return rec, nil
}

func parseHeader(rec *Record, head string) {
	if m := reCompanyName.FindStringSubmatch(head); m != nil {
		rec.CompanyName = strings.TrimSpace(m[1])
	}
	if m := reCIK.FindStringSubmatch(head); m != nil {
		rec.CIK = strings.TrimSpace(m[1])
	}
	if m := reSIC.FindStringSubmatch(head); m != nil {
		rec.SICDescription = strings.TrimSpace(m[1])
		rec.SICCode = m[2]
	}
	if m := reAccession.FindStringSubmatch(head); m != nil {
		rec.AccessionNumber = strings.TrimSpace(m[1])
	}
	if m := reFiledDate.FindStringSubmatch(head); m != nil {
		raw := m[1]
		rec.FilingDate = fmt.Sprintf("%s-%s-%s", raw[0:4], raw[4:6], raw[6:8])
	}
	if m := reFormType.FindStringSubmatch(head); m != nil {
		rec.FormType = strings.TrimSpace(m[1])
	}
	if m := reStreet1.FindStringSubmatch(head); m != nil {
		rec.AddressStreet1 = strings.TrimSpace(m[1])
	}
	if m := reCity.FindStringSubmatch(head); m != nil {
		rec.AddressCity = strings.TrimSpace(m[1])
	}
	if m := reState.FindStringSubmatch(head); m != nil {
		rec.AddressState = strings.TrimSpace(m[1])
	}
	if m := reZip.FindStringSubmatch(head); m != nil {
		rec.AddressZip = strings.TrimSpace(m[1])
	}
	if m := rePhone.FindStringSubmatch(head); m != nil {
		rec.Phone = strings.TrimSpace(m[1])
	}
	if m := reFileNumber.FindStringSubmatch(head); m != nil {
		rec.SECFileNumber = strings.TrimSpace(m[1])
	}
	if m := reFiscalYear.FindStringSubmatch(head); m != nil {
		rec.FiscalYearEnd = m[1]
	}
}

// filingYear prefers the conformed period of report; when the header lacks
// one, the corpus layout (filings/<year>/<file>) supplies it.
func filingYear(head, path string) string {
	if m := rePeriod.FindStringSubmatch(head); m != nil {
		return m[1]
	}
	parent := filepath.Base(filepath.Dir(path))
	if parent != "" && isDigits(parent) {
		return parent
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ListFilings enumerates primary documents in the staged corpus, sorted by
// name within each year. year == 0 walks every numeric year directory in
// ascending order. Exhibit files (EX-99*) and derived artifacts (names
// containing "_") are skipped.
func ListFilings(filingsDir string, year int) ([]string, error) {
	if year != 0 {
		return listYearDir(filepath.Join(filingsDir, fmt.Sprintf("%d", year)))
	}

	entries, err := os.ReadDir(filingsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read corpus dir %s: %w", filingsDir, err)
	}

	var years []string
	for _, entry := range entries {
		if entry.IsDir() && isDigits(entry.Name()) {
			years = append(years, entry.Name())
		}
	}
	sort.Strings(years)

	var all []string
	for _, y := range years {
		files, err := listYearDir(filepath.Join(filingsDir, y))
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
	}
	return all, nil
}

func listYearDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read corpus year dir %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		if strings.HasPrefix(name, "EX-99") || strings.Contains(name, "_") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
