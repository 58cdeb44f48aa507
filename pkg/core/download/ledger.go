package download

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Row is one ledger line describing a downloaded filing.
type Row struct {
	CompanyName string
	CIK         string
	Date        string
	Accession   string
	HTMLFile    string
	TXTFile     string
	Exhibits    []string
}

var ledgerHeader = []string{
	"Company Name", "CIK", "Date", "Accession Number", "HTML File", "TXT File", "Exhibits",
}

// Ledger is the append-only download record. Skip-existing re-runs append
// duplicate rows for the same accession, so readers dedupe on read. Appends
// hold a short critical section: open, write one row, close.
type Ledger struct {
	mu   sync.Mutex
	path string
}

// NewLedger points at (but does not create) the CSV file.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// LedgerPath is the canonical ledger location under the data directory.
func LedgerPath(dataDir string) string {
	return filepath.Join(dataDir, "fpi_6k_metadata.csv")
}

// Append writes one row, creating the file with a header first when needed.
func (l *Ledger) Append(row Row) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	_, statErr := os.Stat(l.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(ledgerHeader); err != nil {
			return fmt.Errorf("failed to write ledger header: %w", err)
		}
	}
	record := []string{
		row.CompanyName,
		row.CIK,
		row.Date,
		row.Accession,
		row.HTMLFile,
		row.TXTFile,
		strings.Join(row.Exhibits, ";"),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("failed to write ledger row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Rows reads the ledger back, deduplicating on accession and keeping the
// first row for each. A missing ledger is an empty one.
func (l *Ledger) Rows() ([]Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	seen := make(map[string]struct{})
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) < 7 {
			continue
		}
		if _, dup := seen[rec[3]]; dup {
			continue
		}
		seen[rec[3]] = struct{}{}
		row := Row{
			CompanyName: rec[0],
			CIK:         rec[1],
			Date:        rec[2],
			Accession:   rec[3],
			HTMLFile:    rec[4],
			TXTFile:     rec[5],
		}
		if rec[6] != "" {
			row.Exhibits = strings.Split(rec[6], ";")
		}
		rows = append(rows, row)
	}
	return rows, nil
}
