package edgar

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Company is one Foreign Private Issuer discovered in the quarterly indexes.
type Company struct {
	Name string
	CIK  string
}

// company.idx is fixed-column: name [0:62], form type [62:74], CIK [74:86].
// The first ten lines are header material.
const (
	idxHeaderLines = 10
	idxNameEnd     = 62
	idxFormEnd     = 74
	idxCIKEnd      = 86
)

// ParseCompanyIndex extracts companies that filed the given form from one
// company.idx payload, keyed (and deduplicated) by CIK.
func ParseCompanyIndex(data []byte, form string) map[string]Company {
	companies := make(map[string]Company)
	lines := strings.Split(string(data), "\n")
	if len(lines) <= idxHeaderLines {
		return companies
	}

	for _, line := range lines[idxHeaderLines:] {
		if len(line) < idxCIKEnd {
			continue
		}
		formType := strings.TrimSpace(line[idxNameEnd:idxFormEnd])
		if formType != form {
			continue
		}
		cik := strings.TrimSpace(line[idxFormEnd:idxCIKEnd])
		if cik == "" {
			continue
		}
		if _, seen := companies[cik]; seen {
			continue
		}
		companies[cik] = Company{
			Name: strings.TrimSpace(line[:idxNameEnd]),
			CIK:  cik,
		}
	}
	return companies
}

// FetchQuarterlyIndex downloads company.idx for one (year, quarter), caches
// the raw file under metadataDir as <year>_Q<q>_company.idx, and returns the
// 6-K filers it lists.
func (c *Client) FetchQuarterlyIndex(ctx context.Context, year, quarter int, metadataDir string) (map[string]Company, error) {
	url := fmt.Sprintf(CompanyIndexURL, year, quarter)
	data, err := c.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download index for %d Q%d: %w", year, quarter, err)
	}

	if metadataDir != "" {
		if err := os.MkdirAll(metadataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create metadata dir: %w", err)
		}
		path := filepath.Join(metadataDir, fmt.Sprintf("%d_Q%d_company.idx", year, quarter))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to cache index file: %w", err)
		}
	}

	return ParseCompanyIndex(data, "6-K"), nil
}

// CollectFPIs walks every quarter of every year in [startYear, endYear] and
// merges the 6-K filers, deduplicated by CIK. A quarter that fails to
// download is logged and skipped; the sweep continues.
func (c *Client) CollectFPIs(ctx context.Context, startYear, endYear int, metadataDir string) ([]Company, error) {
	merged := make(map[string]Company)
	for year := startYear; year <= endYear; year++ {
		for qtr := 1; qtr <= 4; qtr++ {
			fmt.Printf("Checking %d Q%d...\n", year, qtr)
			companies, err := c.FetchQuarterlyIndex(ctx, year, qtr, metadataDir)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				fmt.Printf("Warning: could not download index for %d Q%d: %v. Skipping.\n", year, qtr, err)
				continue
			}
			for cik, company := range companies {
				if _, seen := merged[cik]; !seen {
					merged[cik] = company
				}
			}
		}
	}

	list := make([]Company, 0, len(merged))
	for _, company := range merged {
		list = append(list, company)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CIK < list[j].CIK })
	return list, nil
}

// FPIListPath is the tabular cache of discovered 6-K filers.
func FPIListPath(dataDir string) string {
	return filepath.Join(dataDir, "fpi_list.csv")
}

// SaveFPIList writes the companies to a CSV with a company_name,cik header.
func SaveFPIList(path string, companies []Company) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"company_name", "cik"}); err != nil {
		return fmt.Errorf("failed to write FPI list header: %w", err)
	}
	for _, company := range companies {
		if err := w.Write([]string{company.Name, company.CIK}); err != nil {
			return fmt.Errorf("failed to write FPI row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// LoadFPIList reads a previously saved FPI list.
func LoadFPIList(path string) ([]Company, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read FPI list %s: %w", path, err)
	}

	companies := make([]Company, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue // header or short row
		}
		companies = append(companies, Company{Name: row[0], CIK: row[1]})
	}
	return companies, nil
}

// LoadOrFetchFPIList reuses the on-disk FPI cache when present, otherwise
// sweeps the quarterly indexes and writes the cache.
func (c *Client) LoadOrFetchFPIList(ctx context.Context, startYear, endYear int, dataDir string) ([]Company, error) {
	path := FPIListPath(dataDir)
	if companies, err := LoadFPIList(path); err == nil && len(companies) > 0 {
		fmt.Printf("Loaded %d FPIs from %s\n", len(companies), path)
		return companies, nil
	}

	companies, err := c.CollectFPIs(ctx, startYear, endYear, filepath.Join(dataDir, "metadata"))
	if err != nil {
		return nil, err
	}
	if err := SaveFPIList(path, companies); err != nil {
		return nil, err
	}
	fmt.Printf("Saved %d FPIs to %s\n", len(companies), path)
	return companies, nil
}
