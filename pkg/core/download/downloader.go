// Package download materializes EDGAR 6-K filings on disk. Each filing gets
// a nested per-company folder holding the archived index page, the complete
// submission text and any EX-99 exhibits, plus a flat per-year staging copy
// for the graph loader. Every success appends one row to the metadata ledger.
package download

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/cheggaaa/pb/v3"

	"orion/pkg/core/edgar"
)

// Archive is the slice of the EDGAR client the downloader needs. Every call
// is rate-regulated by the implementation.
type Archive interface {
	Get(ctx context.Context, url string) ([]byte, error)
	GetText(ctx context.Context, url string) ([]byte, error)
	FetchSubmissions(ctx context.Context, cik string) (*edgar.Submissions, error)
}

// Options tune one download sweep.
type Options struct {
	StartYear    int
	EndYear      int
	SkipExisting bool // a complete filing on disk short-circuits the fetch
	MaxWorkers   int  // bounded pool of per-CIK tasks
	MaxFilings   int  // stop after this many filings across all tasks, 0 = no cap
}

// Result summarizes a sweep. Failed counts filings, not companies; a company
// whose manifest cannot be fetched contributes nothing.
type Result struct {
	Companies  int
	Downloaded int
	Skipped    int
	Failed     int
}

// Downloader fans a bounded pool of per-CIK tasks over the filer list.
// Parallelism is across CIKs; the shared client keeps aggregate request
// rate inside the archive's budget.
type Downloader struct {
	archive    Archive
	rootDir    string // nested per-company layout
	stagingDir string // flat <year>/<accession>.txt corpus
	ledger     *Ledger
	opts       Options

	handled    atomic.Int64 // filings that consumed a MaxFilings slot
	downloaded atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
}

// NewDownloader wires a sweep. stagingDir may be empty to disable the flat
// corpus copy.
func NewDownloader(archive Archive, rootDir, stagingDir string, ledger *Ledger, opts Options) *Downloader {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 5
	}
	return &Downloader{
		archive:    archive,
		rootDir:    rootDir,
		stagingDir: stagingDir,
		ledger:     ledger,
		opts:       opts,
	}
}

// Run downloads every matching filing for every company. Each task owns one
// CIK end-to-end: fetch the submissions manifest, then walk its 6-K filings
// in the year range. Per-filing failures are logged and absorbed.
func (d *Downloader) Run(ctx context.Context, companies []edgar.Company) (Result, error) {
	tasks := make(chan edgar.Company)
	var wg sync.WaitGroup

	bar := pb.StartNew(len(companies))
	for i := 0; i < d.opts.MaxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for company := range tasks {
				d.processCompany(ctx, company)
				bar.Increment()
			}
		}()
	}

feed:
	for _, company := range companies {
		select {
		case tasks <- company:
		case <-ctx.Done():
			break feed
		}
	}
	close(tasks)
	wg.Wait()
	bar.Finish()

	res := Result{
		Companies:  len(companies),
		Downloaded: int(d.downloaded.Load()),
		Skipped:    int(d.skipped.Load()),
		Failed:     int(d.failed.Load()),
	}
	return res, ctx.Err()
}

func (d *Downloader) processCompany(ctx context.Context, company edgar.Company) {
	subs, err := d.archive.FetchSubmissions(ctx, company.CIK)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		fmt.Printf("Warning: could not fetch submissions for CIK %s: %v. Skipping.\n", company.CIK, err)
		return
	}

	for _, ref := range subs.FilingRefs("6-K", d.opts.StartYear, d.opts.EndYear) {
		if ctx.Err() != nil {
			return
		}
		if !d.reserveSlot() {
			return
		}
		if err := d.downloadFiling(ctx, company, ref); err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Printf("Warning: failed to download %s: %v. Skipping.\n", ref.AccessionNumber, err)
			d.failed.Add(1)
		}
	}
}

// reserveSlot enforces the MaxFilings cap across all tasks.
func (d *Downloader) reserveSlot() bool {
	if d.opts.MaxFilings <= 0 {
		return true
	}
	return d.handled.Add(1) <= int64(d.opts.MaxFilings)
}

// downloadFiling runs the per-filing procedure: short-circuit on a complete
// local copy, archive the index page with absolutized links, follow the
// complete-submission row to the text file, split out EX-99 exhibits, stage
// the flat corpus copy, and append the ledger row.
func (d *Downloader) downloadFiling(ctx context.Context, company edgar.Company, ref edgar.FilingRef) error {
	year := ref.Year()
	if year == 0 {
		return fmt.Errorf("filing %s has no usable date", ref.AccessionNumber)
	}

	name := sanitizeName(company.Name)
	folder := filepath.Join(d.rootDir, name,
		fmt.Sprintf("%d_%s_%s", year, name, company.CIK), ref.AccessionNumber)
	htmlPath := filepath.Join(folder, "filing.html")
	txtPath := filepath.Join(folder, ref.AccessionNumber+".txt")

	if d.opts.SkipExisting && fileExists(htmlPath) && fileExists(txtPath) {
		if err := d.stageCorpusCopy(txtPath, year, ref.AccessionNumber); err != nil {
			return err
		}
		d.skipped.Add(1)
		return d.logRow(company, ref, htmlPath, txtPath, existingExhibits(folder))
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("failed to create filing folder: %w", err)
	}

	indexBody, err := d.archive.Get(ctx, ref.IndexURL())
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(indexBody))
	if err != nil {
		return fmt.Errorf("failed to parse filing index page: %w", err)
	}
	rewriteArchiveLinks(doc)

	page, err := doc.Html()
	if err != nil {
		return fmt.Errorf("failed to serialize filing index page: %w", err)
	}
	if err := writeStaged(htmlPath, []byte(page)); err != nil {
		return err
	}

	txtURL := completeSubmissionURL(doc)
	if txtURL == "" {
		// No complete-submission row; the ledger records the archived HTML.
		d.downloaded.Add(1)
		return d.logRow(company, ref, htmlPath, "", nil)
	}

	text, err := d.archive.GetText(ctx, txtURL)
	if err != nil {
		return err
	}
	if err := writeStaged(txtPath, text); err != nil {
		return err
	}

	exhibits, err := ExtractExhibits(string(text), folder)
	if err != nil {
		return err
	}
	if err := d.stageCorpusCopy(txtPath, year, ref.AccessionNumber); err != nil {
		return err
	}

	d.downloaded.Add(1)
	return d.logRow(company, ref, htmlPath, txtPath, exhibits)
}

func (d *Downloader) logRow(company edgar.Company, ref edgar.FilingRef, htmlPath, txtPath string, exhibits []string) error {
	return d.ledger.Append(Row{
		CompanyName: strings.ReplaceAll(company.Name, "_", " "),
		CIK:         company.CIK,
		Date:        ref.FilingDate,
		Accession:   ref.AccessionNumber,
		HTMLFile:    htmlPath,
		TXTFile:     txtPath,
		Exhibits:    exhibits,
	})
}

// stageCorpusCopy mirrors the submission text into the flat per-year corpus
// the graph loader and the queue coordinator read from.
func (d *Downloader) stageCorpusCopy(txtPath string, year int, accession string) error {
	if d.stagingDir == "" {
		return nil
	}
	dst := filepath.Join(d.stagingDir, strconv.Itoa(year), accession+".txt")
	if fileExists(dst) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create corpus directory: %w", err)
	}
	data, err := os.ReadFile(txtPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", txtPath, err)
	}
	return writeStaged(dst, data)
}

// rewriteArchiveLinks absolutizes root-relative references against the SEC
// host so the archived page stays usable offline.
func rewriteArchiveLinks(doc *goquery.Document) {
	doc.Find("link, a").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok && strings.HasPrefix(href, "/") {
			sel.SetAttr("href", edgar.SECHost+href)
		}
	})
	doc.Find("script, img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && strings.HasPrefix(src, "/") {
			sel.SetAttr("src", edgar.SECHost+src)
		}
	})
}

// completeSubmissionURL locates the document-table row labelled "Complete
// submission text file" and returns the absolute URL in its third cell, or
// "" when the page has no such row.
func completeSubmissionURL(doc *goquery.Document) string {
	var url string
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return true
		}
		if !strings.Contains(cells.Eq(1).Text(), "Complete submission text file") {
			return true
		}
		href, ok := cells.Eq(2).Find("a").First().Attr("href")
		if !ok || href == "" {
			return true
		}
		if strings.HasPrefix(href, "/") {
			href = edgar.SECHost + href
		}
		url = href
		return false
	})
	return url
}

// writeStaged writes data beside path and renames it into place, so a reader
// never observes a partially written file.
func writeStaged(path string, data []byte) error {
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to stage %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// sanitizeName makes a company name filesystem-safe. Spaces become
// underscores (the ledger restores them) and path-hostile characters are
// dropped.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, name)
	if name == "" {
		return "unknown"
	}
	return name
}

// existingExhibits lists exhibits already extracted into folder, for ledger
// rows emitted on the skip-existing path.
func existingExhibits(folder string) []string {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil
	}
	var exhibits []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), "EX-99") && strings.HasSuffix(e.Name(), ".txt") {
			exhibits = append(exhibits, filepath.Join(folder, e.Name()))
		}
	}
	sort.Strings(exhibits)
	return exhibits
}
