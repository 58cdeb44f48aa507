// Package edgar talks to the SEC EDGAR archive: the submissions API, the
// filing archive, and the quarterly full-text company indexes.
// API Documentation: https://www.sec.gov/developer
package edgar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"orion/pkg/core/ratelimit"
)

const (
	// SEC EDGAR endpoints
	SubmissionsURL  = "https://data.sec.gov/submissions/CIK%s.json"
	ArchiveBaseURL  = "https://www.sec.gov/Archives/edgar/data"
	CompanyIndexURL = "https://www.sec.gov/Archives/edgar/full-index/%d/QTR%d/company.idx"
	SECHost         = "https://www.sec.gov"

	// SEC allows at most 10 requests/second per caller.
	MaxRequestsPerSecond = 10

	indexTimeout = 30 * time.Second
	textTimeout  = 60 * time.Second

	// A 429 earns a single retry after this back-off.
	rateLimitBackoff = 5 * time.Second
)

// Client is a rate-limited EDGAR archive client. Every outbound request
// acquires a dispatch slot from the shared regulator first, so aggregate QPS
// stays within the archive's budget no matter how many goroutines fetch.
type Client struct {
	indexClient *http.Client
	textClient  *http.Client
	userAgent   string
	regulator   *ratelimit.Regulator
	backoff429  time.Duration
}

// NewClient builds a client identifying itself with userAgent (mandatory per
// SEC guidelines) and throttled by reg. A nil reg gets the default limit.
func NewClient(userAgent string, reg *ratelimit.Regulator) *Client {
	if reg == nil {
		reg = ratelimit.NewRegulator(MaxRequestsPerSecond)
	}
	return &Client{
		indexClient: &http.Client{Timeout: indexTimeout},
		textClient:  &http.Client{Timeout: textTimeout},
		userAgent:   userAgent,
		regulator:   reg,
		backoff429:  rateLimitBackoff,
	}
}

// Get fetches url with the index/manifest timeout (30s).
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.fetch(ctx, c.indexClient, url)
}

// GetText fetches url with the longer submission-text timeout (60s).
func (c *Client) GetText(ctx context.Context, url string) ([]byte, error) {
	return c.fetch(ctx, c.textClient, url)
}

// fetch performs one regulated GET. A 429 response triggers a 5-second
// back-off and exactly one retry of the same request; any other non-2xx
// status is an error with no retry.
func (c *Client) fetch(ctx context.Context, hc *http.Client, url string) ([]byte, error) {
	body, status, err := c.do(ctx, hc, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests {
		if err := sleepCtx(ctx, c.backoff429); err != nil {
			return nil, err
		}
		body, status, err = c.do(ctx, hc, url)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("GET %s returned status %d", url, status)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, url string) ([]byte, int, error) {
	if err := c.regulator.Acquire(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	return body, resp.StatusCode, nil
}

// PadCIK normalizes a CIK to its canonical 10-digit zero-padded form.
func PadCIK(cik string) string {
	return fmt.Sprintf("%010s", strings.TrimLeft(strings.TrimSpace(cik), "0"))
}

// StripCIK removes the zero padding; archive URL paths use this form.
func StripCIK(cik string) string {
	s := strings.TrimLeft(strings.TrimSpace(cik), "0")
	if s == "" {
		return "0"
	}
	return s
}

// FilingIndexURL is the landing page listing one filing's documents.
func FilingIndexURL(cik, accession string) string {
	noDash := strings.ReplaceAll(accession, "-", "")
	return fmt.Sprintf("%s/%s/%s/%s-index.html", ArchiveBaseURL, StripCIK(cik), noDash, accession)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
