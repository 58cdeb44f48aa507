package edgar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"orion/pkg/core/ratelimit"
)

func testClient() *Client {
	c := NewClient("orion-test test@example.com", ratelimit.NewRegulator(1000))
	c.backoff429 = 10 * time.Millisecond // keep retry tests fast
	return c
}

func TestPadCIK(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"123456", "0000123456"},
		{"0000123456", "0000123456"},
		{"1", "0000000001"},
		{" 982", "0000000982"},
		{"9999999999", "9999999999"},
	}
	for _, c := range cases {
		if got := PadCIK(c.in); got != c.want {
			t.Errorf("PadCIK(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestStripCIK(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"0000123456", "123456"},
		{"123456", "123456"},
		{"0000000000", "0"},
	}
	for _, c := range cases {
		if got := StripCIK(c.in); got != c.want {
			t.Errorf("StripCIK(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestFilingIndexURL(t *testing.T) {
	got := FilingIndexURL("0000123456", "0001104659-09-047749")
	want := "https://www.sec.gov/Archives/edgar/data/123456/000110465909047749/0001104659-09-047749-index.html"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestFetchRetriesOnceOn429(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := testClient()
	body, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("Expected payload after retry, got %q", body)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("Expected exactly 2 requests (original + one retry), got %d", n)
	}
}

func TestFetchSecond429IsError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient()
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Error("Expected error after second 429")
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("Expected exactly 2 requests, got %d", n)
	}
}

func TestFetchNoRetryOnOtherErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient()
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Error("Expected error on 404")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected exactly 1 request for a 404, got %d", n)
	}
}

func TestFetchSetsUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := testClient()
	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ua != "orion-test test@example.com" {
		t.Errorf("Expected identifying User-Agent, got %q", ua)
	}
}
