package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"orion/pkg/core/filing"
	"orion/pkg/core/graph"
)

// Status is a snapshot of queue depth across the four lifecycle states.
type Status struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Progress   float64
}

// Done reports whether no job is waiting or in flight.
func (s Status) Done() bool {
	return s.Pending == 0 && s.Processing == 0
}

// Results sums per-job stats across completed descriptors.
type Results struct {
	graph.Stats
	FilingsProcessed int
}

// Coordinator materializes staged filings as durable jobs and observes
// worker progress. It never processes jobs itself.
type Coordinator struct {
	dirs dirs
}

// NewCoordinator prepares the queue directories under root.
func NewCoordinator(root string) (*Coordinator, error) {
	d := queueDirs(root)
	if err := d.ensure(); err != nil {
		return nil, err
	}
	return &Coordinator{dirs: d}, nil
}

// CreateJobs writes one pending descriptor per staged filing, optionally
// filtered by year and truncated to limit. Re-enqueueing a filing
// overwrites its pending descriptor; that is safe because workers
// de-duplicate through graph upserts.
func (c *Coordinator) CreateJobs(filingsDir string, year, limit int, useAI bool) (int, error) {
	fmt.Println("Creating work queue...")

	files, err := filing.ListFilings(filingsDir, year)
	if err != nil {
		return 0, err
	}
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	created := 0
	for _, path := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			return created, fmt.Errorf("failed to resolve filing path %s: %w", path, err)
		}
		name := filepath.Base(path)
		job := &Job{
			FilingPath:      abs,
			FilingName:      name,
			UseAIExtraction: useAI,
			CreatedAt:       nowUnix(),
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if err := writeJob(filepath.Join(c.dirs.pending, stem+".json"), job); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// Status counts descriptors in each lifecycle directory. Progress is the
// completed share of all known jobs, in percent.
func (c *Coordinator) Status() (Status, error) {
	var st Status
	counts := []struct {
		dir string
		out *int
	}{
		{c.dirs.pending, &st.Pending},
		{c.dirs.processing, &st.Processing},
		{c.dirs.completed, &st.Completed},
		{c.dirs.failed, &st.Failed},
	}
	for _, count := range counts {
		names, err := listJobs(count.dir)
		if err != nil {
			return Status{}, err
		}
		*count.out = len(names)
	}
	st.Total = st.Pending + st.Processing + st.Completed + st.Failed
	if st.Total > 0 {
		st.Progress = float64(st.Completed) / float64(st.Total) * 100
	}
	return st, nil
}

// WaitForCompletion polls until no job is pending or in flight, the timeout
// elapses (timeout <= 0 waits forever), or ctx is canceled. The timeout is
// advisory: it returns without error and does not stop the workers.
func (c *Coordinator) WaitForCompletion(ctx context.Context, interval, timeout time.Duration) (Status, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	start := time.Now()

	fmt.Println("\nMonitoring worker progress...")
	for {
		st, err := c.Status()
		if err != nil {
			return st, err
		}

		elapsed := time.Since(start)
		fmt.Printf("\r[%.0fs] Pending: %d | Processing: %d | Completed: %d | Failed: %d | Progress: %.1f%%",
			elapsed.Seconds(), st.Pending, st.Processing, st.Completed, st.Failed, st.Progress)

		if st.Done() {
			fmt.Println()
			return st, nil
		}
		if timeout > 0 && elapsed > timeout {
			fmt.Printf("\nWarning: timed out after %s with %d jobs still in the queue.\n",
				timeout, st.Pending+st.Processing)
			return st, nil
		}
		if err := sleepCtx(ctx, interval); err != nil {
			fmt.Println()
			return st, err
		}
	}
}

// AggregateResults sums the stats recorded in completed descriptors.
// Descriptors that cannot be read are skipped with a warning.
func (c *Coordinator) AggregateResults() (Results, error) {
	var results Results

	names, err := listJobs(c.dirs.completed)
	if err != nil {
		return results, err
	}
	for _, name := range names {
		job, err := readJob(filepath.Join(c.dirs.completed, name))
		if err != nil {
			fmt.Printf("Warning: could not read job result %s: %v. Skipping.\n", name, err)
			continue
		}
		if job.Stats != nil {
			results.Stats.Add(*job.Stats)
		}
		results.FilingsProcessed++
	}
	return results, nil
}
