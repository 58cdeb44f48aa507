// Package queue implements the file-based work queue that distributes
// filing-ingestion jobs across worker processes. A job is one JSON
// descriptor, and the directory holding it is its state: pending,
// processing, completed, or failed. Every transition is a single rename,
// so workers sharing a filesystem need no other coordination.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"orion/pkg/core/graph"
)

// Job is the queue descriptor for one staged filing. The coordinator fills
// the first four fields; the worker that finishes the job adds the rest.
type Job struct {
	FilingPath      string       `json:"filing_path"`
	FilingName      string       `json:"filing_name"`
	UseAIExtraction bool         `json:"use_ai_extraction"`
	CreatedAt       float64      `json:"created_at"`
	WorkerID        string       `json:"worker_id,omitempty"`
	CompletedAt     float64      `json:"completed_at,omitempty"`
	Stats           *graph.Stats `json:"stats,omitempty"`
}

// dirs holds the four lifecycle directories under a queue root.
type dirs struct {
	pending    string
	processing string
	completed  string
	failed     string
}

func queueDirs(root string) dirs {
	return dirs{
		pending:    filepath.Join(root, "pending"),
		processing: filepath.Join(root, "processing"),
		completed:  filepath.Join(root, "completed"),
		failed:     filepath.Join(root, "failed"),
	}
}

func (d dirs) ensure() error {
	for _, dir := range []string{d.pending, d.processing, d.completed, d.failed} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create queue dir %s: %w", dir, err)
		}
	}
	return nil
}

func readJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", path, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", path, err)
	}
	return &job, nil
}

func writeJob(path string, job *Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write job %s: %w", path, err)
	}
	return nil
}

// listJobs returns the descriptor names in dir in lexicographic order
// (ReadDir sorts by filename). A missing directory counts as empty.
func listJobs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read queue dir %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// nowUnix returns the current time as fractional Unix seconds, the
// timestamp form used in job descriptors.
func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
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
