package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"orion/pkg/core/graph"
)

// idleSleep is how long a worker waits before re-polling an empty queue.
const idleSleep = time.Second

// Processor loads one staged filing into the graph store. *graph.Builder
// satisfies it.
type Processor interface {
	ProcessFiling(ctx context.Context, path string, useAI bool) (graph.Stats, error)
}

// Worker drains the queue one job at a time. Any number of workers may
// share a queue root; the claim rename is the only synchronization
// between them.
type Worker struct {
	id        string
	dirs      dirs
	processor Processor
	processed int
}

// NewWorker prepares the queue directories under root and binds a
// processor to this worker id.
func NewWorker(id, root string, processor Processor) (*Worker, error) {
	d := queueDirs(root)
	if err := d.ensure(); err != nil {
		return nil, err
	}
	return &Worker{id: id, dirs: d, processor: processor}, nil
}

// Run polls for jobs until ctx is canceled and returns the number of jobs
// this worker handled. Cancellation is graceful: an in-flight job runs to
// completion and reaches a terminal directory before Run returns.
func (w *Worker) Run(ctx context.Context) int {
	fmt.Printf("[Worker %s] Started. Waiting for jobs...\n", w.id)

	for ctx.Err() == nil {
		claimed, err := w.claimNext()
		if err != nil {
			fmt.Printf("[Worker %s] Warning: %v\n", w.id, err)
		}
		if claimed == "" {
			// Nothing claimable (or a poll error). Idle, then poll again.
			if sleepCtx(ctx, idleSleep) != nil {
				break
			}
			continue
		}
		// The claim is ours; finish the job even if shutdown arrives.
		w.runJob(context.WithoutCancel(ctx), claimed)
		w.processed++
	}

	fmt.Printf("[Worker %s] Stopped. Processed %d jobs.\n", w.id, w.processed)
	return w.processed
}

// claimNext claims the lexicographically first pending job by renaming it
// into processing/ under this worker's name. A failed rename means another
// worker won the race, so the next candidate is tried right away. An empty
// path means nothing was claimable.
func (w *Worker) claimNext() (string, error) {
	names, err := listJobs(w.dirs.pending)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		claimed := filepath.Join(w.dirs.processing, w.id+"_"+name)
		if err := os.Rename(filepath.Join(w.dirs.pending, name), claimed); err == nil {
			return claimed, nil
		}
	}
	return "", nil
}

// runJob processes one claimed descriptor and moves it to a terminal
// directory. Failures never re-queue: the descriptor lands unmodified in
// failed/ for the operator to inspect.
func (w *Worker) runJob(ctx context.Context, claimed string) {
	job, err := readJob(claimed)
	if err != nil {
		fmt.Printf("[Worker %s] Warning: %v\n", w.id, err)
		w.finish(claimed, false)
		return
	}

	if _, err := os.Stat(job.FilingPath); err != nil {
		fmt.Printf("[Worker %s] Warning: filing not found: %s\n", w.id, job.FilingPath)
		w.finish(claimed, false)
		return
	}

	fmt.Printf("[Worker %s] Processing: %s\n", w.id, job.FilingName)

	stats, err := w.processor.ProcessFiling(ctx, job.FilingPath, job.UseAIExtraction)
	if err != nil {
		fmt.Printf("[Worker %s] Warning: failed to process %s: %v\n", w.id, job.FilingName, err)
		w.finish(claimed, false)
		return
	}

	job.WorkerID = w.id
	job.CompletedAt = nowUnix()
	job.Stats = &stats
	if err := writeJob(claimed, job); err != nil {
		fmt.Printf("[Worker %s] Warning: %v\n", w.id, err)
		w.finish(claimed, false)
		return
	}

	fmt.Printf("[Worker %s] Completed: %s (People: %d, Relationships: %d)\n",
		w.id, job.FilingName, stats.People, stats.Relationships)
	w.finish(claimed, true)
}

// finish renames a processing descriptor into completed/ or failed/,
// dropping this worker's claim prefix.
func (w *Worker) finish(claimed string, ok bool) {
	name := strings.TrimPrefix(filepath.Base(claimed), w.id+"_")
	target := filepath.Join(w.dirs.completed, name)
	if !ok {
		target = filepath.Join(w.dirs.failed, name)
	}
	if err := os.Rename(claimed, target); err != nil {
		fmt.Printf("[Worker %s] Warning: failed to finalize job %s: %v\n", w.id, name, err)
	}
}
