package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"orion/pkg/core/config"
	"orion/pkg/core/edgar"
	"orion/pkg/core/graph"
	"orion/pkg/core/llm"
	"orion/pkg/core/queue"
)

// DistributedLoadCommand enqueues staged filings as durable jobs and runs a
// local worker pool over them. The same queue also feeds standalone worker
// processes; this verb just bundles coordinator and workers for one host.
type DistributedLoadCommand struct {
	year    int
	limit   int
	workers int
	useAI   bool
	timeout int
}

func NewDistributedLoadCommand() *cobra.Command {
	dc := &DistributedLoadCommand{}
	cmd := &cobra.Command{
		Use:   "distributed-load",
		Short: "Process filings through the work queue with a local worker pool",
		Args:  cobra.NoArgs,
		RunE:  dc.run,
	}
	cmd.Flags().IntVar(&dc.year, "year", 0, "only process filings from this year (0 means all)")
	cmd.Flags().IntVar(&dc.limit, "limit", 0, "stop after this many filings, 0 means no cap")
	cmd.Flags().IntVar(&dc.workers, "workers", 3, "number of local workers")
	cmd.Flags().BoolVar(&dc.useAI, "use-ai", false, "jobs request model-supplemented extraction")
	cmd.Flags().IntVar(&dc.timeout, "timeout", 0, "give up after this many seconds, 0 means wait forever")
	return cmd
}

func (dc *DistributedLoadCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDirs(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	banner("Distributed Filing Processing")

	conn, err := connectGraph(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	if err := graph.SetupSchema(ctx, conn); err != nil {
		return fmt.Errorf("failed to set up schema: %w", err)
	}

	coordinator, err := queue.NewCoordinator(cfg.QueueDir())
	if err != nil {
		return err
	}
	created, err := coordinator.CreateJobs(cfg.FilingsDir(), dc.year, dc.limit, dc.useAI)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Created %d jobs in queue\n", created)
	if created == 0 {
		fmt.Println("No filings to process.")
		return nil
	}

	// Shared across workers: the filer index is read-only after load and
	// the extraction client is safe for concurrent use.
	companies, err := edgar.LoadFPIList(edgar.FPIListPath(cfg.DataDir))
	if err == nil && len(companies) > 0 {
		fmt.Printf("Registered %d known filers for ownership resolution\n", len(companies))
	}
	var extractor *llm.ExtractionClient
	if dc.useAI {
		provider, err := provisionProvider(ctx, cfg, "")
		if err != nil {
			fmt.Printf("Warning: AI extraction disabled: %v\n", err)
		} else {
			extractor = llm.NewExtractionClient(provider)
			fmt.Printf("AI extraction enabled with model %s\n", provider.Model())
		}
	}

	workers := dc.workers
	if workers < 1 {
		workers = 1
	}
	fmt.Printf("\nStarting %d workers...\n", workers)

	// Workers idle until cancelled, so they get their own context that is
	// cut as soon as the queue drains.
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var wg sync.WaitGroup
	for i := 1; i <= workers; i++ {
		builder := graph.NewBuilder(conn)
		builder.RegisterCompanies(companies)
		if extractor != nil {
			builder.SetAIExtractor(extractor)
		}
		worker, err := queue.NewWorker(fmt.Sprintf("local-%d", i), cfg.QueueDir(), builder)
		if err != nil {
			stopWorkers()
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(workerCtx)
		}()
	}

	status, waitErr := coordinator.WaitForCompletion(ctx, 0, time.Duration(dc.timeout)*time.Second)
	stopWorkers()
	wg.Wait()
	if waitErr != nil {
		return waitErr
	}

	results, err := coordinator.AggregateResults()
	if err != nil {
		return err
	}

	fmt.Println()
	banner("Processing Complete")
	fmt.Printf("✅ Companies created: %d\n", results.Companies)
	fmt.Printf("✅ People created: %d\n", results.People)
	fmt.Printf("✅ Events created: %d\n", results.Events)
	fmt.Printf("✅ Relationships created: %d\n", results.Relationships)
	fmt.Printf("✅ Filings processed: %d\n", results.FilingsProcessed)
	fmt.Printf("\nCompleted: %d\n", status.Completed)
	fmt.Printf("Failed: %d\n", status.Failed)
	return nil
}
