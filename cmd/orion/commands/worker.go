package commands

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"orion/pkg/core/config"
	"orion/pkg/core/graph"
	"orion/pkg/core/queue"
)

// WorkerCommand runs a single queue worker in the foreground until
// interrupted. The WORKER_ID environment variable names the worker;
// otherwise a random id is generated so parallel workers stay distinct.
type WorkerCommand struct {
	queueDir string
	workerID string
}

func NewWorkerCommand() *cobra.Command {
	wc := &WorkerCommand{}
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a queue worker until interrupted",
		Args:  cobra.NoArgs,
		RunE:  wc.run,
	}
	cmd.Flags().StringVar(&wc.queueDir, "queue-dir", "", "work queue directory (default from config)")
	cmd.Flags().StringVar(&wc.workerID, "worker-id", "", "worker name (default WORKER_ID env or a random id)")
	return cmd
}

// WorkerID resolves the worker name from the flag, the environment, or a
// fresh random suffix, in that order.
func WorkerID(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return "worker-" + uuid.NewString()[:8]
}

func (wc *WorkerCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	queueDir := wc.queueDir
	if queueDir == "" {
		queueDir = cfg.QueueDir()
	}

	conn, err := connectGraph(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	builder := graph.NewBuilder(conn)
	seedCompanyIndex(builder, cfg.DataDir)
	setupAIExtractor(ctx, cfg, builder)

	worker, err := queue.NewWorker(WorkerID(wc.workerID), queueDir, builder)
	if err != nil {
		return err
	}
	processed := worker.Run(ctx)
	fmt.Printf("Processed %d jobs this session.\n", processed)
	return nil
}
