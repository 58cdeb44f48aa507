package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"orion/pkg/core/config"
	"orion/pkg/core/queue"
)

// StatusCommand prints a snapshot of the work queue.
type StatusCommand struct {
	queueDir string
}

func NewStatusCommand() *cobra.Command {
	sc := &StatusCommand{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show work queue depth and progress",
		Args:  cobra.NoArgs,
		RunE:  sc.run,
	}
	cmd.Flags().StringVar(&sc.queueDir, "queue-dir", "", "work queue directory (default from config)")
	return cmd
}

func (sc *StatusCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	queueDir := sc.queueDir
	if queueDir == "" {
		queueDir = cfg.QueueDir()
	}

	coordinator, err := queue.NewCoordinator(queueDir)
	if err != nil {
		return err
	}
	status, err := coordinator.Status()
	if err != nil {
		return err
	}

	banner("Work Queue Status")
	fmt.Printf("Pending:    %d\n", status.Pending)
	fmt.Printf("Processing: %d\n", status.Processing)
	fmt.Printf("Completed:  %d\n", status.Completed)
	fmt.Printf("Failed:     %d\n", status.Failed)
	fmt.Printf("Total:      %d\n", status.Total)
	if status.Total > 0 {
		fmt.Printf("Progress:   %.1f%%\n", status.Progress)
	}
	return nil
}
