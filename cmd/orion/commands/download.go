package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"orion/pkg/core/config"
	"orion/pkg/core/download"
	"orion/pkg/core/edgar"
	"orion/pkg/core/ratelimit"
)

// edgarRequestsPerSecond is the archive's published fair-access ceiling.
const edgarRequestsPerSecond = 10

// DownloadCommand downloads 6-K filings from SEC EDGAR for every Foreign
// Private Issuer found in the quarterly indexes of the requested years.
type DownloadCommand struct {
	startYear      int
	endYear        int
	noSkipExisting bool
	downloadDir    string
	maxWorkers     int
	maxFilings     int
}

func NewDownloadCommand() *cobra.Command {
	dc := &DownloadCommand{}
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download SEC EDGAR 6-K filings from Foreign Private Issuers",
		Args:  cobra.NoArgs,
		RunE:  dc.run,
	}
	cmd.Flags().IntVar(&dc.startYear, "start-year", 2009, "first year to scan (inclusive)")
	cmd.Flags().IntVar(&dc.endYear, "end-year", 2010, "last year to scan (inclusive)")
	cmd.Flags().BoolVar(&dc.noSkipExisting, "no-skip-existing", false, "re-download filings that already exist on disk")
	cmd.Flags().StringVar(&dc.downloadDir, "download-dir", "", "override the per-company download directory")
	cmd.Flags().IntVar(&dc.maxWorkers, "max-workers", 0, "parallel per-company downloads (default from config)")
	cmd.Flags().IntVar(&dc.maxFilings, "max-filings", 0, "stop after this many filings, 0 means no cap")
	return cmd
}

func (dc *DownloadCommand) run(cmd *cobra.Command, args []string) error {
	if dc.startYear > dc.endYear {
		return fmt.Errorf("start-year must be <= end-year")
	}
	if dc.startYear < 1994 {
		fmt.Println("⚠️  Warning: SEC EDGAR data may not be available before 1994")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDirs(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	banner("SEC EDGAR 6-K Filing Downloader")
	fmt.Printf("Date range: %d - %d\n\n", dc.startYear, dc.endYear)

	client := edgar.NewClient(cfg.UserAgent, ratelimit.NewRegulator(edgarRequestsPerSecond))
	companies, err := client.LoadOrFetchFPIList(ctx, dc.startYear, dc.endYear, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to build FPI list: %w", err)
	}
	if len(companies) == 0 {
		fmt.Println("No Foreign Private Issuers found for the requested years.")
		return nil
	}
	fmt.Printf("Found %d Foreign Private Issuers\n\n", len(companies))

	rootDir := dc.downloadDir
	if rootDir == "" {
		rootDir = cfg.EdgarFilingsDir()
	}
	maxWorkers := dc.maxWorkers
	if maxWorkers <= 0 {
		maxWorkers = cfg.MaxWorkers
	}

	ledger := download.NewLedger(download.LedgerPath(cfg.DataDir))
	dl := download.NewDownloader(client, rootDir, cfg.FilingsDir(), ledger, download.Options{
		StartYear:    dc.startYear,
		EndYear:      dc.endYear,
		SkipExisting: !dc.noSkipExisting,
		MaxWorkers:   maxWorkers,
		MaxFilings:   dc.maxFilings,
	})

	result, runErr := dl.Run(ctx, companies)

	fmt.Println()
	banner("Download Complete")
	fmt.Printf("✅ Companies scanned:   %d\n", result.Companies)
	fmt.Printf("✅ Filings downloaded:  %d\n", result.Downloaded)
	fmt.Printf("✅ Filings skipped:     %d\n", result.Skipped)
	if result.Failed > 0 {
		fmt.Printf("⚠️  Filings failed:      %d\n", result.Failed)
	}
	fmt.Printf("\nFilings saved under: %s\n", rootDir)
	return runErr
}
