package commands

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"orion/pkg/core/analyzer"
	"orion/pkg/core/config"
)

// maxListedPerKind caps how many stored reports the list view shows for
// each analysis kind.
const maxListedPerKind = 10

// AnalyzeCommand reviews extraction quality with the local model and
// manages the stored reports.
type AnalyzeCommand struct {
	year     int
	limit    int
	patterns bool
	missing  bool
	schema   bool
	list     bool
	view     string
}

func NewAnalyzeCommand() *cobra.Command {
	ac := &AnalyzeCommand{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run AI-powered analysis of extraction quality",
		Args:  cobra.NoArgs,
		RunE:  ac.run,
	}
	cmd.Flags().IntVar(&ac.year, "year", 2010, "year of filings to sample")
	cmd.Flags().IntVar(&ac.limit, "limit", 5, "number of filings to sample")
	cmd.Flags().BoolVar(&ac.patterns, "patterns", false, "also review the extraction regex patterns")
	cmd.Flags().BoolVar(&ac.missing, "missing", false, "also look for entities the extractors missed")
	cmd.Flags().BoolVar(&ac.schema, "schema", false, "also review the graph schema design")
	cmd.Flags().BoolVar(&ac.list, "list", false, "list stored analysis reports")
	cmd.Flags().StringVar(&ac.view, "view", "", "print a stored analysis report by file name")
	return cmd
}

func (ac *AnalyzeCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	analysisDir := filepath.Join(cfg.MetadataDir(), "analysis")

	if ac.list {
		return listAnalyses(analysisDir)
	}
	if ac.view != "" {
		return viewAnalysis(analysisDir, ac.view)
	}

	ctx, stop := signalContext()
	defer stop()

	banner("AI-Powered Extraction Analysis")

	fmt.Println("Initializing AI analyzer...")
	provider, err := provisionProvider(ctx, cfg, "")
	if err != nil {
		fmt.Println("❌ AI analyzer not available. Make sure Ollama is running:")
		fmt.Println("   docker-compose up -d ollama")
		fmt.Printf("   ollama pull %s\n", cfg.OllamaModel)
		return err
	}
	fmt.Printf("✅ AI analyzer ready (model: %s)\n\n", provider.Model())

	fmt.Printf("📂 Loading sample filings from %d (limit: %d)...\n", ac.year, ac.limit)
	samples, err := analyzer.LoadSamples(cfg.FilingsDir(), ac.year, ac.limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no filings found for year %d", ac.year)
	}
	fmt.Printf("✅ Loaded %d sample filings\n", len(samples))

	reviewer := analyzer.New(provider)
	meta := map[string]any{
		"year":            ac.year,
		"limit":           ac.limit,
		"filings_sampled": len(samples),
	}

	fmt.Println("\n🤖 Reviewing extraction output...")
	if err := ac.runOne(analysisDir, analyzer.KindExtraction, meta, func() (string, error) {
		return reviewer.AnalyzeExtraction(ctx, samples)
	}); err != nil {
		return err
	}

	if ac.patterns {
		fmt.Println("\n🔍 Reviewing extraction patterns...")
		if err := ac.runOne(analysisDir, analyzer.KindPatterns, meta, func() (string, error) {
			return reviewer.AnalyzePatterns(ctx, samples)
		}); err != nil {
			return err
		}
	}

	if ac.missing {
		sample := samples[0]
		fmt.Printf("\n🔎 Looking for missed entities in %s...\n", sample.Record.FileName)
		missingMeta := map[string]any{
			"year":             ac.year,
			"filing":           sample.Record.FileName,
			"cik":              sample.Record.CIK,
			"extracted_people": len(sample.People),
		}
		if err := ac.runOne(analysisDir, analyzer.KindMissing, missingMeta, func() (string, error) {
			return reviewer.AnalyzeMissing(ctx, sample)
		}); err != nil {
			return err
		}
	}

	if ac.schema {
		fmt.Println("\n📐 Reviewing graph schema design...")
		if err := ac.runOne(analysisDir, analyzer.KindSchema, meta, func() (string, error) {
			return reviewer.AnalyzeSchema(ctx, samples)
		}); err != nil {
			return err
		}
	}

	return nil
}

// runOne executes one analysis, persists the report, and prints it.
func (ac *AnalyzeCommand) runOne(dir, kind string, meta map[string]any, analyze func() (string, error)) error {
	report, err := analyze()
	if err != nil {
		return err
	}
	path, err := analyzer.Save(dir, kind, report, meta)
	if err != nil {
		return err
	}
	fmt.Printf("💾 Analysis saved to: %s\n", path)

	fmt.Println()
	banner("ANALYSIS RESULTS")
	fmt.Println(report)
	return nil
}

func listAnalyses(dir string) error {
	banner("Previous Analysis Results")

	entries, err := analyzer.List(dir, "")
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No analysis results found.")
		return nil
	}

	byKind := make(map[string][]analyzer.Entry)
	for _, entry := range entries {
		byKind[entry.Kind] = append(byKind[entry.Kind], entry)
	}
	kinds := make([]string, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		group := byKind[kind]
		fmt.Printf("\n%s (%d results):\n", kind, len(group))
		fmt.Println(strings.Repeat("-", 60))
		if len(group) > maxListedPerKind {
			group = group[:maxListedPerKind]
		}
		for _, entry := range group {
			fmt.Printf("  %s\n", entry.File)
			timestamp := entry.Timestamp
			if len(timestamp) > 19 {
				timestamp = timestamp[:19]
			}
			fmt.Printf("    Date: %s\n", timestamp)
			if line := metadataLine(entry.Metadata); line != "" {
				fmt.Printf("    %s\n", line)
			}
		}
	}

	fmt.Println("\nUse --view <filename> to view a specific analysis")
	return nil
}

// metadataLine renders up to three metadata pairs in stable key order.
func metadataLine(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) > 3 {
		keys = keys[:3]
	}
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprintf("%s=%v", key, metadata[key])
	}
	return strings.Join(parts, ", ")
}

func viewAnalysis(dir, name string) error {
	entry, report, err := analyzer.Load(dir, name)
	if err != nil {
		return err
	}

	banner(fmt.Sprintf("Viewing Analysis: %s", name))
	if entry.Kind != "" {
		fmt.Printf("Type: %s\n", entry.Kind)
	}
	if entry.Timestamp != "" {
		fmt.Printf("Date: %s\n", entry.Timestamp)
	}
	if line := metadataLine(entry.Metadata); line != "" {
		fmt.Printf("Metadata: %s\n", line)
	}
	fmt.Println()
	fmt.Println(report)
	return nil
}
