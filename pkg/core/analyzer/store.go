package analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry describes one stored analysis report.
type Entry struct {
	File      string
	Path      string
	Timestamp string
	Kind      string
	Metadata  map[string]any
}

type sidecar struct {
	Timestamp string         `json:"timestamp"`
	Kind      string         `json:"analysis_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Save writes the markdown report as <kind>_<timestamp>.md plus a JSON
// sidecar carrying the run metadata, and returns the markdown path.
func Save(dir, kind, report string, metadata map[string]any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create analysis dir %s: %w", dir, err)
	}

	now := time.Now()
	stem := fmt.Sprintf("%s_%s", kind, now.Format("20060102_150405"))
	mdPath := filepath.Join(dir, stem+".md")

	var md strings.Builder
	fmt.Fprintf(&md, "# %s Analysis\n\n", titleCase(kind))
	fmt.Fprintf(&md, "**Date**: %s\n\n", now.Format("2006-01-02 15:04:05"))
	if len(metadata) > 0 {
		md.WriteString("## Metadata\n\n")
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&md, "- **%s**: %v\n", k, metadata[k])
		}
		md.WriteString("\n")
	}
	md.WriteString("## Results\n\n")
	md.WriteString(report)
	md.WriteString("\n")

	if err := os.WriteFile(mdPath, []byte(md.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write analysis report: %w", err)
	}

	side := sidecar{
		Timestamp: now.Format(time.RFC3339),
		Kind:      kind,
		Metadata:  metadata,
	}
	data, err := json.MarshalIndent(side, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, stem+".json"), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write analysis metadata: %w", err)
	}
	return mdPath, nil
}

// List returns stored reports, newest first. kind filters to one analysis
// kind when non-empty. Unreadable sidecars are skipped.
func List(dir, kind string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read analysis dir %s: %w", dir, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if kind != "" && !strings.HasPrefix(name, kind+"_") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		var side sidecar
		if err := json.Unmarshal(data, &side); err != nil {
			continue
		}
		entries = append(entries, Entry{
			File:      name,
			Path:      filepath.Join(dir, name),
			Timestamp: side.Timestamp,
			Kind:      side.Kind,
			Metadata:  side.Metadata,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].File > entries[j].File })
	return entries, nil
}

// Load reads one stored report by file name; either the .md or the .json
// name works. The sidecar is best-effort, the report itself is required.
func Load(dir, name string) (Entry, string, error) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	entry := Entry{File: stem + ".json", Path: filepath.Join(dir, stem+".json")}
	if data, err := os.ReadFile(entry.Path); err == nil {
		var side sidecar
		if err := json.Unmarshal(data, &side); err == nil {
			entry.Timestamp = side.Timestamp
			entry.Kind = side.Kind
			entry.Metadata = side.Metadata
		}
	}

	report, err := os.ReadFile(filepath.Join(dir, stem+".md"))
	if err != nil {
		return Entry{}, "", fmt.Errorf("analysis %s not found: %w", name, err)
	}
	return entry, string(report), nil
}

func titleCase(kind string) string {
	words := strings.Split(kind, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
