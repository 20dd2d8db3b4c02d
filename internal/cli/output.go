// Package cli provides output formatting and prompt helpers for the hokan command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/hokan/hokan/internal/models"
	"github.com/hokan/hokan/pkg/utils"
)

// OutputFormat selects how search results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteSearchResults writes results to w in the given format. Use OutputJSON
// for parseable output consumable by other tools.
func WriteSearchResults(w io.Writer, results []models.SearchResult, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	writeSearchResultsText(w, results)
	return nil
}

func writeSearchResultsText(w io.Writer, results []models.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	fmt.Fprintf(w, "\nFound %d results\n\n", len(results))
	for _, r := range results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", r.Rank, r.Score)
		fmt.Fprintf(w, "Source: %s (chunk %d, chars %d-%d)\n", r.Chunk.Source, r.Chunk.Index, r.Chunk.Start, r.Chunk.End)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(r.Chunk.Text, 300))
	}
}

// WriteCollectionInfo writes collection statistics with sources listed alphabetically.
func WriteCollectionInfo(w io.Writer, info *models.CollectionInfo) {
	fmt.Fprintf(w, "Collection: %s\n", info.Name)
	fmt.Fprintf(w, "Chunks: %d\n", info.TotalChunks)
	fmt.Fprintf(w, "Files: %d\n", info.FileCount)
	if len(info.SourceFiles) == 0 {
		return
	}
	sources := make([]string, 0, len(info.SourceFiles))
	for s := range info.SourceFiles {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	fmt.Fprintln(w, "Sources:")
	for _, s := range sources {
		fmt.Fprintf(w, "  %s: %d chunks\n", s, info.SourceFiles[s])
	}
}

// WriteIndexReport summarizes an indexing run, listing any per-file failures.
func WriteIndexReport(w io.Writer, report *models.IndexReport) {
	fmt.Fprintf(w, "Indexed %d files (%d chunks) into %q\n",
		report.FilesIndexed, report.ChunksAdded, report.Collection)
	if len(report.Failures) == 0 {
		return
	}
	fmt.Fprintf(w, "Failed: %d\n", len(report.Failures))
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Reason)
	}
}
