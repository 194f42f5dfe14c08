// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/census-ingestion/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 80
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		// Keep the tail of long lines; for paths that is the informative part.
		if runes := []rune(line); len(runes) > boxWidth-4 {
			line = "..." + string(runes[len(runes)-(boxWidth-7):])
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintConfig outputs the resolved directories and source URL of a run.
func (p *Printer) PrintConfig(cfg *types.IngestionConfig) {
	if cfg == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("URL:    %s\n", cfg.DatasetDownloadURL))
	sb.WriteString(fmt.Sprintf("Tgz:    %s\n", cfg.TgzDownloadDir))
	sb.WriteString(fmt.Sprintf("Raw:    %s\n", cfg.RawDataDir))
	sb.WriteString(fmt.Sprintf("Train:  %s\n", cfg.IngestedTrainDir))
	sb.WriteString(fmt.Sprintf("Test:   %s", cfg.IngestedTestDir))

	p.printBox("DATA INGESTION CONFIG", sb.String())
}

// PrintArtifact outputs the result record of an ingestion run.
func (p *Printer) PrintArtifact(artifact *types.IngestionArtifact) {
	if artifact == nil {
		return
	}

	status := "FAILED"
	if artifact.IsIngested {
		status = "OK"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:  %s\n", status))
	sb.WriteString(fmt.Sprintf("Train:   %s\n", artifact.TrainFilePath))
	sb.WriteString(fmt.Sprintf("Test:    %s\n", artifact.TestFilePath))
	sb.WriteString(fmt.Sprintf("Message: %s", artifact.Message))

	p.printBox("DATA INGESTION ARTIFACT", sb.String())
}

// PrintSplitSummary outputs row counts per stratum for a stratified split.
func (p *Printer) PrintSplitSummary(summary *types.SplitSummary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Source: %s\n", summary.SourceFile))
	sb.WriteString(fmt.Sprintf("Rows:   %d total, %d train, %d test\n", summary.TotalRows, summary.TrainRows, summary.TestRows))
	if len(summary.Strata) > 0 {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%-8s %8s %8s %8s\n", "Stratum", "Train", "Test", "Test %"))

		labels := make([]string, 0, len(summary.Strata))
		for label := range summary.Strata {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		for _, label := range labels {
			c := summary.Strata[label]
			share := 0.0
			if c.Train+c.Test > 0 {
				share = 100 * float64(c.Test) / float64(c.Train+c.Test)
			}
			sb.WriteString(fmt.Sprintf("%-8s %8d %8d %7.1f%%\n", label, c.Train, c.Test, share))
		}
	}

	p.printBox("STRATIFIED SPLIT", strings.TrimSuffix(sb.String(), "\n"))
}
