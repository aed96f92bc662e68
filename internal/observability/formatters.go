// Package observability provides the process logger and formatted output for
// the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/job-validator/internal/pipeline"
	"github.com/jonathan/job-validator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for human readers
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
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func verdict(valid bool) string {
	if valid {
		return "✅ VALID"
	}
	return "❌ INVALID"
}

// PrintResult outputs a human-readable summary of one validation.
func (p *Printer) PrintResult(res *types.UnifiedValidationResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("URL:         %s\n", res.URL))
	sb.WriteString(fmt.Sprintf("Verdict:     %s\n", verdict(res.IsValid)))
	sb.WriteString(fmt.Sprintf("Confidence:  %.2f\n", res.OverallConfidence))
	sb.WriteString(fmt.Sprintf("Tier:        %d", res.HighestTierReached))
	if res.FromCache {
		sb.WriteString(" (cached)")
	}
	sb.WriteString(fmt.Sprintf("\nTime:        %dms\n", res.ProcessingTimeMs))

	if res.Tier2 != nil && res.Tier2.Data != nil {
		cl := res.Tier2.Data
		sb.WriteString(fmt.Sprintf("Content:     %s (%d words, %s)\n", cl.ContentType, cl.WordCount, cl.Language))
	}

	if f := res.FinalData; f != nil {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Title:       %s\n", f.Title))
		sb.WriteString(fmt.Sprintf("Company:     %s\n", f.Company))
		location := f.Location
		if f.Remote {
			location = strings.TrimSpace(location + " (remote)")
		}
		sb.WriteString(fmt.Sprintf("Location:    %s\n", location))
	}

	errs := res.AllErrors()
	if len(errs) > 0 {
		sb.WriteString("\nIssues:\n")
		count := min(len(errs), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • [%s] %s\n", errs[i].Severity, errs[i].Code))
		}
		if len(errs) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(errs)-maxItemsToShow))
		}
	}

	g := res.UserGuidance
	sb.WriteString("\n")
	sb.WriteString(g.PrimaryMessage + "\n")
	if g.ActionRequired != "" {
		sb.WriteString("→ " + g.ActionRequired + "\n")
	}
	for _, s := range g.Suggestions {
		if s != g.ActionRequired {
			sb.WriteString("  • " + s + "\n")
		}
	}
	if res.CanRetry {
		sb.WriteString("Retrying later may succeed.\n")
	}
	if !res.IsValid && g.CanProceedManually {
		sb.WriteString("You can continue by entering the job details manually.\n")
	}

	p.printBox("JOB URL VALIDATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBatch outputs one line per result and a tally.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintBatch(results []*types.UnifiedValidationResult) {
	valid := 0
	var sb strings.Builder
	for i, res := range results {
		mark := "✗"
		if res.IsValid {
			mark = "✓"
			valid++
		}
		sb.WriteString(fmt.Sprintf("%s %.2f %s", mark, res.OverallConfidence, res.URL))
		if i < len(results)-1 {
			sb.WriteString("\n")
		}
	}
	if len(results) == 0 {
		sb.WriteString("no URLs")
	}
	p.printBox(fmt.Sprintf("BATCH: %d/%d VALID", valid, len(results)), sb.String())
}

// PrintHealth outputs the orchestrator health snapshot.
func (p *Printer) PrintHealth(h pipeline.HealthSnapshot) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:       %s\n", h.Status))
	sb.WriteString(fmt.Sprintf("Uptime:       %s\n", h.Uptime))
	sb.WriteString(fmt.Sprintf("Validations:  %d (%d valid, %d invalid)\n",
		h.Counters.Validations, h.Counters.Valid, h.Counters.Invalid))
	sb.WriteString(fmt.Sprintf("Cache:        %d entries, hit rate %.0f%%\n", h.Cache.Entries, h.Cache.HitRate*100))
	for _, b := range h.ExtractionBreakers {
		sb.WriteString(fmt.Sprintf("Breaker:      %s %s (%d failures)\n", b.Name, b.State, b.ConsecutiveFailures))
	}
	p.printBox("VALIDATOR HEALTH", strings.TrimSuffix(sb.String(), "\n"))
}
