package main

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"

	"github.com/sysforge/sysforge/pkg/orchestrator"
)

// renderSummary prints the per-task outcome table and, under dry-run, the
// planned actions.
func renderSummary(summary *orchestrator.Summary) {
	if summary.Mode == orchestrator.ModeDryRun {
		renderPlans(summary)
	}

	rows := pterm.TableData{{"TASK", "STATUS", "DURATION", "NOTES"}}
	for _, r := range summary.Results {
		notes := r.SkipReason
		if r.Err != nil {
			notes = r.Err.Error()
		}
		rows = append(rows, []string{
			r.Name,
			statusLabel(r.Status),
			r.Duration.Round(time.Millisecond).String(),
			notes,
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	counts := summary.Counts()
	line := fmt.Sprintf("%d completed, %d failed, %d skipped",
		counts[orchestrator.StatusCompleted],
		counts[orchestrator.StatusFailed],
		counts[orchestrator.StatusSkipped])
	if summary.Failed() {
		pterm.Error.Println(line)
	} else {
		pterm.Success.Println(line)
	}
}

func renderPlans(summary *orchestrator.Summary) {
	pterm.DefaultSection.Println("Dry run: planned actions")
	for _, r := range summary.Results {
		pterm.DefaultBasicText.Printfln("%s:", pterm.Bold.Sprint(r.Name))
		if len(r.Plan) == 0 {
			pterm.DefaultBasicText.Printfln("  (%s)", r.SkipReason)
			continue
		}
		for _, line := range r.Plan {
			pterm.DefaultBasicText.Printfln("  - %s", line)
		}
	}
}

func statusLabel(status orchestrator.Status) string {
	switch status {
	case orchestrator.StatusCompleted:
		return pterm.Green(string(status))
	case orchestrator.StatusFailed:
		return pterm.Red(string(status))
	case orchestrator.StatusSkipped:
		return pterm.Yellow(string(status))
	default:
		return string(status)
	}
}
