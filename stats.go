package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/Readm/backend_flow_sim/plugins/runmetrics"
	"github.com/Readm/backend_flow_sim/simulator"
)

// PrintRunSummary prints the headless run results followed by the
// collector counters.
func PrintRunSummary(w io.Writer, results []simulator.RunResult, stats runmetrics.Stats) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No runs completed")
		return
	}
	fmt.Fprintln(w, "=== Run Summary ===")
	for _, r := range results {
		fmt.Fprintf(w, "%-12s %s log lines, %s simulated, %s ticks\n",
			r.Scenario, humanize.Comma(int64(len(r.Logs))), r.Elapsed, humanize.Comma(int64(r.Ticks)))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Counters ===")
	fmt.Fprint(w, stats.Summary())
}
