package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"repopulse/internal/data"
	"repopulse/internal/engine"
	"repopulse/internal/flags"
)

var scanDryRun bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single reconciliation cycle",
	Long: `Run exactly one reconciliation cycle and exit.

Every configured repository is reconciled: pull requests, quality measures
and artifact metrics are fetched, merged into one snapshot per repository,
and upserted into the store. A per-target summary is printed when done.

With --dry-run the cycle runs against an in-memory store, so upstream
connectivity can be verified without touching MongoDB.

Exit codes:
	0 = every target reconciled cleanly
	1 = partial failure (some targets or sources failed)
	2 = aborted (credential failure)
	3 = fatal error (cycle did not run)`,
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := loadRuntime()
		if err != nil {
			fatalf("%v", err)
		}

		ctx := context.Background()
		if err := rt.openStore(ctx, scanDryRun); err != nil {
			fatalf("open store: %v", err)
		}
		defer rt.store.Close(context.Background())

		scheduler, err := rt.buildScheduler(ctx)
		if err != nil {
			fatalf("%v", err)
		}

		report, err := scheduler.RunOnce(ctx)
		if err != nil {
			fatalf("cycle failed: %v", err)
		}

		printCycleSummary(report)
		os.Exit(exitCodeForReport(report))
	},
}

func printCycleSummary(report *engine.CycleReport) {
	okMark := color.New(color.FgGreen).SprintFunc()
	failMark := color.New(color.FgRed).SprintFunc()

	fmt.Printf("Cycle finished in %s (%d targets)\n",
		report.FinishedAt.Sub(report.StartedAt).Truncate(1e6), len(report.Outcomes))

	for _, outcome := range report.Outcomes {
		names := make([]string, 0, len(outcome.Sources))
		for name := range outcome.Sources {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Printf("  %s:", outcome.Target.FullName())
		for _, name := range names {
			st := outcome.Sources[name]
			if st.Outcome == data.FetchOK {
				fmt.Printf(" %s=%s", name, okMark("ok"))
			} else {
				fmt.Printf(" %s=%s(%s)", name, failMark("failed"), st.Reason)
			}
		}
		if outcome.StoreErr != nil {
			fmt.Printf(" store=%s", failMark("failed"))
		}
		fmt.Println()
	}

	if report.Aborted() {
		fmt.Printf("%s %v\n", failMark("Aborted:"), report.AuthErr)
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanDryRun, flags.FlagDryRun, false, "Reconcile against an in-memory store instead of MongoDB")
}
