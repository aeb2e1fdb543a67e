package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"repopulse/internal/engine"
	"repopulse/internal/flags"
)

var (
	watchInterval    time.Duration
	watchConcurrency int
	watchTimeout     time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run reconciliation cycles on the configured interval",
	Long: `Run the scheduler until interrupted: a full reconciliation cycle fires
immediately and then on every interval tick. A tick that arrives while the
previous cycle is still running is skipped, never queued.

A credential failure from any source aborts the scheduler; it will not
resume until restarted with corrected credentials.

Exit codes:
	0 = graceful shutdown (SIGINT/SIGTERM)
	2 = aborted on credential failure
	3 = fatal startup error`,
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := loadRuntime()
		if err != nil {
			fatalf("%v", err)
		}
		applyRuntimeOverrides(cmd, rt)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := rt.openStore(ctx, false); err != nil {
			fatalf("open store: %v", err)
		}
		defer rt.store.Close(context.Background())

		scheduler, err := rt.buildScheduler(ctx)
		if err != nil {
			fatalf("%v", err)
		}

		rt.log.Infow("watch started", "interval", rt.cfg.Runtime.Interval)
		err = scheduler.Run(ctx)
		switch {
		case errors.Is(err, engine.ErrAborted):
			rt.log.Errorw("scheduler aborted; restart with corrected credentials")
			os.Exit(exitAborted)
		case errors.Is(err, context.Canceled):
			rt.log.Infow("shutting down")
		case err != nil:
			fatalf("scheduler stopped: %v", err)
		}
	},
}

// applyRuntimeOverrides lets explicitly-set flags win over the environment.
func applyRuntimeOverrides(cmd *cobra.Command, rt *runtime) {
	if cmd.Flags().Changed(flags.FlagInterval) {
		rt.cfg.Runtime.Interval = watchInterval
	}
	if cmd.Flags().Changed(flags.FlagConcurrency) {
		rt.cfg.Runtime.Concurrency = watchConcurrency
	}
	if cmd.Flags().Changed(flags.FlagTimeout) {
		rt.cfg.Runtime.SourceTimeout = watchTimeout
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, flags.FlagInterval, 30*time.Minute, "Interval between cycles (overrides SCAN_INTERVAL)")
	watchCmd.Flags().IntVar(&watchConcurrency, flags.FlagConcurrency, 5, "Concurrent targets per cycle (overrides SCAN_CONCURRENCY)")
	watchCmd.Flags().DurationVar(&watchTimeout, flags.FlagTimeout, 30*time.Second, "Per-source call timeout (overrides SOURCE_TIMEOUT)")
}
