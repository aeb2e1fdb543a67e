package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"repopulse/internal/dashboard"
	"repopulse/internal/flags"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only dashboard API",
	Long: `Serve the stored snapshots and pull-request records over HTTP.

The API is strictly read-only; all writes happen in the scanner process
(scan/watch). Endpoints:

	GET /api/snapshots                  all repository snapshots
	GET /api/snapshots/:owner/:repo     latest snapshot for one repository
	GET /api/repos/:owner/:repo/pulls   stored pull requests for one repository
	GET /healthz`,
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := loadRuntime()
		if err != nil {
			fatalf("%v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := rt.openStore(ctx, false); err != nil {
			fatalf("open store: %v", err)
		}
		defer rt.store.Close(context.Background())

		addr := rt.cfg.Dashboard.Addr
		if cmd.Flags().Changed(flags.FlagAddr) {
			addr = serveAddr
		}

		srv := dashboard.NewServer(rt.store, rt.log)
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown()
		}()

		if err := srv.Listen(addr); err != nil {
			fatalf("dashboard server: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, flags.FlagAddr, ":8080", "Listen address (overrides DASHBOARD_ADDR)")
}
