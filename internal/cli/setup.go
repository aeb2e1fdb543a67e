package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"repopulse/internal/config"
	"repopulse/internal/engine"
	gh "repopulse/internal/github"
	"repopulse/internal/logging"
	"repopulse/internal/source"
	"repopulse/internal/store"
)

// Exit code contract:
// 0 = graceful run
// 1 = partial failure (some targets/sources failed)
// 2 = aborted (credential failure, operator intervention required)
// 3 = fatal error (startup/configuration failure)
const (
	exitOK      = 0
	exitPartial = 1
	exitAborted = 2
	exitFatal   = 3
)

func exitCodeForReport(report *engine.CycleReport) int {
	if report == nil {
		return exitFatal
	}
	if report.Aborted() {
		return exitAborted
	}
	if report.Partial() {
		return exitPartial
	}
	return exitOK
}

// runtime bundles everything a command needs after startup.
type runtime struct {
	cfg   *config.Config
	log   *zap.SugaredLogger
	store store.Store
}

// loadRuntime parses and validates configuration and builds the logger.
// Failures here are startup-fatal by contract.
func loadRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(cfg.Runtime.LogLevel)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, log: log}, nil
}

func (rt *runtime) openStore(ctx context.Context, dryRun bool) error {
	if dryRun {
		rt.store = store.NewMemoryStore()
		return nil
	}
	st, err := store.NewMongoStore(ctx, rt.cfg.Mongo.URI, rt.cfg.Mongo.Database, rt.log)
	if err != nil {
		return err
	}
	rt.store = st
	return nil
}

// buildScheduler wires the github client, the three sources (each behind the
// retry decorator), the reconciler and the scheduler.
func (rt *runtime) buildScheduler(ctx context.Context) (*engine.Scheduler, error) {
	client, err := gh.NewClient(ctx, rt.cfg.GitHub.Token, gh.WithVerbose(verbose, nil))
	if err != nil {
		return nil, fmt.Errorf("create github client: %w", err)
	}

	httpClient := &http.Client{}
	sources := []source.Source{
		source.NewPullRequestSource(client),
		source.NewQualitySource(rt.cfg.SonarQube.URL, rt.cfg.SonarQube.Token, rt.cfg.ProjectKeyPrefix(), httpClient),
		source.NewArtifactSource(rt.cfg.NexusIQ.URL, rt.cfg.NexusIQ.Username, rt.cfg.NexusIQ.Password, httpClient),
	}
	for i, src := range sources {
		sources[i] = source.WithRetry(src, rt.cfg.Runtime.RetryLimit, rt.cfg.Runtime.RetryBackoff, rt.log)
	}

	reconciler, err := engine.NewReconciler(sources, rt.store,
		rt.cfg.Runtime.Concurrency, rt.cfg.Runtime.SourceTimeout, rt.log)
	if err != nil {
		return nil, err
	}

	return engine.NewScheduler(reconciler, client, rt.cfg, rt.log)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(exitFatal)
}
