package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"repopulse/internal/data"
	"repopulse/internal/source"
	"repopulse/internal/store"
)

// TargetOutcome is the observable result of reconciling one target in one
// cycle.
type TargetOutcome struct {
	Target   data.ScanTarget
	Sources  map[string]data.SourceStatus
	StoreErr error
}

func (o TargetOutcome) Failed() bool {
	if o.StoreErr != nil {
		return true
	}
	for _, st := range o.Sources {
		if st.Outcome != data.FetchOK {
			return true
		}
	}
	return false
}

// CycleReport summarizes one full reconciliation pass.
type CycleReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []TargetOutcome

	// AuthErr is set when a credential failure aborted the cycle.
	AuthErr error
}

func (r *CycleReport) Aborted() bool { return r.AuthErr != nil }

func (r *CycleReport) Partial() bool {
	for _, o := range r.Outcomes {
		if o.Failed() {
			return true
		}
	}
	return false
}

// Reconciler produces one RepositorySnapshot per target per cycle: it fans
// out to every registered source, merges whatever succeeded, records per-
// source status for whatever did not, and hands the merged document to the
// store.
type Reconciler struct {
	sources       []source.Source
	store         store.Store
	concurrency   int
	sourceTimeout time.Duration
	log           *zap.SugaredLogger
	now           func() time.Time
}

func NewReconciler(sources []source.Source, st store.Store, concurrency int, sourceTimeout time.Duration, log *zap.SugaredLogger) (*Reconciler, error) {
	if len(sources) == 0 {
		return nil, errors.New("reconciler: no sources registered")
	}
	if st == nil {
		return nil, errors.New("reconciler: store is nil")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("reconciler: concurrency must be >= 1, got %d", concurrency)
	}
	if sourceTimeout <= 0 {
		return nil, fmt.Errorf("reconciler: source timeout must be > 0, got %s", sourceTimeout)
	}
	return &Reconciler{
		sources:       sources,
		store:         st,
		concurrency:   concurrency,
		sourceTimeout: sourceTimeout,
		log:           log.Named("engine.reconciler"),
		now:           time.Now,
	}, nil
}

// RunCycle reconciles every target. Targets are independent and run across a
// bounded worker pool; a failure in one never leaks into another. The one
// exception is AuthError: credentials are shared across targets, so the first
// one cancels the remainder of the cycle.
func (r *Reconciler) RunCycle(ctx context.Context, targets []data.ScanTarget) *CycleReport {
	report := &CycleReport{StartedAt: r.now().UTC()}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Limit active targets (favor target completion).
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var authErr error

	recordAuthAbort := func(err error) {
		mu.Lock()
		if authErr == nil {
			authErr = err
		}
		mu.Unlock()
		cancel()
	}

	for _, target := range targets {
		if runCtx.Err() != nil {
			break
		}

		select {
		case sem <- struct{}{}:
			// acquired
		case <-runCtx.Done():
		}
		if runCtx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(target data.ScanTarget) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, abort := r.reconcileTarget(runCtx, target)
			if abort != nil {
				recordAuthAbort(abort)
				return
			}

			mu.Lock()
			report.Outcomes = append(report.Outcomes, outcome)
			mu.Unlock()
		}(target)
	}

	wg.Wait()

	sort.Slice(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].Target.FullName() < report.Outcomes[j].Target.FullName()
	})
	report.AuthErr = authErr
	report.FinishedAt = r.now().UTC()
	return report
}

// reconcileTarget runs every source for one target and persists the merged
// snapshot. The returned abort error is non-nil only for credential failures.
func (r *Reconciler) reconcileTarget(ctx context.Context, target data.ScanTarget) (TargetOutcome, error) {
	snapshot := &data.RepositorySnapshot{
		Target:    target,
		Sources:   make(map[string]data.SourceStatus, len(r.sources)),
		ScannedAt: r.now().UTC(),
	}

	var mu sync.Mutex
	var allPRs []data.PullRequestRecord

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range r.sources {
		g.Go(func() error {
			callCtx, cancelCall := context.WithTimeout(gctx, r.sourceTimeout)
			defer cancelCall()

			sd, err := src.Fetch(callCtx, target)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if source.IsAuth(err) {
					// Returning the error cancels the sibling fetches via gctx.
					return err
				}
				r.log.Warnw("source fetch failed",
					"source", src.Name(),
					"target", target.FullName(),
					"error", err,
				)
				snapshot.Sources[src.Name()] = data.StatusFailed(err.Error())
				return nil
			}

			snapshot.Sources[src.Name()] = data.StatusOK()
			mergeSourceData(snapshot, sd, &allPRs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return TargetOutcome{}, err
	}

	outcome := TargetOutcome{Target: target, Sources: snapshot.Sources}
	if ctx.Err() != nil {
		// Cycle canceled mid-flight: skip the write rather than persist a
		// snapshot full of cancellation noise.
		outcome.StoreErr = ctx.Err()
		return outcome, nil
	}

	if err := r.persist(ctx, snapshot, allPRs); err != nil {
		r.log.Errorw("store write failed", "target", target.FullName(), "error", err)
		outcome.StoreErr = err
		return outcome, nil
	}

	r.log.Infow("target reconciled",
		"target", target.FullName(),
		"open_prs", len(snapshot.OpenPullRequests),
		"healthy", snapshot.Healthy(),
	)
	return outcome, nil
}

// mergeSourceData folds one source's payload into the snapshot. Fields of
// failed sources stay nil, so the store can distinguish "no data this cycle"
// from "confirmed empty".
func mergeSourceData(snapshot *data.RepositorySnapshot, sd *data.SourceData, allPRs *[]data.PullRequestRecord) {
	if sd == nil {
		return
	}
	if sd.PullRequests != nil {
		*allPRs = sd.PullRequests
		snapshot.TotalPRs = len(sd.PullRequests)

		open := make([]data.PullRequestRecord, 0, len(sd.PullRequests))
		var totalHours float64
		for _, pr := range sd.PullRequests {
			totalHours += pr.CycleTimeHours
			if pr.State == data.PRStateOpen {
				open = append(open, pr)
			}
		}
		snapshot.OpenPullRequests = open
		if len(sd.PullRequests) > 0 {
			snapshot.AvgCycleTimeHours = totalHours / float64(len(sd.PullRequests))
		}
	}
	if sd.Stats != nil {
		snapshot.Stats = sd.Stats
	}
	if sd.Quality != nil {
		snapshot.Quality = sd.Quality
	}
	if sd.Artifact != nil {
		snapshot.Artifact = sd.Artifact
	}
}

func (r *Reconciler) persist(ctx context.Context, snapshot *data.RepositorySnapshot, prs []data.PullRequestRecord) error {
	if len(prs) > 0 {
		if err := r.store.UpsertPullRequests(ctx, prs); err != nil {
			return err
		}
	}
	return r.store.UpsertSnapshot(ctx, snapshot)
}
