package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"repopulse/internal/config"
	gh "repopulse/internal/github"
)

// State is the scheduler lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"

	// StateAborted is entered on a credential failure and sticks until the
	// process restarts with corrected credentials. No auto-resume: hammering
	// an upstream with an invalid token helps nobody.
	StateAborted State = "aborted"
)

// ErrAborted is returned by Run after a cycle hit a fatal credential failure.
var ErrAborted = errors.New("scheduler aborted: credential failure")

// Scheduler drives full reconciliation passes, either once or on a fixed
// cadence. Overlapping runs are disallowed: a tick that fires while a cycle
// is still running is skipped and logged, never queued.
type Scheduler struct {
	reconciler *Reconciler
	client     *gh.Client
	cfg        *config.Config
	log        *zap.SugaredLogger

	mu    sync.Mutex
	state State
}

func NewScheduler(reconciler *Reconciler, client *gh.Client, cfg *config.Config, log *zap.SugaredLogger) (*Scheduler, error) {
	if reconciler == nil {
		return nil, errors.New("scheduler: reconciler is nil")
	}
	if client == nil {
		return nil, errors.New("scheduler: github client is nil")
	}
	if cfg == nil {
		return nil, errors.New("scheduler: config is nil")
	}
	return &Scheduler{
		reconciler: reconciler,
		client:     client,
		cfg:        cfg,
		log:        log.Named("engine.scheduler"),
		state:      StateIdle,
	}, nil
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// tryBegin transitions Idle -> Running. It reports false when a cycle is
// already running or the scheduler is aborted.
func (s *Scheduler) tryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return false
	}
	s.state = StateRunning
	return true
}

func (s *Scheduler) finish(aborted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if aborted {
		s.state = StateAborted
		return
	}
	s.state = StateIdle
}

// RunOnce executes a single reconciliation cycle: resolve targets, reconcile,
// report. It is the single-shot mode behind `repopulse scan` and the body of
// every recurring tick.
func (s *Scheduler) RunOnce(ctx context.Context) (*CycleReport, error) {
	if !s.tryBegin() {
		state := s.State()
		s.log.Warnw("cycle skipped", "state", state)
		return nil, fmt.Errorf("scheduler is %s; cycle skipped", state)
	}

	report, err := s.runCycle(ctx)
	s.finish(report != nil && report.Aborted())
	return report, err
}

func (s *Scheduler) runCycle(ctx context.Context) (*CycleReport, error) {
	targets, err := ResolveTargets(ctx, s.client, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve targets: %w", err)
	}
	if len(targets) == 0 {
		s.log.Warnw("no targets resolved", "org", s.cfg.GitHub.Org)
		return &CycleReport{StartedAt: time.Now().UTC(), FinishedAt: time.Now().UTC()}, nil
	}

	s.log.Infow("cycle started", "targets", len(targets))
	report := s.reconciler.RunCycle(ctx, targets)

	if report.Aborted() {
		s.log.Errorw("cycle aborted on credential failure", "error", report.AuthErr)
	} else {
		s.log.Infow("cycle finished",
			"targets", len(report.Outcomes),
			"failed", countFailed(report.Outcomes),
			"duration", report.FinishedAt.Sub(report.StartedAt),
		)
	}
	return report, nil
}

// Run executes cycles on the configured interval until ctx is canceled or a
// cycle aborts. The first cycle starts immediately rather than one interval
// in.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Runtime.Interval)
	defer ticker.Stop()

	if err := s.tick(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) error {
	switch s.State() {
	case StateAborted:
		return ErrAborted
	case StateRunning:
		// Never queue ticks behind a slow cycle.
		s.log.Warnw("tick skipped: previous cycle still running")
		return nil
	}

	report, err := s.RunOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Errorw("cycle failed", "error", err)
		return nil
	}
	if report.Aborted() {
		return ErrAborted
	}
	return nil
}

func countFailed(outcomes []TargetOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}
