package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"repopulse/internal/data"
)

// retrySource decorates any Source with bounded retry and exponential
// backoff. Only TransientError is retried; every other failure class is the
// inner source's final answer. Keeping retry out of the adapters lets the
// policy change without touching fetch logic.
type retrySource struct {
	inner   Source
	limit   int
	backoff time.Duration
	log     *zap.SugaredLogger
}

// WithRetry wraps src so transient failures are retried up to limit extra
// attempts, sleeping backoff, 2*backoff, 4*backoff... between attempts.
func WithRetry(src Source, limit int, backoff time.Duration, log *zap.SugaredLogger) Source {
	if limit <= 0 {
		return src
	}
	return &retrySource{inner: src, limit: limit, backoff: backoff, log: log}
}

func (r *retrySource) Name() string { return r.inner.Name() }

func (r *retrySource) Fetch(ctx context.Context, target data.ScanTarget) (*data.SourceData, error) {
	var lastErr error
	delay := r.backoff

	for attempt := 0; attempt <= r.limit; attempt++ {
		if attempt > 0 {
			r.log.Infow("retrying source fetch",
				"source", r.inner.Name(),
				"target", target.FullName(),
				"attempt", attempt,
				"delay", delay,
			)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}

		sd, err := r.inner.Fetch(ctx, target)
		if err == nil {
			return sd, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}
