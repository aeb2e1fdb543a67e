package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"repopulse/internal/data"
)

type scriptedSource struct {
	name  string
	errs  []error
	calls int
	data  *data.SourceData
}

func (s *scriptedSource) Name() string { return s.name }

func (s *scriptedSource) Fetch(ctx context.Context, _ data.ScanTarget) (*data.SourceData, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.data, nil
}

func TestWithRetry_TransientThenSuccess(t *testing.T) {
	inner := &scriptedSource{
		name: "stub",
		errs: []error{
			&TransientError{Source: "stub", Err: errors.New("503")},
			&TransientError{Source: "stub", Err: errors.New("503")},
		},
		data: &data.SourceData{},
	}
	src := WithRetry(inner, 2, time.Millisecond, zap.NewNop().Sugar())

	sd, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "api"})
	require.NoError(t, err)
	assert.NotNil(t, sd)
	assert.Equal(t, 3, inner.calls)
}

func TestWithRetry_ExhaustsLimit(t *testing.T) {
	inner := &scriptedSource{
		name: "stub",
		errs: []error{
			&TransientError{Source: "stub", Err: errors.New("timeout")},
			&TransientError{Source: "stub", Err: errors.New("timeout")},
			&TransientError{Source: "stub", Err: errors.New("timeout")},
		},
	}
	src := WithRetry(inner, 2, time.Millisecond, zap.NewNop().Sugar())

	_, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "api"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3, inner.calls)
}

func TestWithRetry_NonTransientNotRetried(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"auth", &AuthError{Source: "stub", Err: errors.New("401")}},
		{"not found", &NotFoundError{Source: "stub", Target: "acme/api"}},
		{"malformed", &MalformedResponseError{Source: "stub", Err: errors.New("bad json")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inner := &scriptedSource{name: "stub", errs: []error{tc.err, tc.err, tc.err}}
			src := WithRetry(inner, 2, time.Millisecond, zap.NewNop().Sugar())

			_, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "api"})
			require.Error(t, err)
			assert.Equal(t, 1, inner.calls)
		})
	}
}

func TestWithRetry_ContextCancelStopsBackoff(t *testing.T) {
	inner := &scriptedSource{
		name: "stub",
		errs: []error{&TransientError{Source: "stub", Err: errors.New("timeout")}},
	}
	src := WithRetry(inner, 3, time.Hour, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := src.Fetch(ctx, data.ScanTarget{Owner: "acme", Repo: "api"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetry_ZeroLimitReturnsInner(t *testing.T) {
	inner := &scriptedSource{name: "stub"}
	assert.Same(t, Source(inner), WithRetry(inner, 0, time.Second, zap.NewNop().Sugar()))
}
