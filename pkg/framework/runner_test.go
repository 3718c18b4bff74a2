package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunnerWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errFail := errors.New("fail")
	r := NewRunnerWith(ctx).Go(
		NamedRun("cancel", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		NamedRun("tcp", RunFunc(func(ctx context.Context) error {
			return errFail
		})),
		RunFunc(func(ctx context.Context) error {
			return nil
		}),
	)
	require.Len(t, r.Runners, 3)
	require.Equal(t, "cancel", NameOf(r.Runners[0], 0))
	require.Equal(t, "2", NameOf(r.Runners[2], 2))
	cancel()
	err := r.Wait()
	require.True(t, errors.Is(err, errFail))
	require.EqualError(t, err, "tcp: fail")
}

func TestRunWithContextCloser(t *testing.T) {
	var closes int
	closer := closeFunc(func() error {
		closes++
		return nil
	})
	require.NoError(t, RunWithContextCloser(context.Background(), closer, func() error { return nil }))
	require.Equal(t, 1, closes)

	ctx, cancel := context.WithCancel(context.Background())
	stopCh := make(chan struct{})
	closer = closeFunc(func() error {
		closes++
		close(stopCh)
		return nil
	})
	errCh := make(chan error, 1)
	go func() {
		errCh <- RunWithContextCloser(ctx, closer, func() error {
			<-stopCh
			return nil
		})
	}()
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
	require.Equal(t, 2, closes)
}

type closeFunc func() error

func (f closeFunc) Close() error {
	return f()
}
