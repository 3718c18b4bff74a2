package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/golang/glog"
	"go.uber.org/multierr"
)

// ErrForcedExit is returned by Wait when a second stop signal arrives
// before all Runnables stop.
var ErrForcedExit = errors.New("forced exit")

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// NameOf returns the name of a Named runnable, or its index otherwise.
func NameOf(runnable Runnable, index int) string {
	if named, ok := runnable.(Named); ok {
		return named.Name()
	}
	return strconv.Itoa(index)
}

type exitStatus struct {
	name string
	err  error
}

// Runner runs a group of Runnables sharing one context and reports
// their failures together.
type Runner struct {
	Context context.Context
	Runners []Runnable

	exitCh   chan exitStatus
	forcedCh chan struct{}
}

// NewRunner creates a runner on the background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner on ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	return &Runner{
		Context:  ctx,
		exitCh:   make(chan exitStatus),
		forcedCh: make(chan struct{}),
	}
}

// HandleSignals cancels the runner context on the first SIGINT or SIGTERM,
// a second one makes Wait return ErrForcedExit.
func (r *Runner) HandleSignals() *Runner {
	var cancel func()
	r.Context, cancel = context.WithCancel(r.Context)
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		glog.Infof("%v: stopping", sig)
		cancel()
		sig = <-sigCh
		glog.Errorf("%v: stop requested again, force exit", sig)
		close(r.forcedCh)
	}()
	return r
}

// Go starts runners in background on the runner context.
func (r *Runner) Go(runners ...Runnable) *Runner {
	for _, runner := range runners {
		name := NameOf(runner, len(r.Runners))
		r.Runners = append(r.Runners, runner)
		go func(runner Runnable, name string) {
			glog.V(4).Infof("Runner[%s] started", name)
			err := runner.Run(r.Context)
			glog.V(4).Infof("Runner[%s] stopped: %v", name, err)
			select {
			case r.exitCh <- exitStatus{name: name, err: err}:
			case <-r.forcedCh:
			}
		}(runner, name)
	}
	return r
}

// Wait waits until all Runnables stop. The returned error combines the
// failures, each prefixed by the Runnable name. Stopping on cancellation
// is not a failure.
func (r *Runner) Wait() (err error) {
	for range r.Runners {
		select {
		case <-r.forcedCh:
			return ErrForcedExit
		case st := <-r.exitCh:
			if st.err != nil && !errors.Is(st.err, context.Canceled) {
				err = multierr.Append(err, fmt.Errorf("%s: %w", st.name, st.err))
			}
		}
	}
	return
}

// RunWithContextCancel runs fn which doesn't accept a context. When ctx is
// done before fn returns, onCancel is called to unblock fn and
// context.Canceled is returned once fn returns.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	if onCancel != nil {
		onCancel()
	}
	<-errCh
	return context.Canceled
}

// RunWithContextCloser is RunWithContextCancel which closes closer exactly
// once, on cancel or after fn returns.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	var once sync.Once
	closeOnce := func() {
		once.Do(func() {
			if err := closer.Close(); err != nil {
				glog.V(1).Infof("close: %v", err)
			}
		})
	}
	defer closeOnce()
	return RunWithContextCancel(ctx, closeOnce, fn)
}
