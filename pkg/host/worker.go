package host

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/dspi/pkg/link"
)

// Defaults of Worker.
const (
	DefaultTxDelay       = time.Millisecond
	DefaultRetryInterval = 500 * time.Millisecond
)

// Worker runs transactions for commands taken from the Session.
type Worker struct {
	Link    *Link
	Session *Session
	// TxDelay separates the header from the data phase, the link adapter
	// can't queue both back to back.
	TxDelay time.Duration
	// RetryInterval is the pause between failed link initializations.
	// Initialization is retried until the worker stops.
	RetryInterval time.Duration
}

// NewWorker creates a Worker.
func NewWorker(l *Link, s *Session) *Worker {
	return &Worker{
		Link:          l,
		Session:       s,
		TxDelay:       DefaultTxDelay,
		RetryInterval: DefaultRetryInterval,
	}
}

// Name implements Named.
func (w *Worker) Name() string {
	return "worker"
}

// Init initializes the link once, used at startup.
func (w *Worker) Init(ctx context.Context) error {
	return w.Link.Init(ctx)
}

// Run implements Runnable.
func (w *Worker) Run(ctx context.Context) error {
	defer w.Link.Close()
	var lastCode int
	for {
		var retry <-chan time.Time
		if !w.Link.Ready() {
			if err := w.Link.Init(ctx); err != nil {
				if code := link.CodeOf(link.OpOpen, err); code != lastCode {
					glog.Warningf("%v", err)
					lastCode = code
				} else {
					glog.V(1).Infof("%v", err)
				}
				retry = time.After(w.RetryInterval)
			} else {
				lastCode = 0
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-retry:
		case p := <-w.Session.requests():
			w.Session.setState(CommandInFlight)
			p.resultCh <- w.Execute(ctx, p.req)
			w.Session.setState(AwaitingInput)
		}
	}
}

// Execute runs the transactions of a request.
func (w *Worker) Execute(ctx context.Context, req Request) (res Result) {
	res.Request = req
	frame, err := req.Frame()
	if err != nil {
		res.Err = err
		return
	}
	if res.Err = w.Link.Tx(frame.Header.Bytes(), nil); res.Err != nil {
		w.logError(req, res.Err)
		return
	}
	if res.Err = w.delay(ctx); res.Err != nil {
		return
	}
	r := make([]byte, len(frame.Data))
	if res.Err = w.Link.Tx(frame.Data, r); res.Err != nil {
		w.logError(req, res.Err)
		return
	}
	switch req.Kind {
	case KindRead:
		res.Value = r[0]
	case KindCounterRead:
		res.Data = r[1:]
	}
	glog.V(1).Infof("%s: %s", req, res)
	return
}

func (w *Worker) delay(ctx context.Context) error {
	if w.TxDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(w.TxDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) logError(req Request, err error) {
	glog.Errorf("Error %d sending %s message: %v", w.Link.LastError(), req, err)
}
