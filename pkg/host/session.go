package host

import (
	"context"
	"sync/atomic"
)

// State is the state of a Session.
type State int32

// Session states.
const (
	// AwaitingInput means no command is pending.
	AwaitingInput State = iota
	// CommandReady means a command is submitted and waits for the worker.
	CommandReady
	// CommandInFlight means the worker is running the command.
	CommandInFlight
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting-input"
	case CommandReady:
		return "command-ready"
	case CommandInFlight:
		return "command-in-flight"
	}
	return "unknown"
}

// Session is the single-slot mailbox between the terminal and the worker.
// The worker only takes a command after the previous one completes, so at
// most one command is in flight.
type Session struct {
	reqCh chan *pendingRequest
	state int32
}

type pendingRequest struct {
	req      Request
	resultCh chan Result
}

// NewSession creates a Session.
func NewSession() *Session {
	return &Session{reqCh: make(chan *pendingRequest)}
}

// State gets the current state.
func (s *Session) State() State {
	return State(atomic.LoadInt32(&s.state))
}

func (s *Session) setState(state State) {
	atomic.StoreInt32(&s.state, int32(state))
}

// Do submits a request and waits for the result.
func (s *Session) Do(ctx context.Context, req Request) (Result, error) {
	p := &pendingRequest{req: req, resultCh: make(chan Result, 1)}
	atomic.CompareAndSwapInt32(&s.state, int32(AwaitingInput), int32(CommandReady))
	select {
	case s.reqCh <- p:
	case <-ctx.Done():
		atomic.CompareAndSwapInt32(&s.state, int32(CommandReady), int32(AwaitingInput))
		return Result{Request: req, Err: ctx.Err()}, ctx.Err()
	}
	select {
	case res := <-p.resultCh:
		return res, res.Err
	case <-ctx.Done():
		return Result{Request: req, Err: ctx.Err()}, ctx.Err()
	}
}

func (s *Session) requests() <-chan *pendingRequest {
	return s.reqCh
}
