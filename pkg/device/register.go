package device

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/dspi/pkg/proto"
)

// State is the state of RegisterInterpreter.
type State int32

// States of RegisterInterpreter.
const (
	StateIdle State = iota
	StateWritePayload
	StateReadServicing
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWritePayload:
		return "write-payload"
	case StateReadServicing:
		return "read-servicing"
	}
	return "unknown"
}

// RegisterInterpreter is the interrupt-driven firmware serving the
// register file.
type RegisterInterpreter struct {
	Slave    *Slave
	Regs     *RegisterFile
	Hardware Hardware

	state int32
	reg   byte
	done  chan struct{}
}

// NewRegisterInterpreter creates the interpreter and connects it to the
// slave's interrupt line.
func NewRegisterInterpreter(slave *Slave, regs *RegisterFile, hw Hardware) *RegisterInterpreter {
	r := &RegisterInterpreter{
		Slave:    slave,
		Regs:     regs,
		Hardware: hw,
		done:     make(chan struct{}, 1),
	}
	slave.SetInterruptHandler(r)
	return r
}

// State gets the current state.
func (r *RegisterInterpreter) State() State {
	return State(atomic.LoadInt32(&r.state))
}

func (r *RegisterInterpreter) setState(s State) {
	atomic.StoreInt32(&r.state, int32(s))
}

// HandleInterrupt implements InterruptHandler.
func (r *RegisterInterpreter) HandleInterrupt(ev Event) {
	switch ev {
	case EventSlaveSelect:
		r.Regs.Snapshot(r.Hardware.Buttons(), r.Hardware.LEDs())
	case EventTransferDone:
		select {
		case r.done <- struct{}{}:
		default:
		}
	}
}

// Run implements Runnable.
func (r *RegisterInterpreter) Run(ctx context.Context) error {
	r.setState(StateIdle)
	if err := r.armHeader(); err != nil {
		return err
	}
	glog.Info("register interpreter initialized")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.done:
		}
		if err := r.step(); err != nil {
			return err
		}
	}
}

func (r *RegisterInterpreter) armHeader() error {
	r.setState(StateIdle)
	return r.Slave.Arm(nil, proto.HeaderSize)
}

func (r *RegisterInterpreter) step() error {
	switch r.State() {
	case StateIdle:
		h, err := proto.ParseHeader(r.Slave.Received())
		if err != nil {
			glog.Warningf("%v", err)
			return r.armHeader()
		}
		r.reg = h.Arg
		switch h.Op {
		case proto.OpWrite:
			r.setState(StateWritePayload)
			return r.Slave.Arm(nil, 1)
		case proto.OpRead:
			val, err := r.Regs.Load(r.reg)
			if err != nil {
				glog.Warningf("read: %v", err)
			}
			r.setState(StateReadServicing)
			return r.Slave.Arm([]byte{val}, 1)
		}
	case StateWritePayload:
		var val byte
		if rx := r.Slave.Received(); len(rx) > 0 {
			val = rx[0]
		}
		if err := r.Regs.Store(r.reg, val); err != nil {
			glog.Warningf("write register %d: %v", r.reg, err)
		} else if r.reg == proto.RegLEDs {
			r.Hardware.SetLEDs(val)
		}
		glog.V(2).Infof("register %d <- 0x%02X", r.reg, val)
	case StateReadServicing:
		glog.V(2).Infof("register %d read", r.reg)
	}
	return r.armHeader()
}
