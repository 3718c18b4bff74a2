package device

import (
	"context"
	"sync"
	"time"

	"github.com/robotalks/dspi/pkg/proto"
)

// Event is an interrupt raised by the SPI slave peripheral.
type Event int

// Interrupt events.
const (
	// EventSlaveSelect is raised when the master asserts slave-select.
	EventSlaveSelect Event = iota
	// EventTransferDone is raised when an armed transfer completes.
	EventTransferDone
)

// String implements fmt.Stringer.
func (e Event) String() string {
	switch e {
	case EventSlaveSelect:
		return "slave-select"
	case EventTransferDone:
		return "transfer-done"
	}
	return "unknown"
}

// InterruptHandler services interrupts. It runs in interrupt context (on the
// master's goroutine) and must not block.
type InterruptHandler interface {
	HandleInterrupt(Event)
}

// InterruptFunc is func type of InterruptHandler.
type InterruptFunc func(Event)

// HandleInterrupt implements InterruptHandler.
func (f InterruptFunc) HandleInterrupt(ev Event) {
	f(ev)
}

// DefaultArmTimeout is how long the master waits for an armed transfer.
const DefaultArmTimeout = 100 * time.Millisecond

// Slave models an SPI slave peripheral. Firmware arms a transfer with
// pre-loaded transmit bytes, the master then clocks bytes in full-duplex.
type Slave struct {
	ArmTimeout time.Duration

	handler InterruptHandler
	tx      [proto.BufferSize]byte
	rx      [proto.BufferSize]byte
	count   int
	pos     int
	armed   bool
	done    bool
	lock    sync.Mutex
	armedCh chan struct{}
}

// NewSlave creates a Slave with interrupts disabled.
func NewSlave() *Slave {
	return &Slave{
		ArmTimeout: DefaultArmTimeout,
		armedCh:    make(chan struct{}, 1),
	}
}

// SetInterruptHandler connects the interrupt line. nil disables interrupts
// and the firmware must poll Status.
func (s *Slave) SetInterruptHandler(h InterruptHandler) {
	s.lock.Lock()
	s.handler = h
	s.lock.Unlock()
}

// Arm prepares a transfer of n bytes, transmitting tx (zero padded).
func (s *Slave) Arm(tx []byte, n int) error {
	if n <= 0 || n > proto.BufferSize || len(tx) > n {
		return ErrTransferSize
	}
	s.lock.Lock()
	copy(s.tx[:], tx)
	for i := len(tx); i < n; i++ {
		s.tx[i] = 0
	}
	s.count, s.pos = n, 0
	s.armed, s.done = true, false
	s.lock.Unlock()
	select {
	case s.armedCh <- struct{}{}:
	default:
	}
	return nil
}

// Status reports whether the last armed transfer completed.
func (s *Slave) Status() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.done
}

// Received returns the bytes received by the last completed transfer.
func (s *Slave) Received() []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.done {
		return nil
	}
	b := make([]byte, s.count)
	copy(b, s.rx[:s.count])
	return b
}

// Exchange is the master side of one transaction: slave-select is asserted
// for its duration and len(w) bytes are shifted in both directions.
func (s *Slave) Exchange(ctx context.Context, w []byte) ([]byte, error) {
	r := make([]byte, len(w))
	s.interrupt(EventSlaveSelect)
	for i, b := range w {
		if err := s.waitArmed(ctx); err != nil {
			return r[:i], err
		}
		s.lock.Lock()
		r[i], s.rx[s.pos] = s.tx[s.pos], b
		s.pos++
		complete := s.pos >= s.count
		if complete {
			s.armed, s.done = false, true
		}
		s.lock.Unlock()
		if complete {
			s.interrupt(EventTransferDone)
		}
	}
	return r, nil
}

func (s *Slave) interrupt(ev Event) {
	s.lock.Lock()
	h := s.handler
	s.lock.Unlock()
	if h != nil {
		h.HandleInterrupt(ev)
	}
}

func (s *Slave) waitArmed(ctx context.Context) error {
	var timeout <-chan time.Time
	for {
		s.lock.Lock()
		armed := s.armed
		s.lock.Unlock()
		if armed {
			return nil
		}
		if timeout == nil {
			dur := s.ArmTimeout
			if dur == 0 {
				dur = DefaultArmTimeout
			}
			timer := time.NewTimer(dur)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case <-s.armedCh:
		case <-timeout:
			return ErrNotArmed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
