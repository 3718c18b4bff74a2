package device

import (
	"sync"

	"github.com/robotalks/dspi/pkg/proto"
)

// RegisterFile is the addressable array of registers exposed over the
// protocol. It's shared between the main loop and interrupt context.
type RegisterFile struct {
	regs [proto.RegisterCount]byte
	lock sync.Mutex
}

// Load reads a register.
func (f *RegisterFile) Load(index byte) (byte, error) {
	if !proto.RegisterValid(index) {
		return 0, &proto.RegisterError{Index: index}
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.regs[index], nil
}

// Store writes a register. Register 0 mirrors the buttons and is never
// written from the bus.
func (f *RegisterFile) Store(index, val byte) error {
	if !proto.RegisterValid(index) {
		return &proto.RegisterError{Index: index}
	}
	if index == proto.RegButtons {
		return ErrReadOnly
	}
	f.lock.Lock()
	f.regs[index] = val
	f.lock.Unlock()
	return nil
}

// Snapshot mirrors live hardware state into the hardware registers.
func (f *RegisterFile) Snapshot(buttons, leds byte) {
	f.lock.Lock()
	f.regs[proto.RegButtons], f.regs[proto.RegLEDs] = buttons, leds
	f.lock.Unlock()
}

// Dump copies all registers.
func (f *RegisterFile) Dump() (regs [proto.RegisterCount]byte) {
	f.lock.Lock()
	regs = f.regs
	f.lock.Unlock()
	return
}
