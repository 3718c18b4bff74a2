package device

import "sync/atomic"

// Hardware is the board I/O mirrored by the register file.
type Hardware interface {
	// Buttons reads the button inputs.
	Buttons() byte
	// LEDs reads back the LED outputs.
	LEDs() byte
	// SetLEDs drives the LED outputs.
	SetLEDs(byte)
}

// SimHardware is an in-memory Hardware. Buttons are pressed by tests or
// the simulator shell.
type SimHardware struct {
	buttons uint32
	leds    uint32
}

// Buttons implements Hardware.
func (h *SimHardware) Buttons() byte {
	return byte(atomic.LoadUint32(&h.buttons))
}

// SetButtons sets the button inputs.
func (h *SimHardware) SetButtons(val byte) {
	atomic.StoreUint32(&h.buttons, uint32(val))
}

// LEDs implements Hardware.
func (h *SimHardware) LEDs() byte {
	return byte(atomic.LoadUint32(&h.leds))
}

// SetLEDs implements Hardware.
func (h *SimHardware) SetLEDs(val byte) {
	atomic.StoreUint32(&h.leds, uint32(val))
}
