package proto

import "fmt"

// Opcode selects write or read behavior of a frame.
type Opcode byte

// Opcodes.
const (
	OpWrite Opcode = 0xAA
	OpRead  Opcode = 0xBB
)

// IsValid checks if it's a known opcode.
func (o Opcode) IsValid() bool {
	return o == OpWrite || o == OpRead
}

// String implements fmt.Stringer.
func (o Opcode) String() string {
	switch o {
	case OpWrite:
		return "write"
	case OpRead:
		return "read"
	}
	return fmt.Sprintf("op(0x%02X)", byte(o))
}

// Register file geometry.
const (
	RegisterCount = 64

	// RegButtons mirrors the button inputs and is read-only.
	RegButtons byte = 0
	// RegLEDs mirrors the LED outputs, writes are echoed to hardware.
	RegLEDs byte = 1
)

const (
	// HeaderSize is the size of the header leading every frame.
	HeaderSize = 2
	// BufferSize is the size of transfer buffers on either side.
	BufferSize = 128
	// MaxCounterLength is the largest length a counter frame can carry,
	// leaving room for the leading dummy byte of a read.
	MaxCounterLength = BufferSize - 1
	// Dummy is clocked out by the master when it only wants to receive.
	Dummy byte = 0x00
)

// RegisterValid checks if index addresses the register file.
func RegisterValid(index byte) bool {
	return int(index) < RegisterCount
}

// Header is the leading part of a frame.
type Header struct {
	Op  Opcode
	Arg byte
}

// ParseHeader decodes a header from received bytes.
func ParseHeader(b []byte) (h Header, err error) {
	if len(b) < HeaderSize {
		return h, ErrShortFrame
	}
	h.Op, h.Arg = Opcode(b[0]), b[1]
	if !h.Op.IsValid() {
		return h, &OpcodeError{Op: b[0]}
	}
	return h, nil
}

// Bytes returns encoded header.
func (h Header) Bytes() []byte {
	return []byte{byte(h.Op), h.Arg}
}

// Frame is a complete transaction as seen by the master: the header
// followed by the data phase.
type Frame struct {
	Header
	Data []byte
}

// WriteRegister builds the frame storing val into register reg.
func WriteRegister(reg, val byte) *Frame {
	return &Frame{Header: Header{Op: OpWrite, Arg: reg}, Data: []byte{val}}
}

// ReadRegister builds the frame reading register reg.
func ReadRegister(reg byte) *Frame {
	return &Frame{Header: Header{Op: OpRead, Arg: reg}, Data: []byte{Dummy}}
}

// WriteCounter builds the counter-variant frame sending data.
func WriteCounter(data []byte) (*Frame, error) {
	if len(data) == 0 || len(data) > MaxCounterLength {
		return nil, ErrLength
	}
	return &Frame{Header: Header{Op: OpWrite, Arg: byte(len(data))}, Data: data}, nil
}

// ReadCounter builds the counter-variant frame reading length bytes.
func ReadCounter(length int) (*Frame, error) {
	if length <= 0 || length > MaxCounterLength {
		return nil, ErrLength
	}
	return &Frame{Header: Header{Op: OpRead, Arg: byte(length)}, Data: make([]byte, length+1)}, nil
}

// Counter fills b with the ascending byte counter sent by the device
// for a counter read.
func Counter(b []byte) []byte {
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
