package proto

import (
	"errors"
	"fmt"
)

var (
	// ErrShortFrame indicates fewer bytes than a header were received.
	ErrShortFrame = errors.New("short frame")
	// ErrLength indicates a counter length out of range.
	ErrLength = errors.New("invalid length")
)

// OpcodeError reports an opcode which is neither write nor read.
type OpcodeError struct {
	Op byte
}

// Error implements error.
func (e *OpcodeError) Error() string {
	return fmt.Sprintf("invalid command 0x%02X", e.Op)
}

// RegisterError reports a register index outside the register file.
type RegisterError struct {
	Index byte
}

// Error implements error.
func (e *RegisterError) Error() string {
	return fmt.Sprintf("register %d out of range", e.Index)
}
