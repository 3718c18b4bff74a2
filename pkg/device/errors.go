package device

import "errors"

var (
	// ErrReadOnly indicates a write to a read-only register.
	ErrReadOnly = errors.New("register is read-only")
	// ErrNotArmed indicates the master clocked bytes while no transfer was
	// armed on the slave within the arm timeout.
	ErrNotArmed = errors.New("slave not ready")
	// ErrTransferSize indicates an armed transfer exceeds the buffers.
	ErrTransferSize = errors.New("invalid transfer size")
)
