package link

import (
	"context"
	"errors"
	"fmt"
	"syscall"
)

// Op identifies the step of the link which failed.
type Op byte

// Link operations.
const (
	OpOpen Op = iota + 1
	OpPorts
	OpEnable
	OpMode
	OpTransfer
	OpClose
)

var opNames = map[Op]string{
	OpOpen:     "opening device",
	OpPorts:    "getting port count",
	OpEnable:   "enabling bus",
	OpMode:     "setting SPI mode",
	OpTransfer: "transferring",
	OpClose:    "closing device",
}

// String implements fmt.Stringer.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op %d", byte(o))
}

// Error codes used when the adapter doesn't supply one.
const (
	CodeOpenFailed     = 0x100
	CodeNoPorts        = 0x101
	CodeEnableFailed   = 0x102
	CodeModeFailed     = 0x103
	CodeTransferFailed = 0x104
	CodeCloseFailed    = 0x105
	CodeTimeout        = 0x106
)

var defaultCodes = map[Op]int{
	OpOpen:     CodeOpenFailed,
	OpPorts:    CodeNoPorts,
	OpEnable:   CodeEnableFailed,
	OpMode:     CodeModeFailed,
	OpTransfer: CodeTransferFailed,
	OpClose:    CodeCloseFailed,
}

var (
	// ErrNoPorts indicates the device has no SPI ports.
	ErrNoPorts = errors.New("no SPI ports found")
	// ErrNotInitialized indicates the link is down.
	ErrNotInitialized = errors.New("link not initialized")
)

// Coder is implemented by adapter errors carrying a numeric code.
type Coder interface {
	Code() int
}

// Error reports a failed link operation with a numeric code.
type Error struct {
	Op   Op
	Code int
	Err  error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("error %d %s", e.Code, e.Op)
	}
	return fmt.Sprintf("error %d %s: %v", e.Code, e.Op, e.Err)
}

// Unwrap returns the adapter error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap creates an Error for op, or returns nil if err is nil.
// An existing Error is returned as is.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	var linkErr *Error
	if errors.As(err, &linkErr) {
		return err
	}
	return &Error{Op: op, Code: CodeOf(op, err), Err: err}
}

// CodeOf extracts the numeric code of err.
func CodeOf(op Op, err error) int {
	var linkErr *Error
	if errors.As(err, &linkErr) {
		return linkErr.Code
	}
	var coder Coder
	if errors.As(err, &coder) {
		return coder.Code()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	if code, ok := defaultCodes[op]; ok {
		return code
	}
	return 1
}
