package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrShortPacket indicates the packet is truncated.
	ErrShortPacket = errors.New("packet too short")
	// ErrInvalidSeq indicates the packet carries sequence number 0.
	ErrInvalidSeq = errors.New("invalid sequence number")
	// ErrNoReply indicates no reply received from peer before the command
	// expired.
	ErrNoReply = errors.New("no reply")
	// ErrClosed indicates the connection is closed.
	ErrClosed = errors.New("connection closed")
)

// Error implements error.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.ErrCode, e.Message)
}

// Code returns the numeric error code.
func (e *RemoteError) Code() int {
	return int(e.ErrCode)
}

// UnsupportedError is replied for unknown request codes.
func UnsupportedError(code byte) *RemoteError {
	return &RemoteError{ErrCode: 1, Message: fmt.Sprintf("unsupported request 0x%02x", code)}
}

// RemoteErrorOf converts err to a RemoteError for replying.
func RemoteErrorOf(err error) *RemoteError {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return &RemoteError{ErrCode: uint16(coder.Code()), Message: err.Error()}
	}
	return &RemoteError{ErrCode: 1, Message: err.Error()}
}
