package host

import (
	"fmt"

	"github.com/robotalks/dspi/pkg/proto"
)

// RequestKind identifies the operation of a Request.
type RequestKind int

// Request kinds.
const (
	KindWrite RequestKind = iota + 1
	KindRead
	KindCounterWrite
	KindCounterRead
)

// Request is a validated command ready to be sent over the link.
type Request struct {
	Kind     RequestKind
	Register byte
	Value    byte
	// Data is the payload of a counter write.
	Data []byte
	// Length is the byte count of a counter read.
	Length int
}

// WriteRequest creates a register write.
func WriteRequest(reg, val byte) Request {
	return Request{Kind: KindWrite, Register: reg, Value: val}
}

// ReadRequest creates a register read.
func ReadRequest(reg byte) Request {
	return Request{Kind: KindRead, Register: reg}
}

// CounterWriteRequest creates a counter-variant write.
func CounterWriteRequest(data []byte) Request {
	return Request{Kind: KindCounterWrite, Data: data}
}

// CounterReadRequest creates a counter-variant read.
func CounterReadRequest(length int) Request {
	return Request{Kind: KindCounterRead, Length: length}
}

// Frame encodes the request.
func (r Request) Frame() (*proto.Frame, error) {
	switch r.Kind {
	case KindWrite:
		return proto.WriteRegister(r.Register, r.Value), nil
	case KindRead:
		return proto.ReadRegister(r.Register), nil
	case KindCounterWrite:
		return proto.WriteCounter(r.Data)
	case KindCounterRead:
		return proto.ReadCounter(r.Length)
	}
	return nil, fmt.Errorf("invalid request kind %d", r.Kind)
}

// String implements fmt.Stringer.
func (r Request) String() string {
	switch r.Kind {
	case KindWrite:
		return fmt.Sprintf("write 0x%02X 0x%02X", r.Register, r.Value)
	case KindRead:
		return fmt.Sprintf("read 0x%02X", r.Register)
	case KindCounterWrite:
		return fmt.Sprintf("selftest.write % X", r.Data)
	case KindCounterRead:
		return fmt.Sprintf("selftest.read %d", r.Length)
	}
	return "invalid"
}

// Result is the outcome of a Request.
type Result struct {
	Request Request
	// Value is the register value returned by a read.
	Value byte
	// Data is the bytes returned by a counter read.
	Data []byte
	Err  error
}

// String formats the result for display.
func (r Result) String() string {
	switch r.Request.Kind {
	case KindRead:
		return fmt.Sprintf("Register 0x%02X: 0x%02X", r.Request.Register, r.Value)
	case KindCounterRead:
		return fmt.Sprintf("Received: % X", r.Data)
	}
	return "OK"
}
