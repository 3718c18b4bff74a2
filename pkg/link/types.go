package link

import (
	"context"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/spi"
)

// Opener opens the adapter device.
type Opener interface {
	Open(context.Context) (Device, error)
	String() string
}

// Device is an opened adapter.
type Device interface {
	// PortCount enumerates SPI ports available on the device.
	PortCount() (int, error)
	// Port enables the SPI port with index n.
	Port(n int) (spi.PortCloser, error)
	// Close releases the device.
	Close() error
}

// Halt stops pending operations on c if it is also a conn.Resource.
func Halt(c spi.Conn) error {
	if r, ok := c.(conn.Resource); ok {
		return r.Halt()
	}
	return nil
}
