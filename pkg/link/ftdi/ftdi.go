// Package ftdi reaches the device through an FTDI FT232H/FT2232H MPSSE
// bridge, which is how USB104A7-class boards expose SPI to the host.
package ftdi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"

	"github.com/robotalks/dspi/pkg/link"
)

// Scheme is the link URL scheme.
const Scheme = "ftdi"

// FTDI vendor ID.
const vendorID = 0x0403

// ErrNotFound indicates no matching FTDI device is attached.
var ErrNotFound = errors.New("FTDI MPSSE device not found")

// Opener opens an FTDI device.
type Opener struct {
	// ProductID filters devices, 0 matches any MPSSE capable device.
	ProductID uint16
	// Index selects among matching devices.
	Index int
}

// String implements link.Opener.
func (o *Opener) String() string {
	return fmt.Sprintf("ftdi(%04x:%04x #%d)", vendorID, o.ProductID, o.Index)
}

// Open implements link.Opener.
func (o *Opener) Open(ctx context.Context) (link.Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	var info ftdi.Info
	index := 0
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vendorID || (o.ProductID != 0 && info.DevID != o.ProductID) {
			continue
		}
		ft, ok := dev.(*ftdi.FT232H)
		if !ok {
			continue
		}
		if index == o.Index {
			glog.V(1).Infof("ftdi: using %s", ft)
			return &ftDevice{ft: ft}, nil
		}
		index++
	}
	return nil, ErrNotFound
}

type ftDevice struct {
	ft *ftdi.FT232H
}

func (d *ftDevice) PortCount() (int, error) {
	return 1, nil
}

func (d *ftDevice) Port(n int) (spi.PortCloser, error) {
	if n != 0 {
		return nil, fmt.Errorf("port %d not found", n)
	}
	return d.ft.SPI()
}

func (d *ftDevice) Close() error {
	return d.ft.Halt()
}

// FromURL creates an Opener from ftdi://[pid]?index=N.
func FromURL(u *url.URL) (link.Opener, error) {
	o := &Opener{}
	if u.Host != "" {
		pid, err := strconv.ParseUint(u.Host, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid product ID %q: %w", u.Host, err)
		}
		o.ProductID = uint16(pid)
	}
	if val := u.Query().Get("index"); val != "" {
		index, err := strconv.Atoi(val)
		if err != nil || index < 0 {
			return nil, fmt.Errorf("invalid index %q", val)
		}
		o.Index = index
	}
	return o, nil
}

func init() {
	link.Register(Scheme, FromURL)
}
