// Package spidev reaches the device through a Linux spidev bus registered
// with periph.io.
package spidev

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/robotalks/dspi/pkg/link"
)

// Scheme is the link URL scheme.
const Scheme = "spidev"

// Opener opens spidev ports. With an empty Name, ports are enumerated from
// the periph.io registry.
type Opener struct {
	Name string
}

// String implements link.Opener.
func (o *Opener) String() string {
	if o.Name == "" {
		return "spidev"
	}
	return "spidev(" + o.Name + ")"
}

// Open implements link.Opener.
func (o *Opener) Open(ctx context.Context) (link.Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	d := &spiDevice{}
	if o.Name != "" {
		d.names = []string{o.Name}
		return d, nil
	}
	for _, ref := range spireg.All() {
		d.names = append(d.names, ref.Name)
	}
	return d, nil
}

type spiDevice struct {
	names []string
}

func (d *spiDevice) PortCount() (int, error) {
	return len(d.names), nil
}

func (d *spiDevice) Port(n int) (spi.PortCloser, error) {
	if n < 0 || n >= len(d.names) {
		return nil, fmt.Errorf("port %d not found", n)
	}
	return spireg.Open(d.names[n])
}

func (d *spiDevice) Close() error {
	return nil
}

// FromURL creates an Opener from spidev://SPI0.0 or spidev:///dev/spidev0.0.
func FromURL(u *url.URL) (link.Opener, error) {
	name := u.Host + u.Path
	if strings.HasPrefix(name, "/dev/spidev") {
		name = "SPI" + strings.TrimPrefix(name, "/dev/spidev")
	}
	return &Opener{Name: name}, nil
}

func init() {
	link.Register(Scheme, FromURL)
}
