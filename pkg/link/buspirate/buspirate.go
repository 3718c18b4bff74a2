// Package buspirate reaches the device through a Bus Pirate in binary SPI
// mode over a serial port.
package buspirate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/tarm/serial"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/robotalks/dspi/pkg/link"
)

// Scheme is the link URL scheme.
const Scheme = "buspirate"

// DefaultBaud is the default serial baud rate.
const DefaultBaud = 115200

// Binary mode commands.
const (
	cmdReset     byte = 0x00
	cmdSPI       byte = 0x01
	cmdCSLow     byte = 0x02
	cmdCSHigh    byte = 0x03
	cmdExit      byte = 0x0f
	cmdBulk      byte = 0x10
	cmdPeriph    byte = 0x40
	cmdSpeed     byte = 0x60
	cmdConfig    byte = 0x80
	respOK       byte = 0x01
	maxBulk           = 16
	resetRetries      = 20

	periphPower = 0x08
	periphCS    = 0x01

	cfgOutput3V3 = 0x08
	cfgCKP       = 0x04
	cfgCKE       = 0x02
)

var speeds = []physic.Frequency{
	30 * physic.KiloHertz,
	125 * physic.KiloHertz,
	250 * physic.KiloHertz,
	1 * physic.MegaHertz,
	2 * physic.MegaHertz,
	2600 * physic.KiloHertz,
	4 * physic.MegaHertz,
	8 * physic.MegaHertz,
}

var (
	// ErrNoResponse indicates the Bus Pirate didn't answer.
	ErrNoResponse = errors.New("no response from bus pirate")
	// ErrUnexpected indicates an unexpected response.
	ErrUnexpected = errors.New("unexpected response from bus pirate")
)

// Opener opens a Bus Pirate on a serial port.
type Opener struct {
	Device  string
	Baud    int
	Timeout time.Duration

	// OpenPort opens the serial port, replaced in tests.
	OpenPort func(*serial.Config) (io.ReadWriteCloser, error)
}

// String implements link.Opener.
func (o *Opener) String() string {
	return "buspirate(" + o.Device + ")"
}

// Open implements link.Opener. It resets the Bus Pirate into binary
// bit-bang mode.
func (o *Opener) Open(ctx context.Context) (link.Device, error) {
	cfg := &serial.Config{
		Name:        o.Device,
		Baud:        o.Baud,
		ReadTimeout: o.Timeout,
	}
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 100 * time.Millisecond
	}
	openPort := o.OpenPort
	if openPort == nil {
		openPort = func(cfg *serial.Config) (io.ReadWriteCloser, error) {
			return serial.OpenPort(cfg)
		}
	}
	port, err := openPort(cfg)
	if err != nil {
		return nil, err
	}
	d := &bpDevice{port: port, timeout: cfg.ReadTimeout * 5}
	if err = d.enterBinary(); err != nil {
		return nil, multierr.Combine(err, port.Close())
	}
	return d, nil
}

type bpDevice struct {
	port    io.ReadWriteCloser
	timeout time.Duration
	inSPI   bool
	lock    sync.Mutex
}

func (d *bpDevice) PortCount() (int, error) {
	return 1, nil
}

func (d *bpDevice) Port(n int) (spi.PortCloser, error) {
	if n != 0 {
		return nil, fmt.Errorf("port %d not found", n)
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.inSPI {
		if err := d.expect([]byte{cmdSPI}, []byte("SPI1")); err != nil {
			return nil, err
		}
		if err := d.command(cmdPeriph | periphPower | periphCS); err != nil {
			return nil, err
		}
		d.inSPI = true
	}
	return &Port{dev: d, speed: speeds[len(speeds)-1]}, nil
}

func (d *bpDevice) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	_, err := d.port.Write([]byte{cmdReset, cmdExit})
	return multierr.Combine(err, d.port.Close())
}

func (d *bpDevice) enterBinary() error {
	var err error
	for i := 0; i < resetRetries; i++ {
		if err = d.expect([]byte{cmdReset}, []byte("BBIO1")); err == nil {
			glog.V(1).Info("buspirate: binary mode")
			return nil
		}
	}
	return err
}

func (d *bpDevice) command(cmd byte) error {
	return d.expect([]byte{cmd}, []byte{respOK})
}

func (d *bpDevice) expect(cmd []byte, resp []byte) error {
	if _, err := d.port.Write(cmd); err != nil {
		return err
	}
	buf := make([]byte, len(resp))
	if err := d.readFull(buf); err != nil {
		return err
	}
	if !bytes.Equal(buf, resp) {
		return fmt.Errorf("%w: %q", ErrUnexpected, buf)
	}
	return nil
}

// readFull reads until buf is filled, a serial read timeout returns no
// data, so it's bounded by d.timeout.
func (d *bpDevice) readFull(buf []byte) error {
	deadline := time.Now().Add(d.timeout)
	for n := 0; n < len(buf); {
		n1, err := d.port.Read(buf[n:])
		n += n1
		if err != nil && err != io.EOF {
			return err
		}
		if n1 == 0 && time.Now().After(deadline) {
			return ErrNoResponse
		}
	}
	return nil
}

// Port is the Bus Pirate SPI port.
type Port struct {
	dev   *bpDevice
	speed physic.Frequency
}

// String implements spi.Port.
func (p *Port) String() string {
	return "buspirate-spi"
}

// LimitSpeed implements spi.PortCloser.
func (p *Port) LimitSpeed(f physic.Frequency) error {
	if f < speeds[0] {
		return fmt.Errorf("speed %s below %s", f, speeds[0])
	}
	p.speed = f
	return nil
}

// Connect implements spi.Port.
func (p *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, fmt.Errorf("%d bits per word not supported", bits)
	}
	if f == 0 || f > p.speed {
		f = p.speed
	}
	cfg := cfgOutput3V3
	switch mode {
	case spi.Mode0:
		cfg |= cfgCKE
	case spi.Mode1:
	case spi.Mode2:
		cfg |= cfgCKP | cfgCKE
	case spi.Mode3:
		cfg |= cfgCKP
	default:
		return nil, fmt.Errorf("unsupported mode %s", mode)
	}
	p.dev.lock.Lock()
	defer p.dev.lock.Unlock()
	if err := p.dev.command(cmdSpeed | SpeedIndex(f)); err != nil {
		return nil, err
	}
	if err := p.dev.command(cmdConfig | byte(cfg)); err != nil {
		return nil, err
	}
	return &Conn{dev: p.dev}, nil
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return nil
}

// SpeedIndex selects the fastest supported speed not above f.
func SpeedIndex(f physic.Frequency) byte {
	var index byte
	for n, speed := range speeds {
		if speed <= f {
			index = byte(n)
		}
	}
	return index
}

// Conn is an SPI connection through the Bus Pirate.
type Conn struct {
	dev *bpDevice
}

// String implements conn.Conn.
func (c *Conn) String() string {
	return "buspirate-spi"
}

// Halt implements conn.Resource, used by link.Halt.
func (c *Conn) Halt() error {
	return nil
}

// Duplex implements conn.Conn.
func (c *Conn) Duplex() conn.Duplex {
	return conn.Full
}

// Tx implements conn.Conn.
func (c *Conn) Tx(w, r []byte) (err error) {
	c.dev.lock.Lock()
	defer c.dev.lock.Unlock()
	if err = c.dev.command(cmdCSLow); err != nil {
		return
	}
	defer func() {
		err = multierr.Combine(err, c.dev.command(cmdCSHigh))
	}()
	rx := make([]byte, maxBulk+1)
	for off := 0; off < len(w); off += maxBulk {
		chunk := w[off:]
		if len(chunk) > maxBulk {
			chunk = chunk[:maxBulk]
		}
		cmd := append([]byte{cmdBulk | byte(len(chunk)-1)}, chunk...)
		if _, err = c.dev.port.Write(cmd); err != nil {
			return
		}
		if err = c.dev.readFull(rx[:len(chunk)+1]); err != nil {
			return
		}
		if rx[0] != respOK {
			return ErrUnexpected
		}
		if off < len(r) {
			copy(r[off:], rx[1:len(chunk)+1])
		}
	}
	return
}

// TxPackets implements spi.Conn.
func (c *Conn) TxPackets(pkts []spi.Packet) error {
	for _, pkt := range pkts {
		if err := c.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

// FromURL creates an Opener from buspirate:///dev/ttyUSB0?baud=115200.
func FromURL(u *url.URL) (link.Opener, error) {
	o := &Opener{Device: u.Host + u.Path}
	if o.Device == "" {
		return nil, fmt.Errorf("serial device required")
	}
	if val := u.Query().Get("baud"); val != "" {
		baud, err := strconv.Atoi(val)
		if err != nil || baud <= 0 {
			return nil, fmt.Errorf("invalid baud %q", val)
		}
		o.Baud = baud
	}
	return o, nil
}

func init() {
	link.Register(Scheme, FromURL)
}
