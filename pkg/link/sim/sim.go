// Package sim provides a link to an in-process simulated board.
package sim

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/robotalks/dspi/pkg/device"
	"github.com/robotalks/dspi/pkg/link"
)

// Scheme is the link URL scheme.
const Scheme = "sim"

// MaxSpeed is the fastest clock the simulated slave accepts.
const MaxSpeed = 25 * physic.MegaHertz

var (
	// ErrMode indicates the master uses a mode the slave isn't configured for.
	ErrMode = errors.New("slave is configured for SPI mode 0, 8 bits")
	// ErrClosed indicates the port or device is already closed.
	ErrClosed = errors.New("closed")
)

// Opener opens the simulated board.
type Opener struct {
	Board *device.Board
}

// New creates an Opener for a board.
func New(board *device.Board) *Opener {
	return &Opener{Board: board}
}

// String implements link.Opener.
func (o *Opener) String() string {
	return fmt.Sprintf("sim(%s)", o.Board.Variant)
}

// Open implements link.Opener.
func (o *Opener) Open(ctx context.Context) (link.Device, error) {
	return &simDevice{board: o.Board}, nil
}

type simDevice struct {
	board  *device.Board
	closed bool
	lock   sync.Mutex
}

func (d *simDevice) PortCount() (int, error) {
	return 1, nil
}

func (d *simDevice) Port(n int) (spi.PortCloser, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if n != 0 {
		return nil, fmt.Errorf("port %d not found", n)
	}
	return &Port{slave: d.board.Slave, speed: MaxSpeed}, nil
}

func (d *simDevice) Close() error {
	d.lock.Lock()
	d.closed = true
	d.lock.Unlock()
	return nil
}

// Port is the simulated SPI port wired to the board's slave.
type Port struct {
	slave  *device.Slave
	speed  physic.Frequency
	closed bool
}

// String implements spi.Port.
func (p *Port) String() string {
	return "sim-spi"
}

// LimitSpeed implements spi.PortCloser.
func (p *Port) LimitSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("invalid speed %s", f)
	}
	if f < p.speed {
		p.speed = f
	}
	return nil
}

// Connect implements spi.Port.
func (p *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if mode != spi.Mode0 || bits != 8 {
		return nil, ErrMode
	}
	if f > p.speed || f == 0 {
		f = p.speed
	}
	glog.V(1).Infof("sim: connected at %s", f)
	return &Conn{port: p}, nil
}

// Close implements io.Closer.
func (p *Port) Close() error {
	p.closed = true
	return nil
}

// Conn is a connection over the simulated port.
type Conn struct {
	port *Port
}

// String implements conn.Conn.
func (c *Conn) String() string {
	return c.port.String()
}

// Halt implements conn.Resource, used by link.Halt.
func (c *Conn) Halt() error {
	return nil
}

// Duplex implements conn.Conn.
func (c *Conn) Duplex() conn.Duplex {
	return conn.Full
}

// Tx implements conn.Conn. Every call is one transaction with slave-select
// asserted.
func (c *Conn) Tx(w, r []byte) error {
	if c.port.closed {
		return ErrClosed
	}
	rx, err := c.port.slave.Exchange(context.Background(), w)
	copy(r, rx)
	return err
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

// FromURL creates a board from URL query and starts it in the background.
// Recognized parameters: variant, buttons, arm-timeout.
func FromURL(u *url.URL) (link.Opener, error) {
	q := u.Query()
	board, err := device.NewBoard(device.Variant(q.Get("variant")))
	if err != nil {
		return nil, err
	}
	if val := q.Get("buttons"); val != "" {
		buttons, err := strconv.ParseUint(val, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid buttons %q: %w", val, err)
		}
		board.Hardware.SetButtons(byte(buttons))
	}
	if val := q.Get("arm-timeout"); val != "" {
		dur, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid arm-timeout %q: %w", val, err)
		}
		board.Slave.ArmTimeout = dur
	}
	go func() {
		if err := board.Run(context.Background()); err != nil {
			glog.Errorf("sim board stopped: %v", err)
		}
	}()
	return New(board), nil
}

func init() {
	link.Register(Scheme, FromURL)
}
