// Package remote provides links to SPI ports exposed by a bridge.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/robotalks/dspi/pkg/bridge"
	"github.com/robotalks/dspi/pkg/comm"
	"github.com/robotalks/dspi/pkg/comm/mqtt"
	"github.com/robotalks/dspi/pkg/comm/stream"
	"github.com/robotalks/dspi/pkg/comm/websocket"
	"github.com/robotalks/dspi/pkg/link"
)

// DefaultTimeout bounds a single request to the bridge.
const DefaultTimeout = 2 * time.Second

// Transport is a dialed bridge connection.
type Transport interface {
	comm.PacketReadWriter
	Close() error
}

// DialFunc connects the bridge.
type DialFunc func(ctx context.Context) (Transport, error)

// Opener opens a remote SPI device.
type Opener struct {
	Name    string
	Dial    DialFunc
	Timeout time.Duration
}

// New creates an Opener.
func New(name string, dial DialFunc) *Opener {
	return &Opener{Name: name, Dial: dial, Timeout: DefaultTimeout}
}

// String implements link.Opener.
func (o *Opener) String() string {
	return o.Name
}

// Open implements link.Opener.
func (o *Opener) Open(ctx context.Context) (link.Device, error) {
	t, err := o.Dial(ctx)
	if err != nil {
		return nil, err
	}
	d := &Device{transport: t, conn: comm.NewConn(t), timeout: o.Timeout}
	d.conn.Expiration = o.Timeout
	runCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go func() {
		if err := d.conn.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			glog.Warningf("remote %s: %v", o.Name, err)
		}
	}()
	data, err := d.do(comm.CodeInfo, nil)
	if err == nil {
		d.ports, d.name, err = bridge.DecodeInfo(data)
	}
	if err != nil {
		d.shutdown()
		return nil, err
	}
	glog.V(1).Infof("remote %s: %s with %d ports", o.Name, d.name, d.ports)
	return d, nil
}

// Device is the remote device.
type Device struct {
	transport Transport
	conn      *comm.Conn
	cancel    func()
	timeout   time.Duration
	ports     int
	name      string
	closeOnce sync.Once
}

// PortCount implements link.Device.
func (d *Device) PortCount() (int, error) {
	return d.ports, nil
}

// Port implements link.Device.
func (d *Device) Port(n int) (spi.PortCloser, error) {
	if n < 0 || n >= d.ports {
		return nil, fmt.Errorf("port %d not found", n)
	}
	return &Port{dev: d, index: n}, nil
}

// Close implements link.Device.
func (d *Device) Close() (err error) {
	d.closeOnce.Do(func() {
		_, err = d.do(comm.CodeClose, nil)
		d.shutdown()
	})
	return
}

func (d *Device) shutdown() {
	d.cancel()
	d.transport.Close()
}

func (d *Device) do(code byte, data []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	reply, err := d.conn.Do(ctx, code, data)
	var remoteErr *comm.RemoteError
	if errors.As(err, &remoteErr) && remoteErr.Op != 0 {
		return nil, &link.Error{Op: link.Op(remoteErr.Op), Code: remoteErr.Code(), Err: remoteErr}
	}
	return reply, err
}

// Port is a remote SPI port.
type Port struct {
	dev   *Device
	index int
	speed physic.Frequency
}

// String implements spi.Port.
func (p *Port) String() string {
	return fmt.Sprintf("%s/%d", p.dev.name, p.index)
}

// LimitSpeed implements spi.PortCloser.
func (p *Port) LimitSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("invalid speed %s", f)
	}
	p.speed = f
	return nil
}

// Connect implements spi.Port.
func (p *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if mode != spi.Mode0 || bits != 8 {
		return nil, fmt.Errorf("unsupported mode %v with %d bits", mode, bits)
	}
	if p.speed != 0 && (f == 0 || f > p.speed) {
		f = p.speed
	}
	if _, err := p.dev.do(comm.CodeConnect, bridge.EncodeConnect(p.index, f)); err != nil {
		return nil, err
	}
	return &Conn{port: p}, nil
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return nil
}

// Conn is a connection to the remote port.
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

// Tx implements conn.Conn.
func (c *Conn) Tx(w, r []byte) error {
	reply, err := c.port.dev.do(comm.CodeTx, w)
	if err != nil {
		return err
	}
	if len(reply) != len(w) {
		return fmt.Errorf("remote replied %d bytes for %d", len(reply), len(w))
	}
	copy(r, reply)
	return nil
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

// FromURL creates an Opener for mqtt://, ws://, wss:// and tcp:// URLs.
func FromURL(u *url.URL) (link.Opener, error) {
	raw := u.String()
	var dial DialFunc
	switch u.Scheme {
	case "mqtt":
		dial = func(context.Context) (Transport, error) { return mqtt.Dial(raw) }
	case "ws", "wss":
		dial = func(context.Context) (Transport, error) { return websocket.Dial(raw) }
	case "tcp":
		if u.Host == "" {
			return nil, fmt.Errorf("host required in %q", raw)
		}
		dial = func(context.Context) (Transport, error) { return stream.Dial(u.Host) }
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	o := New(raw, dial)
	if val := u.Query().Get("timeout"); val != "" {
		dur, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", val, err)
		}
		o.Timeout = dur
	}
	return o, nil
}

func init() {
	for _, scheme := range []string{"mqtt", "ws", "wss", "tcp"} {
		link.Register(scheme, FromURL)
	}
}
