package host

import (
	"context"
	"sync"

	"github.com/golang/glog"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/robotalks/dspi/pkg/link"
)

// Link brings up and owns the connection to the device's SPI port.
type Link struct {
	Opener link.Opener
	Port   int
	Speed  physic.Frequency

	dev      link.Device
	port     spi.PortCloser
	conn     spi.Conn
	lastCode int
	lock     sync.Mutex
}

// NewLink creates a Link.
func NewLink(opener link.Opener, port int, speed physic.Frequency) *Link {
	return &Link{Opener: opener, Port: port, Speed: speed}
}

// Init runs the bring-up sequence: open device, enumerate ports, enable
// the port, set speed and SPI mode 0.
func (l *Link) Init(ctx context.Context) (err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.conn != nil {
		return nil
	}
	defer func() {
		if err != nil {
			l.lastCode = link.CodeOf(link.OpOpen, err)
			if closeErr := l.closeLocked(); closeErr != nil {
				glog.Warningf("close link: %v", closeErr)
			}
		}
	}()

	if l.dev, err = l.Opener.Open(ctx); err != nil {
		return link.Wrap(link.OpOpen, err)
	}
	count, err := l.dev.PortCount()
	if err != nil {
		return link.Wrap(link.OpPorts, err)
	}
	if count == 0 || l.Port >= count {
		return link.Wrap(link.OpPorts, link.ErrNoPorts)
	}
	if l.port, err = l.dev.Port(l.Port); err != nil {
		return link.Wrap(link.OpEnable, err)
	}
	if err = l.port.LimitSpeed(l.Speed); err != nil {
		return link.Wrap(link.OpMode, err)
	}
	if l.conn, err = l.port.Connect(l.Speed, spi.Mode0, 8); err != nil {
		return link.Wrap(link.OpMode, err)
	}
	glog.Infof("device %s opened", l.Opener)
	return nil
}

// Ready indicates the link is initialized.
func (l *Link) Ready() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.conn != nil
}

// LastError returns the code of the last failure, 0 if none happened.
func (l *Link) LastError() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.lastCode
}

// Tx runs one transaction. On failure the link is closed and must be
// initialized again.
func (l *Link) Tx(w, r []byte) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.conn == nil {
		return link.Wrap(link.OpTransfer, link.ErrNotInitialized)
	}
	if err := l.conn.Tx(w, r); err != nil {
		err = link.Wrap(link.OpTransfer, err)
		l.lastCode = link.CodeOf(link.OpTransfer, err)
		if closeErr := l.closeLocked(); closeErr != nil {
			glog.Warningf("close link: %v", closeErr)
		}
		return err
	}
	return nil
}

// Close releases the device.
func (l *Link) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.closeLocked()
}

func (l *Link) closeLocked() (err error) {
	if l.conn != nil {
		err = multierr.Append(err, link.Halt(l.conn))
		l.conn = nil
	}
	if l.port != nil {
		err = multierr.Append(err, l.port.Close())
		l.port = nil
	}
	if l.dev != nil {
		err = multierr.Append(err, l.dev.Close())
		l.dev = nil
	}
	return link.Wrap(link.OpClose, err)
}
