package bridge

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/robotalks/dspi/pkg/comm"
	"github.com/robotalks/dspi/pkg/link"
)

// ConnectRequestSize is the data size of a CodeConnect request:
// port (1 byte) and speed in Hz (big-endian uint32).
const ConnectRequestSize = 5

// Session serves bridge requests of one remote host against a local link.
type Session struct {
	Opener link.Opener

	dev  link.Device
	port spi.PortCloser
	conn spi.Conn
	lock sync.Mutex
}

// NewSession creates a Session.
func NewSession(opener link.Opener) *Session {
	return &Session{Opener: opener}
}

// EncodeConnect encodes the data of a CodeConnect request.
func EncodeConnect(port int, speed physic.Frequency) []byte {
	b := make([]byte, ConnectRequestSize)
	b[0] = byte(port)
	binary.BigEndian.PutUint32(b[1:], uint32(speed/physic.Hertz))
	return b
}

// EncodeInfo encodes the data of a CodeInfo reply.
func EncodeInfo(portCount int, name string) []byte {
	return append([]byte{byte(portCount)}, name...)
}

// DecodeInfo decodes the data of a CodeInfo reply.
func DecodeInfo(data []byte) (portCount int, name string, err error) {
	if len(data) < 1 {
		return 0, "", comm.ErrShortPacket
	}
	return int(data[0]), string(data[1:]), nil
}

// HandlePacket implements comm.Handler.
func (s *Session) HandlePacket(pkt *comm.Packet) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	var data []byte
	var err error
	switch pkt.Code {
	case comm.CodeInfo:
		data, err = s.info()
	case comm.CodeConnect:
		err = s.connect(pkt.Data)
	case comm.CodeTx:
		data, err = s.tx(pkt.Data)
	case comm.CodeClose:
		err = s.closeLocked()
	default:
		return nil, comm.UnsupportedError(pkt.Code)
	}
	if err != nil {
		return nil, remoteError(err)
	}
	return data, nil
}

// Close releases the device.
func (s *Session) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closeLocked()
}

func (s *Session) open() error {
	if s.dev != nil {
		return nil
	}
	dev, err := s.Opener.Open(context.Background())
	if err != nil {
		return link.Wrap(link.OpOpen, err)
	}
	s.dev = dev
	glog.Infof("bridge: device %s opened", s.Opener)
	return nil
}

func (s *Session) info() ([]byte, error) {
	if err := s.open(); err != nil {
		return nil, err
	}
	count, err := s.dev.PortCount()
	if err != nil {
		return nil, link.Wrap(link.OpPorts, err)
	}
	return EncodeInfo(count, s.Opener.String()), nil
}

func (s *Session) connect(data []byte) error {
	if len(data) < ConnectRequestSize {
		return link.Wrap(link.OpEnable, comm.ErrShortPacket)
	}
	if err := s.open(); err != nil {
		return err
	}
	if s.conn != nil {
		if err := multierr.Append(link.Halt(s.conn), s.port.Close()); err != nil {
			glog.Warningf("bridge: release port: %v", err)
		}
		s.conn, s.port = nil, nil
	}
	port, err := s.dev.Port(int(data[0]))
	if err != nil {
		return link.Wrap(link.OpEnable, err)
	}
	speed := physic.Frequency(binary.BigEndian.Uint32(data[1:])) * physic.Hertz
	if err := port.LimitSpeed(speed); err != nil {
		port.Close()
		return link.Wrap(link.OpMode, err)
	}
	conn, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return link.Wrap(link.OpMode, err)
	}
	s.port, s.conn = port, conn
	glog.V(1).Infof("bridge: port %d connected at %s", data[0], speed)
	return nil
}

func (s *Session) tx(w []byte) ([]byte, error) {
	if s.conn == nil {
		return nil, link.Wrap(link.OpTransfer, link.ErrNotInitialized)
	}
	r := make([]byte, len(w))
	if err := s.conn.Tx(w, r); err != nil {
		return nil, link.Wrap(link.OpTransfer, err)
	}
	return r, nil
}

func (s *Session) closeLocked() (err error) {
	if s.conn != nil {
		err = multierr.Append(err, link.Halt(s.conn))
		s.conn = nil
	}
	if s.port != nil {
		err = multierr.Append(err, s.port.Close())
		s.port = nil
	}
	if s.dev != nil {
		err = multierr.Append(err, s.dev.Close())
		s.dev = nil
		glog.Infof("bridge: device %s closed", s.Opener)
	}
	return link.Wrap(link.OpClose, err)
}

func remoteError(err error) *comm.RemoteError {
	var linkErr *link.Error
	if !errors.As(err, &linkErr) {
		return comm.RemoteErrorOf(err)
	}
	msg := fmt.Sprint(linkErr.Err)
	if linkErr.Err == nil {
		msg = linkErr.Op.String()
	}
	return &comm.RemoteError{Op: byte(linkErr.Op), ErrCode: uint16(linkErr.Code), Message: msg}
}
