package bridge

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/dspi/pkg/comm"
	"github.com/robotalks/dspi/pkg/comm/mqtt"
	"github.com/robotalks/dspi/pkg/comm/stream"
	wsrw "github.com/robotalks/dspi/pkg/comm/websocket"
	fx "github.com/robotalks/dspi/pkg/framework"
	"github.com/robotalks/dspi/pkg/link"
)

// Server accepts remote hosts on the configured transports.
type Server struct {
	Opener link.Opener

	// serializes sessions sharing the same device.
	lock sync.Mutex
}

// NewServer creates a Server.
func NewServer(opener link.Opener) *Server {
	return &Server{Opener: opener}
}

// Serve serves one remote host over rw until ctx is done or rw fails.
func (s *Server) Serve(ctx context.Context, rw comm.PacketReadWriter) error {
	session := NewSession(s.Opener)
	defer func() {
		if err := session.Close(); err != nil {
			glog.Warningf("bridge: %v", err)
		}
	}()
	return comm.Serve(ctx, rw, comm.HandlerFunc(func(pkt *comm.Packet) ([]byte, error) {
		s.lock.Lock()
		defer s.lock.Unlock()
		return session.HandlePacket(pkt)
	}))
}

// ServeListener accepts stream connections from l.
func (s *Server) ServeListener(ctx context.Context, l net.Listener) error {
	return fx.RunWithContextCloser(ctx, l, func() error {
		for {
			conn, err := l.Accept()
			if err != nil {
				return err
			}
			glog.Infof("bridge: accepted %s", conn.RemoteAddr())
			go func(conn net.Conn) {
				rw := stream.New(conn)
				err := fx.RunWithContextCloser(ctx, rw, func() error {
					return s.Serve(ctx, rw)
				})
				glog.Infof("bridge: %s disconnected: %v", conn.RemoteAddr(), err)
			}(conn)
		}
	})
}

// ServeTCP listens on addr for length prefixed stream connections.
func (s *Server) ServeTCP(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	glog.Infof("bridge: TCP listening on %s", l.Addr())
	return s.ServeListener(ctx, l)
}

// WebsocketHandler creates the http.Handler accepting websocket connections.
func (s *Server) WebsocketHandler(ctx context.Context) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		rw := wsrw.New(conn)
		err := fx.RunWithContextCloser(ctx, rw, func() error {
			return s.Serve(ctx, rw)
		})
		glog.Infof("bridge: websocket %s disconnected: %v", conn.Request().RemoteAddr, err)
	})
}

// ServeWebsocket listens on addr and accepts websocket connections on path.
func (s *Server) ServeWebsocket(ctx context.Context, addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, s.WebsocketHandler(ctx))
	server := &http.Server{Addr: addr, Handler: mux}
	glog.Infof("bridge: websocket listening on %s%s", addr, path)
	err := fx.RunWithContextCancel(ctx, func() { server.Close() }, server.ListenAndServe)
	if errors.Is(err, http.ErrServerClosed) {
		err = context.Canceled
	}
	return err
}

// ServeMQTT serves the request topic of id on the broker.
func (s *Server) ServeMQTT(ctx context.Context, brokerURL, id string) error {
	q, err := mqtt.NewQueueFromURL(brokerURL)
	if err != nil {
		return err
	}
	if err := q.Connect(); err != nil {
		return err
	}
	defer q.Close()
	rw := mqtt.NewPacketReadWriter(q).ForServer(id)
	if err := rw.Open(); err != nil {
		return err
	}
	glog.Infof("bridge: MQTT serving %s%s", q.TopicPrefix, rw.SubTopic)
	return fx.RunWithContextCloser(ctx, rw, func() error {
		return s.Serve(ctx, rw)
	})
}
