package comm

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dspi/pkg/comm/stream"
)

type chanReadWriter struct {
	readCh    <-chan []byte
	writeCh   chan<- []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *chanReadWriter) ReadPacket() ([]byte, error) {
	select {
	case b := <-c.readCh:
		return b, nil
	case <-c.done:
		return nil, io.EOF
	}
}

func (c *chanReadWriter) WritePacket(b []byte) error {
	select {
	case c.writeCh <- b:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *chanReadWriter) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func chanPipe() (*chanReadWriter, *chanReadWriter) {
	ch1, ch2 := make(chan []byte, 4), make(chan []byte, 4)
	return &chanReadWriter{readCh: ch1, writeCh: ch2, done: make(chan struct{})},
		&chanReadWriter{readCh: ch2, writeCh: ch1, done: make(chan struct{})}
}

func echoHandler(pkt *Packet) ([]byte, error) {
	switch pkt.Code {
	case CodeTx:
		return pkt.Data, nil
	case CodeClose:
		return nil, &RemoteError{Op: 6, ErrCode: 0x105, Message: "close failed"}
	}
	return nil, UnsupportedError(pkt.Code)
}

func runConn(t *testing.T, client, server interface {
	PacketReadWriter
	io.Closer
}) (*Conn, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	conn := NewConn(client)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ServeWithClose(ctx, server, server, HandlerFunc(echoHandler))
	}()
	go func() {
		defer wg.Done()
		conn.Run(ctx)
	}()
	return conn, func() {
		cancel()
		conn.Close()
		wg.Wait()
	}
}

func testConn(t *testing.T, conn *Conn) {
	ctx := context.Background()
	data, err := conn.Do(ctx, CodeTx, []byte{0xaa, 0x01})
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 0x01}, data)

	_, err = conn.Do(ctx, CodeClose, nil)
	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	require.Equal(t, 0x105, remoteErr.Code())
	require.Equal(t, byte(6), remoteErr.Op)

	_, err = conn.Do(ctx, 0x7f, nil)
	require.True(t, errors.As(err, &remoteErr))
	require.Equal(t, 1, remoteErr.Code())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(b byte) {
			defer wg.Done()
			data, err := conn.Do(ctx, CodeTx, []byte{b})
			require.NoError(t, err)
			require.Equal(t, []byte{b}, data)
		}(byte(i))
	}
	wg.Wait()
}

func TestConnServe(t *testing.T) {
	client, server := chanPipe()
	conn, stop := runConn(t, client, server)
	defer stop()
	testConn(t, conn)
}

func TestConnOverStream(t *testing.T) {
	c1, c2 := net.Pipe()
	conn, stop := runConn(t, stream.New(c1), stream.New(c2))
	defer stop()
	testConn(t, conn)
}

func TestConnNoReply(t *testing.T) {
	client, server := chanPipe()
	conn := NewConn(client)
	conn.Expiration = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- conn.Run(ctx) }()

	_, err := conn.Do(context.Background(), CodeTx, []byte{1})
	require.Equal(t, ErrNoReply, err)

	// reply arriving after expiration is dropped.
	req, err := DecodePacket(<-server.readCh)
	require.NoError(t, err)
	require.NoError(t, server.WritePacket(req.Reply(nil).Bytes()))

	resCh := conn.DoCommand(CodeTx, []byte{2})
	<-server.readCh
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
	res := <-resCh
	require.Equal(t, ErrClosed, res.Err)

	_, err = conn.Do(context.Background(), CodeTx, nil)
	require.Equal(t, ErrClosed, err)
}

func TestConnReadFailure(t *testing.T) {
	client, server := chanPipe()
	conn := NewConn(client)
	errCh := make(chan error, 1)
	go func() { errCh <- conn.Run(context.Background()) }()
	resCh := conn.DoCommand(CodeInfo, nil)
	<-server.readCh
	client.Close()
	require.Equal(t, ErrClosed, <-errCh)
	require.Equal(t, ErrClosed, (<-resCh).Err)
}
