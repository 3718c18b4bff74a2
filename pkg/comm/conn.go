package comm

import (
	"container/list"
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultCommandExpiration is the default expiration expecting a reply.
const DefaultCommandExpiration = time.Second

// Result is the outcome of a command.
type Result struct {
	Data []byte
	Err  error
}

// Conn is the client side of a bridge connection. Replies are matched to
// commands by seq, commands without reply expire with ErrNoReply.
type Conn struct {
	Expiration time.Duration
	ReadWriter PacketReadWriter

	seq      PacketSeq
	commands list.List
	seqMap   map[PacketSeq]*commandFuture
	closed   bool
	lock     sync.Mutex
	sendLock sync.Mutex
}

// NewConn creates a Conn over rw.
func NewConn(rw PacketReadWriter) *Conn {
	return &Conn{
		Expiration: DefaultCommandExpiration,
		ReadWriter: rw,
		seq:        NewPacketSeq(),
		seqMap:     make(map[PacketSeq]*commandFuture),
	}
}

// DoCommand sends a request and returns the chan to retrieve the result.
func (c *Conn) DoCommand(code byte, data []byte) <-chan Result {
	f := &commandFuture{result: make(chan Result, 1)}
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		f.result <- Result{Err: ErrClosed}
		return f.result
	}
	c.seq = c.seq.Next()
	if _, exists := c.seqMap[c.seq]; exists {
		// all seqs are in flight.
		c.lock.Unlock()
		f.result <- Result{Err: ErrNoReply}
		return f.result
	}
	f.seq, f.expireAt = c.seq, time.Now().Add(c.Expiration)
	f.elem = c.commands.PushBack(f)
	c.seqMap[f.seq] = f
	c.lock.Unlock()

	// the reply may be handled before send returns.
	if err := c.send(&Packet{Seq: f.seq, Code: code, Data: data}); err != nil && c.remove(f) {
		f.result <- Result{Err: err}
	}
	return f.result
}

// Do sends a request and waits for the reply data.
func (c *Conn) Do(ctx context.Context, code byte, data []byte) ([]byte, error) {
	select {
	case res := <-c.DoCommand(code, data):
		return res.Data, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) send(pkt *Packet) error {
	c.sendLock.Lock()
	defer c.sendLock.Unlock()
	return c.ReadWriter.WritePacket(pkt.Bytes())
}

// Run implements Runnable. It reads replies until ctx is done or reading
// fails, all pending commands fail when it returns.
func (c *Conn) Run(ctx context.Context) error {
	pktCh := make(chan []byte)
	errCh := make(chan error, 1)
	go func() {
		for {
			b, err := c.ReadWriter.ReadPacket()
			if err != nil {
				errCh <- err
				return
			}
			select {
			case pktCh <- b:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(c.purgeInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.shutdown(ErrClosed)
			return ctx.Err()
		case err := <-errCh:
			if err == io.EOF {
				err = ErrClosed
			}
			c.shutdown(err)
			return err
		case b := <-pktCh:
			c.handlePacket(b)
		case now := <-ticker.C:
			c.purgeExpired(now)
		}
	}
}

// Close closes the underlying PacketReadWriter if possible.
func (c *Conn) Close() error {
	if closer, ok := c.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Conn) purgeInterval() time.Duration {
	if d := c.Expiration / 4; d > time.Millisecond {
		return d
	}
	return time.Millisecond
}

func (c *Conn) handlePacket(b []byte) {
	pkt, err := DecodePacket(b)
	if err != nil {
		glog.Warningf("drop packet: %v", err)
		return
	}
	if !pkt.IsReply() {
		glog.V(1).Infof("drop request packet %d code 0x%02x", pkt.Seq, pkt.Code)
		return
	}
	c.lock.Lock()
	f := c.seqMap[pkt.Seq]
	c.lock.Unlock()
	if f == nil || !c.remove(f) {
		glog.V(1).Infof("drop reply %d: no command", pkt.Seq)
		return
	}
	var res Result
	if pkt.Code == CodeError {
		if remoteErr, err := DecodeRemoteError(pkt.Data); err != nil {
			res.Err = err
		} else {
			res.Err = remoteErr
		}
	} else {
		res.Data = append([]byte(nil), pkt.Data...)
	}
	f.result <- res
}

// remove returns false if f was already removed.
func (c *Conn) remove(f *commandFuture) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.seqMap[f.seq] != f {
		return false
	}
	c.commands.Remove(f.elem)
	delete(c.seqMap, f.seq)
	return true
}

func (c *Conn) purgeExpired(now time.Time) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for c.commands.Len() > 0 {
		elem := c.commands.Front()
		f := elem.Value.(*commandFuture)
		if f.expireAt.After(now) {
			break
		}
		c.commands.Remove(elem)
		delete(c.seqMap, f.seq)
		f.result <- Result{Err: ErrNoReply}
	}
}

func (c *Conn) shutdown(err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.closed = true
	for elem := c.commands.Front(); elem != nil; elem = elem.Next() {
		f := elem.Value.(*commandFuture)
		delete(c.seqMap, f.seq)
		f.result <- Result{Err: err}
	}
	c.commands.Init()
}

type commandFuture struct {
	seq      PacketSeq
	expireAt time.Time
	elem     *list.Element
	result   chan Result
}
