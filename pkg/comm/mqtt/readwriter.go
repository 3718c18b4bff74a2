package mqtt

import (
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
)

// Topic suffixes of a bridge.
const (
	RequestTopic  = "req"
	ResponseTopic = "rsp"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	ownQueue  bool
	sub       *Subscription
	packetCh  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForClient sets topics used by a remote host:
// SubTopic = id/rsp
// PubTopic = id/req
func (p *ReadWriter) ForClient(id string) *ReadWriter {
	return p.WithTopics(id+"/"+ResponseTopic, id+"/"+RequestTopic)
}

// ForServer sets topics used by the bridge:
// SubTopic = id/req
// PubTopic = id/rsp
func (p *ReadWriter) ForServer(id string) *ReadWriter {
	return p.WithTopics(id+"/"+RequestTopic, id+"/"+ResponseTopic)
}

// Dial connects the broker and opens the client side of the bridge.
// The last path segment of brokerURL is the bridge ID, e.g.
// mqtt://localhost:1883/dspi/board1.
func Dial(brokerURL string) (*ReadWriter, error) {
	brokerURL = strings.TrimSuffix(brokerURL, "/")
	q, err := NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	prefix, id := path.Split(q.TopicPrefix)
	if id == "" {
		return nil, fmt.Errorf("bridge ID missing in %q", brokerURL)
	}
	q.TopicPrefix = prefix
	if err := q.Connect(); err != nil {
		return nil, err
	}
	p := NewPacketReadWriter(q).ForClient(id)
	p.ownQueue = true
	if err := p.Open(); err != nil {
		q.Close()
		return nil, err
	}
	return p, nil
}

// Open subscribes SubTopic.
func (p *ReadWriter) Open() error {
	sub, err := p.Queue.Sub(p.SubTopic, p.handleMsg)
	if err != nil {
		return err
	}
	p.sub = sub
	return nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return p.Queue.Pub(p.PubTopic, pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() (err error) {
	p.closeOnce.Do(func() {
		close(p.done)
		if p.sub != nil {
			err = p.sub.Close()
		}
		if p.ownQueue {
			p.Queue.Close()
		}
	})
	return
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.done:
	}
}
