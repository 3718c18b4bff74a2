package comm

import (
	"encoding/binary"
	"time"
)

// Request codes.
const (
	CodeInfo    byte = 0x01
	CodeConnect byte = 0x02
	CodeTx      byte = 0x03
	CodeClose   byte = 0x04

	// CodeReply is set in the code of a reply.
	CodeReply byte = 0x80
	// CodeError is the code of an error reply.
	CodeError byte = 0xff
)

// PacketSeq defines the type of packet sequence number.
type PacketSeq byte

// NewPacketSeq creates a random packet sequence number.
func NewPacketSeq() PacketSeq {
	return PacketSeq(byte(time.Now().UnixNano())).Next()
}

// Next calculates the next sequence number.
func (s PacketSeq) Next() PacketSeq {
	n := byte(s) + 1
	if n == 0 {
		n = 1
	}
	return PacketSeq(n)
}

// IsValid checks if it's a valid sequence number.
func (s PacketSeq) IsValid() bool {
	return s != 0
}

// Packet is a bridge request or reply.
type Packet struct {
	Seq  PacketSeq
	Code byte
	Data []byte
}

// DecodePacket parses an encoded packet. Data references b.
func DecodePacket(b []byte) (*Packet, error) {
	if len(b) < 2 {
		return nil, ErrShortPacket
	}
	pkt := &Packet{Seq: PacketSeq(b[0]), Code: b[1], Data: b[2:]}
	if !pkt.Seq.IsValid() {
		return nil, ErrInvalidSeq
	}
	return pkt, nil
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes() []byte {
	b := make([]byte, len(p.Data)+2)
	b[0], b[1] = byte(p.Seq), p.Code
	copy(b[2:], p.Data)
	return b
}

// IsReply indicates the packet replies a request.
func (p *Packet) IsReply() bool {
	return p.Code&CodeReply != 0
}

// Reply creates the reply packet with data.
func (p *Packet) Reply(data []byte) *Packet {
	return &Packet{Seq: p.Seq, Code: p.Code | CodeReply, Data: data}
}

// ReplyError creates the error reply packet.
func (p *Packet) ReplyError(err *RemoteError) *Packet {
	return &Packet{Seq: p.Seq, Code: CodeError, Data: err.Bytes()}
}

// RemoteError is the error replied by the peer.
type RemoteError struct {
	Op      byte
	ErrCode uint16
	Message string
}

// DecodeRemoteError parses the data of an error reply.
func DecodeRemoteError(data []byte) (*RemoteError, error) {
	if len(data) < 3 {
		return nil, ErrShortPacket
	}
	return &RemoteError{
		Op:      data[0],
		ErrCode: binary.BigEndian.Uint16(data[1:]),
		Message: string(data[3:]),
	}, nil
}

// Bytes encodes the error as the data of an error reply.
func (e *RemoteError) Bytes() []byte {
	b := make([]byte, 3, 3+len(e.Message))
	b[0] = e.Op
	binary.BigEndian.PutUint16(b[1:], e.ErrCode)
	return append(b, e.Message...)
}
