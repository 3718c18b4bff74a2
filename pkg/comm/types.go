package comm

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Handler serves a request packet and returns the data of the reply.
type Handler interface {
	HandlePacket(pkt *Packet) ([]byte, error)
}

// HandlerFunc is the func form of Handler.
type HandlerFunc func(pkt *Packet) ([]byte, error)

// HandlePacket implements Handler.
func (f HandlerFunc) HandlePacket(pkt *Packet) ([]byte, error) {
	return f(pkt)
}
