package comm

import (
	"context"
	"io"

	"github.com/golang/glog"

	fx "github.com/robotalks/dspi/pkg/framework"
)

// Serve reads requests from rw and replies with the results of h until
// reading fails or ctx is done. Requests are served one at a time in the
// order received.
func Serve(ctx context.Context, rw PacketReadWriter, h Handler) error {
	for {
		b, err := rw.ReadPacket()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		pkt, err := DecodePacket(b)
		if err != nil {
			glog.Warningf("drop packet: %v", err)
			continue
		}
		if pkt.IsReply() {
			continue
		}
		data, err := h.HandlePacket(pkt)
		reply := pkt.Reply(data)
		if err != nil {
			glog.V(1).Infof("request %d code 0x%02x: %v", pkt.Seq, pkt.Code, err)
			reply = pkt.ReplyError(RemoteErrorOf(err))
		}
		if err = rw.WritePacket(reply.Bytes()); err != nil {
			return err
		}
	}
}

// ServeWithClose runs Serve and ensures closer is closed when ctx is done
// or Serve returns.
func ServeWithClose(ctx context.Context, rw PacketReadWriter, closer io.Closer, h Handler) error {
	return fx.RunWithContextCloser(ctx, closer, func() error {
		return Serve(ctx, rw, h)
	})
}
