package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/dspi/pkg/proto"
)

// DefaultPollInterval is the interval CounterInterpreter polls the slave.
const DefaultPollInterval = 100 * time.Microsecond

// CounterInterpreter is the polled self-test firmware: writes are echoed,
// reads return an ascending byte counter.
type CounterInterpreter struct {
	Slave        *Slave
	PollInterval time.Duration
	// Echo receives the payload of every write, optional.
	Echo func([]byte)
}

// NewCounterInterpreter creates a CounterInterpreter with interrupts
// disabled on the slave.
func NewCounterInterpreter(slave *Slave) *CounterInterpreter {
	slave.SetInterruptHandler(nil)
	return &CounterInterpreter{Slave: slave, PollInterval: DefaultPollInterval}
}

// Run implements Runnable.
func (c *CounterInterpreter) Run(ctx context.Context) error {
	glog.Info("counter interpreter initialized")
	var tx [proto.BufferSize]byte
	for {
		rx, err := c.transfer(ctx, nil, proto.HeaderSize)
		if err != nil {
			return err
		}
		h, err := proto.ParseHeader(rx)
		if err != nil {
			glog.Warningf("%v", err)
			continue
		}
		length := int(h.Arg)
		if length == 0 || length > proto.MaxCounterLength {
			glog.Warningf("%s: %v %d", h.Op, proto.ErrLength, length)
			continue
		}
		switch h.Op {
		case proto.OpWrite:
			glog.Info("write op received")
			if rx, err = c.transfer(ctx, nil, length); err != nil {
				return err
			}
			glog.Infof("received: %s", formatBytes(rx))
			if c.Echo != nil {
				c.Echo(rx)
			}
		case proto.OpRead:
			glog.Info("read op received")
			if _, err = c.transfer(ctx, proto.Counter(tx[:length+1]), length+1); err != nil {
				return err
			}
		}
	}
}

func (c *CounterInterpreter) transfer(ctx context.Context, tx []byte, n int) ([]byte, error) {
	if err := c.Slave.Arm(tx, n); err != nil {
		return nil, err
	}
	interval := c.PollInterval
	if interval == 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for !c.Slave.Status() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
	return c.Slave.Received(), nil
}

func formatBytes(b []byte) string {
	items := make([]string, len(b))
	for n, v := range b {
		items[n] = fmt.Sprintf("0x%02X", v)
	}
	return strings.Join(items, " ")
}
