package sim

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/robotalks/dspi/pkg/device"
	"github.com/robotalks/dspi/pkg/link"
	"github.com/robotalks/dspi/pkg/proto"
)

func connect(t *testing.T, o link.Opener) spi.Conn {
	dev, err := o.Open(context.TODO())
	require.NoError(t, err)
	n, err := dev.PortCount()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	port, err := dev.Port(0)
	require.NoError(t, err)
	require.NoError(t, port.LimitSpeed(125*physic.KiloHertz))
	conn, err := port.Connect(125*physic.KiloHertz, spi.Mode0, 8)
	require.NoError(t, err)
	return conn
}

func TestFromURL(t *testing.T) {
	o, err := link.New("sim://?variant=register&buttons=0x02")
	require.NoError(t, err)
	require.Equal(t, "sim(register)", o.String())
	conn := connect(t, o)

	r := make([]byte, 1)
	require.NoError(t, conn.Tx([]byte{byte(proto.OpRead), proto.RegButtons}, nil))
	require.NoError(t, conn.Tx([]byte{proto.Dummy}, r))
	require.Equal(t, byte(0x02), r[0])

	require.NoError(t, conn.TxPackets([]spi.Packet{
		{W: proto.WriteRegister(proto.RegLEDs, 5).Header.Bytes()},
		{W: []byte{5}},
		{W: proto.ReadRegister(proto.RegLEDs).Header.Bytes()},
		{W: []byte{proto.Dummy}, R: r},
	}))
	require.Equal(t, byte(5), r[0])
}

func TestFromURLErrors(t *testing.T) {
	for _, raw := range []string{
		"sim://?variant=nope",
		"sim://?buttons=0x100",
		"sim://?arm-timeout=soon",
	} {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		_, err = FromURL(u)
		require.Errorf(t, err, raw)
	}
}

func TestPortErrors(t *testing.T) {
	board, err := device.NewBoard(device.VariantRegister)
	require.NoError(t, err)
	dev, err := New(board).Open(context.TODO())
	require.NoError(t, err)
	_, err = dev.Port(1)
	require.Error(t, err)
	port, err := dev.Port(0)
	require.NoError(t, err)
	_, err = port.Connect(physic.MegaHertz, spi.Mode3, 8)
	require.Equal(t, ErrMode, err)
	require.Error(t, port.LimitSpeed(0))
	require.NoError(t, port.Close())
	_, err = port.Connect(physic.MegaHertz, spi.Mode0, 8)
	require.Equal(t, ErrClosed, err)
	require.NoError(t, dev.Close())
	_, err = dev.Port(0)
	require.Equal(t, ErrClosed, err)
}
