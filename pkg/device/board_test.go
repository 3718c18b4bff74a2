package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dspi/pkg/proto"
)

type boardTestEnv struct {
	t      *testing.T
	board  *Board
	cancel func()
	errCh  chan error
}

func newBoardTestEnv(t *testing.T, variant Variant) *boardTestEnv {
	b, err := NewBoard(variant)
	require.NoError(t, err)
	return startBoard(t, b)
}

func startBoard(t *testing.T, b *Board) *boardTestEnv {
	env := &boardTestEnv{t: t, board: b, errCh: make(chan error, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	env.cancel = cancel
	go func() { env.errCh <- b.Run(ctx) }()
	return env
}

func (e *boardTestEnv) stop() {
	e.cancel()
	select {
	case err := <-e.errCh:
		require.Equal(e.t, context.Canceled, err)
	case <-time.After(time.Second):
		e.t.Fatal("board stop timeout")
	}
}

func (e *boardTestEnv) tx(w ...byte) []byte {
	r, err := e.board.Slave.Exchange(context.TODO(), w)
	require.NoError(e.t, err)
	return r
}

func (e *boardTestEnv) write(reg, val byte) {
	e.tx(byte(proto.OpWrite), reg)
	e.tx(val)
}

func (e *boardTestEnv) read(reg byte) byte {
	e.tx(byte(proto.OpRead), reg)
	return e.tx(proto.Dummy)[0]
}

func TestRegisterRoundTrip(t *testing.T) {
	env := newBoardTestEnv(t, VariantRegister)
	defer env.stop()
	for reg := byte(2); reg < proto.RegisterCount; reg++ {
		for _, val := range []byte{0, 1, 0x5a, 0xa5, 0xff} {
			env.write(reg, val)
			require.Equalf(t, val, env.read(reg), "register %d", reg)
		}
	}
}

func TestRegisterAllValues(t *testing.T) {
	env := newBoardTestEnv(t, VariantRegister)
	defer env.stop()
	for v := 0; v < 0x100; v++ {
		env.write(0x20, byte(v))
		require.Equal(t, byte(v), env.read(0x20))
	}
}

func TestRegisterLEDs(t *testing.T) {
	env := newBoardTestEnv(t, VariantRegister)
	defer env.stop()
	env.write(proto.RegLEDs, 5)
	require.Equal(t, byte(5), env.read(proto.RegLEDs))
	require.Equal(t, byte(0x05), env.board.Hardware.LEDs())
}

func TestRegisterButtons(t *testing.T) {
	env := newBoardTestEnv(t, VariantRegister)
	defer env.stop()
	env.board.Hardware.SetButtons(0x02)
	require.Equal(t, byte(0x02), env.read(proto.RegButtons))
	env.write(proto.RegButtons, 0xff)
	require.Equal(t, byte(0x02), env.read(proto.RegButtons))
	require.Equal(t, byte(0x02), env.read(proto.RegButtons))
	env.board.Hardware.SetButtons(0x01)
	require.Equal(t, byte(0x01), env.read(proto.RegButtons))
}

func TestRegisterOutOfRange(t *testing.T) {
	env := newBoardTestEnv(t, VariantRegister)
	defer env.stop()
	env.write(proto.RegisterCount, 0x33)
	require.Equal(t, byte(0), env.read(proto.RegisterCount))
	require.Equal(t, byte(0), env.read(0xff))
	env.write(2, 7)
	require.Equal(t, byte(7), env.read(2))
}

func TestRegisterInvalidOpcode(t *testing.T) {
	env := newBoardTestEnv(t, VariantRegister)
	defer env.stop()
	env.tx(0x12, 0x02)
	env.write(3, 9)
	require.Equal(t, byte(9), env.read(3))
	interp := env.board.Firmware.(*RegisterInterpreter)
	require.Eventually(t, func() bool {
		return interp.State() == StateIdle
	}, time.Second, time.Millisecond)
}

func TestCounter(t *testing.T) {
	b, err := NewBoard(VariantCounter)
	require.NoError(t, err)
	echoCh := make(chan []byte, 1)
	b.Firmware.(*CounterInterpreter).Echo = func(b []byte) { echoCh <- b }
	env := startBoard(t, b)
	defer env.stop()

	env.tx(byte(proto.OpWrite), 3)
	env.tx(0x01, 0xaa, 0x3a)
	select {
	case b := <-echoCh:
		require.Equal(t, []byte{0x01, 0xaa, 0x3a}, b)
	case <-time.After(time.Second):
		t.Fatal("echo timeout")
	}

	env.tx(byte(proto.OpRead), 4)
	require.Equal(t, []byte{0, 1, 2, 3, 4}, env.tx(0, 0, 0, 0, 0))
}

func TestUnknownVariant(t *testing.T) {
	_, err := NewBoard("nope")
	require.Error(t, err)
}
