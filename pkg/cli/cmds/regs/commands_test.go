package regs

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dspi/pkg/cli/parse"
	"github.com/robotalks/dspi/pkg/cli/sh"
	"github.com/robotalks/dspi/pkg/device"
	"github.com/robotalks/dspi/pkg/host"
	"github.com/robotalks/dspi/pkg/link/sim"
	"github.com/robotalks/dspi/pkg/proto"
)

func TestCommands(t *testing.T) {
	board, err := device.NewBoard(device.VariantRegister)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go board.Run(ctx)

	conf := host.NewConfig()
	conf.Timeout = time.Second
	worker := host.NewWorker(host.NewLink(sim.New(board), 0, conf.Speed()), host.NewSession())
	s := sh.NewWithWorker(conf, worker)
	require.NoError(t, s.Start(ctx))
	defer func() { require.NoError(t, s.Stop()) }()

	require.NoError(t, s.Run("write", "led", "5"))
	require.Equal(t, byte(5), board.Hardware.LEDs())
	require.NoError(t, s.Run("WRITE", "led", "9"))
	require.Equal(t, byte(9), board.Hardware.LEDs())
	require.NoError(t, s.Run("Read", "led"))
	require.NoError(t, s.Run("HELP"))
	require.NoError(t, s.Run("Status"))

	err = s.Run("write", "btn", "1")
	require.Equal(t, parse.ReadOnlyRegister, parse.KindOf(err))
	err = s.Run("READ")
	require.Equal(t, parse.MissingOperand, parse.KindOf(err))
}

func TestDumpRegisters(t *testing.T) {
	var regs [proto.RegisterCount]byte
	regs[1], regs[0x3f] = 0x05, 0xaa
	lines := strings.Split(strings.TrimSpace(dumpRegisters(regs)), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], "00: 00 05 00"))
	require.True(t, strings.HasSuffix(lines[3], " AA"))
	require.True(t, strings.HasPrefix(lines[3], "30:"))
}
