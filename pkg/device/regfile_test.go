package device

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dspi/pkg/proto"
)

func TestRegisterFile(t *testing.T) {
	var f RegisterFile
	require.NoError(t, f.Store(proto.RegLEDs, 5))
	require.NoError(t, f.Store(63, 0xee))
	require.Equal(t, ErrReadOnly, f.Store(proto.RegButtons, 1))
	require.Equal(t, &proto.RegisterError{Index: 64}, f.Store(64, 1))

	val, err := f.Load(63)
	require.NoError(t, err)
	require.Equal(t, byte(0xee), val)
	_, err = f.Load(64)
	require.Error(t, err)

	f.Snapshot(0x02, 0x07)
	regs := f.Dump()
	require.Equal(t, byte(0x02), regs[proto.RegButtons])
	require.Equal(t, byte(0x07), regs[proto.RegLEDs])
	require.Equal(t, byte(0xee), regs[63])
}
