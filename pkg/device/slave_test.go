package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlaveExchange(t *testing.T) {
	s := NewSlave()
	var events []Event
	s.SetInterruptHandler(InterruptFunc(func(ev Event) {
		events = append(events, ev)
	}))
	require.NoError(t, s.Arm([]byte{0x11, 0x22}, 3))
	require.False(t, s.Status())
	require.Nil(t, s.Received())

	r, err := s.Exchange(context.TODO(), []byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []byte{0x11, 0x22, 0}, r)
	require.True(t, s.Status())
	require.Equal(t, []byte{1, 2, 3}, s.Received())
	require.Equal(t, []Event{EventSlaveSelect, EventTransferDone}, events)
}

func TestSlaveNotArmed(t *testing.T) {
	s := NewSlave()
	s.ArmTimeout = 10 * time.Millisecond
	r, err := s.Exchange(context.TODO(), []byte{1})
	require.Equal(t, ErrNotArmed, err)
	require.Empty(t, r)
}

func TestSlaveWaitsForArm(t *testing.T) {
	s := NewSlave()
	go func() {
		time.Sleep(5 * time.Millisecond)
		s.Arm([]byte{0x42}, 1)
	}()
	r, err := s.Exchange(context.TODO(), []byte{0})
	require.NoError(t, err)
	require.Equal(t, []byte{0x42}, r)
}

func TestSlaveArmSize(t *testing.T) {
	s := NewSlave()
	require.Equal(t, ErrTransferSize, s.Arm(nil, 0))
	require.Equal(t, ErrTransferSize, s.Arm(nil, 129))
	require.Equal(t, ErrTransferSize, s.Arm([]byte{1, 2}, 1))
}
