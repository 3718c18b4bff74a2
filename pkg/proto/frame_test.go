package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpcode(t *testing.T) {
	for b := 0; b < 0x100; b++ {
		op := Opcode(b)
		require.Equal(t, b == 0xAA || b == 0xBB, op.IsValid())
	}
	require.Equal(t, "write", OpWrite.String())
	require.Equal(t, "read", OpRead.String())
	require.Equal(t, "op(0x11)", Opcode(0x11).String())
}

func TestRegisterValid(t *testing.T) {
	for i := 0; i < 0x100; i++ {
		require.Equal(t, i < RegisterCount, RegisterValid(byte(i)))
	}
}

func TestParseHeader(t *testing.T) {
	h, err := ParseHeader([]byte{0xAA, 0x01})
	require.NoError(t, err)
	require.Equal(t, Header{Op: OpWrite, Arg: 1}, h)

	h, err = ParseHeader([]byte{0xBB, 0x3f, 0x00})
	require.NoError(t, err)
	require.Equal(t, Header{Op: OpRead, Arg: 0x3f}, h)

	_, err = ParseHeader([]byte{0xAA})
	require.Equal(t, ErrShortFrame, err)

	_, err = ParseHeader([]byte{0x12, 0x01})
	require.Equal(t, &OpcodeError{Op: 0x12}, err)
	require.EqualError(t, err, "invalid command 0x12")
}

func TestFrame(t *testing.T) {
	counterWrite, err := WriteCounter([]byte{1, 0xaa, 0x3a})
	require.NoError(t, err)
	counterRead, err := ReadCounter(3)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		frame  *Frame
		expect []byte
	}{
		{"write register", WriteRegister(RegLEDs, 5), []byte{0xAA, 0x01, 0x05}},
		{"read register", ReadRegister(10), []byte{0xBB, 0x0a, Dummy}},
		{"counter write", counterWrite, []byte{0xAA, 0x03, 1, 0xaa, 0x3a}},
		{"counter read", counterRead, []byte{0xBB, 0x03, 0, 0, 0, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, append(tc.frame.Header.Bytes(), tc.frame.Data...))
		})
	}
}

func TestCounterLength(t *testing.T) {
	_, err := WriteCounter(nil)
	require.Equal(t, ErrLength, err)
	_, err = WriteCounter(make([]byte, MaxCounterLength+1))
	require.Equal(t, ErrLength, err)
	_, err = ReadCounter(0)
	require.Equal(t, ErrLength, err)
	_, err = ReadCounter(MaxCounterLength + 1)
	require.Equal(t, ErrLength, err)
	f, err := ReadCounter(MaxCounterLength)
	require.NoError(t, err)
	require.Len(t, f.Data, BufferSize)
}

func TestCounter(t *testing.T) {
	require.Equal(t, []byte{0, 1, 2, 3}, Counter(make([]byte, 4)))
}
