package parse

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dspi/pkg/host"
)

func TestResolveRegister(t *testing.T) {
	for i := 0; i < 64; i++ {
		reg, err := ResolveRegister(fmt.Sprintf("0x%02X", i))
		require.NoError(t, err)
		require.Equal(t, byte(i), reg)
		reg, err = ResolveRegister(fmt.Sprintf("0x%x", i))
		require.NoError(t, err)
		require.Equal(t, byte(i), reg)
		reg, err = ResolveRegister(fmt.Sprintf("%d", i))
		require.NoError(t, err)
		require.Equal(t, byte(i), reg)
	}
	for _, tok := range []string{"l", "le", "led", "LED", "Le"} {
		reg, err := ResolveRegister(tok)
		require.NoError(t, err)
		require.Equal(t, byte(1), reg, tok)
	}
	for _, tok := range []string{"b", "bt", "btn", "BTN", "bT"} {
		reg, err := ResolveRegister(tok)
		require.NoError(t, err)
		require.Equal(t, byte(0), reg, tok)
	}
	for _, tok := range []string{"", "foo", "leds", "button", "0x", "0x40", "64", "-1", "+1", "0xg1", "1.5", "0x100"} {
		_, err := ResolveRegister(tok)
		require.Equal(t, UnrecognizedRegister, KindOf(err), tok)
	}
}

func TestResolveValue(t *testing.T) {
	for i := 0; i < 256; i++ {
		val, err := ResolveValue(fmt.Sprintf("0x%02x", i))
		require.NoError(t, err)
		require.Equal(t, byte(i), val)
		val, err = ResolveValue(fmt.Sprintf("%d", i))
		require.NoError(t, err)
		require.Equal(t, byte(i), val)
	}
	for _, tok := range []string{"led", "btn", "256", "0x100", "abc", "0x", "-3"} {
		_, err := ResolveValue(tok)
		require.Equal(t, InvalidValue, KindOf(err), tok)
	}
}

func TestParse(t *testing.T) {
	testCases := []struct {
		line string
		req  host.Request
		kind ErrorKind
	}{
		{line: "write led 5", req: host.WriteRequest(1, 5)},
		{line: "  WRITE   0x10 0xff ", req: host.WriteRequest(0x10, 0xff)},
		{line: "write 63 255", req: host.WriteRequest(63, 255)},
		{line: "read btn", req: host.ReadRequest(0)},
		{line: "Read l", req: host.ReadRequest(1)},
		{line: "read 0x3f", req: host.ReadRequest(63)},
		{line: "", kind: EmptyCommand},
		{line: "   ", kind: EmptyCommand},
		{line: "erase 1", kind: UnknownVerb},
		{line: "write", kind: MissingOperand},
		{line: "write led", kind: MissingOperand},
		{line: "read", kind: MissingOperand},
		{line: "write foo 5", kind: UnrecognizedRegister},
		{line: "write 64 5", kind: UnrecognizedRegister},
		{line: "read bar", kind: UnrecognizedRegister},
		{line: "write led bar", kind: InvalidValue},
		{line: "write led 300", kind: InvalidValue},
		{line: "write btn 1", kind: ReadOnlyRegister},
		{line: "write 0 1", kind: ReadOnlyRegister},
		{line: "write led 1 2", kind: TooManyOperands},
		{line: "read led 1", kind: TooManyOperands},
	}
	for _, tc := range testCases {
		req, err := Parse(tc.line)
		if tc.kind == 0 {
			require.NoError(t, err, tc.line)
			require.Equal(t, tc.req, req, tc.line)
		} else {
			require.Error(t, err, tc.line)
			require.Equal(t, tc.kind, KindOf(err), tc.line)
			require.True(t, errors.Is(err, &ParseError{Kind: tc.kind}), tc.line)
		}
	}
}

func TestParseHelp(t *testing.T) {
	for _, line := range []string{"help", "?", "HELP"} {
		_, err := Parse(line)
		require.Equal(t, ErrHelp, err)
	}
}

func TestParseErrorMessage(t *testing.T) {
	_, err := Parse("write foo 5")
	require.EqualError(t, err, "unrecognized register: foo")
	_, err = Parse("")
	require.EqualError(t, err, "empty command")
}

func TestParseCounter(t *testing.T) {
	req, err := ParseCounterWrite([]string{"01", "aa", "3A", "0x4b", "77"})
	require.NoError(t, err)
	require.Equal(t, host.CounterWriteRequest([]byte{0x01, 0xaa, 0x3a, 0x4b, 0x77}), req)

	_, err = ParseCounterWrite(nil)
	require.Equal(t, MissingOperand, KindOf(err))
	_, err = ParseCounterWrite([]string{"01", "zz"})
	require.Equal(t, InvalidValue, KindOf(err))
	_, err = ParseCounterWrite([]string{"100"})
	require.Equal(t, InvalidValue, KindOf(err))

	req, err = ParseCounterRead([]string{"10"})
	require.NoError(t, err)
	require.Equal(t, host.CounterReadRequest(10), req)
	req, err = ParseCounterRead([]string{"0x7f"})
	require.NoError(t, err)
	require.Equal(t, host.CounterReadRequest(127), req)

	for _, tok := range []string{"0", "128", "x"} {
		_, err = ParseCounterRead([]string{tok})
		require.Equal(t, InvalidLength, KindOf(err), tok)
	}
	_, err = ParseCounterRead(nil)
	require.Equal(t, MissingOperand, KindOf(err))
}
