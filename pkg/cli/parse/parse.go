// Package parse turns command lines into host requests.
package parse

import (
	"strconv"
	"strings"

	"github.com/robotalks/dspi/pkg/host"
	"github.com/robotalks/dspi/pkg/proto"
)

// Usage is the help text of the register commands.
const Usage = `Commands
write <reg> <val>	-	write val to register reg. IE: write led 0x05
read <reg>		-	read register reg. IE: read btn
help, ?			-	print this message
Registers are 0x00-0x3F, 0-63, led (0x01) or btn (0x00, read-only).
Values are 0x00-0xFF or 0-255.
`

// CounterUsage is the help text of the self-test commands.
const CounterUsage = `selftest.write [bytes in hex]	-	write bytes to device. IE: selftest.write 01 aa 3a 4b 77
selftest.read [length]		-	reads [length] bytes from device. Read data is a counter
`

var symbols = []struct {
	name string
	reg  byte
}{
	{"led", proto.RegLEDs},
	{"btn", proto.RegButtons},
}

// Parse parses one command line.
func Parse(line string) (host.Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return host.Request{}, newError(EmptyCommand, "")
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]
	switch verb {
	case "help", "?":
		return host.Request{}, ErrHelp
	case "write":
		return ParseWrite(args)
	case "read":
		return ParseRead(args)
	}
	return host.Request{}, newError(UnknownVerb, fields[0])
}

// ParseWrite parses the operands of write.
func ParseWrite(args []string) (host.Request, error) {
	if len(args) < 2 {
		return host.Request{}, newError(MissingOperand, "")
	}
	if len(args) > 2 {
		return host.Request{}, newError(TooManyOperands, args[2])
	}
	reg, err := ResolveRegister(args[0])
	if err != nil {
		return host.Request{}, err
	}
	if reg == proto.RegButtons {
		return host.Request{}, newError(ReadOnlyRegister, args[0])
	}
	val, err := ResolveValue(args[1])
	if err != nil {
		return host.Request{}, err
	}
	return host.WriteRequest(reg, val), nil
}

// ParseRead parses the operands of read.
func ParseRead(args []string) (host.Request, error) {
	if len(args) < 1 {
		return host.Request{}, newError(MissingOperand, "")
	}
	if len(args) > 1 {
		return host.Request{}, newError(TooManyOperands, args[1])
	}
	reg, err := ResolveRegister(args[0])
	if err != nil {
		return host.Request{}, err
	}
	return host.ReadRequest(reg), nil
}

// ResolveRegister resolves a register token: a hex literal, a prefix of
// led or btn, or a decimal literal, within 0-63.
func ResolveRegister(tok string) (byte, error) {
	lower := strings.ToLower(tok)
	for _, sym := range symbols {
		if lower != "" && strings.HasPrefix(sym.name, lower) {
			return sym.reg, nil
		}
	}
	n, ok := parseNumber(tok)
	if !ok || n >= proto.RegisterCount {
		return 0, newError(UnrecognizedRegister, tok)
	}
	return byte(n), nil
}

// ResolveValue resolves a value token: a hex or decimal literal, within 0-255.
func ResolveValue(tok string) (byte, error) {
	n, ok := parseNumber(tok)
	if !ok || n > 0xff {
		return 0, newError(InvalidValue, tok)
	}
	return byte(n), nil
}

// ParseCounterWrite parses the hex byte list of selftest.write.
func ParseCounterWrite(args []string) (host.Request, error) {
	if len(args) == 0 {
		return host.Request{}, newError(MissingOperand, "")
	}
	if len(args) > proto.MaxCounterLength {
		return host.Request{}, newError(TooManyOperands, args[proto.MaxCounterLength])
	}
	data := make([]byte, len(args))
	for i, arg := range args {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(arg), "0x"), 16, 8)
		if err != nil {
			return host.Request{}, newError(InvalidValue, arg)
		}
		data[i] = byte(v)
	}
	return host.CounterWriteRequest(data), nil
}

// ParseCounterRead parses the length of selftest.read.
func ParseCounterRead(args []string) (host.Request, error) {
	if len(args) == 0 {
		return host.Request{}, newError(MissingOperand, "")
	}
	if len(args) > 1 {
		return host.Request{}, newError(TooManyOperands, args[1])
	}
	n, ok := parseNumber(args[0])
	if !ok || n == 0 || n > proto.MaxCounterLength {
		return host.Request{}, newError(InvalidLength, args[0])
	}
	return host.CounterReadRequest(int(n)), nil
}

func parseNumber(tok string) (uint64, bool) {
	base, digits := 10, tok
	if len(tok) > 2 && (tok[:2] == "0x" || tok[:2] == "0X") {
		base, digits = 16, tok[2:]
	}
	n, err := strconv.ParseUint(digits, base, 16)
	if err != nil {
		return 0, false
	}
	return n, true
}
