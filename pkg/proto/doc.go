// Package proto defines the SPI register-access protocol.
package proto

// Every transaction is initiated by the host (bus master) and starts with a
// two-byte header: an opcode and an argument. In the register variant the
// argument is a register index and the header is followed by exactly one
// byte, either the value to store (write) or a dummy byte which clocks out
// the addressed register (read). In the counter variant the argument is a
// length and the header is followed by length payload bytes (write) or
// length+1 response bytes, the first being a dummy absorbing the slave's
// pipeline latency (read).
//
// Master: host
// Slave:  device
