// Package device simulates the board side of the protocol: the register
// file, the button and LED hardware, the SPI slave peripheral with its
// interrupts, and the two firmware interpreters running on top of it.
package device
