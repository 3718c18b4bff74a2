// Package link abstracts the host side adapters reaching the device's SPI
// port. Adapters are registered by URL scheme, bringing one up follows the
// sequence: open device, enumerate ports, enable a port, then set speed and
// mode by connecting.
package link
