// Package comm carries SPI bridge packets between a remote host and the
// machine owning the SPI port.
//
// A packet is encoded as
//
//	| seq | code | data ... |
//
// Requests use codes below 0x80, a reply carries the request code with the
// highest bit set and the same seq. CodeError replies a failed request, its
// data is
//
//	| op | code (big-endian uint16) | message ... |
//
// Packets are transferred over a PacketReadWriter which preserves packet
// boundaries, e.g. MQTT messages, websocket messages or length prefixed
// streams.
package comm
