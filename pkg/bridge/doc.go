// Package bridge exposes the SPI port of a local link to remote hosts.
//
// Each transport connection gets a Session which owns the device opened
// on behalf of the remote host. Requests are CodeInfo, CodeConnect, CodeTx
// and CodeClose of package comm.
package bridge
