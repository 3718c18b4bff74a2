// Package all registers all link adapters.
package all

import (
	// Register adapters.
	_ "github.com/robotalks/dspi/pkg/link/buspirate"
	_ "github.com/robotalks/dspi/pkg/link/ftdi"
	_ "github.com/robotalks/dspi/pkg/link/remote"
	_ "github.com/robotalks/dspi/pkg/link/sim"
	_ "github.com/robotalks/dspi/pkg/link/spidev"
)
