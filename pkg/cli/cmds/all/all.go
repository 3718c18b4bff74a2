// Package all registers all shell commands.
package all

import (
	// Register commands.
	_ "github.com/robotalks/dspi/pkg/cli/cmds/regs"
	_ "github.com/robotalks/dspi/pkg/cli/cmds/selftest"
)
