package selftest

import (
	"github.com/abiosoft/ishell"

	"github.com/robotalks/dspi/pkg/cli/parse"
	"github.com/robotalks/dspi/pkg/cli/sh"
)

var (
	// WriteCmd sends bytes to a board running the counter firmware.
	WriteCmd = ishell.Cmd{
		Name:    "selftest.write",
		Aliases: []string{"stw"},
		Help:    "BYTES(hex)...",
		Func: func(c *ishell.Context) {
			sh.DoParsed(c, parse.ParseCounterWrite)
		},
	}

	// ReadCmd reads the counter from a board running the counter firmware.
	ReadCmd = ishell.Cmd{
		Name:    "selftest.read",
		Aliases: []string{"str"},
		Help:    "LENGTH",
		Func: func(c *ishell.Context) {
			sh.DoParsed(c, parse.ParseCounterRead)
		},
	}
)

func init() {
	sh.AddCmds(
		&WriteCmd,
		&ReadCmd,
	)
}
