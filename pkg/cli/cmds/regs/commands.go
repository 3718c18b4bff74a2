package regs

import (
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/dspi/pkg/cli/sh"
	"github.com/robotalks/dspi/pkg/link/sim"
	"github.com/robotalks/dspi/pkg/proto"
)

var (
	// WriteCmd writes a register.
	WriteCmd = ishell.Cmd{
		Name: "write",
		Help: "REG VAL",
		Func: func(c *ishell.Context) {
			sh.DoLine(c, append([]string{c.Cmd.Name}, c.Args...))
		},
	}

	// ReadCmd reads a register.
	ReadCmd = ishell.Cmd{
		Name: "read",
		Help: "REG",
		Func: func(c *ishell.Context) {
			sh.DoLine(c, append([]string{c.Cmd.Name}, c.Args...))
		},
	}

	// StatusCmd shows link and session state.
	StatusCmd = ishell.Cmd{
		Name: "status",
		Help: "",
		Func: func(c *ishell.Context) {
			w := sh.ShellFrom(c).Worker
			ready := "down"
			if w.Link.Ready() {
				ready = "up"
			}
			c.Printf("link %s: %s\n", w.Link.Opener, ready)
			if code := w.Link.LastError(); code != 0 {
				c.Printf("last error: %d\n", code)
			}
			c.Printf("session: %s\n", w.Session.State())
			if o, ok := w.Link.Opener.(*sim.Opener); ok {
				c.Print(dumpRegisters(o.Board.Regs.Dump()))
			}
		},
	}
)

// dumpRegisters formats the register file 16 registers per row.
func dumpRegisters(regs [proto.RegisterCount]byte) string {
	var sb strings.Builder
	for i := 0; i < len(regs); i += 16 {
		fmt.Fprintf(&sb, "%02X:", i)
		for _, v := range regs[i : i+16] {
			fmt.Fprintf(&sb, " %02X", v)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func init() {
	sh.AddCmds(
		&WriteCmd,
		&ReadCmd,
		&StatusCmd,
	)
}
