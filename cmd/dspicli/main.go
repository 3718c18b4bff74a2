package main

import (
	"github.com/robotalks/dspi/pkg/cli/sh"
	"github.com/robotalks/dspi/pkg/host"

	_ "github.com/robotalks/dspi/pkg/cli/cmds/all"
	_ "github.com/robotalks/dspi/pkg/link/all"
)

func init() {
	host.SetupFlags()
}

func main() {
	sh.Main()
}
