package main

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/dspi/pkg/bridge"
	fx "github.com/robotalks/dspi/pkg/framework"

	_ "github.com/robotalks/dspi/pkg/link/all"
)

func init() {
	bridge.SetupFlags()
}

func main() {
	flag.Parse()

	conf, err := bridge.NewConfig()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	server, err := conf.NewServer()
	if err != nil {
		glog.Exitf("link %q: %v", conf.Link, err)
	}
	glog.Infof("bridge %s serving %s", conf.ID, server.Opener)
	if err := fx.NewRunner().HandleSignals().Go(conf.Runnables(server)...).Wait(); err != nil {
		glog.Exitf("%v", err)
	}
}
