package main

import (
	"flag"
	"os"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/dspi/pkg/comm"
	"github.com/robotalks/dspi/pkg/comm/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/dspi/"
)

func init() {
	if val := os.Getenv("DSPI_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Set("logtostderr", "true")
	flag.Parse()

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exitf("%v", err)
	}
	if err := q.Connect(); err != nil {
		glog.Exitf("connect %s: %v", mqttURL, err)
	}

	_, err = q.Sub("+/+", func(topic string, payload []byte) {
		if !strings.HasSuffix(topic, "/"+mqtt.RequestTopic) && !strings.HasSuffix(topic, "/"+mqtt.ResponseTopic) {
			return
		}
		pkt, err := comm.DecodePacket(payload)
		if err != nil {
			glog.Warningf("%s: bad packet: %v", topic, err)
			return
		}
		if pkt.Code == comm.CodeError {
			remoteErr, err := comm.DecodeRemoteError(pkt.Data)
			if err != nil {
				glog.Warningf("%s: [%d] bad error reply: %v", topic, pkt.Seq, err)
				return
			}
			glog.Infof("%s: [%d] op %d %v", topic, pkt.Seq, remoteErr.Op, remoteErr)
			return
		}
		glog.Infof("%s: [%d] %s % X", topic, pkt.Seq, codeName(pkt.Code), pkt.Data)
	})
	if err != nil {
		glog.Exitf("subscribe: %v", err)
	}
	<-(chan struct{})(nil)
}

func codeName(code byte) string {
	var name string
	switch code &^ comm.CodeReply {
	case comm.CodeInfo:
		name = "info"
	case comm.CodeConnect:
		name = "connect"
	case comm.CodeTx:
		name = "tx"
	case comm.CodeClose:
		name = "close"
	default:
		name = "unknown"
	}
	if code&comm.CodeReply != 0 {
		name += ".reply"
	}
	return name
}
