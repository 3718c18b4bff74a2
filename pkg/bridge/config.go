package bridge

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	fx "github.com/robotalks/dspi/pkg/framework"
	"github.com/robotalks/dspi/pkg/link"
)

// Config defines the bridge daemon options, loaded from YAML:
//
//	id: board1
//	link: sim://?variant=register
//	mqtt: mqtt://localhost:1883/dspi/
//	tcp: ":7070"
//	websocket:
//	  addr: ":8080"
//	  path: /spi
type Config struct {
	// ID names the bridge in MQTT topics, defaults to the machine ID.
	ID   string `yaml:"id"`
	Link string `yaml:"link"`
	// MQTT is the broker URL, the path is the topic prefix.
	MQTT      string          `yaml:"mqtt"`
	TCP       string          `yaml:"tcp"`
	Websocket WebsocketConfig `yaml:"websocket"`
}

// WebsocketConfig defines the websocket listener.
type WebsocketConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// DefaultWebsocketPath is the HTTP path accepting websocket connections.
const DefaultWebsocketPath = "/spi"

var (
	configFile    string
	defaultConfig = Config{
		Link: "sim://?variant=register",
		TCP:  ":7070",
	}
)

func init() {
	if val := os.Getenv("DSPI_BRIDGE_LINK"); val != "" {
		defaultConfig.Link = val
	}
	if val := os.Getenv("DSPI_MQTT_URL"); val != "" {
		defaultConfig.MQTT = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "YAML config file, overrides other flags.")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Bridge ID, defaults to machine ID.")
	flag.StringVar(&defaultConfig.Link, "link", defaultConfig.Link, "Link URL of the local SPI adapter.")
	flag.StringVar(&defaultConfig.MQTT, "mqtt", defaultConfig.MQTT, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.TCP, "tcp", defaultConfig.TCP, "TCP listen address.")
	flag.StringVar(&defaultConfig.Websocket.Addr, "ws", defaultConfig.Websocket.Addr, "Websocket listen address.")
}

// NewConfig creates a Config from the config file if specified,
// otherwise from defaults and flags.
func NewConfig() (*Config, error) {
	if configFile != "" {
		return Load(configFile)
	}
	conf := defaultConfig
	conf.normalize()
	return &conf, conf.Validate()
}

// Load reads a YAML config file.
func Load(fn string) (*Config, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses YAML config.
func Parse(data []byte) (*Config, error) {
	var conf Config
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	conf.normalize()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Config) normalize() {
	if c.ID == "" {
		c.ID = MachineID()
	}
	if c.Websocket.Addr != "" && c.Websocket.Path == "" {
		c.Websocket.Path = DefaultWebsocketPath
	}
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Link == "" {
		return fmt.Errorf("link is required")
	}
	if c.MQTT == "" && c.TCP == "" && c.Websocket.Addr == "" {
		return fmt.Errorf("at least one of mqtt, tcp, websocket is required")
	}
	if c.MQTT != "" && c.ID == "" {
		return fmt.Errorf("id is required for mqtt")
	}
	return nil
}

// MachineID retrieves the ID identifying the machine for this application,
// empty if unavailable.
func MachineID() string {
	id, err := machineid.ProtectedID("dspi")
	if err != nil {
		glog.Warningf("machine ID: %v", err)
		return ""
	}
	return id[:12]
}

// NewServer creates a Server on the configured link.
func (c *Config) NewServer() (*Server, error) {
	opener, err := link.New(c.Link)
	if err != nil {
		return nil, err
	}
	return NewServer(opener), nil
}

// Runnables creates the Runnables serving the configured transports.
func (c *Config) Runnables(s *Server) []fx.Runnable {
	var runners []fx.Runnable
	if c.TCP != "" {
		runners = append(runners, fx.NamedRun("tcp", fx.RunFunc(func(ctx context.Context) error {
			return s.ServeTCP(ctx, c.TCP)
		})))
	}
	if c.Websocket.Addr != "" {
		runners = append(runners, fx.NamedRun("websocket", fx.RunFunc(func(ctx context.Context) error {
			return s.ServeWebsocket(ctx, c.Websocket.Addr, c.Websocket.Path)
		})))
	}
	if c.MQTT != "" {
		runners = append(runners, fx.NamedRun("mqtt", fx.RunFunc(func(ctx context.Context) error {
			return s.ServeMQTT(ctx, c.MQTT, c.ID)
		})))
	}
	return runners
}
