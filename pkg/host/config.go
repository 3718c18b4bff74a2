package host

import (
	"flag"
	"os"
	"strconv"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/robotalks/dspi/pkg/link"
)

// Config defines the options of the host side.
type Config struct {
	// LinkURL selects the adapter, e.g. ftdi://, spidev://SPI0.0, sim://.
	LinkURL string
	Port    int
	SpeedHz int64
	// Timeout bounds a single command.
	Timeout       time.Duration
	TxDelay       time.Duration
	RetryInterval time.Duration
}

var defaultConfig = Config{
	LinkURL:       "ftdi://",
	SpeedHz:       125000,
	Timeout:       3 * time.Second,
	TxDelay:       DefaultTxDelay,
	RetryInterval: DefaultRetryInterval,
}

func init() {
	if val := os.Getenv("DSPI_LINK"); val != "" {
		defaultConfig.LinkURL = val
	}
	if val := os.Getenv("DSPI_SPEED"); val != "" {
		if hz, err := strconv.ParseInt(val, 0, 64); err == nil {
			defaultConfig.SpeedHz = hz
		}
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Link URL of the SPI adapter.")
	flag.IntVar(&defaultConfig.Port, "port", defaultConfig.Port, "SPI port index on the adapter.")
	flag.Int64Var(&defaultConfig.SpeedHz, "speed", defaultConfig.SpeedHz, "SPI clock in Hz.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Timeout of a command.")
	flag.DurationVar(&defaultConfig.TxDelay, "delay", defaultConfig.TxDelay, "Delay between header and data transfers.")
	flag.DurationVar(&defaultConfig.RetryInterval, "retry", defaultConfig.RetryInterval, "Interval between link initialization attempts.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Speed returns the SPI clock.
func (c *Config) Speed() physic.Frequency {
	return physic.Frequency(c.SpeedHz) * physic.Hertz
}

// NewWorker creates a Worker with a new Session using current config.
func (c *Config) NewWorker() (*Worker, error) {
	opener, err := link.New(c.LinkURL)
	if err != nil {
		return nil, err
	}
	w := NewWorker(NewLink(opener, c.Port, c.Speed()), NewSession())
	w.TxDelay, w.RetryInterval = c.TxDelay, c.RetryInterval
	return w, nil
}
