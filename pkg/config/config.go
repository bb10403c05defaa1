// Package config loads the wiring of an AD9854 from a YAML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	TransportSPI  = "spi"
	TransportUART = "uart"
)

// NoPin marks an optional GPIO line as not connected.
const NoPin = -1

type GPIO struct {
	Chip  string `yaml:"chip"`
	CS    int    `yaml:"cs"`
	Reset int    `yaml:"reset"`
	Sync  int    `yaml:"sync"`
	DRDY  int    `yaml:"drdy"`
}

type SPI struct {
	Device   string `yaml:"device"`
	Mode     int    `yaml:"mode"`
	MaxSpeed int64  `yaml:"max_speed"`
}

type UART struct {
	TTY         string        `yaml:"tty"`
	Baud        int           `yaml:"baud"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

type Config struct {
	Transport string        `yaml:"transport"`
	Timeout   time.Duration `yaml:"timeout"`
	Verbose   bool          `yaml:"verbose"`
	GPIO      GPIO          `yaml:"gpio"`
	SPI       SPI           `yaml:"spi"`
	UART      UART          `yaml:"uart"`
}

// Default returns the wiring of a Raspberry Pi with the device on spidev0.0.
func Default() Config {
	return Config{
		Transport: TransportSPI,
		Timeout:   100 * time.Millisecond,
		GPIO: GPIO{
			Chip:  "gpiochip0",
			CS:    8,
			Reset: 25,
			Sync:  24,
			DRDY:  NoPin,
		},
		SPI: SPI{
			Device:   "/dev/spidev0.0",
			Mode:     0,
			MaxSpeed: 1000000,
		},
		UART: UART{
			TTY:         "/dev/ttyUSB0",
			Baud:        115200,
			PollTimeout: 10 * time.Millisecond,
		},
	}
}

// Parse decodes a YAML document on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	cfg.Transport = strings.ToLower(cfg.Transport)
	switch cfg.Transport {
	case TransportSPI:
		if cfg.SPI.Device == "" {
			return fmt.Errorf("spi.device is required")
		}
		if cfg.SPI.Mode < 0 || cfg.SPI.Mode > 3 {
			return fmt.Errorf("invalid spi.mode %d", cfg.SPI.Mode)
		}
	case TransportUART:
		if cfg.UART.TTY == "" {
			return fmt.Errorf("uart.tty is required")
		}
		if cfg.UART.Baud <= 0 {
			return fmt.Errorf("invalid uart.baud %d", cfg.UART.Baud)
		}
		if cfg.UART.PollTimeout <= 0 || cfg.UART.PollTimeout >= cfg.Timeout {
			return fmt.Errorf("uart.poll_timeout must be positive and below timeout")
		}
	default:
		return fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if cfg.GPIO.Chip == "" {
		return fmt.Errorf("gpio.chip is required")
	}
	if cfg.GPIO.CS < 0 {
		return fmt.Errorf("gpio.cs is required")
	}
	for name, pin := range map[string]int{"reset": cfg.GPIO.Reset, "sync": cfg.GPIO.Sync, "drdy": cfg.GPIO.DRDY} {
		if pin < NoPin {
			return fmt.Errorf("invalid gpio.%s %d", name, pin)
		}
	}
	return nil
}
