package common

import (
	"fmt"
	"time"

	"golang.org/x/exp/io/spi"
)

// txer is the part of *spi.Device the transport uses.
type txer interface {
	Tx(w, r []byte) error
	Close() error
}

// SPITransport is a hal.Transport on a Linux spidev device.
// Chip select is driven through a GPIO line, so the spidev chip select must be left unconnected.
// Transfers are a single synchronous ioctl clocked by the master, so they never stall
// and the timeout is not used.
type SPITransport struct {
	dev txer
}

// NewSPITransport opens a spidev device, e.g. /dev/spidev0.0. Bytes go out most significant bit first.
func NewSPITransport(device string, mode spi.Mode, maxSpeed int64) (*SPITransport, error) {
	dev, err := spi.Open(&spi.Devfs{
		Dev:      device,
		Mode:     mode,
		MaxSpeed: maxSpeed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI device %q: %w", device, err)
	}
	return &SPITransport{dev: dev}, nil
}

func (obj *SPITransport) Transmit(data []byte, timeout time.Duration) error {
	rx := make([]byte, len(data))
	err := obj.dev.Tx(data, rx)
	if err != nil {
		return fmt.Errorf("failed to transmit %d bytes: %w", len(data), err)
	}
	return nil
}

// Receive clocks out n zero bytes and returns what the device shifted in.
func (obj *SPITransport) Receive(n int, timeout time.Duration) ([]byte, error) {
	rx := make([]byte, n)
	err := obj.dev.Tx(make([]byte, n), rx)
	if err != nil {
		return nil, fmt.Errorf("failed to receive %d bytes: %w", n, err)
	}
	return rx, nil
}

func (obj *SPITransport) Close() error {
	err := obj.dev.Close()
	if err != nil {
		return fmt.Errorf("failed to close SPI device: %w", err)
	}
	return nil
}
