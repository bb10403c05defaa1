package common

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mbalug7/go-ad9854/pkg/ad9854"
	"github.com/mbalug7/go-ad9854/pkg/config"
	"github.com/mbalug7/go-ad9854/pkg/hal"
	"golang.org/x/exp/io/spi"
)

type closingTransport interface {
	hal.Transport
	Close() error
}

// Board bundles the GPIO lines, the transport and the device driven through them.
type Board struct {
	Device *ad9854.Device
	hw     io.Closer
	bus    closingTransport
}

// OpenBoard requests the lines and opens the transport described by cfg.
func OpenBoard(cfg config.Config, opts ...ad9854.Option) (board *Board, err error) {
	hw, err := NewHWHandler(cfg.GPIO.Chip, cfg.GPIO.CS, cfg.GPIO.Reset, cfg.GPIO.Sync, cfg.GPIO.DRDY)
	if err != nil {
		return nil, err
	}
	board = &Board{hw: hw}
	defer func() {
		if err != nil {
			_ = board.Close()
		}
	}()

	switch cfg.Transport {
	case config.TransportSPI:
		bus, err := NewSPITransport(cfg.SPI.Device, spi.Mode(cfg.SPI.Mode), cfg.SPI.MaxSpeed)
		if err != nil {
			return nil, err
		}
		board.bus = bus
	case config.TransportUART:
		bus, err := NewSerialTransport(cfg.UART.TTY, cfg.UART.Baud, cfg.UART.PollTimeout)
		if err != nil {
			return nil, err
		}
		board.bus = bus
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}

	xopts := []ad9854.Option{ad9854.WithTimeout(cfg.Timeout)}
	if cfg.Verbose {
		xopts = append(xopts, ad9854.WithLogger(log.New(os.Stdout, "ad9854: ", 0)))
	}
	if line := hw.Reset(); line != nil {
		xopts = append(xopts, ad9854.WithResetLine(line))
	}
	if line := hw.Sync(); line != nil {
		xopts = append(xopts, ad9854.WithSyncLine(line))
	}
	if ready := hw.ReadySignal(); ready != nil {
		xopts = append(xopts, ad9854.WithReady(ready))
	}
	xopts = append(xopts, opts...)

	board.Device, err = ad9854.NewDevice(board.bus, hw.CS(), xopts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	return board, nil
}

// Close releases the transport and the GPIO lines, returning the first error.
func (obj *Board) Close() error {
	var err error
	if obj.bus != nil {
		err = obj.bus.Close()
	}
	if obj.hw != nil {
		herr := obj.hw.Close()
		if err == nil {
			err = herr
		}
	}
	return err
}
