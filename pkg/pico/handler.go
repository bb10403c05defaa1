//go:build pico
// +build pico

package pico

import (
	"fmt"
	"machine"
	"time"

	"github.com/mbalug7/go-ad9854/pkg/hal"
)

// Line adapts a machine.Pin to hal.Line.
type Line struct {
	pin machine.Pin
}

func NewOutputLine(pin machine.Pin, initial int) Line {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	l := Line{pin: pin}
	_ = l.SetValue(initial)
	return l
}

func (obj Line) SetValue(value int) error {
	if value == hal.Low {
		obj.pin.Low()
	} else {
		obj.pin.High()
	}
	return nil
}

func (obj Line) Value() (int, error) {
	if obj.pin.Get() {
		return hal.High, nil
	}
	return hal.Low, nil
}

// HWHandler is the transport and ready signal of an AD9854 wired to a pico.
type HWHandler struct {
	spi      *machine.SPI
	CSLine   Line
	DRDYLine machine.Pin
}

func NewHWHandler(spi *machine.SPI, CSPin machine.Pin, DRDYPin machine.Pin, frequency uint32) (*HWHandler, error) {
	err := spi.Configure(machine.SPIConfig{
		Frequency: frequency,
		Mode:      0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure SPI: %w", err)
	}
	DRDYPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	handler := &HWHandler{
		spi:      spi,
		CSLine:   NewOutputLine(CSPin, hal.High),
		DRDYLine: DRDYPin,
	}
	return handler, nil
}

// Transmit writes data on the bus. The SPI is clocked by the pico and cannot stall, so timeout is not used.
func (obj *HWHandler) Transmit(data []byte, timeout time.Duration) error {
	err := obj.spi.Tx(data, nil)
	if err != nil {
		return fmt.Errorf("failed to transmit: %w", err)
	}
	return nil
}

func (obj *HWHandler) Receive(n int, timeout time.Duration) ([]byte, error) {
	rx := make([]byte, n)
	err := obj.spi.Tx(make([]byte, n), rx)
	if err != nil {
		return nil, fmt.Errorf("failed to receive: %w", err)
	}
	return rx, nil
}

func (obj *HWHandler) Ready() (bool, error) {
	return !obj.DRDYLine.Get(), nil
}

// WaitReady polls DRDY until it goes low.
func (obj *HWHandler) WaitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for obj.DRDYLine.Get() {
		if time.Now().After(deadline) {
			return fmt.Errorf("failed to wait for DRDY: %w", hal.ErrTimeout)
		}
		time.Sleep(100 * time.Microsecond)
	}
	return nil
}
