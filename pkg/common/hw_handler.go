package common

import (
	"fmt"

	"github.com/mbalug7/go-ad9854/pkg/hal"
	"github.com/warthog618/gpiod"
)

// NoPin marks an optional line as not connected.
const NoPin = -1

type HWHandler struct {
	chip     *gpiod.Chip
	CSLine   *gpiod.Line // chip select, active low
	RSTLine  *gpiod.Line // master reset, active high
	SYNCLine *gpiod.Line // I/O update
	DRDYLine *gpiod.Line // data ready, active low
	ready    *readyWaiter
}

// NewHWHandler requests the control lines of the device on gpioChip.
// RST, SYNC and DRDY are optional and may be NoPin.
func NewHWHandler(gpioChip string, CSPin int, RSTPin int, SYNCPin int, DRDYPin int) (handler *HWHandler, err error) {
	handler = &HWHandler{}
	handler.chip, err = gpiod.NewChip(gpioChip, gpiod.WithConsumer("ad9854"))
	if err != nil {
		return nil, fmt.Errorf("failed to create GPIO chip: %w", err)
	}
	defer func() {
		if err != nil {
			_ = handler.Close()
		}
	}()

	// deselected until the first transaction
	handler.CSLine, err = handler.chip.RequestLine(CSPin, gpiod.AsOutput(hal.High))
	if err != nil {
		return nil, fmt.Errorf("failed to request CS GPIO line: %w", err)
	}

	if RSTPin != NoPin {
		handler.RSTLine, err = handler.chip.RequestLine(RSTPin, gpiod.AsOutput(hal.Low))
		if err != nil {
			return nil, fmt.Errorf("failed to request RST GPIO line: %w", err)
		}
	}

	if SYNCPin != NoPin {
		handler.SYNCLine, err = handler.chip.RequestLine(SYNCPin, gpiod.AsOutput(hal.Low))
		if err != nil {
			return nil, fmt.Errorf("failed to request SYNC GPIO line: %w", err)
		}
	}

	if DRDYPin != NoPin {
		// the event handler may fire as soon as the line is requested
		handler.ready = newReadyWaiter(nil)
		handler.DRDYLine, err = handler.chip.RequestLine(DRDYPin, gpiod.WithEventHandler(handler.onReadyEvent), gpiod.WithFallingEdge)
		if err != nil {
			return nil, fmt.Errorf("failed to request DRDY GPIO line: %w", err)
		}
		handler.ready.line = handler.DRDYLine
	}
	return handler, nil
}

func (obj *HWHandler) Close() error {
	for name, line := range map[string]*gpiod.Line{
		"CS":   obj.CSLine,
		"RST":  obj.RSTLine,
		"SYNC": obj.SYNCLine,
		"DRDY": obj.DRDYLine,
	} {
		if line == nil {
			continue
		}
		err := line.Close()
		if err != nil {
			return fmt.Errorf("failed to close %s line: %w", name, err)
		}
	}
	if obj.chip != nil {
		err := obj.chip.Close()
		if err != nil {
			return fmt.Errorf("failed to close GPIO chip: %w", err)
		}
	}
	return nil
}

// CS returns the chip select line.
func (obj *HWHandler) CS() hal.Line {
	return obj.CSLine
}

// Reset returns the reset line, nil when not connected.
func (obj *HWHandler) Reset() hal.Line {
	if obj.RSTLine == nil {
		return nil
	}
	return obj.RSTLine
}

// Sync returns the I/O update line, nil when not connected.
func (obj *HWHandler) Sync() hal.Line {
	if obj.SYNCLine == nil {
		return nil
	}
	return obj.SYNCLine
}

// ReadySignal returns the data ready signal, nil when not connected.
func (obj *HWHandler) ReadySignal() hal.ReadySignal {
	if obj.DRDYLine == nil {
		return nil
	}
	return obj.ready
}

func (obj *HWHandler) onReadyEvent(evt gpiod.LineEvent) {
	obj.ready.notifyReceivers()
}
