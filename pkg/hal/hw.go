package hal

import (
	"errors"
	"time"
)

// ErrTimeout is reported by transports when a transfer did not complete in time.
var ErrTimeout = errors.New("transfer timeout")

// line levels
const (
	Low  = 0
	High = 1
)

// Line is a single digital I/O line. *gpiod.Line satisfies it.
type Line interface {
	SetValue(value int) error
	Value() (int, error)
}

// Transport is a synchronous serial bus. A call that can block waiting on
// the bus gives up after timeout. Transports whose transfers are clocked by
// the host and cannot stall may ignore it. No bytes reach the bus after a
// call returned.
type Transport interface {
	Transmit(data []byte, timeout time.Duration) error
	Receive(n int, timeout time.Duration) ([]byte, error)
}

// ReadySignal exposes the data-ready input of the device.
type ReadySignal interface {
	// Ready reports whether a conversion result is available.
	Ready() (bool, error)
	// WaitReady blocks until the signal asserts or timeout elapses.
	WaitReady(timeout time.Duration) error
}
