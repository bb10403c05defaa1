package common

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mbalug7/go-ad9854/pkg/hal"
	"github.com/tarm/serial"
)

// SerialTransport is a hal.Transport over a UART to SPI bridge. Every byte
// written to the UART is shifted out on MOSI and the byte shifted in on MISO
// at the same time is sent back.
type SerialTransport struct {
	port io.ReadWriter
	tty  string
}

// NewSerialTransport opens the serial port of the bridge.
// pollTimeout bounds a single read and must be below the transfer timeout.
func NewSerialTransport(tty string, baud int, pollTimeout time.Duration) (*SerialTransport, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        tty,
		Baud:        baud,
		Size:        8,
		ReadTimeout: pollTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port, err: %w", err)
	}
	obj := newSerialTransport(port)
	obj.tty = tty
	return obj, nil
}

func newSerialTransport(rw io.ReadWriter) *SerialTransport {
	return &SerialTransport{port: rw}
}

// Transmit shifts data out and discards the bytes clocked in meanwhile.
func (obj *SerialTransport) Transmit(data []byte, timeout time.Duration) error {
	_, err := obj.exchange(data, timeout)
	if err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}
	return nil
}

// Receive clocks out n zero bytes and returns what the device shifted in.
func (obj *SerialTransport) Receive(n int, timeout time.Duration) ([]byte, error) {
	rx, err := obj.exchange(make([]byte, n), timeout)
	if err != nil {
		return rx, fmt.Errorf("failed to receive data: %w", err)
	}
	return rx, nil
}

// exchange writes w and reads back one byte per byte written. The calls run
// on the caller's goroutine, so nothing reaches the bus once it returned.
func (obj *SerialTransport) exchange(w []byte, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	// drop leftovers of a transfer that timed out
	if f, ok := obj.port.(interface{ Flush() error }); ok {
		err := f.Flush()
		if err != nil {
			return nil, fmt.Errorf("failed to flush serial port: %w", err)
		}
	}

	n, err := obj.port.Write(w)
	if err != nil {
		return nil, err
	}
	if n != len(w) {
		return nil, io.ErrShortWrite
	}
	if time.Now().After(deadline) {
		return nil, fmt.Errorf("write of %d bytes took longer than %s: %w", len(w), timeout, hal.ErrTimeout)
	}

	buf := make([]byte, len(w))
	got := 0
	for got < len(buf) {
		m, err := obj.port.Read(buf[got:])
		got += m
		// the port reports io.EOF when its read timeout expires
		if err != nil && !errors.Is(err, io.EOF) {
			return buf[:got], err
		}
		if got < len(buf) && time.Now().After(deadline) {
			return buf[:got], fmt.Errorf("got %d of %d bytes: %w", got, len(buf), hal.ErrTimeout)
		}
	}
	return buf, nil
}

func (obj *SerialTransport) Close() error {
	c, ok := obj.port.(io.Closer)
	if !ok {
		return nil
	}
	err := c.Close()
	if err != nil {
		return fmt.Errorf("failed to close serial stream: %w", err)
	}
	return nil
}
