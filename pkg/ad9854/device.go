package ad9854

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/mbalug7/go-ad9854/pkg/hal"
)

// DefaultTimeout bounds every transmit and receive call.
const DefaultTimeout = 100000 * time.Microsecond

// conversion word returned by the read-data command
const dataSize = 3

// Device drives one AD9854 over a synchronous serial bus.
// Calls must not be made concurrently.
type Device struct {
	registers *RegisterFile
	bus       hal.Transport
	cs        hal.Line
	rst       hal.Line
	sync      hal.Line
	ready     hal.ReadySignal
	timeout   time.Duration
	msg       *log.Logger
}

type Option func(*Device)

// WithTimeout sets the bound applied to each transport call.
func WithTimeout(timeout time.Duration) Option {
	return func(dev *Device) {
		dev.timeout = timeout
	}
}

func WithLogger(msg *log.Logger) Option {
	return func(dev *Device) {
		dev.msg = msg
	}
}

func WithResetLine(line hal.Line) Option {
	return func(dev *Device) {
		dev.rst = line
	}
}

// WithSyncLine sets the I/O update line.
func WithSyncLine(line hal.Line) Option {
	return func(dev *Device) {
		dev.sync = line
	}
}

func WithReady(ready hal.ReadySignal) Option {
	return func(dev *Device) {
		dev.ready = ready
	}
}

// WithRegisters replaces the default register file.
func WithRegisters(rf *RegisterFile) Option {
	return func(dev *Device) {
		dev.registers = rf
	}
}

// NewDevice constructs a device on bus, framed by the chip select line cs.
// The chip is deselected before NewDevice returns.
func NewDevice(bus hal.Transport, cs hal.Line, opts ...Option) (*Device, error) {
	dev := &Device{
		bus:     bus,
		cs:      cs,
		timeout: DefaultTimeout,
		msg:     log.New(io.Discard, "ad9854: ", 0),
	}
	for _, opt := range opts {
		opt(dev)
	}
	if dev.registers == nil {
		dev.registers = NewAD9854Registers()
	}
	err := dev.deselect()
	if err != nil {
		return nil, fmt.Errorf("failed to deselect chip: %w", err)
	}
	return dev, nil
}

// Registers returns the shadow register file.
func (obj *Device) Registers() *RegisterFile {
	return obj.registers
}

// Get reads a field from the shadow, no bus access.
func (obj *Device) Get(f Field) uint64 {
	return obj.registers.Get(f)
}

// Set writes a field into the shadow, no bus access.
func (obj *Device) Set(f Field, v uint64) {
	obj.registers.Set(f, v)
}

func (obj *Device) selectChip() error {
	return obj.cs.SetValue(hal.Low)
}

func (obj *Device) deselect() error {
	return obj.cs.SetValue(hal.High)
}

// transaction runs fn with the chip selected. The chip is deselected on every path.
func (obj *Device) transaction(op, reg string, fn func() error) (err error) {
	err = obj.selectChip()
	if err != nil {
		return &TransportError{Op: op, Reg: reg, Err: fmt.Errorf("failed to select chip: %w", err)}
	}
	defer func() {
		derr := obj.deselect()
		if derr != nil && err == nil {
			err = &TransportError{Op: op, Reg: reg, Err: fmt.Errorf("failed to deselect chip: %w", derr)}
		}
	}()
	err = fn()
	if err != nil {
		return &TransportError{Op: op, Reg: reg, Err: err}
	}
	return nil
}

// SendCommand transmits a single command byte.
func (obj *Device) SendCommand(cmd Command) error {
	obj.msg.Printf("command 0x%02x", byte(cmd))
	return obj.transaction("command", "", func() error {
		return obj.bus.Transmit([]byte{byte(cmd)}, obj.timeout)
	})
}

// WriteRegisters writes count consecutive registers starting at start.
// data holds the big-endian payload of each register in order.
// On success the shadows hold the written values.
func (obj *Device) WriteRegisters(start RegisterID, count int, data []byte) error {
	rf := obj.registers
	err := rf.checkRange(start, count)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	if n := rf.payloadSize(start, count); n != len(data) {
		return fmt.Errorf("payload of %d bytes for %d registers from %q, want %d: %w",
			len(data), count, rf.regs[start].Name, n, ErrOutOfRange)
	}

	reg := rf.regs[start]
	cmd := writeCommand(reg.Address)
	obj.msg.Printf("write %s (%d regs): cmd=0x%02x data=%s", reg.Name, count, cmd, hex.EncodeToString(data))
	err = obj.transaction("write", reg.Name, func() error {
		err := obj.bus.Transmit([]byte{cmd}, obj.timeout)
		if err != nil {
			return fmt.Errorf("failed to send write command: %w", err)
		}
		err = obj.bus.Transmit(data, obj.timeout)
		if err != nil {
			return fmt.Errorf("failed to send register data: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	rf.load(start, count, data)
	return nil
}

// ReadRegisters reads count consecutive registers from the chip into their shadows.
func (obj *Device) ReadRegisters(start RegisterID, count int) error {
	rf := obj.registers
	err := rf.checkRange(start, count)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	reg := rf.regs[start]
	cmd := readCommand(reg.Address)
	n := rf.payloadSize(start, count)
	var data []byte
	err = obj.transaction("read", reg.Name, func() error {
		err := obj.bus.Transmit([]byte{cmd}, obj.timeout)
		if err != nil {
			return fmt.Errorf("failed to send read command: %w", err)
		}
		data, err = obj.bus.Receive(n, obj.timeout)
		if err != nil {
			return fmt.Errorf("failed to receive register data: %w", err)
		}
		if len(data) != n {
			return fmt.Errorf("received %d of %d bytes: %w", len(data), n, io.ErrUnexpectedEOF)
		}
		return nil
	})
	if err != nil {
		return err
	}
	obj.msg.Printf("read %s (%d regs): cmd=0x%02x data=%s", reg.Name, count, cmd, hex.EncodeToString(data))
	rf.load(start, count, data)
	return nil
}

func (obj *Device) ReadRegister(id RegisterID) error {
	return obj.ReadRegisters(id, 1)
}

func (obj *Device) WriteRegister(id RegisterID, data []byte) error {
	return obj.WriteRegisters(id, 1, data)
}

// UpdateRegister commits the shadow of one register to the chip.
func (obj *Device) UpdateRegister(id RegisterID) error {
	err := obj.registers.checkRange(id, 1)
	if err != nil {
		return err
	}
	return obj.WriteRegister(id, obj.registers.Bytes(id))
}

// UpdateField commits the register holding f.
func (obj *Device) UpdateField(f Field) error {
	return obj.UpdateRegister(f.Reg)
}

// UpdateRegisters commits each register in its own transaction.
func (obj *Device) UpdateRegisters(ids ...RegisterID) error {
	for _, id := range ids {
		err := obj.UpdateRegister(id)
		if err != nil {
			return err
		}
	}
	return nil
}

// Sync refreshes every shadow from the chip in one burst.
func (obj *Device) Sync() error {
	return obj.ReadRegisters(0, obj.registers.Len())
}

// ReadData issues the read-data command and returns the conversion word.
func (obj *Device) ReadData() (uint32, error) {
	var data []byte
	err := obj.transaction("read data", "", func() error {
		err := obj.bus.Transmit([]byte{byte(CMD_RDATA)}, obj.timeout)
		if err != nil {
			return fmt.Errorf("failed to send read data command: %w", err)
		}
		data, err = obj.bus.Receive(dataSize, obj.timeout)
		if err != nil {
			return fmt.Errorf("failed to receive conversion data: %w", err)
		}
		if len(data) != dataSize {
			return fmt.Errorf("received %d of %d bytes: %w", len(data), dataSize, io.ErrUnexpectedEOF)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint32(value(data)), nil
}

// WaitReady blocks until the data ready signal asserts.
func (obj *Device) WaitReady(timeout time.Duration) error {
	if obj.ready == nil {
		return fmt.Errorf("no ready signal configured")
	}
	return obj.ready.WaitReady(timeout)
}

// HardReset pulses the reset line and reloads the shadows from the chip.
func (obj *Device) HardReset() error {
	if obj.rst == nil {
		return fmt.Errorf("no reset line configured")
	}
	err := obj.rst.SetValue(hal.High)
	if err != nil {
		return fmt.Errorf("failed to assert reset line: %w", err)
	}
	// master reset needs 10 system clock cycles
	time.Sleep(time.Microsecond)
	err = obj.rst.SetValue(hal.Low)
	if err != nil {
		return fmt.Errorf("failed to release reset line: %w", err)
	}
	err = obj.Sync()
	if err != nil {
		return fmt.Errorf("failed to read registers after reset: %w", err)
	}
	return nil
}

// PulseSync toggles the I/O update line, latching buffered writes when
// the internal update clock is disabled.
func (obj *Device) PulseSync() error {
	if obj.sync == nil {
		return fmt.Errorf("no sync line configured")
	}
	err := obj.sync.SetValue(hal.High)
	if err != nil {
		return fmt.Errorf("failed to assert sync line: %w", err)
	}
	err = obj.sync.SetValue(hal.Low)
	if err != nil {
		return fmt.Errorf("failed to release sync line: %w", err)
	}
	return nil
}

func (obj *Device) GetModuleConfiguration() string {
	return obj.registers.String()
}
