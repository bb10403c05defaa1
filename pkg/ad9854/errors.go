package ad9854

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("transport error")
	// ErrOutOfRange signals a programming error: a field wider than its
	// register, a burst past the register file or a payload of the wrong size.
	ErrOutOfRange = errors.New("out of range")
)

// TransportError wraps a failure of the underlying bus.
// The shadow of the registers touched by Op is not trustworthy after it.
type TransportError struct {
	Op  string
	Reg string
	Err error
}

func (e *TransportError) Error() string {
	if e.Reg == "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, ErrTransport, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Reg, ErrTransport, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransport) hold.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
