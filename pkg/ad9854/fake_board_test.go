package ad9854

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/mbalug7/go-ad9854/pkg/hal"
)

// fakeBoard is an ideal chip behind a recording bus. It stores written
// register payloads and returns them on reads. Every line toggle and
// transfer is appended to log.
type fakeBoard struct {
	log      []string
	regs     []Register
	mem      map[hal.RegAddress][]byte
	selected bool
	cmd      int // -1 until the first byte of a transaction
	rx       [][]byte
	calls    int
	failAt   int // transfer call failing with hal.ErrTimeout, 0 for never
	timeouts []time.Duration
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{
		regs: DefaultRegisters(),
		mem:  make(map[hal.RegAddress][]byte),
		cmd:  -1,
	}
}

func (b *fakeBoard) line(name string) *fakeLine {
	return &fakeLine{b: b, name: name}
}

func (b *fakeBoard) reset() {
	b.log = nil
	b.calls = 0
}

func (b *fakeBoard) index(cmd byte, opcode byte) (int, bool) {
	for i, reg := range b.regs {
		if opcode|reg.Address.ToByte() == cmd {
			return i, true
		}
	}
	return 0, false
}

func (b *fakeBoard) fail(op string) error {
	b.calls++
	if b.calls == b.failAt {
		b.log = append(b.log, op+" timeout")
		return hal.ErrTimeout
	}
	if !b.selected {
		return errors.New(op + " while deselected")
	}
	return nil
}

func (b *fakeBoard) Transmit(data []byte, timeout time.Duration) error {
	b.timeouts = append(b.timeouts, timeout)
	err := b.fail("tx")
	if err != nil {
		return err
	}
	b.log = append(b.log, "tx "+hex.EncodeToString(data))
	p := data
	if b.cmd < 0 {
		b.cmd = int(p[0])
		p = p[1:]
	}
	if b.cmd&int(CMD_WREG) == 0 || len(p) == 0 {
		return nil
	}
	i, ok := b.index(byte(b.cmd), byte(CMD_WREG))
	if !ok {
		return fmt.Errorf("write to unknown address in command 0x%02x", b.cmd)
	}
	for len(p) > 0 && i < len(b.regs) {
		reg := b.regs[i]
		b.mem[reg.Address] = append([]byte(nil), p[:reg.Size]...)
		p = p[reg.Size:]
		i++
	}
	return nil
}

func (b *fakeBoard) Receive(n int, timeout time.Duration) ([]byte, error) {
	b.timeouts = append(b.timeouts, timeout)
	err := b.fail("rx")
	if err != nil {
		return nil, err
	}
	var out []byte
	if len(b.rx) > 0 {
		out = b.rx[0]
		b.rx = b.rx[1:]
	} else {
		i, ok := b.index(byte(b.cmd), byte(CMD_RREG))
		if !ok {
			return nil, fmt.Errorf("read from unknown address in command 0x%02x", b.cmd)
		}
		for ; len(out) < n && i < len(b.regs); i++ {
			reg := b.regs[i]
			v, ok := b.mem[reg.Address]
			if !ok {
				v = make([]byte, reg.Size)
			}
			out = append(out, v...)
		}
	}
	b.log = append(b.log, "rx "+hex.EncodeToString(out))
	return out, nil
}

type fakeLine struct {
	b     *fakeBoard
	name  string
	level int
	err   error
}

func (l *fakeLine) SetValue(v int) error {
	if l.err != nil {
		return l.err
	}
	l.level = v
	l.b.log = append(l.b.log, fmt.Sprintf("%s=%d", l.name, v))
	if l.name == "cs" {
		l.b.selected = v == hal.Low
		l.b.cmd = -1
	}
	return nil
}

func (l *fakeLine) Value() (int, error) {
	return l.level, nil
}

type fakeReady struct {
	ready bool
	err   error
	waits []time.Duration
}

func (r *fakeReady) Ready() (bool, error) {
	return r.ready, nil
}

func (r *fakeReady) WaitReady(timeout time.Duration) error {
	r.waits = append(r.waits, timeout)
	return r.err
}
