package ad9854

import (
	"bytes"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/mbalug7/go-ad9854/pkg/hal"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T, opts ...Option) (*Device, *fakeBoard, *fakeLine) {
	t.Helper()
	b := newFakeBoard()
	cs := b.line("cs")
	dev, err := NewDevice(b, cs, opts...)
	require.NoError(t, err)
	require.Equal(t, []string{"cs=1"}, b.log, "chip must start deselected")
	b.reset()
	return dev, b, cs
}

func TestUpdateRegisterControlRegister(t *testing.T) {
	dev, b, _ := newTestDevice(t)

	dev.Set(PLLMult, 0x14)
	require.Equal(t, uint64(0x00140000), dev.Registers().Value(CR))
	require.Empty(t, b.log, "field writes must not touch the bus")

	err := dev.UpdateRegister(CR)
	require.NoError(t, err)
	require.Equal(t, []string{"cs=0", "tx 5e", "tx 00140000", "cs=1"}, b.log)

	b.reset()
	require.NoError(t, dev.UpdateField(PLLMult))
	require.Equal(t, []string{"cs=0", "tx 5e", "tx 00140000", "cs=1"}, b.log)
}

func TestSendCommandFraming(t *testing.T) {
	for _, tc := range []struct {
		name string
		f    func(dev *Device) error
		want string
	}{
		{"reset", func(dev *Device) error { return dev.Reset() }, "tx 06"},
		{"nop", func(dev *Device) error { return dev.SendCommand(CMD_NOP) }, "tx 00"},
		{"wakeup", func(dev *Device) error { return dev.Wakeup() }, "tx 02"},
		{"pwrdwn", func(dev *Device) error { return dev.PowerDown() }, "tx 04"},
		{"start", func(dev *Device) error { return dev.Start() }, "tx 08"},
		{"stop", func(dev *Device) error { return dev.Stop() }, "tx 0a"},
		{"syocal", func(dev *Device) error { return dev.SystemOffsetCalibration() }, "tx 16"},
		{"sygcal", func(dev *Device) error { return dev.SystemGainCalibration() }, "tx 17"},
		{"sfocal", func(dev *Device) error { return dev.SelfOffsetCalibration() }, "tx 19"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev, b, cs := newTestDevice(t)
			// shadow content does not matter
			dev.Registers().SetValue(CR, 0xffffffff)

			err := tc.f(dev)
			require.NoError(t, err)
			require.Equal(t, []string{"cs=0", tc.want, "cs=1"}, b.log)
			require.Equal(t, hal.High, cs.level)
		})
	}
}

func TestWriteRegistersBurst(t *testing.T) {
	dev, b, _ := newTestDevice(t)

	data := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, // ftw1
		0x11, 0x12, 0x13, 0x14, 0x15, 0x16, // ftw2
		0x21, 0x22, 0x23, 0x24, 0x25, 0x26, // dfw
	}
	err := dev.WriteRegisters(FTW1, 3, data)
	require.NoError(t, err)
	require.Equal(t, []string{
		"cs=0",
		"tx 44",
		"tx 010203040506111213141516212223242526",
		"cs=1",
	}, b.log)

	rf := dev.Registers()
	require.Equal(t, uint64(0x010203040506), rf.Value(FTW1))
	require.Equal(t, uint64(0x111213141516), rf.Value(FTW2))
	require.Equal(t, uint64(0x212223242526), rf.Value(DFW))
	require.Equal(t, uint64(0), rf.Value(UPDATE_CLK))
}

func TestWriteReadConsistency(t *testing.T) {
	dev, b, _ := newTestDevice(t)
	rf := dev.Registers()

	want := make([]uint64, rf.Len())
	for i := 0; i < rf.Len(); i++ {
		id := RegisterID(i)
		rf.SetValue(id, 0x8070605040302010+uint64(i)*0x0101010101)
		want[i] = rf.Value(id)
		require.NoError(t, dev.UpdateRegister(id))
	}

	for i := 0; i < rf.Len(); i++ {
		id := RegisterID(i)
		rf.SetValue(id, 0)
		require.NoError(t, dev.ReadRegister(id))
		require.Equal(t, want[i], rf.Value(id), rf.Register(id).Name)
	}

	// and once more in a single burst
	for i := 0; i < rf.Len(); i++ {
		rf.SetValue(RegisterID(i), 0)
	}
	b.reset()
	require.NoError(t, dev.Sync())
	require.Len(t, b.log, 4)
	require.Equal(t, "tx 20", b.log[1])
	for i := 0; i < rf.Len(); i++ {
		require.Equal(t, want[i], rf.Value(RegisterID(i)))
	}
}

func TestReadRegistersBurst(t *testing.T) {
	dev, b, _ := newTestDevice(t)
	b.rx = append(b.rx, []byte{0x10, 0x64, 0x01, 0x20, 0x0a, 0xbc, 0x0d, 0xef})

	err := dev.ReadRegisters(CR, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"cs=0", "tx 3e", "rx 10640120" + "0abc0def", "cs=1"}, b.log)

	rf := dev.Registers()
	require.Equal(t, uint64(0x10640120), rf.Value(CR))
	require.Equal(t, uint64(0x0abc), rf.Value(OSK_I_MULT))
	require.Equal(t, uint64(0x0def), rf.Value(OSK_Q_MULT))
	require.Equal(t, uint64(4), dev.Get(PLLMult))
	require.Equal(t, uint64(1), dev.Get(PLLBypass))
	require.Equal(t, uint64(1), dev.Get(CompPwd))
}

func TestTransportTimeout(t *testing.T) {
	for _, tc := range []struct {
		name   string
		failAt int
		f      func(dev *Device) error
	}{
		{
			name:   "write-command",
			failAt: 1,
			f:      func(dev *Device) error { return dev.UpdateRegister(CR) },
		},
		{
			name:   "write-payload",
			failAt: 2,
			f: func(dev *Device) error {
				return dev.WriteRegisters(PAR1, 2, []byte{1, 2, 3, 4})
			},
		},
		{
			name:   "read-command",
			failAt: 1,
			f:      func(dev *Device) error { return dev.ReadRegisters(FTW1, 2) },
		},
		{
			name:   "read-payload",
			failAt: 2,
			f:      func(dev *Device) error { return dev.ReadRegisters(FTW1, 2) },
		},
		{
			name:   "command",
			failAt: 1,
			f:      func(dev *Device) error { return dev.Reset() },
		},
		{
			name:   "read-data",
			failAt: 2,
			f: func(dev *Device) error {
				_, err := dev.ReadData()
				return err
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev, b, cs := newTestDevice(t)
			dev.Registers().SetValue(FTW1, 0x123456)
			b.failAt = tc.failAt

			err := tc.f(dev)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrTransport)
			require.ErrorIs(t, err, hal.ErrTimeout)

			var terr *TransportError
			require.True(t, errors.As(err, &terr))

			require.Equal(t, "cs=1", b.log[len(b.log)-1], "chip left selected")
			require.Equal(t, hal.High, cs.level)
		})
	}
}

func TestFailedWriteKeepsShadow(t *testing.T) {
	dev, b, _ := newTestDevice(t)
	dev.Registers().SetValue(PAR1, 0x1111)
	b.failAt = 2

	err := dev.WriteRegister(PAR1, []byte{0x22, 0x22})
	require.ErrorIs(t, err, ErrTransport)
	require.Equal(t, uint64(0x1111), dev.Registers().Value(PAR1))
}

func TestZeroCountIsNoop(t *testing.T) {
	dev, b, _ := newTestDevice(t)

	require.NoError(t, dev.WriteRegisters(CR, 0, nil))
	require.NoError(t, dev.ReadRegisters(CR, 0))
	require.Empty(t, b.log)
}

func TestOutOfRange(t *testing.T) {
	dev, b, _ := newTestDevice(t)

	err := dev.WriteRegisters(QDAC, 2, []byte{0, 0, 0, 0})
	require.ErrorIs(t, err, ErrOutOfRange)
	require.False(t, errors.Is(err, ErrTransport))

	err = dev.ReadRegisters(OSK_RAMP_RATE, 3)
	require.ErrorIs(t, err, ErrOutOfRange)

	err = dev.WriteRegister(CR, []byte{0, 0, 0})
	require.ErrorIs(t, err, ErrOutOfRange)

	err = dev.UpdateRegister(RegisterID(42))
	require.ErrorIs(t, err, ErrOutOfRange)

	require.Empty(t, b.log, "no traffic on programming errors")
}

func TestShortRead(t *testing.T) {
	dev, b, cs := newTestDevice(t)
	b.rx = append(b.rx, []byte{0x01})

	err := dev.ReadRegister(CR)
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, hal.High, cs.level)
}

func TestSelectFailure(t *testing.T) {
	dev, b, cs := newTestDevice(t)
	cs.err = errors.New("line gone")

	err := dev.Reset()
	require.ErrorIs(t, err, ErrTransport)
	require.Empty(t, b.log)
}

func TestReadData(t *testing.T) {
	dev, b, _ := newTestDevice(t)
	b.rx = append(b.rx, []byte{0x12, 0x34, 0x56})

	v, err := dev.ReadData()
	require.NoError(t, err)
	require.Equal(t, uint32(0x123456), v)
	require.Equal(t, []string{"cs=0", "tx 12", "rx 123456", "cs=1"}, b.log)
}

func TestTimeoutOption(t *testing.T) {
	dev, b, _ := newTestDevice(t, WithTimeout(5*time.Millisecond))
	require.NoError(t, dev.ReadRegister(PAR2))
	require.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}, b.timeouts)

	dev, b, _ = newTestDevice(t)
	require.NoError(t, dev.Stop())
	require.Equal(t, []time.Duration{100 * time.Millisecond}, b.timeouts)
}

func TestHardReset(t *testing.T) {
	b := newFakeBoard()
	cs := b.line("cs")
	rst := b.line("rst")
	b.mem[0x1e] = []byte{0x10, 0x64, 0x01, 0x20}

	dev, err := NewDevice(b, cs, WithResetLine(rst))
	require.NoError(t, err)
	b.reset()

	require.NoError(t, dev.HardReset())
	require.Equal(t, []string{"rst=1", "rst=0", "cs=0", "tx 20"}, b.log[:4])
	require.Equal(t, "cs=1", b.log[len(b.log)-1])
	require.Equal(t, uint64(0x10640120), dev.Registers().Value(CR))

	dev, err = NewDevice(b, cs)
	require.NoError(t, err)
	require.Error(t, dev.HardReset())
}

func TestPulseSync(t *testing.T) {
	b := newFakeBoard()
	sync := b.line("sync")
	dev, err := NewDevice(b, b.line("cs"), WithSyncLine(sync))
	require.NoError(t, err)
	b.reset()

	require.NoError(t, dev.PulseSync())
	require.Equal(t, []string{"sync=1", "sync=0"}, b.log)

	sync.err = errors.New("boom")
	require.Error(t, dev.PulseSync())
}

func TestWaitReady(t *testing.T) {
	dev, _, _ := newTestDevice(t)
	require.Error(t, dev.WaitReady(time.Millisecond))

	ready := &fakeReady{}
	dev, _, _ = newTestDevice(t, WithReady(ready))
	require.NoError(t, dev.WaitReady(time.Second))
	require.Equal(t, []time.Duration{time.Second}, ready.waits)

	ready.err = hal.ErrTimeout
	require.ErrorIs(t, dev.WaitReady(time.Second), hal.ErrTimeout)
}

func TestLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	dev, _, _ := newTestDevice(t, WithLogger(log.New(buf, "ad9854: ", 0)))
	dev.Set(PLLMult, 0x14)
	require.NoError(t, dev.UpdateRegister(CR))
	require.Equal(t, "ad9854: write cr (1 regs): cmd=0x5e data=00140000\n", buf.String())
}

func TestWithRegisters(t *testing.T) {
	rf, err := NewRegisterFile([]Register{
		{Name: "ctrl", Address: 0x01, Size: 1},
		{Name: "data", Address: 0x02, Size: 3},
	}, nil)
	require.NoError(t, err)

	b := newFakeBoard()
	b.regs = []Register{{Address: 0x01, Size: 1}, {Address: 0x02, Size: 3}}
	dev, err := NewDevice(b, b.line("cs"), WithRegisters(rf))
	require.NoError(t, err)
	b.reset()

	require.NoError(t, dev.WriteRegisters(0, 2, []byte{0xaa, 0x01, 0x02, 0x03}))
	require.Equal(t, []string{"cs=0", "tx 41", "tx aa010203", "cs=1"}, b.log)
	require.Equal(t, uint64(0x010203), rf.Value(1))
}

func TestGetModuleConfiguration(t *testing.T) {
	dev, _, _ := newTestDevice(t)
	dev.Set(PLLMult, 0x14)
	conf := dev.GetModuleConfiguration()
	require.Contains(t, conf, "REG cr             [0x1e]: 0x00140000")
	require.Contains(t, conf, "REG ftw1           [0x04]: 0x000000000000")
}
