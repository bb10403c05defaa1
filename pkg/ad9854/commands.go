package ad9854

import "github.com/mbalug7/go-ad9854/pkg/hal"

// Command is a byte sent to the device on its own or combined with a register address.
type Command byte

const (
	CMD_NOP    Command = 0x00
	CMD_WAKEUP Command = 0x02
	CMD_PWRDWN Command = 0x04
	CMD_RESET  Command = 0x06
	CMD_START  Command = 0x08
	CMD_STOP   Command = 0x0a
	CMD_RDATA  Command = 0x12
	CMD_SYOCAL Command = 0x16 // system offset calibration
	CMD_SYGCAL Command = 0x17 // system gain calibration
	CMD_SFOCAL Command = 0x19 // self offset calibration
	CMD_RREG   Command = 0x20 // | register address
	CMD_WREG   Command = 0x40 // | register address
)

// Commands maps the standalone commands to their names.
var Commands = map[string]Command{
	"nop":    CMD_NOP,
	"wakeup": CMD_WAKEUP,
	"pwrdwn": CMD_PWRDWN,
	"reset":  CMD_RESET,
	"start":  CMD_START,
	"stop":   CMD_STOP,
	"rdata":  CMD_RDATA,
	"syocal": CMD_SYOCAL,
	"sygcal": CMD_SYGCAL,
	"sfocal": CMD_SFOCAL,
}

func readCommand(addr hal.RegAddress) byte {
	return byte(CMD_RREG) | addr.ToByte()
}

func writeCommand(addr hal.RegAddress) byte {
	return byte(CMD_WREG) | addr.ToByte()
}

func (obj *Device) Wakeup() error {
	return obj.SendCommand(CMD_WAKEUP)
}

func (obj *Device) PowerDown() error {
	return obj.SendCommand(CMD_PWRDWN)
}

// Reset issues the reset command. See HardReset for the reset line.
func (obj *Device) Reset() error {
	return obj.SendCommand(CMD_RESET)
}

func (obj *Device) Start() error {
	return obj.SendCommand(CMD_START)
}

func (obj *Device) Stop() error {
	return obj.SendCommand(CMD_STOP)
}

func (obj *Device) SystemOffsetCalibration() error {
	return obj.SendCommand(CMD_SYOCAL)
}

func (obj *Device) SystemGainCalibration() error {
	return obj.SendCommand(CMD_SYGCAL)
}

func (obj *Device) SelfOffsetCalibration() error {
	return obj.SendCommand(CMD_SFOCAL)
}
