// Package console interprets text commands against the shadow registers of a device.
package console

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mbalug7/go-ad9854/pkg/ad9854"
)

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage")

const help = `commands:
  regs                      print every shadow register
  fields <reg>              list the fields of a register
  get <reg>[.<field>]       print a shadow value
  set <reg>[.<field>] <v>   change a shadow value, no bus access
  read <reg> [count]        read registers from the chip
  write <reg>               write the shadow of a register to the chip
  cmd <name>                send a standalone command
  sync                      pulse the I/O update line
  wait [timeout]            wait for data ready
  data                      read the conversion word
  help                      this text`

type Console struct {
	dev *ad9854.Device
}

func New(dev *ad9854.Device) *Console {
	return &Console{dev: dev}
}

// Exec runs one command line and returns its output.
func (obj *Console) Exec(line string) (string, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return "", nil
	}
	switch args[0] {
	case "help", "?":
		return help, nil
	case "regs":
		return strings.TrimPrefix(obj.dev.GetModuleConfiguration(), "\n"), nil
	case "fields":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: fields <reg>", ErrUsage)
		}
		return obj.fields(args[1])
	case "get":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: get <reg>[.<field>]", ErrUsage)
		}
		return obj.get(args[1])
	case "set":
		if len(args) != 3 {
			return "", fmt.Errorf("%w: set <reg>[.<field>] <value>", ErrUsage)
		}
		return obj.set(args[1], args[2])
	case "read":
		return obj.read(args[1:])
	case "write":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: write <reg>", ErrUsage)
		}
		id, err := obj.register(args[1])
		if err != nil {
			return "", err
		}
		err = obj.dev.UpdateRegister(id)
		if err != nil {
			return "", err
		}
		return obj.get(args[1])
	case "cmd":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: cmd <%s>", ErrUsage, strings.Join(commandNames(), "|"))
		}
		cmd, ok := ad9854.Commands[strings.ToLower(args[1])]
		if !ok {
			return "", fmt.Errorf("unknown command %q", args[1])
		}
		return "", obj.dev.SendCommand(cmd)
	case "sync":
		return "", obj.dev.PulseSync()
	case "wait":
		timeout := time.Second
		if len(args) > 1 {
			var err error
			timeout, err = time.ParseDuration(args[1])
			if err != nil {
				return "", fmt.Errorf("%w: wait [timeout]: %v", ErrUsage, err)
			}
		}
		return "", obj.dev.WaitReady(timeout)
	case "data":
		v, err := obj.dev.ReadData()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("0x%06x", v), nil
	}
	return "", fmt.Errorf("unknown command %q, try help", args[0])
}

func (obj *Console) register(name string) (ad9854.RegisterID, error) {
	id, ok := obj.dev.Registers().Lookup(name)
	if !ok {
		return 0, fmt.Errorf("unknown register %q", name)
	}
	return id, nil
}

// target resolves "reg" or "reg.field".
func (obj *Console) target(name string) (ad9854.RegisterID, *ad9854.Field, error) {
	regName, fieldName, hasField := strings.Cut(name, ".")
	id, err := obj.register(regName)
	if err != nil {
		return 0, nil, err
	}
	if !hasField {
		return id, nil, nil
	}
	f, ok := obj.dev.Registers().LookupField(id, fieldName)
	if !ok {
		return 0, nil, fmt.Errorf("unknown field %q of register %q", fieldName, regName)
	}
	return id, &f, nil
}

func (obj *Console) get(name string) (string, error) {
	id, f, err := obj.target(name)
	if err != nil {
		return "", err
	}
	rf := obj.dev.Registers()
	if f != nil {
		v := rf.Get(*f)
		return fmt.Sprintf("%s = %d (0x%x)", name, v, v), nil
	}
	reg := rf.Register(id)
	return fmt.Sprintf("%s = 0x%0*x", reg.Name, 2*reg.Size, reg.Value), nil
}

func (obj *Console) set(name, value string) (string, error) {
	v, err := strconv.ParseUint(value, 0, 64)
	if err != nil {
		return "", fmt.Errorf("invalid value %q: %w", value, err)
	}
	id, f, err := obj.target(name)
	if err != nil {
		return "", err
	}
	rf := obj.dev.Registers()
	if f != nil {
		rf.Set(*f, v)
	} else {
		rf.SetValue(id, v)
	}
	return obj.get(name)
}

func (obj *Console) read(args []string) (string, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", fmt.Errorf("%w: read <reg> [count]", ErrUsage)
	}
	id, err := obj.register(args[0])
	if err != nil {
		return "", err
	}
	count := 1
	if len(args) == 2 {
		count, err = strconv.Atoi(args[1])
		if err != nil {
			return "", fmt.Errorf("invalid count %q: %w", args[1], err)
		}
	}
	err = obj.dev.ReadRegisters(id, count)
	if err != nil {
		return "", err
	}
	rf := obj.dev.Registers()
	var out []string
	for i := 0; i < count; i++ {
		reg := rf.Register(id + ad9854.RegisterID(i))
		out = append(out, fmt.Sprintf("%s = 0x%0*x", reg.Name, 2*reg.Size, reg.Value))
	}
	return strings.Join(out, "\n"), nil
}

func (obj *Console) fields(name string) (string, error) {
	id, err := obj.register(name)
	if err != nil {
		return "", err
	}
	rf := obj.dev.Registers()
	var out []string
	for _, f := range rf.FieldsOf(id) {
		out = append(out, fmt.Sprintf("%-12s bits %2d..%-2d = %d", f.Name, f.Offset, int(f.Offset)+int(f.Bits)-1, rf.Get(f)))
	}
	return strings.Join(out, "\n"), nil
}

func commandNames() []string {
	names := make([]string, 0, len(ad9854.Commands))
	for name := range ad9854.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
