package ad9854

import (
	"fmt"
	"strings"

	"github.com/mbalug7/go-ad9854/pkg/hal"
)

// RegisterID is a stable handle of a register inside a RegisterFile.
// Consecutive ids are transferred together in a burst.
type RegisterID int

const (
	PAR1 RegisterID = iota // phase adjust register 1
	PAR2                   // phase adjust register 2
	FTW1                   // frequency tuning word 1
	FTW2                   // frequency tuning word 2
	DFW                    // delta frequency word
	UPDATE_CLK             // update clock
	RAMP_RATE_CLK          // ramp rate clock
	CR                     // control register
	OSK_I_MULT             // output shaped keying I multiplier
	OSK_Q_MULT             // output shaped keying Q multiplier
	OSK_RAMP_RATE          // output shaped keying ramp rate
	QDAC                   // control DAC
)

// Register is the shadow of one hardware register.
type Register struct {
	Name    string
	Address hal.RegAddress
	Size    int    // bytes on the wire
	Value   uint64 // never wider than Size*8 bits
}

// Mask returns the bits a register of this size can hold.
func (obj *Register) Mask() uint64 {
	if obj.Size >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (8 * uint(obj.Size))) - 1
}

// Field is a contiguous bit range inside one register.
type Field struct {
	Name   string
	Reg    RegisterID
	Bits   uint8
	Offset uint8
}

func (f Field) mask() uint64 {
	if f.Bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << f.Bits) - 1
}

// control register fields
var (
	CompPwd    = Field{Name: "comp_pwd", Reg: CR, Bits: 1, Offset: 28}
	QDACPwd    = Field{Name: "qdac_pwd", Reg: CR, Bits: 1, Offset: 26}
	DACPwd     = Field{Name: "dac_pwd", Reg: CR, Bits: 1, Offset: 25}
	DigPwd     = Field{Name: "dig_pwd", Reg: CR, Bits: 1, Offset: 24}
	PLLRange   = Field{Name: "pll_range", Reg: CR, Bits: 1, Offset: 22}
	PLLBypass  = Field{Name: "pll_bypass", Reg: CR, Bits: 1, Offset: 21}
	PLLMult    = Field{Name: "pll_mult", Reg: CR, Bits: 5, Offset: 16}
	ClrAcc1    = Field{Name: "clr_acc1", Reg: CR, Bits: 1, Offset: 15}
	ClrAcc2    = Field{Name: "clr_acc2", Reg: CR, Bits: 1, Offset: 14}
	Triangle   = Field{Name: "triangle", Reg: CR, Bits: 1, Offset: 13}
	SrcQDAC    = Field{Name: "src_qdac", Reg: CR, Bits: 1, Offset: 12}
	Mode       = Field{Name: "mode", Reg: CR, Bits: 3, Offset: 9}
	UpdClk     = Field{Name: "updclk", Reg: CR, Bits: 1, Offset: 8}
	InvSincByp = Field{Name: "invsinc_byp", Reg: CR, Bits: 1, Offset: 6}
	OSKEn      = Field{Name: "osk_en", Reg: CR, Bits: 1, Offset: 5}
	OSKInt     = Field{Name: "osk_int", Reg: CR, Bits: 1, Offset: 4}
	LSBFirst   = Field{Name: "lsb_first", Reg: CR, Bits: 1, Offset: 1}
	SDO        = Field{Name: "sdo_cr", Reg: CR, Bits: 1, Offset: 0}
)

// value fields of the data registers
var (
	Phase1       = Field{Name: "phase", Reg: PAR1, Bits: 14}
	Phase2       = Field{Name: "phase", Reg: PAR2, Bits: 14}
	Frequency1   = Field{Name: "word", Reg: FTW1, Bits: 48}
	Frequency2   = Field{Name: "word", Reg: FTW2, Bits: 48}
	DeltaFreq    = Field{Name: "word", Reg: DFW, Bits: 48}
	UpdateClock  = Field{Name: "count", Reg: UPDATE_CLK, Bits: 32}
	RampRate     = Field{Name: "count", Reg: RAMP_RATE_CLK, Bits: 20}
	OSKIMult     = Field{Name: "mult", Reg: OSK_I_MULT, Bits: 12}
	OSKQMult     = Field{Name: "mult", Reg: OSK_Q_MULT, Bits: 12}
	OSKRampCount = Field{Name: "rate", Reg: OSK_RAMP_RATE, Bits: 8}
	QDACValue    = Field{Name: "value", Reg: QDAC, Bits: 12}
)

// Fields lists every named field of the part.
var Fields = []Field{
	Phase1, Phase2, Frequency1, Frequency2, DeltaFreq, UpdateClock, RampRate,
	CompPwd, QDACPwd, DACPwd, DigPwd, PLLRange, PLLBypass, PLLMult,
	ClrAcc1, ClrAcc2, Triangle, SrcQDAC, Mode, UpdClk, InvSincByp,
	OSKEn, OSKInt, LSBFirst, SDO,
	OSKIMult, OSKQMult, OSKRampCount, QDACValue,
}

type operatingMode uint8

// values of the Mode field
const (
	MODE_SINGLE_TONE operatingMode = iota
	MODE_FSK
	MODE_RAMPED_FSK
	MODE_CHIRP
	MODE_BPSK
)

// DefaultRegisters returns the register table of the part with zeroed shadows.
func DefaultRegisters() []Register {
	return []Register{
		{Name: "par1", Address: 0x00, Size: 2},
		{Name: "par2", Address: 0x02, Size: 2},
		{Name: "ftw1", Address: 0x04, Size: 6},
		{Name: "ftw2", Address: 0x0A, Size: 6},
		{Name: "dfw", Address: 0x10, Size: 6},
		{Name: "update_clk", Address: 0x16, Size: 4},
		{Name: "ramp_rate_clk", Address: 0x1A, Size: 3},
		{Name: "cr", Address: 0x1E, Size: 4},
		{Name: "osk_i_mult", Address: 0x21, Size: 2},
		{Name: "osk_q_mult", Address: 0x23, Size: 2},
		{Name: "osk_ramp_rate", Address: 0x25, Size: 1},
		{Name: "qdac", Address: 0x26, Size: 2},
	}
}

// RegisterFile holds the shadow of every register of one device.
// It is not safe for concurrent use.
type RegisterFile struct {
	regs   []Register
	fields []Field
}

// NewRegisterFile builds a register file from a register table and its fields.
func NewRegisterFile(regs []Register, fields []Field) (*RegisterFile, error) {
	rf := &RegisterFile{
		regs:   make([]Register, len(regs)),
		fields: make([]Field, len(fields)),
	}
	copy(rf.regs, regs)
	copy(rf.fields, fields)
	for i := range rf.regs {
		reg := &rf.regs[i]
		if reg.Size < 1 || reg.Size > 8 {
			return nil, fmt.Errorf("register %q has invalid size %d: %w", reg.Name, reg.Size, ErrOutOfRange)
		}
		reg.Value &= reg.Mask()
	}
	for _, f := range rf.fields {
		err := rf.CheckField(f)
		if err != nil {
			return nil, err
		}
	}
	return rf, nil
}

// NewAD9854Registers returns the register file of the AD9854.
func NewAD9854Registers() *RegisterFile {
	rf, err := NewRegisterFile(DefaultRegisters(), Fields)
	if err != nil {
		panic(err)
	}
	return rf
}

// Len returns the number of registers.
func (rf *RegisterFile) Len() int {
	return len(rf.regs)
}

// Register returns a copy of the register with the given id.
func (rf *RegisterFile) Register(id RegisterID) Register {
	return *rf.reg(id)
}

func (rf *RegisterFile) reg(id RegisterID) *Register {
	if !rf.has(id) {
		panic(fmt.Errorf("register id %d: %w", id, ErrOutOfRange))
	}
	return &rf.regs[id]
}

func (rf *RegisterFile) has(id RegisterID) bool {
	return id >= 0 && int(id) < len(rf.regs)
}

// CheckField reports whether f fits inside its register.
func (rf *RegisterFile) CheckField(f Field) error {
	if !rf.has(f.Reg) {
		return fmt.Errorf("field %q references unknown register %d: %w", f.Name, f.Reg, ErrOutOfRange)
	}
	reg := &rf.regs[f.Reg]
	if f.Bits == 0 || int(f.Offset)+int(f.Bits) > reg.Size*8 {
		return fmt.Errorf("field %q [%d+%d] does not fit register %q (%d bits): %w",
			f.Name, f.Offset, f.Bits, reg.Name, reg.Size*8, ErrOutOfRange)
	}
	return nil
}

// checkRange validates a run of count registers starting at start.
func (rf *RegisterFile) checkRange(start RegisterID, count int) error {
	if count < 0 || !rf.has(start) || int(start)+count > len(rf.regs) {
		return fmt.Errorf("burst of %d registers from %d exceeds register file of %d: %w",
			count, start, len(rf.regs), ErrOutOfRange)
	}
	return nil
}

// Value returns the shadow value of a register.
func (rf *RegisterFile) Value(id RegisterID) uint64 {
	return rf.reg(id).Value
}

// SetValue overwrites the shadow value of a register, truncated to its size.
func (rf *RegisterFile) SetValue(id RegisterID, v uint64) {
	reg := rf.reg(id)
	reg.Value = v & reg.Mask()
}

// Get extracts a field from the shadow of its register.
func (rf *RegisterFile) Get(f Field) uint64 {
	return (rf.reg(f.Reg).Value >> f.Offset) & f.mask()
}

// Set replaces the bits of a field in the shadow of its register.
// Values wider than the field are truncated.
func (rf *RegisterFile) Set(f Field, v uint64) {
	reg := rf.reg(f.Reg)
	mask := f.mask()
	// clear affected bits
	reg.Value &^= mask << f.Offset
	// set affected bits
	reg.Value |= (v & mask) << f.Offset
	reg.Value &= reg.Mask()
}

// Bytes returns the on-wire payload of a register, most significant byte first.
func (rf *RegisterFile) Bytes(id RegisterID) []byte {
	reg := rf.reg(id)
	buf := make([]byte, reg.Size)
	putValue(buf, reg.Value)
	return buf
}

// payloadSize returns the number of bytes a burst of count registers takes.
func (rf *RegisterFile) payloadSize(start RegisterID, count int) int {
	n := 0
	for i := 0; i < count; i++ {
		n += rf.regs[int(start)+i].Size
	}
	return n
}

// load parses a concatenated burst payload into the shadows.
func (rf *RegisterFile) load(start RegisterID, count int, data []byte) {
	pos := 0
	for i := 0; i < count; i++ {
		reg := &rf.regs[int(start)+i]
		reg.Value = value(data[pos:pos+reg.Size]) & reg.Mask()
		pos += reg.Size
	}
}

// Lookup finds a register by name.
func (rf *RegisterFile) Lookup(name string) (RegisterID, bool) {
	for i := range rf.regs {
		if strings.EqualFold(rf.regs[i].Name, name) {
			return RegisterID(i), true
		}
	}
	return 0, false
}

// LookupField finds a field of register id by name.
func (rf *RegisterFile) LookupField(id RegisterID, name string) (Field, bool) {
	for _, f := range rf.fields {
		if f.Reg == id && strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// FieldsOf returns the fields that live in the given register.
func (rf *RegisterFile) FieldsOf(id RegisterID) []Field {
	var out []Field
	for _, f := range rf.fields {
		if f.Reg == id {
			out = append(out, f)
		}
	}
	return out
}

// Copy returns an independent copy of the register file.
func (rf *RegisterFile) Copy() *RegisterFile {
	cp := &RegisterFile{
		regs:   make([]Register, len(rf.regs)),
		fields: rf.fields,
	}
	copy(cp.regs, rf.regs)
	return cp
}

// EqualTo reports whether both files hold the same shadow values.
func (rf *RegisterFile) EqualTo(other *RegisterFile) bool {
	if len(rf.regs) != len(other.regs) {
		return false
	}
	for i := range rf.regs {
		if rf.regs[i] != other.regs[i] {
			return false
		}
	}
	return true
}

func (rf *RegisterFile) String() string {
	var conf string
	for _, reg := range rf.regs {
		conf = conf + fmt.Sprintf("\nREG %-14s [0x%02x]: 0x%0*x", reg.Name, reg.Address.ToByte(), 2*reg.Size, reg.Value)
	}
	return conf
}

func putValue(buf []byte, v uint64) {
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
}

func value(buf []byte) uint64 {
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v
}
