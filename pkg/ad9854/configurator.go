package ad9854

import "fmt"

// ConfigBuilder stages field values on a copy of the shadow registers
// and writes only the registers that changed.
type ConfigBuilder struct {
	dev             *Device
	stagedRegisters *RegisterFile
}

// NewConfigBuilder constructs ConfigBuilder
func NewConfigBuilder(dev *Device) *ConfigBuilder {
	return &ConfigBuilder{
		dev:             dev,
		stagedRegisters: dev.registers.Copy(), // copy current values
	}
}

// Field stages any field.
func (obj *ConfigBuilder) Field(f Field, v uint64) *ConfigBuilder {
	obj.stagedRegisters.Set(f, v)
	return obj
}

func (obj *ConfigBuilder) flag(f Field, on bool) *ConfigBuilder {
	if on {
		return obj.Field(f, 1)
	}
	return obj.Field(f, 0)
}

// CR params

// PLLMultiplier sets the reference clock multiplier, 4 to 20. Values below 4 bypass the PLL on the chip.
func (obj *ConfigBuilder) PLLMultiplier(mult uint8) *ConfigBuilder {
	return obj.Field(PLLMult, uint64(mult))
}

// PLLRange selects the high VCO range, needed above 200 MHz system clock.
func (obj *ConfigBuilder) PLLRange(high bool) *ConfigBuilder {
	return obj.flag(PLLRange, high)
}

func (obj *ConfigBuilder) PLLBypass(bypass bool) *ConfigBuilder {
	return obj.flag(PLLBypass, bypass)
}

// Mode selects the operating mode.
func (obj *ConfigBuilder) Mode(mode operatingMode) *ConfigBuilder {
	return obj.Field(Mode, uint64(mode))
}

// InternalUpdateClock selects the internal update clock. When disabled,
// writes take effect on the next I/O update pulse.
func (obj *ConfigBuilder) InternalUpdateClock(internal bool) *ConfigBuilder {
	return obj.flag(UpdClk, internal)
}

func (obj *ConfigBuilder) InverseSincBypass(bypass bool) *ConfigBuilder {
	return obj.flag(InvSincByp, bypass)
}

// OSK enables output shaped keying, internally ramped or driven by the multipliers.
func (obj *ConfigBuilder) OSK(enable bool, internal bool) *ConfigBuilder {
	obj.flag(OSKEn, enable)
	return obj.flag(OSKInt, internal)
}

func (obj *ConfigBuilder) Triangle(enable bool) *ConfigBuilder {
	return obj.flag(Triangle, enable)
}

// PowerDown sets the power-down bits of the comparator, the QDAC, the DACs and the digital section.
func (obj *ConfigBuilder) PowerDown(comparator, qdac, dac, digital bool) *ConfigBuilder {
	obj.flag(CompPwd, comparator)
	obj.flag(QDACPwd, qdac)
	obj.flag(DACPwd, dac)
	return obj.flag(DigPwd, digital)
}

// data registers

func (obj *ConfigBuilder) Phase1(phase uint16) *ConfigBuilder {
	return obj.Field(Phase1, uint64(phase))
}

func (obj *ConfigBuilder) Phase2(phase uint16) *ConfigBuilder {
	return obj.Field(Phase2, uint64(phase))
}

// FrequencyTuningWord1 sets the 48 bit tuning word 1.
func (obj *ConfigBuilder) FrequencyTuningWord1(word uint64) *ConfigBuilder {
	return obj.Field(Frequency1, word)
}

func (obj *ConfigBuilder) FrequencyTuningWord2(word uint64) *ConfigBuilder {
	return obj.Field(Frequency2, word)
}

func (obj *ConfigBuilder) DeltaFrequencyWord(word uint64) *ConfigBuilder {
	return obj.Field(DeltaFreq, word)
}

func (obj *ConfigBuilder) UpdateClock(count uint32) *ConfigBuilder {
	return obj.Field(UpdateClock, uint64(count))
}

func (obj *ConfigBuilder) RampRateClock(count uint32) *ConfigBuilder {
	return obj.Field(RampRate, uint64(count))
}

func (obj *ConfigBuilder) OSKMultipliers(i, q uint16) *ConfigBuilder {
	obj.Field(OSKIMult, uint64(i))
	return obj.Field(OSKQMult, uint64(q))
}

func (obj *ConfigBuilder) OSKRampRate(rate uint8) *ConfigBuilder {
	return obj.Field(OSKRampCount, uint64(rate))
}

func (obj *ConfigBuilder) QDAC(v uint16) *ConfigBuilder {
	return obj.Field(QDACValue, uint64(v))
}

// Changed lists the registers whose staged value differs from the device shadow.
func (obj *ConfigBuilder) Changed() []RegisterID {
	var ids []RegisterID
	for i := 0; i < obj.stagedRegisters.Len(); i++ {
		id := RegisterID(i)
		if obj.stagedRegisters.Value(id) != obj.dev.registers.Value(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Write commits the changed registers to the chip, one transaction each.
func (obj *ConfigBuilder) Write() error {
	ids := obj.Changed()
	if len(ids) == 0 {
		obj.dev.msg.Printf("staged registers are the same as the shadow, nothing to write")
		return nil
	}
	for _, id := range ids {
		err := obj.dev.WriteRegister(id, obj.stagedRegisters.Bytes(id))
		if err != nil {
			return fmt.Errorf("failed to write staged register %q: %w", obj.stagedRegisters.Register(id).Name, err)
		}
	}
	return nil
}
