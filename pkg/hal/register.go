package hal

// RegAddress is the location of a register in the device address space.
type RegAddress uint8

func (a RegAddress) ToByte() byte {
	return byte(a)
}
