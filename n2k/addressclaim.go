package n2k

import "fmt"

// AddressClaim is PGN 60928 ISO Address Claim. Fields are bitfields of the 64-bit NAME of the node and are not
// scaled.
type AddressClaim struct {
	// UniqueID is 21 bit identity number
	UniqueID uint32
	// Manufacturer is 11 bit manufacturer code
	Manufacturer     uint16
	DeviceInstance   uint8
	DeviceFunction   uint8
	DeviceClass      uint8
	SystemInstance   uint8
	IndustryGroup    uint8
	SelfConfigurable bool
}

func (v *AddressClaim) PGN() uint32 {
	return PGNISOAddressClaim
}

func (v *AddressClaim) Decode(f Frame) error {
	if err := checkFrame(f, PGNISOAddressClaim, 8); err != nil {
		return err
	}
	d := f.Data
	v.UniqueID = d.Uint32(0) & 0x1FFFFF
	v.Manufacturer = d.Uint16(2) >> 5
	v.DeviceInstance = d.Uint8(4)
	v.DeviceFunction = d.Uint8(5)
	v.DeviceClass = (d.Uint8(6) & 0xFE) >> 1 // lowest bit is reserved

	si := d.Uint8(7)
	v.SelfConfigurable = si&0x80 == 0x80
	v.IndustryGroup = (si & 0x70) >> 4
	v.SystemInstance = si & 0x0F
	return nil
}

func (v *AddressClaim) String() string {
	return fmt.Sprintf("Address claim - ID: %08d, Manufacturer: %05d", v.UniqueID, v.Manufacturer)
}
