package channelid

import (
	"errors"
	"fmt"

	"github.com/next-exp/oaevent_go/pkg/logger"
)

// ChannelId is the packed address of an electronics readout channel.
// Bit 31 is the guard bit, bits 30-25 hold the sub-detector and bits 24-0
// are laid out by the sub-detector views.
type ChannelId uint32

type SubDetector int

const (
	MC SubDetector = iota + 1
	TPC
	FGD
	P0D
	ECal
	SMRD
	INGRID
	PDS
	MaxDetector
)

const (
	GuardBitMSB = 31
	GuardBitLSB = 31
	SubDetMSB   = 30
	SubDetLSB   = 25
	PayloadMSB  = 24
	PayloadLSB  = 0
)

var subDetectorNames = map[SubDetector]string{
	MC:     "MC",
	TPC:    "TPC",
	FGD:    "FGD",
	P0D:    "P0D",
	ECal:   "ECal",
	SMRD:   "SMRD",
	INGRID: "INGRID",
	PDS:    "PDS",
}

func (d SubDetector) Valid() bool {
	return d >= MC && d < MaxDetector
}

func (d SubDetector) String() string {
	if name, ok := subDetectorNames[d]; ok {
		return name
	}
	return "NV"
}

var ErrFieldRange = errors.New("invalid channel id field range")

// FieldError is returned when a bit range is malformed.
type FieldError struct {
	MSB int
	LSB int
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: MSB %d LSB %d", ErrFieldRange, e.MSB, e.LSB)
}

func (e *FieldError) Unwrap() error {
	return ErrFieldRange
}

func checkRange(msb, lsb int) error {
	if lsb > msb || lsb < 0 || msb > 31 {
		return &FieldError{MSB: msb, LSB: lsb}
	}
	return nil
}

func (c ChannelId) GetField(msb, lsb int) (uint32, error) {
	if err := checkRange(msb, lsb); err != nil {
		return 0, err
	}
	mask := uint64(1)<<uint(msb-lsb+1) - 1
	return uint32((uint64(c) >> uint(lsb)) & mask), nil
}

// SetField stores val in bits [lsb,msb]. Values that do not fit the field
// are logged and leave the id untouched.
func (c *ChannelId) SetField(val int, msb, lsb int) error {
	if err := checkRange(msb, lsb); err != nil {
		return err
	}
	width := uint(msb - lsb + 1)
	maxValue := int64(1) << width
	if int64(val) >= maxValue {
		logger.Warn(fmt.Sprintf("Channel id value out of range %d. Bits in field %d. Maximum value %d",
			val, width, maxValue), "channelid")
		return nil
	}
	if val < 0 {
		logger.Warn(fmt.Sprintf("Channel id value out of range %d. Negative values are not allowed", val), "channelid")
		return nil
	}
	mask := (uint64(1)<<width - 1) << uint(lsb)
	v := uint64(*c) &^ mask
	v |= (uint64(val) << uint(lsb)) & mask
	*c = ChannelId(uint32(v))
	return nil
}

// field and setField are used with the constant layouts below, which are
// always well formed.
func (c ChannelId) field(msb, lsb int) int {
	v, _ := c.GetField(msb, lsb)
	return int(v)
}

func (c *ChannelId) setField(val int, msb, lsb int) {
	_ = c.SetField(val, msb, lsb)
}

func (c *ChannelId) SetGuardBit() {
	c.setField(1, GuardBitMSB, GuardBitLSB)
}

func (c ChannelId) SubDetector() SubDetector {
	return SubDetector(c.field(SubDetMSB, SubDetLSB))
}

func (c *ChannelId) SetSubDetector(det SubDetector) {
	if !det.Valid() {
		logger.Error(fmt.Sprintf("Setting invalid sub-detector value: %d", det))
	}
	c.setField(int(det), SubDetMSB, SubDetLSB)
}

func (c ChannelId) IsValid() bool {
	if c.field(GuardBitMSB, GuardBitLSB) == 0 {
		return false
	}
	return c.SubDetector().Valid()
}

func (c ChannelId) IsMCChannel() bool {
	return c.SubDetector() == MC
}

func (c ChannelId) AsInt() uint32 {
	return uint32(c)
}

// View is a sub-detector specific reading of the same channel bits.
type View interface {
	ChannelId() ChannelId
	AsString() string
}

// View returns the reinterpretation selected by the sub-detector code, or
// nil when the code has no dedicated layout.
func (c ChannelId) View() View {
	if c.field(GuardBitMSB, GuardBitLSB) == 0 {
		return nil
	}
	switch c.SubDetector() {
	case MC:
		return MCChannelId{c}
	case TPC:
		return TPCChannelId{c}
	case FGD:
		return FGDChannelId{c}
	case P0D, ECal, SMRD, INGRID:
		return TFBChannelId{c}
	case PDS:
		return PDSChannelId{c}
	}
	return nil
}

func (c ChannelId) AsString() string {
	if view := c.View(); view != nil {
		return view.AsString()
	}
	return c.baseString()
}

func (c ChannelId) baseString() string {
	det := "NV"
	if c.IsValid() {
		det = c.SubDetector().String()
	}
	return fmt.Sprintf("%7s-0x%08x", det, uint32(c))
}

func (c ChannelId) String() string {
	return c.AsString()
}
