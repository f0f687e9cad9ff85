package channelid

import "fmt"

const (
	tfbReserved1MSB    = 24
	tfbReserved1LSB    = 24
	tfbRMMBoardMSB     = 23
	tfbRMMBoardLSB     = 19
	tfbReserved2MSB    = 18
	tfbReserved2LSB    = 18
	tfbPortMSB         = 17
	tfbPortLSB         = 12
	tfbCapacitorMSB    = 11
	tfbCapacitorLSB    = 7
	tfbTripTMSB        = 6
	tfbTripTLSB        = 5
	tfbTripTChannelMSB = 4
	tfbTripTChannelLSB = 0
)

// IgnoredCapacitor marks an id that refers to every capacitor of a channel.
const IgnoredCapacitor = 24

// Channel number used by the cable level ids.
const ignoredTripTChannel = 18

// TFBChannelId addresses a TripT channel on a Trip-t Front end Board, as
// used by the P0D, ECal, SMRD and INGRID.
type TFBChannelId struct {
	id ChannelId
}

func NewTFBChannelId(subDet SubDetector, rmm, tfb, tripChip, tripChannel, capacitor int) TFBChannelId {
	var t TFBChannelId
	t.id.SetGuardBit()
	t.id.SetSubDetector(subDet)
	t.SetRMM(rmm)
	t.SetTFB(tfb)
	t.SetTripChip(tripChip)
	t.SetChannel(tripChannel)
	t.SetCapacitor(capacitor)
	return t
}

// AsTFB returns the TFB view when c belongs to a TFB read out detector.
func AsTFB(c ChannelId) (TFBChannelId, bool) {
	switch c.SubDetector() {
	case P0D, ECal, SMRD, INGRID:
		return TFBChannelId{c}, true
	}
	return TFBChannelId{}, false
}

func (t TFBChannelId) ChannelId() ChannelId { return t.id }

func (t TFBChannelId) RMM() int            { return t.id.field(tfbRMMBoardMSB, tfbRMMBoardLSB) }
func (t TFBChannelId) TFB() int            { return t.id.field(tfbPortMSB, tfbPortLSB) }
func (t TFBChannelId) Capacitor() int      { return t.id.field(tfbCapacitorMSB, tfbCapacitorLSB) }
func (t TFBChannelId) TripChip() int       { return t.id.field(tfbTripTMSB, tfbTripTLSB) }
func (t TFBChannelId) Channel() int        { return t.id.field(tfbTripTChannelMSB, tfbTripTChannelLSB) }
func (t *TFBChannelId) SetRMM(v int)       { t.id.setField(v, tfbRMMBoardMSB, tfbRMMBoardLSB) }
func (t *TFBChannelId) SetTFB(v int)       { t.id.setField(v, tfbPortMSB, tfbPortLSB) }
func (t *TFBChannelId) SetCapacitor(v int) { t.id.setField(v, tfbCapacitorMSB, tfbCapacitorLSB) }
func (t *TFBChannelId) SetTripChip(v int)  { t.id.setField(v, tfbTripTMSB, tfbTripTLSB) }
func (t *TFBChannelId) SetChannel(v int)   { t.id.setField(v, tfbTripTChannelMSB, tfbTripTChannelLSB) }

func (t TFBChannelId) IgnoreCapacitor() TFBChannelId {
	t.SetCapacitor(IgnoredCapacitor)
	return t
}

func (t TFBChannelId) IgnoreChannel() TFBChannelId {
	t = t.IgnoreCapacitor()
	t.SetChannel(ignoredTripTChannel)
	return t
}

func (t TFBChannelId) IgnoreTripChip() TFBChannelId {
	t = t.IgnoreChannel()
	t.SetTripChip(0)
	return t
}

func (t TFBChannelId) IgnoreTFB() TFBChannelId {
	t = t.IgnoreTripChip()
	t.SetTFB(0)
	return t
}

// CableId identifies the cable regardless of the capacitor.
func (t TFBChannelId) CableId() uint32 {
	return t.IgnoreCapacitor().id.AsInt()
}

func (t TFBChannelId) TripTId() uint32 {
	t.SetChannel(0)
	t.SetCapacitor(0)
	return t.id.AsInt()
}

func (t TFBChannelId) AsString() string {
	trip := 'X'
	switch t.TripChip() {
	case 0:
		trip = 'A'
	case 1:
		trip = 'B'
	case 2:
		trip = 'C'
	case 3:
		trip = 'D'
	}
	capacitor := "--"
	if t.Capacitor() != IgnoredCapacitor {
		capacitor = fmt.Sprintf("%02d", t.Capacitor())
	}
	return fmt.Sprintf("%7s: TFB:%02d:%02d:%2s:%c:%02d",
		t.id.SubDetector(), t.RMM(), t.TFB(), capacitor, trip, t.Channel())
}
