package channelid

import "fmt"

const (
	mcTypeMSB     = 24
	mcTypeLSB     = 20
	mcSequenceMSB = 19
	mcSequenceLSB = 12
	mcNumberMSB   = 11
	mcNumberLSB   = 0
)

// MCChannelId is the channel address produced by the detector simulation.
type MCChannelId struct {
	id ChannelId
}

func NewMCChannelId(channelType, sequence, number int) MCChannelId {
	var m MCChannelId
	m.id.SetGuardBit()
	m.id.SetSubDetector(MC)
	m.SetType(channelType)
	m.SetSequence(sequence)
	m.SetNumber(number)
	return m
}

func AsMC(c ChannelId) (MCChannelId, bool) {
	if c.SubDetector() != MC {
		return MCChannelId{}, false
	}
	return MCChannelId{c}, true
}

func (m MCChannelId) ChannelId() ChannelId { return m.id }
func (m MCChannelId) Type() int            { return m.id.field(mcTypeMSB, mcTypeLSB) }
func (m MCChannelId) Sequence() int        { return m.id.field(mcSequenceMSB, mcSequenceLSB) }
func (m MCChannelId) Number() int          { return m.id.field(mcNumberMSB, mcNumberLSB) }
func (m *MCChannelId) SetType(v int)       { m.id.setField(v, mcTypeMSB, mcTypeLSB) }
func (m *MCChannelId) SetSequence(v int)   { m.id.setField(v, mcSequenceMSB, mcSequenceLSB) }
func (m *MCChannelId) SetNumber(v int)     { m.id.setField(v, mcNumberMSB, mcNumberLSB) }

func (m MCChannelId) AsString() string {
	return fmt.Sprintf("%7s:%02d:%03d:%04d", m.id.SubDetector(), m.Type(), m.Sequence(), m.Number())
}
