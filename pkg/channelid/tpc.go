package channelid

import "fmt"

const (
	tpcCrateMSB = 15
	tpcCrateLSB = 12
	tpcFEMMSB   = 11
	tpcFEMLSB   = 7
	tpcChanMSB  = 6
	tpcChanLSB  = 0
)

// TPCChannelId addresses a TPC front end module channel.
type TPCChannelId struct {
	id ChannelId
}

func NewTPCChannelId(crate, fem, channel int) TPCChannelId {
	var t TPCChannelId
	t.id.SetGuardBit()
	t.id.SetSubDetector(TPC)
	t.SetCrate(crate)
	t.SetFEM(fem)
	t.SetChannel(channel)
	return t
}

func AsTPC(c ChannelId) (TPCChannelId, bool) {
	if c.SubDetector() != TPC {
		return TPCChannelId{}, false
	}
	return TPCChannelId{c}, true
}

func (t TPCChannelId) ChannelId() ChannelId { return t.id }
func (t TPCChannelId) Crate() int           { return t.id.field(tpcCrateMSB, tpcCrateLSB) }
func (t TPCChannelId) FEM() int             { return t.id.field(tpcFEMMSB, tpcFEMLSB) }
func (t TPCChannelId) Channel() int         { return t.id.field(tpcChanMSB, tpcChanLSB) }
func (t *TPCChannelId) SetCrate(v int)      { t.id.setField(v, tpcCrateMSB, tpcCrateLSB) }
func (t *TPCChannelId) SetFEM(v int)        { t.id.setField(v, tpcFEMMSB, tpcFEMLSB) }
func (t *TPCChannelId) SetChannel(v int)    { t.id.setField(v, tpcChanMSB, tpcChanLSB) }

func (t TPCChannelId) AsString() string {
	return fmt.Sprintf("%7s:%02d:%02d:%02d", t.id.SubDetector(), t.Crate(), t.FEM(), t.Channel())
}

// PDSChannelId addresses a digitizer channel of the photon detection
// system. It shares the TPC field layout.
type PDSChannelId struct {
	id ChannelId
}

func NewPDSChannelId(crate, digitizer, channel int) PDSChannelId {
	var p PDSChannelId
	p.id.SetGuardBit()
	p.id.SetSubDetector(PDS)
	p.SetCrate(crate)
	p.SetDigitizer(digitizer)
	p.SetChannel(channel)
	return p
}

func AsPDS(c ChannelId) (PDSChannelId, bool) {
	if c.SubDetector() != PDS {
		return PDSChannelId{}, false
	}
	return PDSChannelId{c}, true
}

func (p PDSChannelId) ChannelId() ChannelId { return p.id }
func (p PDSChannelId) Crate() int           { return p.id.field(tpcCrateMSB, tpcCrateLSB) }
func (p PDSChannelId) Digitizer() int       { return p.id.field(tpcFEMMSB, tpcFEMLSB) }
func (p PDSChannelId) Channel() int         { return p.id.field(tpcChanMSB, tpcChanLSB) }
func (p *PDSChannelId) SetCrate(v int)      { p.id.setField(v, tpcCrateMSB, tpcCrateLSB) }
func (p *PDSChannelId) SetDigitizer(v int)  { p.id.setField(v, tpcFEMMSB, tpcFEMLSB) }
func (p *PDSChannelId) SetChannel(v int)    { p.id.setField(v, tpcChanMSB, tpcChanLSB) }

func (p PDSChannelId) AsString() string {
	return fmt.Sprintf("%3s:%02d:%02d:%02d", p.id.SubDetector(), p.Crate(), p.Digitizer(), p.Channel())
}
