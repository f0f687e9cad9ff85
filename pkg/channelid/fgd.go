package channelid

import "fmt"

const (
	fgdReservedMSB  = 24
	fgdReservedLSB  = 16
	fgdMinicrateMSB = 15
	fgdMinicrateLSB = 10
	fgdFEBMSB       = 9
	fgdFEBLSB       = 8
	fgdAfterMSB     = 7
	fgdAfterLSB     = 7
	fgdAfterChanMSB = 6
	fgdAfterChanLSB = 0
)

const (
	fgdChannelsPerAsic = 82
	fgdChannelsPerFeb  = 64
)

// FEB channel and attenuation for every AFTER ASIC channel, -1 when the
// ASIC channel is not connected.
var fgdAsicFebChannel = [2][fgdChannelsPerAsic]int{
	{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, 0, 0, 1, 1, -1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, -1, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13, 14, 14, 15, 15, 16, 16, 17, 17, 18, 18, 19, 19, -1, 20, 20, 21, 21, 22, 22, 23, 23, 24, 24, 25, 25, -1, 26, 26, 27, 27, 28, 28, 29, 29, 30, 30, 31, 31, -1, -1, -1},
	{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, 32, 32, 33, 33, -1, 34, 34, 35, 35, 36, 36, 37, 37, 38, 38, 39, 39, -1, 40, 40, 41, 41, 42, 42, 43, 43, 44, 44, 45, 45, 46, 46, 47, 47, 48, 48, 49, 49, 50, 50, 51, 51, -1, 52, 52, 53, 53, 54, 54, 55, 55, 56, 56, 57, 57, -1, 58, 58, 59, 59, 60, 60, 61, 61, 62, 62, 63, 63, -1, -1, -1},
}

var fgdAsicAttenuation = [2][fgdChannelsPerAsic]int{
	{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, 0, 1, 0, 1, -1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, -1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, -1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, -1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, -1, -1, -1},
	{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, 0, 1, 0, 1, -1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, -1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, -1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, -1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, -1, -1, -1},
}

var fgdFebAsicChannel = [fgdChannelsPerFeb]int{
	11, 13, 16, 18, 20, 22, 24, 26, 29, 31, 33, 35, 37, 39, 41, 43,
	45, 47, 49, 51, 54, 56, 58, 60, 62, 64, 67, 69, 71, 73, 75, 77,
	11, 13, 16, 18, 20, 22, 24, 26, 29, 31, 33, 35, 37, 39, 41, 43,
	45, 47, 49, 51, 54, 56, 58, 60, 62, 64, 67, 69, 71, 73, 75, 77,
}

// FGDChannelId addresses an AFTER ASIC channel on an FGD front end board.
type FGDChannelId struct {
	id ChannelId
}

func NewFGDChannelId(minicrate, feb, afterChip, afterChannel int) FGDChannelId {
	var f FGDChannelId
	f.id.SetGuardBit()
	f.id.SetSubDetector(FGD)
	f.SetMinicrate(minicrate)
	f.SetFEB(feb)
	f.SetAfterChip(afterChip)
	f.SetChannel(afterChannel)
	return f
}

// NewFGDChannelIdFromFeb builds the id from a FEB channel number, mapping
// it onto the ASIC and ASIC channel that read it out.
func NewFGDChannelIdFromFeb(minicrate, feb, febChannel int) FGDChannelId {
	chip, channel := 0, 0
	if febChannel >= 0 && febChannel < fgdChannelsPerFeb {
		chip = febChannel / (fgdChannelsPerFeb / 2)
		channel = fgdFebAsicChannel[febChannel]
	}
	return NewFGDChannelId(minicrate, feb, chip, channel)
}

// AsFGD returns the FGD view when c carries the FGD sub-detector code.
func AsFGD(c ChannelId) (FGDChannelId, bool) {
	if c.SubDetector() != FGD {
		return FGDChannelId{}, false
	}
	return FGDChannelId{c}, true
}

func (f FGDChannelId) ChannelId() ChannelId { return f.id }

func (f FGDChannelId) Minicrate() int      { return f.id.field(fgdMinicrateMSB, fgdMinicrateLSB) }
func (f FGDChannelId) FEB() int            { return f.id.field(fgdFEBMSB, fgdFEBLSB) }
func (f FGDChannelId) AfterChip() int      { return f.id.field(fgdAfterMSB, fgdAfterLSB) }
func (f FGDChannelId) Channel() int        { return f.id.field(fgdAfterChanMSB, fgdAfterChanLSB) }
func (f *FGDChannelId) SetMinicrate(v int) { f.id.setField(v, fgdMinicrateMSB, fgdMinicrateLSB) }
func (f *FGDChannelId) SetFEB(v int)       { f.id.setField(v, fgdFEBMSB, fgdFEBLSB) }
func (f *FGDChannelId) SetAfterChip(v int) { f.id.setField(v, fgdAfterMSB, fgdAfterLSB) }
func (f *FGDChannelId) SetChannel(v int)   { f.id.setField(v, fgdAfterChanMSB, fgdAfterChanLSB) }

// FebChannel returns the FEB channel read by this ASIC channel, or -1.
func (f FGDChannelId) FebChannel() int {
	chip, ch := f.AfterChip(), f.Channel()
	if (chip == 0 || chip == 1) && ch < fgdChannelsPerAsic {
		return fgdAsicFebChannel[chip][ch]
	}
	return -1
}

// FebChannelAttenuation returns 0 for the high gain and 1 for the
// attenuated ASIC channel of a FEB channel, or -1.
func (f FGDChannelId) FebChannelAttenuation() int {
	chip, ch := f.AfterChip(), f.Channel()
	if (chip == 0 || chip == 1) && ch < fgdChannelsPerAsic {
		return fgdAsicAttenuation[chip][ch]
	}
	return -1
}

func (f FGDChannelId) AsString() string {
	s := fmt.Sprintf("%7s: FGD:%02d:%01d:%01d:%02d",
		f.id.SubDetector(), f.Minicrate(), f.FEB(), f.AfterChip(), f.Channel())
	if febCh := f.FebChannel(); febCh >= 0 {
		s += fmt.Sprintf(" (FEB CH=%02d, ATT=%01d)", febCh, f.FebChannelAttenuation())
	}
	return s
}
