package digits

import (
	"fmt"
	"strings"

	"github.com/next-exp/oaevent_go/pkg/channelid"
)

// Digit is the raw output of one electronics channel.
type Digit interface {
	ChannelId() channelid.ChannelId
	// Samples returns the digitized values in time order.
	Samples() []int
	String() string
}

func formatSamples(samples []int) string {
	parts := make([]string, len(samples))
	for i, s := range samples {
		parts[i] = fmt.Sprint(s)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// FGDDigit is a waveform read out by an AFTER chip.
type FGDDigit struct {
	Channel         channelid.ChannelId
	FirstTimeSample int16
	PulseTime       int16
	PulseCharge     int16
	ADCs            []uint16
	DataType        int16
}

func NewFGDDigit(channel channelid.ChannelId, start, pulseTime, pulseCharge int16, adcs []uint16, dataType int16) *FGDDigit {
	return &FGDDigit{
		Channel:         channel,
		FirstTimeSample: start,
		PulseTime:       pulseTime,
		PulseCharge:     pulseCharge,
		ADCs:            adcs,
		DataType:        dataType,
	}
}

func (d *FGDDigit) ChannelId() channelid.ChannelId { return d.Channel }
func (d *FGDDigit) NumberOfTimeSamples() int       { return len(d.ADCs) }

// ADC returns sample t, or -1 when t is out of range.
func (d *FGDDigit) ADC(t int) int {
	if t < 0 || t >= len(d.ADCs) {
		return -1
	}
	return int(d.ADCs[t])
}

func (d *FGDDigit) Samples() []int {
	out := make([]int, len(d.ADCs))
	for i, a := range d.ADCs {
		out[i] = int(a)
	}
	return out
}

func (d *FGDDigit) String() string {
	return fmt.Sprintf("FGDDigit %s first %d pulse %d/%d type %d %s",
		d.Channel.AsString(), d.FirstTimeSample, d.PulseTime, d.PulseCharge, d.DataType, formatSamples(d.Samples()))
}

const (
	tfbQuadMask          = 0x3
	tfbDiscriminatorMask = 0x4
)

// TFBDigit is a TripT hit: two gains and a time stamp made of a counter
// and a quarter tick.
type TFBDigit struct {
	Channel     channelid.ChannelId
	HighGainADC int16
	LowGainADC  int16
	TimeCounter uint32
	bits        uint8
}

func NewTFBDigit(channel channelid.ChannelId, highGain, lowGain int, counter uint32, quad int, discriminator bool) *TFBDigit {
	d := &TFBDigit{
		Channel:     channel,
		HighGainADC: int16(highGain),
		LowGainADC:  int16(lowGain),
		TimeCounter: counter,
		bits:        uint8(quad) & tfbQuadMask,
	}
	if discriminator {
		d.bits |= tfbDiscriminatorMask
	}
	return d
}

func (d *TFBDigit) ChannelId() channelid.ChannelId { return d.Channel }
func (d *TFBDigit) TimeQuad() uint32               { return uint32(d.bits & tfbQuadMask) }

// TDC is the time in quarter ticks.
func (d *TFBDigit) TDC() uint64 {
	return 4*uint64(d.TimeCounter) + uint64(d.TimeQuad())
}

func (d *TFBDigit) CheckTimeDiscriminator() bool {
	return d.bits&tfbDiscriminatorMask != 0
}

// HasGoodTDC is true when the time discriminator fired.
func (d *TFBDigit) HasGoodTDC() bool {
	return d.CheckTimeDiscriminator()
}

func (d *TFBDigit) Samples() []int {
	return []int{int(d.HighGainADC), int(d.LowGainADC)}
}

func (d *TFBDigit) String() string {
	return fmt.Sprintf("TFBDigit %s high %d low %d tdc %d good %t",
		d.Channel.AsString(), d.HighGainADC, d.LowGainADC, d.TDC(), d.HasGoodTDC())
}

type TPCDigit struct {
	Channel         channelid.ChannelId
	FirstTimeSample int16
	ADCs            []int16
}

func NewTPCDigit(channel channelid.ChannelId, first int16, adcs []int16) *TPCDigit {
	return &TPCDigit{Channel: channel, FirstTimeSample: first, ADCs: adcs}
}

func (d *TPCDigit) ChannelId() channelid.ChannelId { return d.Channel }
func (d *TPCDigit) NumberOfTimeSamples() int       { return len(d.ADCs) }

func (d *TPCDigit) ADC(t int) int {
	if t < 0 || t >= len(d.ADCs) {
		return -1
	}
	return int(d.ADCs[t])
}

func (d *TPCDigit) Samples() []int {
	out := make([]int, len(d.ADCs))
	for i, a := range d.ADCs {
		out[i] = int(a)
	}
	return out
}

func (d *TPCDigit) String() string {
	return fmt.Sprintf("TPCDigit %s first %d %s", d.Channel.AsString(), d.FirstTimeSample, formatSamples(d.Samples()))
}

// PulseDigit is a generic sampled pulse.
type PulseDigit struct {
	Channel     channelid.ChannelId
	FirstSample int
	Values      []uint16
}

func NewPulseDigit(channel channelid.ChannelId, first int, values []uint16) *PulseDigit {
	return &PulseDigit{Channel: channel, FirstSample: first, Values: values}
}

func (d *PulseDigit) ChannelId() channelid.ChannelId { return d.Channel }
func (d *PulseDigit) SampleCount() int               { return len(d.Values) }

// Sample returns value t, or -1 when t is out of range.
func (d *PulseDigit) Sample(t int) int {
	if t < 0 || t >= len(d.Values) {
		return -1
	}
	return int(d.Values[t])
}

func (d *PulseDigit) Samples() []int {
	out := make([]int, len(d.Values))
	for i, v := range d.Values {
		out[i] = int(v)
	}
	return out
}

func (d *PulseDigit) String() string {
	return fmt.Sprintf("PulseDigit %s first %d %s", d.Channel.AsString(), d.FirstSample, formatSamples(d.Samples()))
}
