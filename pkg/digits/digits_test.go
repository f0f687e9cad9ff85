package digits

import (
	"errors"
	"testing"

	"github.com/next-exp/oaevent_go/pkg/channelid"
	"github.com/next-exp/oaevent_go/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tpcChannel(i int) channelid.ChannelId {
	return channelid.NewTPCChannelId(0, 1, i).ChannelId()
}

func tpcContainer(n int) *Container {
	c := NewContainer("tpc")
	for i := 0; i < n; i++ {
		c.Add(NewTPCDigit(tpcChannel(i), 10, []int16{int16(i), 5, 3}))
	}
	return c
}

func TestDigitAccessors(t *testing.T) {
	fgd := NewFGDDigit(channelid.NewFGDChannelId(1, 2, 3, 4).ChannelId(), 7, 20, 300, []uint16{1, 2, 3}, 1)
	assert.Equal(t, 3, fgd.NumberOfTimeSamples())
	assert.Equal(t, 2, fgd.ADC(1))
	assert.Equal(t, -1, fgd.ADC(3))
	assert.Equal(t, -1, fgd.ADC(-1))
	assert.Equal(t, []int{1, 2, 3}, fgd.Samples())

	tfb := NewTFBDigit(channelid.NewTFBChannelId(channelid.P0D, 1, 2, 3, 4, 0).ChannelId(), 100, 10, 25, 3, true)
	assert.Equal(t, uint64(103), tfb.TDC())
	assert.Equal(t, uint32(3), tfb.TimeQuad())
	assert.True(t, tfb.HasGoodTDC())
	assert.Equal(t, []int{100, 10}, tfb.Samples())

	tfb = NewTFBDigit(tfb.ChannelId(), 100, 10, 25, 6, false)
	assert.Equal(t, uint64(102), tfb.TDC())
	assert.False(t, tfb.CheckTimeDiscriminator())

	tpc := NewTPCDigit(tpcChannel(3), 4, []int16{-2, 7})
	assert.Equal(t, -2, tpc.ADC(0))
	assert.Equal(t, -1, tpc.ADC(2))
	assert.Equal(t, tpcChannel(3), tpc.ChannelId())

	pulse := NewPulseDigit(tpcChannel(1), 12, []uint16{9, 8})
	assert.Equal(t, 2, pulse.SampleCount())
	assert.Equal(t, 8, pulse.Sample(1))
	assert.Equal(t, -1, pulse.Sample(2))
	assert.Contains(t, pulse.String(), "[9 8]")
}

func TestContainerSignature(t *testing.T) {
	a := tpcContainer(3)
	b := tpcContainer(3)
	assert.Equal(t, a.Signature(), b.Signature())

	b.Digits[2] = NewTPCDigit(tpcChannel(7), 10, nil)
	assert.NotEqual(t, a.Signature(), b.Signature())

	renamed := tpcContainer(3)
	renamed.Name = "test"
	assert.NotEqual(t, a.Signature(), renamed.Signature())

	assert.Nil(t, a.At(3))
	assert.Nil(t, a.At(-1))
}

func TestRegisterFactory(t *testing.T) {
	m := NewManager(false)
	f := NewFactory("tpc", func(*event.Event) (*Container, error) { return tpcContainer(1), nil })
	require.NoError(t, m.RegisterFactory(f))
	assert.ErrorIs(t, m.RegisterFactory(f), ErrMultipleFactory)
	assert.True(t, m.FactoryAvailable("tpc"))
	assert.False(t, m.FactoryAvailable("fgd"))
}

func TestCacheDigits(t *testing.T) {
	calls := 0
	factory := NewFactory("tpc", func(*event.Event) (*Container, error) {
		calls++
		c := tpcContainer(4)
		c.Name = "whatever"
		return c, nil
	})

	for _, persistent := range []bool{false, true} {
		calls = 0
		m := NewManager(persistent)
		require.NoError(t, m.RegisterFactory(factory))
		ev := event.New(event.NewContext())

		c, err := m.CacheDigits(ev, "tpc")
		require.NoError(t, err)
		assert.Equal(t, "tpc", c.Name)
		assert.Equal(t, 4, c.Len())
		assert.Equal(t, !persistent, ev.IsTemporary(EventName("tpc")))

		again, err := m.CacheDigits(ev, "tpc")
		require.NoError(t, err)
		assert.Same(t, c, again)
		assert.Equal(t, 1, calls)

		ev.ClearTemporary()
		_, err = m.CacheDigits(ev, "tpc")
		require.NoError(t, err)
		if persistent {
			assert.Equal(t, 1, calls)
		} else {
			assert.Equal(t, 2, calls)
		}
	}
}

func TestCacheDigitsFailures(t *testing.T) {
	m := NewManager(false)
	_, err := m.CacheDigits(nil, "tpc")
	assert.ErrorIs(t, err, ErrDigitEventMissing)

	ev := event.New(event.NewContext())
	_, err = m.CacheDigits(ev, "tpc")
	assert.ErrorIs(t, err, ErrDigitNotAvailable)

	boom := errors.New("boom")
	require.NoError(t, m.RegisterFactory(NewFactory("fgd", func(*event.Event) (*Container, error) { return nil, boom })))
	_, err = m.CacheDigits(ev, "fgd")
	assert.ErrorIs(t, err, boom)
	var factoryErr *ErrFactory
	require.True(t, errors.As(err, &factoryErr))
	assert.Equal(t, "fgd", factoryErr.Name)

	require.NoError(t, m.RegisterFactory(NewFactory("ecal", func(*event.Event) (*Container, error) { return nil, nil })))
	_, err = m.CacheDigits(ev, "ecal")
	assert.Error(t, err)
}

func TestDigitLookup(t *testing.T) {
	m := NewManager(false)
	require.NoError(t, m.RegisterFactory(NewFactory("tpc", func(*event.Event) (*Container, error) { return tpcContainer(3), nil })))
	ev := event.New(event.NewContext())

	d, err := m.Digit(ev, "tpc", 2)
	require.NoError(t, err)
	assert.Equal(t, tpcChannel(2), d.ChannelId())

	_, err = m.Digit(ev, "tpc", 3)
	assert.ErrorIs(t, err, ErrDigitNotFound)
	assert.NotErrorIs(t, err, ErrDigitNotAvailable)

	_, err = m.Digit(ev, "fgd", 0)
	assert.ErrorIs(t, err, ErrDigitNotAvailable)
	assert.ErrorIs(t, err, ErrDigitNotFound)

	_, err = m.Digit(nil, "tpc", 0)
	assert.ErrorIs(t, err, ErrDigitEventMissing)
}

func TestProxy(t *testing.T) {
	c := tpcContainer(5)
	p, err := NewProxy(c, 3)
	require.NoError(t, err)
	assert.Equal(t, ProxyTPC, p.Type())
	assert.Equal(t, 3, p.Offset())
	assert.True(t, p.IsValid())
	assert.Equal(t, "tpc: 3", p.String())

	_, err = NewProxy(c, 5)
	assert.ErrorIs(t, err, ErrDigitNotFound)

	m := NewManager(false)
	require.NoError(t, m.RegisterFactory(NewFactory("tpc", func(*event.Event) (*Container, error) { return tpcContainer(5), nil })))
	ev := event.New(event.NewContext())

	d, err := m.Resolve(ev, p)
	require.NoError(t, err)
	assert.Equal(t, tpcChannel(3), d.ChannelId())

	bad := Proxy(uint32(p)&^proxySaltMask | ((p.Salt()+1)%saltModulus)<<proxySaltShift)
	_, err = m.Resolve(ev, bad)
	assert.ErrorIs(t, err, ErrDigitMismatch)
	assert.ErrorIs(t, err, ErrDigitNotFound)

	_, err = m.Resolve(ev, Proxy(uint32(ProxyFGD)<<proxyTypeShift))
	assert.ErrorIs(t, err, ErrDigitNotAvailable)

	_, err = m.Resolve(ev, Proxy(0))
	assert.ErrorIs(t, err, ErrDigitTypeInvalid)
}

func TestConvertNames(t *testing.T) {
	for i, name := range proxyNames {
		assert.Equal(t, ProxyType(i), ConvertName(name))
		got, err := ConvertType(ProxyType(i))
		require.NoError(t, err)
		assert.Equal(t, name, got)
	}
	assert.Equal(t, ProxyInvalid, ConvertName("nope"))
	_, err := ConvertType(ProxyType(20))
	assert.ErrorIs(t, err, ErrDigitTypeInvalid)
}
