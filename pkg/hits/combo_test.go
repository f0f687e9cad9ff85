package hits

import (
	"math"
	"testing"

	"github.com/next-exp/oaevent_go/pkg/channelid"
	"github.com/next-exp/oaevent_go/pkg/config"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"github.com/next-exp/oaevent_go/pkg/geotree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var chargeWeighting = config.Weighting{Name: "charge", Code: config.ChargeWeighting}

func sq(x float64) float64 { return x * x }

func TestComboHitEmpty(t *testing.T) {
	c := NewComboHit(newFakeGeometry(), chargeWeighting)
	c.CloseHits()
	big := r3.Vec{X: 100 * meter, Y: 100 * meter, Z: 100 * meter}
	assert.Equal(t, 0.0, c.Charge())
	assert.Equal(t, 0.0, c.Time())
	assert.Equal(t, r3.Vec{}, c.Position())
	assert.Equal(t, big, c.Spread())
	assert.Equal(t, big, c.Uncertainty())
	assert.Equal(t, 1.0, c.TimeUncertainty())
	assert.Equal(t, geomid.EmptyId, c.GeomId())
	assert.Empty(t, c.Hits())
	nodes, err := c.ParentNodes()
	require.NoError(t, err)
	assert.Empty(t, nodes)
	_, ok := c.ParentNode(0)
	assert.False(t, ok)
}

func TestComboHitSingle(t *testing.T) {
	c := NewComboHit(newFakeGeometry(), chargeWeighting)
	c.AddHit(hitAt(7, 4))
	assertVec(t, r3.Vec{X: 7}, c.Position())
	assert.Equal(t, 4.0, c.Charge())
	assert.Equal(t, 70.0, c.Time())
	// the element size sets the floor, the charge counts as measurements
	assert.InDelta(t, math.Sqrt(4*sq(0.5)/12/3), c.Uncertainty().X, 1e-12)
	assert.InDelta(t, math.Sqrt(4*sq(5)/12/3), c.Uncertainty().Y, 1e-12)
	assert.InDelta(t, math.Sqrt(1.0/4/3), c.TimeUncertainty(), 1e-12)
	assertVec(t, r3.Vec{X: 0.5, Y: 5, Z: 5}, c.Spread())
}

func TestComboHitChargeWeighting(t *testing.T) {
	c := NewComboHit(newFakeGeometry(), chargeWeighting)
	c.AddHitSelection(HitSelection{hitAt(0, 1), hitAt(1, 2), hitAt(2, 3)})

	mean := 8.0 / 6
	assert.InDelta(t, mean, c.Position().X, 1e-12)
	assert.Equal(t, 0.0, c.Position().Y)
	assert.Equal(t, 6.0, c.Charge())
	assert.InDelta(t, 80.0/6, c.Time(), 1e-12)
	assert.InDelta(t, mean, c.Spread().X, 1e-12)
	assert.Equal(t, 5.0, c.Spread().Y)

	assert.InDelta(t, math.Sqrt(7.0/9/5), c.Uncertainty().X, 1e-12)
	assert.InDelta(t, math.Sqrt(100.0/12/5), c.Uncertainty().Y, 1e-12)
	tmean := 80.0 / 6
	timeVariance := 1 + 1*sq(0-tmean) + 2*sq(10-tmean) + 3*sq(20-tmean)
	assert.InDelta(t, math.Sqrt(timeVariance/6/5), c.TimeUncertainty(), 1e-9)
}

func TestComboHitInverseVariance(t *testing.T) {
	c := NewComboHit(newFakeGeometry(), config.Weighting{Name: "inverse_variance", Code: config.InverseVarianceWeighting})
	a := hitAt(0, 1)
	b := hitAt(3, 1)
	b.unc = r3.Vec{X: 2, Y: 2, Z: 2}
	c.AddHit(a)
	c.AddHit(b)
	assert.InDelta(t, 0.75/1.25, c.Position().X, 1e-12)
	assert.Equal(t, 2.0, c.Charge())
	assert.InDelta(t, 15.0, c.Time(), 1e-12)
}

func TestComboHitIdempotentClose(t *testing.T) {
	a, b := hitAt(0, 1), hitAt(1, 2)
	a.flags = [3]bool{true, false, false}
	b.flags = [3]bool{false, false, true}
	c := NewComboHit(newFakeGeometry(), chargeWeighting)
	c.AddHit(a)
	c.AddHit(b)

	c.CloseHits()
	reads := a.reads
	pos, unc, q := c.Position(), c.Uncertainty(), c.Charge()
	c.CloseHits()
	assert.Equal(t, pos, c.Position())
	assert.Equal(t, unc, c.Uncertainty())
	assert.Equal(t, q, c.Charge())
	assert.Equal(t, reads, a.reads)

	assert.True(t, c.IsXHit())
	assert.False(t, c.IsYHit())
	assert.True(t, c.IsZHit())

	// an explicit open recomputes the same values
	c.OpenHits()
	assert.Equal(t, pos, c.Position())
	assert.Greater(t, a.reads, reads)
}

func TestComboHitReopen(t *testing.T) {
	c := NewComboHit(newFakeGeometry(), chargeWeighting)
	c.AddHitSelection(HitSelection{hitAt(0, 1), hitAt(1, 2), hitAt(2, 3)})
	assert.Equal(t, 6.0, c.Charge())

	c.AddHit(hitAt(3, 4))
	assert.Equal(t, 10.0, c.Charge())
	assert.InDelta(t, 2.0, c.Position().X, 1e-12)
	assert.Len(t, c.Hits(), 4)
}

func TestComboHitGeometry(t *testing.T) {
	geom := newFakeGeometry()
	bar := geomid.FGDBar(0, 0, 0, 1)
	geom.volumes[bar] = geommanager.Volume{
		Index:  9,
		Shape:  geotree.Shape{DX: 1000, DY: 5, DZ: 5},
		Global: geotree.Translation(r3.Vec{X: 1}),
	}
	ch1 := channelid.NewTPCChannelId(0, 1, 2).ChannelId()
	ch2 := channelid.NewTPCChannelId(0, 1, 3).ChannelId()
	a, b := hitAt(0, 1), hitAt(2, 1)
	a.channels = []channelid.ChannelId{ch1}
	b.channels = []channelid.ChannelId{ch2}

	c := NewComboHit(geom, chargeWeighting)
	c.AddHit(a)
	c.AddHit(b)
	assert.Equal(t, bar, c.GeomId())
	assert.Equal(t, []channelid.ChannelId{ch1, ch2}, c.ChannelIds())

	nodes, err := c.ParentNodes()
	require.NoError(t, err)
	assert.Equal(t, []int{9, 0}, nodes)
	n, ok := c.ParentNode(0)
	assert.True(t, ok)
	assert.Equal(t, 9, n)
	n, ok = c.ParentNode(5)
	assert.True(t, ok)
	assert.Equal(t, 0, n)
	_, ok = c.ParentNode(-1)
	assert.False(t, ok)

	geom.generation++
	_, err = c.ParentNodes()
	assert.ErrorIs(t, err, ErrStaleGeometry)

	// a position outside every volume keeps the average
	far := NewComboHit(geom, chargeWeighting)
	far.AddHit(hitAt(5000, 1))
	assert.Equal(t, geomid.EmptyId, far.GeomId())
	assert.Equal(t, 5000.0, far.Position().X)
}

func TestHitsWithManager(t *testing.T) {
	tree := geotree.New("ND280Geometry")
	add := func(parent int, name string, half, pos r3.Vec) int {
		index, err := tree.AddNode(parent, name, geotree.Shape{DX: half.X, DY: half.Y, DZ: half.Z}, geotree.Translation(pos))
		require.NoError(t, err)
		return index
	}
	world := r3.Vec{X: 3000, Y: 3000, Z: 3000}
	parent := -1
	for _, name := range []string{"t2k", "OA_0", "Magnet_0", "Basket_0", "Tracker_0"} {
		parent = add(parent, name, world, r3.Vec{})
	}
	fgd := add(parent, "FGD1_0", r3.Vec{X: 1000, Y: 1000, Z: 100}, r3.Vec{Z: -500})
	layer := add(fgd, "ScintX_0", r3.Vec{X: 1000, Y: 1000, Z: 5}, r3.Vec{})
	add(layer, "Bar_0", r3.Vec{X: 1000, Y: 5, Z: 5}, r3.Vec{Y: -5})
	add(layer, "Bar_1", r3.Vec{X: 1000, Y: 5, Z: 5}, r3.Vec{Y: 5})

	m := geommanager.New()
	m.SetGeometry(tree)
	defer geomid.SetResolver(nil)

	settings := DefaultSettings()
	h0 := NewSingleHit(m, settings, geomid.FGDBar(0, 0, 0, 0), 1, 0)
	h1 := NewSingleHit(m, settings, geomid.FGDBar(0, 0, 0, 1), 3, 0)
	assertVec(t, r3.Vec{Y: -5, Z: -500}, h0.Position())
	assertVec(t, r3.Vec{X: 1000, Y: 5, Z: 5}, h1.Spread())
	assert.False(t, h1.IsXHit())
	assert.True(t, h1.IsYHit())

	c := NewComboHit(m, settings.Weighting)
	c.AddHit(h0)
	c.AddHit(h1)
	assertVec(t, r3.Vec{Y: 2.5, Z: -500}, c.Position())
	assert.Equal(t, geomid.FGDBar(0, 0, 0, 1), c.GeomId())
	nodes, err := c.ParentNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 8)
	assert.Equal(t, "Bar_1", tree.Node(nodes[0]).Name)
	assert.Equal(t, 0, nodes[len(nodes)-1])
}
