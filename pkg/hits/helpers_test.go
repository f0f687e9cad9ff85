package hits

import (
	"github.com/next-exp/oaevent_go/pkg/channelid"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"gonum.org/v1/gonum/spatial/r3"
)

type fakeGeometry struct {
	volumes    map[geomid.GeometryId]geommanager.Volume
	generation uint64
	calls      int
}

func newFakeGeometry() *fakeGeometry {
	return &fakeGeometry{volumes: make(map[geomid.GeometryId]geommanager.Volume), generation: 1}
}

func (g *fakeGeometry) Volume(id geomid.GeometryId) (geommanager.Volume, error) {
	g.calls++
	v, ok := g.volumes[id]
	if !ok {
		return geommanager.Volume{}, &geommanager.NotFoundError{Id: id}
	}
	return v, nil
}

func (g *fakeGeometry) find(p r3.Vec) (geomid.GeometryId, geommanager.Volume, bool) {
	for id, v := range g.volumes {
		if v.Shape.Contains(v.Global.Inverse().Apply(p)) {
			return id, v, true
		}
	}
	return geomid.EmptyId, geommanager.Volume{}, false
}

func (g *fakeGeometry) GetGeometryId(x, y, z float64) (geomid.GeometryId, error) {
	id, _, ok := g.find(r3.Vec{X: x, Y: y, Z: z})
	if !ok {
		return geomid.EmptyId, &geommanager.NotFoundError{Point: []float64{x, y, z}}
	}
	return id, nil
}

func (g *fakeGeometry) NodeStack(p r3.Vec) ([]int, uint64, error) {
	_, v, ok := g.find(p)
	if !ok {
		return []int{0}, g.generation, nil
	}
	return []int{v.Index, 0}, g.generation, nil
}

func (g *fakeGeometry) Generation() uint64 {
	return g.generation
}

// fakeHit is a fixed measurement that counts how often it is read.
type fakeHit struct {
	q, t     float64
	pos      r3.Vec
	spread   r3.Vec
	unc      r3.Vec
	flags    [3]bool
	channels []channelid.ChannelId
	reads    int
}

func (h *fakeHit) GeomId() geomid.GeometryId { return geomid.EmptyId }
func (h *fakeHit) Charge() float64           { return h.q }
func (h *fakeHit) Time() float64             { return h.t }
func (h *fakeHit) Position() r3.Vec {
	h.reads++
	return h.pos
}
func (h *fakeHit) Spread() r3.Vec                    { return h.spread }
func (h *fakeHit) Uncertainty() r3.Vec               { return h.unc }
func (h *fakeHit) TimeUncertainty() float64          { return 1 }
func (h *fakeHit) IsXHit() bool                      { return h.flags[0] }
func (h *fakeHit) IsYHit() bool                      { return h.flags[1] }
func (h *fakeHit) IsZHit() bool                      { return h.flags[2] }
func (h *fakeHit) ChannelIds() []channelid.ChannelId { return h.channels }

func hitAt(x, q float64) *fakeHit {
	return &fakeHit{
		q:      q,
		t:      10 * x,
		pos:    r3.Vec{X: x},
		spread: r3.Vec{X: 0.5, Y: 5, Z: 5},
		unc:    r3.Vec{X: 1, Y: 1, Z: 1},
	}
}
