package hits

import (
	"fmt"
	"math"
	"sync"

	"github.com/next-exp/oaevent_go/pkg/channelid"
	"github.com/next-exp/oaevent_go/pkg/config"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/logger"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// ComboHit combines hits sharing a cell. Adding a hit opens it and any
// read closes it again, recomputing the aggregate from every hit.
type ComboHit struct {
	geom      Geometry
	weighting config.Weighting

	mu   sync.Mutex
	open bool
	hits HitSelection

	id              geomid.GeometryId
	charge          float64
	time            float64
	position        r3.Vec
	spread          r3.Vec
	uncertainty     r3.Vec
	timeUncertainty float64
	measured        [3]bool
	parents         []int
	generation      uint64
}

func NewComboHit(geom Geometry, weighting config.Weighting) *ComboHit {
	c := &ComboHit{geom: geom, weighting: weighting, open: true}
	c.setDefaults()
	return c
}

func (c *ComboHit) setDefaults() {
	c.id = geomid.EmptyId
	c.charge = 0
	c.time = 0
	c.position = r3.Vec{}
	c.spread = r3.Vec{X: defaultSpread, Y: defaultSpread, Z: defaultSpread}
	c.uncertainty = c.spread
	c.timeUncertainty = defaultTimeUncertainty
	c.measured = [3]bool{}
	c.parents = nil
	c.generation = 0
}

func (c *ComboHit) AddHit(h Hit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.hits = append(c.hits, h)
}

func (c *ComboHit) AddHitSelection(hits HitSelection) {
	for _, h := range hits {
		c.AddHit(h)
	}
}

// OpenHits marks the aggregate as stale.
func (c *ComboHit) OpenHits() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
}

// CloseHits recomputes the aggregate. It does nothing when the hit is
// already closed or empty.
func (c *ComboHit) CloseHits() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// Hits returns a copy of the constituent hits.
func (c *ComboHit) Hits() HitSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(HitSelection(nil), c.hits...)
}

func (c *ComboHit) read(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	f()
}

// GeomId is the volume containing the averaged position. It is
// geomid.EmptyId when that position could not be resolved to a volume, in
// which case Position is still the valid average.
func (c *ComboHit) GeomId() (id geomid.GeometryId) {
	c.read(func() { id = c.id })
	return id
}

func (c *ComboHit) Charge() (q float64) {
	c.read(func() { q = c.charge })
	return q
}

func (c *ComboHit) Time() (t float64) {
	c.read(func() { t = c.time })
	return t
}

func (c *ComboHit) Position() (p r3.Vec) {
	c.read(func() { p = c.position })
	return p
}

func (c *ComboHit) Spread() (s r3.Vec) {
	c.read(func() { s = c.spread })
	return s
}

func (c *ComboHit) Uncertainty() (u r3.Vec) {
	c.read(func() { u = c.uncertainty })
	return u
}

func (c *ComboHit) TimeUncertainty() (t float64) {
	c.read(func() { t = c.timeUncertainty })
	return t
}

func (c *ComboHit) IsXHit() (ok bool) {
	c.read(func() { ok = c.measured[0] })
	return ok
}

func (c *ComboHit) IsYHit() (ok bool) {
	c.read(func() { ok = c.measured[1] })
	return ok
}

func (c *ComboHit) IsZHit() (ok bool) {
	c.read(func() { ok = c.measured[2] })
	return ok
}

// ChannelIds lists the channels of every constituent, in order.
func (c *ComboHit) ChannelIds() []channelid.ChannelId {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []channelid.ChannelId
	for _, h := range c.hits {
		ids = append(ids, h.ChannelIds()...)
	}
	return ids
}

// ParentNodes returns the geometry nodes containing the combined position,
// deepest first. It fails when the geometry has been reloaded since the
// nodes were found.
func (c *ComboHit) ParentNodes() ([]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	if c.geom != nil && len(c.parents) > 0 && c.geom.Generation() != c.generation {
		return nil, ErrStaleGeometry
	}
	return append([]int(nil), c.parents...), nil
}

// ParentNode returns parent i, the outermost one when i is past the end.
func (c *ComboHit) ParentNode(i int) (int, bool) {
	nodes, err := c.ParentNodes()
	if err != nil || i < 0 || len(nodes) == 0 {
		return -1, false
	}
	if i >= len(nodes) {
		return nodes[len(nodes)-1], true
	}
	return nodes[i], true
}

func (c *ComboHit) closeLocked() {
	if !c.open || len(c.hits) == 0 {
		return
	}
	c.open = false
	c.setDefaults()

	n := len(c.hits)
	pos := [3][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	weights := [3][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	times := make([]float64, n)
	charges := make([]float64, n)
	inverseVariance := c.weighting.Code == config.InverseVarianceWeighting

	for i, h := range c.hits {
		p := h.Position()
		q := h.Charge()
		var unc r3.Vec
		if inverseVariance {
			unc = h.Uncertainty()
		}
		for axis := 0; axis < 3; axis++ {
			pos[axis][i] = component(p, axis)
			weights[axis][i] = q
			if inverseVariance {
				weights[axis][i] = inverseSquare(component(unc, axis))
			}
		}
		times[i] = h.Time()
		charges[i] = q
		c.measured[0] = c.measured[0] || h.IsXHit()
		c.measured[1] = c.measured[1] || h.IsYHit()
		c.measured[2] = c.measured[2] || h.IsZHit()
	}
	c.charge = floats.Sum(charges)

	var mean [3]float64
	for axis := 0; axis < 3; axis++ {
		if floats.Sum(weights[axis]) > 0 {
			mean[axis] = stat.Mean(pos[axis], weights[axis])
		}
	}
	c.position = r3.Vec{X: mean[0], Y: mean[1], Z: mean[2]}
	if c.charge > 0 {
		c.time = stat.Mean(times, charges)
	}

	var spread [3]float64
	minSpread := [3]float64{1000 * mm, 1000 * mm, 1000 * mm}
	var scatter, scatterWeight [3]float64
	timeVariance := c.timeUncertainty
	for i, h := range c.hits {
		var sigma [3]float64
		unc := h.Uncertainty()
		for axis := 0; axis < 3; axis++ {
			sigma[axis] = 1 / math.Sqrt(c.charge)
			if inverseVariance {
				sigma[axis] = component(unc, axis)
			}
		}
		hitSpread := h.Spread()
		for axis := 0; axis < 3; axis++ {
			d := pos[axis][i] - mean[axis]
			if w := inverseSquare(sigma[axis]); w > 0 && !math.IsInf(w, 0) {
				scatter[axis] += d * d * w
				scatterWeight[axis] += w
			}
			s := component(hitSpread, axis)
			spread[axis] = math.Max(spread[axis], math.Max(s, math.Abs(d)))
			minSpread[axis] = math.Min(minSpread[axis], s)
		}
		dt := times[i] - c.time
		timeVariance += charges[i] * dt * dt
	}
	c.spread = r3.Vec{X: spread[0], Y: spread[1], Z: spread[2]}

	var variance [3]float64
	for axis := 0; axis < 3; axis++ {
		if c.charge > 0 && scatterWeight[axis] > 0 {
			variance[axis] = scatter[axis] / scatterWeight[axis]
		}
		// one element cannot measure better than a uniform spread over it
		variance[axis] = math.Max(variance[axis], 4*minSpread[axis]*minSpread[axis]/12)
	}
	if c.charge > 0 {
		timeVariance /= c.charge
	}

	norm := math.Max(c.charge-1, float64(n-1))
	if norm > 0 {
		for axis := range variance {
			variance[axis] /= norm
		}
		timeVariance /= norm
	}
	c.uncertainty = r3.Vec{X: math.Sqrt(variance[0]), Y: math.Sqrt(variance[1]), Z: math.Sqrt(variance[2])}
	c.timeUncertainty = math.Sqrt(timeVariance)

	if c.geom == nil {
		logger.Error("ComboHit closed without a geometry")
		return
	}
	id, err := c.geom.GetGeometryId(c.position.X, c.position.Y, c.position.Z)
	if err != nil {
		logger.Error(fmt.Errorf("ComboHit geometry id: %w", err).Error())
	} else {
		c.id = id
	}
	c.parents, c.generation, err = c.geom.NodeStack(c.position)
	if err != nil {
		logger.Error(fmt.Errorf("ComboHit parent nodes: %w", err).Error())
		c.parents = nil
	}
}

func inverseSquare(x float64) float64 {
	if x == 0 {
		return 0
	}
	return 1 / (x * x)
}
