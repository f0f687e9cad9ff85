package hits

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/next-exp/oaevent_go/pkg/channelid"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"github.com/next-exp/oaevent_go/pkg/logger"
	"gonum.org/v1/gonum/spatial/r3"
)

// SingleHit is one calibrated measurement in a single volume. Its position
// is worked out from the geometry the first time it is needed.
type SingleHit struct {
	geom     Geometry
	settings Settings

	id              geomid.GeometryId
	charge          float64
	time            float64
	timeUncertainty float64
	channels        []channelid.ChannelId

	once        sync.Once
	position    r3.Vec
	spread      r3.Vec
	uncertainty r3.Vec
	measured    [3]bool
}

func NewSingleHit(geom Geometry, settings Settings, id geomid.GeometryId, charge, time float64, channels ...channelid.ChannelId) *SingleHit {
	return &SingleHit{
		geom:            geom,
		settings:        settings,
		id:              id,
		charge:          charge,
		time:            time,
		timeUncertainty: defaultTimeUncertainty,
		channels:        channels,
	}
}

// SetTimeUncertainty replaces the default 1 ns.
func (h *SingleHit) SetTimeUncertainty(t float64) {
	h.timeUncertainty = t
}

func (h *SingleHit) GeomId() geomid.GeometryId         { return h.id }
func (h *SingleHit) Charge() float64                   { return h.charge }
func (h *SingleHit) Time() float64                     { return h.time }
func (h *SingleHit) TimeUncertainty() float64          { return h.timeUncertainty }
func (h *SingleHit) ChannelIds() []channelid.ChannelId { return h.channels }

func (h *SingleHit) Position() r3.Vec {
	h.once.Do(h.initialize)
	return h.position
}

func (h *SingleHit) Spread() r3.Vec {
	h.once.Do(h.initialize)
	return h.spread
}

func (h *SingleHit) Uncertainty() r3.Vec {
	h.once.Do(h.initialize)
	return h.uncertainty
}

func (h *SingleHit) IsXHit() bool {
	h.once.Do(h.initialize)
	return h.measured[0]
}

func (h *SingleHit) IsYHit() bool {
	h.once.Do(h.initialize)
	return h.measured[1]
}

func (h *SingleHit) IsZHit() bool {
	h.once.Do(h.initialize)
	return h.measured[2]
}

func (h *SingleHit) initialize() {
	h.position = r3.Vec{}
	h.spread = r3.Vec{X: defaultSpread, Y: defaultSpread, Z: defaultSpread}
	h.uncertainty = h.spread
	h.measured = [3]bool{}

	if h.geom == nil {
		logger.Error("SingleHit initialization failed: no geometry")
		return
	}
	vol, err := h.geom.Volume(h.id)
	if err != nil {
		logger.Error(fmt.Errorf("SingleHit initialization failed: %w", err).Error())
		return
	}
	if h.initializeDriftChamber(vol) {
		return
	}
	h.initializeGeneric(vol)
}

// masterHalfWidths rotates the three half width vectors of the volume into
// the master frame.
func masterHalfWidths(vol geommanager.Volume) [3]r3.Vec {
	return [3]r3.Vec{
		vol.Global.ApplyVect(r3.Vec{X: vol.Shape.DX}),
		vol.Global.ApplyVect(r3.Vec{Y: vol.Shape.DY}),
		vol.Global.ApplyVect(r3.Vec{Z: vol.Shape.DZ}),
	}
}

func (h *SingleHit) setSpread(vol geommanager.Volume) {
	axes := masterHalfWidths(vol)
	var spread [3]float64
	for i := range spread {
		for _, a := range axes {
			spread[i] = math.Max(spread[i], math.Abs(component(a, i)))
		}
	}
	h.spread = r3.Vec{X: spread[0], Y: spread[1], Z: spread[2]}

	charge := h.charge
	if charge <= 0 {
		charge = 1
	}
	h.uncertainty = r3.Scale(2/math.Sqrt(12*charge), h.spread)
	h.position = vol.Global.Apply(r3.Vec{})
}

// initializeDriftChamber handles read out planes: only the two axes of
// the plane are measured, the drift axis is left to the reconstruction.
func (h *SingleHit) initializeDriftChamber(vol geommanager.Volume) bool {
	drift := false
	for _, name := range h.settings.DriftChamberNames {
		if name != "" && strings.Contains(vol.Name, name) {
			drift = true
			break
		}
	}
	if !drift {
		return false
	}
	h.setSpread(vol)

	// the plane normal is the thinnest local axis
	axes := masterHalfWidths(vol)
	widths := []float64{vol.Shape.DX, vol.Shape.DY, vol.Shape.DZ}
	thinnest := 0
	for i, w := range widths {
		if w < widths[thinnest] {
			thinnest = i
		}
	}
	normal := r3.Unit(axes[thinnest])
	driftAxis := 0
	for i := 1; i < 3; i++ {
		if math.Abs(component(normal, i)) > math.Abs(component(normal, driftAxis)) {
			driftAxis = i
		}
	}
	for i := range h.measured {
		h.measured[i] = i != driftAxis
	}
	return true
}

func (h *SingleHit) initializeGeneric(vol geommanager.Volume) {
	h.setSpread(vol)
	for i := range h.measured {
		h.measured[i] = component(h.spread, i) < h.settings.AxisThreshold
	}
	// SMRD bars are long but segmented along the beam.
	if h.settings.SMRDForceZ && geomid.IsSMRD(h.id) {
		h.measured[2] = true
	}
}

func (h *SingleHit) String() string {
	p := h.Position()
	return fmt.Sprintf("SingleHit %d q=%g t=%g at (%g, %g, %g)", int32(h.id), h.charge, h.time, p.X, p.Y, p.Z)
}
