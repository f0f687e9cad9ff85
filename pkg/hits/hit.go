// Package hits turns calibrated channel measurements into positioned hits
// and clusters them into combined hits.
package hits

import (
	"errors"

	"github.com/next-exp/oaevent_go/pkg/channelid"
	"github.com/next-exp/oaevent_go/pkg/config"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"gonum.org/v1/gonum/spatial/r3"
)

// Lengths are in mm and times in ns.
const (
	mm    = 1.0
	meter = 1000 * mm
	ns    = 1.0

	defaultSpread          = 100 * meter
	defaultTimeUncertainty = 1 * ns
)

var ErrStaleGeometry = errors.New("geometry changed since the hit was closed")

type Hit interface {
	GeomId() geomid.GeometryId
	Charge() float64
	Time() float64
	Position() r3.Vec
	// Spread is the half size of the region the hit comes from.
	Spread() r3.Vec
	Uncertainty() r3.Vec
	TimeUncertainty() float64
	IsXHit() bool
	IsYHit() bool
	IsZHit() bool
	ChannelIds() []channelid.ChannelId
}

type HitSelection []Hit

// TotalCharge sums the charge of every hit.
func (s HitSelection) TotalCharge() float64 {
	total := 0.0
	for _, h := range s {
		total += h.Charge()
	}
	return total
}

// Geometry answers the volume queries hits need. *geommanager.Manager
// implements it.
type Geometry interface {
	Volume(id geomid.GeometryId) (geommanager.Volume, error)
	GetGeometryId(x, y, z float64) (geomid.GeometryId, error)
	NodeStack(p r3.Vec) ([]int, uint64, error)
	Generation() uint64
}

// Settings tune how hits are positioned and combined.
type Settings struct {
	// AxisThreshold is the largest spread, in mm, of a measured axis.
	AxisThreshold float64
	// SMRDForceZ marks SMRD bars as measuring Z whatever their length.
	SMRDForceZ bool
	// DriftChamberNames are volume name fragments of drift chamber read
	// out planes.
	DriftChamberNames []string
	Weighting         config.Weighting
}

func SettingsFromConfig(cfg config.Configuration) Settings {
	return Settings{
		AxisThreshold:     cfg.HitAxisThreshold,
		SMRDForceZ:        cfg.SMRDForceZ,
		DriftChamberNames: append([]string(nil), cfg.DriftChamberNames...),
		Weighting:         cfg.ComboWeighting,
	}
}

func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default())
}

func component(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}
