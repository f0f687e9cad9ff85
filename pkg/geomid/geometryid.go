package geomid

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// GeometryId is the packed identifier of a placed detector element. Bit 31
// is always zero, bits 30-25 name the detector and the remaining bits are
// laid out per detector.
type GeometryId int32

const EmptyId GeometryId = 0

const (
	GuardBitMSB   = 31
	GuardBitLSB   = 31
	DetectorIdMSB = 30
	DetectorIdLSB = 25
	PayloadMSB    = 24
	PayloadLSB    = 0
)

type Detector int

const (
	ROOTGeoNodeId Detector = iota
	P0D
	TPC
	FGD
	DSECal
	TECal
	PECal
	SMRD
	INGRID
	Magnet
	OffAxis
)

var detectorNames = map[Detector]string{
	P0D:     "P0D",
	TPC:     "TPC",
	FGD:     "FGD",
	DSECal:  "DSECal",
	TECal:   "TECal",
	PECal:   "PECal",
	SMRD:    "SMRD",
	INGRID:  "INGRID",
	Magnet:  "Magnet",
	OffAxis: "OA",
}

func (d Detector) String() string {
	if d == ROOTGeoNodeId {
		return "node"
	}
	if name, ok := detectorNames[d]; ok {
		return name
	}
	return "unknown"
}

func checkRange(msb, lsb int) error {
	if msb < lsb || msb > 31 || lsb < 0 {
		return &ErrField{MSB: msb, LSB: lsb, Err: ErrGeomIdMSBLSB}
	}
	return nil
}

func (g GeometryId) GetFieldSafe(msb, lsb int) (int, error) {
	if err := checkRange(msb, lsb); err != nil {
		return 0, err
	}
	mask := uint64(1)<<uint(msb-lsb+1) - 1
	return int((uint64(uint32(g)) >> uint(lsb)) & mask), nil
}

// SetFieldSafe stores val in bits [lsb,msb] and fails when either the range
// or the value is not representable.
func (g *GeometryId) SetFieldSafe(val int, msb, lsb int) error {
	if err := checkRange(msb, lsb); err != nil {
		return err
	}
	width := uint(msb - lsb + 1)
	if val < 0 || int64(val) >= int64(1)<<width {
		return &ErrField{MSB: msb, LSB: lsb, Value: val, Err: ErrGeomIdOutOfRange}
	}
	mask := (uint64(1)<<width - 1) << uint(lsb)
	v := uint64(uint32(*g)) &^ mask
	v |= (uint64(val) << uint(lsb)) & mask
	*g = GeometryId(int32(uint32(v)))
	return nil
}

func (g GeometryId) field(msb, lsb int) int {
	v, _ := g.GetFieldSafe(msb, lsb)
	return v
}

func (g GeometryId) Detector() Detector {
	return Detector(g.field(DetectorIdMSB, DetectorIdLSB))
}

func (g GeometryId) SubsystemName() string {
	return g.Detector().String()
}

func (g GeometryId) IsValid() bool {
	if g < 0 || g == EmptyId {
		return false
	}
	_, ok := detectorNames[g.Detector()]
	return ok
}

func (g GeometryId) AsInt() int32 {
	return int32(g)
}

// Resolver answers the geometry queries that a bare id cannot.
type Resolver interface {
	Name(GeometryId) (string, error)
	Position(GeometryId) (r3.Vec, error)
}

var (
	resolverMu sync.RWMutex
	resolver   Resolver
)

// SetResolver installs the resolver used by GetName and GetPosition. A nil
// resolver removes it.
func SetResolver(r Resolver) {
	resolverMu.Lock()
	defer resolverMu.Unlock()
	resolver = r
}

// ClearResolver removes r if it is the installed resolver. A resolver
// installed later by someone else stays in place.
func ClearResolver(r Resolver) {
	resolverMu.Lock()
	defer resolverMu.Unlock()
	if resolver == r {
		resolver = nil
	}
}

func currentResolver() Resolver {
	resolverMu.RLock()
	defer resolverMu.RUnlock()
	return resolver
}

// GetName returns the path of the volume with this id.
func (g GeometryId) GetName() (string, error) {
	r := currentResolver()
	if r == nil {
		return "", ErrNoGeometry
	}
	return r.Name(g)
}

func (g GeometryId) GetPosition() (r3.Vec, error) {
	r := currentResolver()
	if r == nil {
		return r3.Vec{}, ErrNoGeometry
	}
	pos, err := r.Position(g)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("%w %d: %w", ErrGeomIdInvalid, int32(g), err)
	}
	return pos, nil
}

// String prints the volume path when a geometry is available and the raw
// value otherwise.
func (g GeometryId) String() string {
	if name, err := g.GetName(); err == nil {
		return name
	}
	return fmt.Sprintf("%d", int32(g))
}
