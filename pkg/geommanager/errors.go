package geommanager

import (
	"errors"
	"fmt"

	"github.com/next-exp/oaevent_go/pkg/geomid"
)

var (
	ErrNoGeometry = geomid.ErrNoGeometry
	// ErrBadAlignment reports an alignment id without corrections or
	// corrections without an alignment id. It also matches ErrNoGeometry.
	ErrBadAlignment      = fmt.Errorf("%w: inconsistent alignment", ErrNoGeometry)
	ErrNotFound          = errors.New("geometry id not found")
	ErrGeometryNotInFile = errors.New("no matching geometry in file")
	ErrNoGeometryFile    = errors.New("no geometry file matches hash")
	ErrNoGeometryDir     = errors.New("geometry directory not available")
	ErrGeometryBusy      = errors.New("geometry is being loaded")
	ErrFinderStop        = errors.New("stop searching this branch")
	ErrInvalidHashCode   = errors.New("trying to save invalid hash code")
	ErrInvalidGeomName   = errors.New("invalid geometry name")
)

// NotFoundError carries what was looked up when a query has no answer.
type NotFoundError struct {
	Id    geomid.GeometryId
	Point []float64
}

func (e *NotFoundError) Error() string {
	if e.Point != nil {
		return fmt.Sprintf("%v: no mapped volume at (%g, %g, %g)", ErrNotFound, e.Point[0], e.Point[1], e.Point[2])
	}
	return fmt.Sprintf("%v: %d", ErrNotFound, int32(e.Id))
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
