package geomid

import (
	"errors"
	"fmt"
)

var (
	ErrGeomIdMSBLSB     = errors.New("invalid geometry id bit range")
	ErrGeomIdOutOfRange = errors.New("geometry id value out of range")
	ErrGeomIdInvalid    = errors.New("invalid geometry id")
	ErrNoGeometry       = errors.New("no geometry loaded")
)

// ErrField reports a rejected geometry id field access.
type ErrField struct {
	MSB   int
	LSB   int
	Value int
	Err   error
}

func (e *ErrField) Error() string {
	if errors.Is(e.Err, ErrGeomIdOutOfRange) {
		return fmt.Sprintf("%v: value %d for bits %d-%d", e.Err, e.Value, e.MSB, e.LSB)
	}
	return fmt.Sprintf("%v: MSB %d LSB %d", e.Err, e.MSB, e.LSB)
}

func (e *ErrField) Unwrap() error {
	return e.Err
}
