package geotree

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a rigid placement: p' = Rot*p + Trans. A nil Rot is the
// identity. Rotation matrices are never modified once built.
type Transform struct {
	Rot   *r3.Mat
	Trans r3.Vec
}

func Identity() Transform {
	return Transform{}
}

func Translation(v r3.Vec) Transform {
	return Transform{Trans: v}
}

// Rotation turns by angle radians around axis.
func Rotation(axis r3.Vec, angle float64) Transform {
	return Transform{Rot: r3.NewRotation(angle, axis).Mat()}
}

func (t Transform) rot() *r3.Mat {
	if t.Rot == nil {
		return r3.Eye()
	}
	return t.Rot
}

func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(t.ApplyVect(p), t.Trans)
}

// ApplyVect rotates v without translating it.
func (t Transform) ApplyVect(v r3.Vec) r3.Vec {
	if t.Rot == nil {
		return v
	}
	return t.Rot.MulVec(v)
}

// Compose returns the transform applying b first and then t.
func (t Transform) Compose(b Transform) Transform {
	var rot *r3.Mat
	switch {
	case t.Rot == nil:
		rot = b.Rot
	case b.Rot == nil:
		rot = t.Rot
	default:
		rot = r3.NewMat(nil)
		rot.Mul(t.Rot, b.Rot)
	}
	return Transform{Rot: rot, Trans: t.Apply(b.Trans)}
}

func (t Transform) Inverse() Transform {
	if t.Rot == nil {
		return Transform{Trans: r3.Scale(-1, t.Trans)}
	}
	inv := r3.NewMat(nil)
	inv.CloneFrom(t.Rot.T())
	return Transform{Rot: inv, Trans: r3.Scale(-1, inv.MulVec(t.Trans))}
}

// RotationElements returns the nine matrix elements in row-major order.
func (t Transform) RotationElements() [9]float64 {
	m := t.rot()
	var out [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[3*i+j] = m.At(i, j)
		}
	}
	return out
}

func FromElements(rot [9]float64, trans r3.Vec) Transform {
	if rot == ([9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}) {
		return Transform{Trans: trans}
	}
	return Transform{Rot: r3.NewMat(rot[:]), Trans: trans}
}

// ApproxEqual compares element by element within tol.
func (t Transform) ApproxEqual(o Transform, tol float64) bool {
	a, b := t.RotationElements(), o.RotationElements()
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return r3.Norm(r3.Sub(t.Trans, o.Trans)) <= tol
}

// Shape is an axis aligned box given by its half widths.
type Shape struct {
	DX float64
	DY float64
	DZ float64
}

func (s Shape) Contains(p r3.Vec) bool {
	return math.Abs(p.X) <= s.DX && math.Abs(p.Y) <= s.DY && math.Abs(p.Z) <= s.DZ
}

func (s Shape) Box() r3.Box {
	half := r3.Vec{X: s.DX, Y: s.DY, Z: s.DZ}
	return r3.Box{Min: r3.Scale(-1, half), Max: half}
}
