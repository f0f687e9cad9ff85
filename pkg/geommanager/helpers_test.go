package geommanager

import (
	"testing"

	"github.com/next-exp/oaevent_go/pkg/event"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geotree"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

type builder struct {
	t    *testing.T
	tree *geotree.Tree
}

func (b builder) add(parent int, name string, half, pos r3.Vec) int {
	b.t.Helper()
	index, err := b.tree.AddNode(parent, name, geotree.Shape{DX: half.X, DY: half.Y, DZ: half.Z}, geotree.Translation(pos))
	require.NoError(b.t, err)
	return index
}

// testTree builds a small detector with the ND280 nesting depths:
// a P0D with three bars, an FGD layer with four bars, a TPC with two
// micromegas and an SMRD module with two bars.
func testTree(t *testing.T) *geotree.Tree {
	t.Helper()
	b := builder{t, geotree.New("ND280Geometry")}
	top := b.add(-1, "t2k", r3.Vec{X: 5000, Y: 5000, Z: 5000}, r3.Vec{})
	oa := b.add(top, "OA_0", r3.Vec{X: 4000, Y: 4000, Z: 4000}, r3.Vec{})
	magnet := b.add(oa, "Magnet_0", r3.Vec{X: 3500, Y: 3500, Z: 3500}, r3.Vec{})
	basket := b.add(magnet, "Basket_0", r3.Vec{X: 1500, Y: 1500, Z: 3000}, r3.Vec{})

	p0d := b.add(basket, "P0D_0", r3.Vec{X: 1000, Y: 1000, Z: 400}, r3.Vec{Z: -2500})
	usecal := b.add(p0d, "USECal_0", r3.Vec{X: 1000, Y: 1000, Z: 100}, r3.Vec{})
	p0dule := b.add(usecal, "P0Dule_0", r3.Vec{X: 1000, Y: 1000, Z: 10}, r3.Vec{})
	layer := b.add(p0dule, "X_0", r3.Vec{X: 1000, Y: 1000, Z: 5}, r3.Vec{})
	for i, y := range []float64{-20, 0, 20} {
		b.add(layer, "Bar_"+string(rune('0'+i)), r3.Vec{X: 1000, Y: 10, Z: 5}, r3.Vec{Y: y})
	}

	tracker := b.add(basket, "Tracker_0", r3.Vec{X: 1500, Y: 1500, Z: 1000}, r3.Vec{})
	fgd := b.add(tracker, "FGD1_0", r3.Vec{X: 1000, Y: 1000, Z: 200}, r3.Vec{Z: -500})
	scint := b.add(fgd, "ScintX_0", r3.Vec{X: 1000, Y: 1000, Z: 5}, r3.Vec{})
	for i, y := range []float64{-30, -10, 10, 30} {
		b.add(scint, "Bar_"+string(rune('0'+i)), r3.Vec{X: 1000, Y: 5, Z: 5}, r3.Vec{Y: y})
	}

	tpc := b.add(tracker, "TPC1_0", r3.Vec{X: 1000, Y: 1000, Z: 300}, r3.Vec{Z: 500})
	half := b.add(tpc, "Half_0", r3.Vec{X: 1000, Y: 1000, Z: 300}, r3.Vec{})
	b.add(half, "MM_0", r3.Vec{X: 500, Y: 500, Z: 10}, r3.Vec{X: -500})
	b.add(half, "MM_1", r3.Vec{X: 500, Y: 500, Z: 10}, r3.Vec{X: 500})

	clam := b.add(magnet, "LeftClam_0", r3.Vec{X: 500, Y: 3000, Z: 3000}, r3.Vec{X: 2500})
	smrd := b.add(clam, "SMRD_0", r3.Vec{X: 400, Y: 2000, Z: 2000}, r3.Vec{})
	arm := b.add(smrd, "MRDArm:123", r3.Vec{X: 300, Y: 300, Z: 300}, r3.Vec{})
	b.add(arm, "Bar_0", r3.Vec{X: 300, Y: 10, Z: 10}, r3.Vec{Y: -100})
	b.add(arm, "Bar_1", r3.Vec{X: 300, Y: 10, Z: 10}, r3.Vec{Y: 100})
	return b.tree
}

const testMapEntries = 18

type fakeHooks struct {
	lookup      geomid.HashValue
	check       bool
	aid         geomid.AlignmentId
	corrections []Correction
	err         error
	input       string
	callbacks   int
	alignCalls  int
	onChange    func()
}

func (f *fakeHooks) FindEventGeometry(*event.Event) geomid.HashValue { return f.lookup }
func (f *fakeHooks) CheckAlignment(*event.Event) bool                { return f.check }
func (f *fakeHooks) CurrentInputFile() string                        { return f.input }

func (f *fakeHooks) ApplyAlignmentLookup(_ *event.Event, a Aligner) (geomid.AlignmentId, error) {
	f.alignCalls++
	a.ClearAlignment()
	if f.err != nil {
		return geomid.AlignmentId{}, f.err
	}
	for _, c := range f.corrections {
		if err := a.Align(c); err != nil {
			return geomid.AlignmentId{}, err
		}
	}
	a.Refresh()
	if !f.aid.Valid() {
		return geomid.EmptyAlignmentId(), nil
	}
	return f.aid, nil
}

func (f *fakeHooks) ApplyGeometryCallbacks(*event.Event) {
	f.callbacks++
	if f.onChange != nil {
		f.onChange()
	}
}
