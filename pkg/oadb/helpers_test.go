package oadb

import (
	"errors"
	"testing"

	"github.com/next-exp/oaevent_go/pkg/config"
	"github.com/next-exp/oaevent_go/pkg/event"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"github.com/next-exp/oaevent_go/pkg/geotree"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// fgdTree holds one FGD layer with two bars, at y -5 and 5.
func fgdTree(t *testing.T) *geotree.Tree {
	t.Helper()
	tree := geotree.New(geommanager.DefaultGeometryKey)
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
	return tree
}

func testConfig(t *testing.T) config.Configuration {
	cfg := config.Default()
	cfg.GeometryDir = t.TempDir()
	return cfg
}

func newDatabase(t *testing.T, cfg config.Configuration, opts ...Option) *Database {
	t.Helper()
	d, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func runEvent(run int32, timestamp int64) *event.Event {
	return event.New(event.NewRunContext(run, 0, 1, timestamp))
}

type counter struct {
	name  string
	calls *[]string
}

func (c *counter) Callback(*event.Event) {
	*c.calls = append(*c.calls, c.name)
}

type staticLookup struct {
	hash geomid.HashValue
}

func (l staticLookup) GetHash(*event.Event) geomid.HashValue { return l.hash }

type panicLookup struct{}

func (panicLookup) GetHash(*event.Event) geomid.HashValue { panic("lookup failed") }

type fakeAlignments struct {
	check       bool
	aid         geomid.AlignmentId
	corrections []geommanager.Correction
	err         error
	calls       int
}

func (f *fakeAlignments) CheckAlignment(*event.Event) bool { return f.check }

func (f *fakeAlignments) Alignments(*event.Event) (geomid.AlignmentId, []geommanager.Correction, error) {
	f.calls++
	return f.aid, f.corrections, f.err
}

type fakeAligner struct {
	cleared   int
	refreshed int
	aligned   []geommanager.Correction
	fail      bool
}

func (a *fakeAligner) ClearAlignment() int {
	a.cleared++
	return 0
}

func (a *fakeAligner) Align(c geommanager.Correction) error {
	if a.fail {
		return errors.New("no such volume")
	}
	a.aligned = append(a.aligned, c)
	return nil
}

func (a *fakeAligner) Refresh() {
	a.refreshed++
}
