package oadb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"github.com/next-exp/oaevent_go/pkg/geotree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewOverrides(t *testing.T) {
	cfg := testConfig(t)
	cfg.GeometryHash = "01234567-89abcdef-00000000-00000000-00000000"
	d := newDatabase(t, cfg)
	assert.Equal(t, geomid.NewHashValue(0x01234567, 0x89abcdef, 0, 0, 0), d.GeomId().GeometryHashOverride())
	assert.Empty(t, d.GeomId().GeometryFileOverride())

	cfg.GeometryFile = "override.root"
	d = newDatabase(t, cfg)
	assert.Equal(t, "override.root", d.GeomId().GeometryFileOverride())
	assert.False(t, d.GeomId().GeometryHashOverride().Valid())

	d.SetGeometryHashOverride(geomid.NewHashValue(1, 2, 3, 4, 5))
	assert.Empty(t, d.GeomId().GeometryFileOverride())
	d.SetGeometryOverride("")
	assert.False(t, d.GeomId().GeometryHashOverride().Valid())

	cfg.GeometryHash = "not a hash"
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrBadGeometryHash)
}

func TestInputFile(t *testing.T) {
	d := newDatabase(t, testConfig(t))
	_, err := d.InputFile()
	assert.ErrorIs(t, err, ErrNoInputFile)

	d.SetCurrentInputFile("run.root")
	path, err := d.InputFile()
	require.NoError(t, err)
	assert.Equal(t, "run.root", path)
	assert.Equal(t, "run.root", d.CurrentInputFile())
	assert.NotNil(t, d.Digits())
}

func TestGeometryCallbacks(t *testing.T) {
	d := newDatabase(t, testConfig(t))
	var calls []string
	a := &counter{"a", &calls}
	b := &counter{"b", &calls}

	d.RegisterGeometryCallback(a)
	d.RegisterGeometryCallback(b)
	d.RegisterGeometryCallback(a)
	d.RegisterGeometryCallback(nil)
	d.ApplyGeometryCallbacks(nil)
	assert.Equal(t, []string{"a", "b"}, calls)

	d.RemoveGeometryCallback(a)
	d.ApplyGeometryCallbacks(nil)
	assert.Equal(t, []string{"a", "b", "b"}, calls)

	d.ClearGeometryCallbacks()
	d.ApplyGeometryCallbacks(nil)
	assert.Len(t, calls, 3)
}

func TestGeometryFromInputFile(t *testing.T) {
	c := geommanager.NewMemoryContainer("input.root")
	c.Add(geommanager.DefaultGeometryKey, fgdTree(t))
	reg := prometheus.NewRegistry()
	d := newDatabase(t, testConfig(t),
		WithOpener(geommanager.MemoryOpener{"input.root": c}.Open),
		WithRegisterer(reg))
	var calls []string
	d.RegisterGeometryCallback(&counter{"geometry", &calls})

	ev := runEvent(1, 0)
	_, err := d.Geometry(ev)
	assert.ErrorIs(t, err, geommanager.ErrNoGeometry)

	d.SetCurrentInputFile("input.root")
	tree, err := d.Geometry(ev)
	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.Equal(t, []string{"geometry"}, calls)
	assert.True(t, ev.GeometryHash().Equivalent(d.GeomId().GetHash()))
	assert.Equal(t, geomid.EmptyAlignmentId().HashValue, ev.AlignmentId().HashValue)

	_, err = d.Geometry(ev)
	require.NoError(t, err)
	assert.Len(t, calls, 1)

	name, err := geomid.FGDBar(0, 0, 0, 1).GetName()
	require.NoError(t, err)
	assert.Contains(t, name, "Bar_1")
}

func writeGeometryFile(t *testing.T, dir string, tree *geotree.Tree) (geomid.HashValue, geommanager.Opener) {
	t.Helper()
	h := geommanager.ComputeHash(tree)
	path := filepath.Join(dir, fmt.Sprintf("geom-%s.root", h.Hex()))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	c := geommanager.NewMemoryContainer(path)
	c.Add(geommanager.DefaultGeometryKey, tree)
	return h, geommanager.MemoryOpener{path: c}.Open
}

func TestGeometryFromLookup(t *testing.T) {
	cfg := testConfig(t)
	h, opener := writeGeometryFile(t, cfg.GeometryDir, fgdTree(t))
	d := newDatabase(t, cfg, WithOpener(opener), WithGeometryLookup(staticLookup{h}))

	_, err := d.Geometry(runEvent(1, 0))
	require.NoError(t, err)
	assert.True(t, d.GeomId().GetHash().Equivalent(h))

	old := d.RegisterGeometryLookup(panicLookup{})
	assert.Equal(t, staticLookup{h}, old)
	assert.False(t, d.FindEventGeometry(runEvent(1, 0)).Valid())
}

func TestGeometryFromList(t *testing.T) {
	cfg := testConfig(t)
	h, opener := writeGeometryFile(t, cfg.GeometryDir, fgdTree(t))
	list := fmt.Sprintf("2010-01-01 00:00 %s\n", h.Hex())
	require.NoError(t, os.WriteFile(filepath.Join(cfg.GeometryDir, cfg.GeometryList), []byte(list), 0o644))
	d := newDatabase(t, cfg, WithOpener(opener))

	ev := runEvent(1, time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC).Unix())
	assert.Equal(t, h, d.FindEventGeometry(ev))
	_, err := d.Geometry(ev)
	require.NoError(t, err)
	assert.True(t, ev.GeometryHash().Equivalent(h))
}

func TestApplyAlignmentLookup(t *testing.T) {
	aid := geomid.NewAlignmentId(geomid.NewHashValue(1, 2, 3, 4, 5), "survey")
	corrections := []geommanager.Correction{
		{Id: geomid.FGDBar(0, 0, 0, 0), Transform: geotree.Translation(r3.Vec{X: 7})},
		{Id: geomid.FGDBar(0, 0, 0, 1), Transform: geotree.Translation(r3.Vec{X: -7})},
	}

	t.Run("no lookup", func(t *testing.T) {
		d := newDatabase(t, testConfig(t))
		a := &fakeAligner{}
		id, err := d.ApplyAlignmentLookup(nil, a)
		require.NoError(t, err)
		assert.Equal(t, geomid.EmptyAlignmentId(), id)
		assert.Equal(t, 1, a.cleared)
		assert.Equal(t, 1, a.refreshed)
		assert.False(t, d.CheckAlignment(nil))
	})

	t.Run("corrections", func(t *testing.T) {
		lookup := &fakeAlignments{check: true, aid: aid, corrections: corrections}
		d := newDatabase(t, testConfig(t), WithAlignmentLookup(lookup))
		a := &fakeAligner{}
		id, err := d.ApplyAlignmentLookup(nil, a)
		require.NoError(t, err)
		assert.Equal(t, aid, id)
		assert.Equal(t, corrections, a.aligned)
		assert.Equal(t, 1, a.refreshed)
		assert.True(t, d.CheckAlignment(nil))
	})

	t.Run("no alignment", func(t *testing.T) {
		d := newDatabase(t, testConfig(t), WithAlignmentLookup(&fakeAlignments{}))
		id, err := d.ApplyAlignmentLookup(nil, &fakeAligner{})
		require.NoError(t, err)
		assert.Equal(t, geomid.EmptyAlignmentId(), id)
	})

	failures := []struct {
		name   string
		lookup *fakeAlignments
		fail   bool
	}{
		{"id without corrections", &fakeAlignments{aid: aid}, false},
		{"corrections without id", &fakeAlignments{corrections: corrections}, false},
		{"lookup error", &fakeAlignments{err: errors.New("database down")}, false},
		{"missing volume", &fakeAlignments{aid: aid, corrections: corrections}, true},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			d := newDatabase(t, testConfig(t), WithAlignmentLookup(tt.lookup))
			a := &fakeAligner{fail: tt.fail}
			_, err := d.ApplyAlignmentLookup(nil, a)
			assert.ErrorIs(t, err, geommanager.ErrBadAlignment)
			assert.ErrorIs(t, err, geommanager.ErrNoGeometry)
			assert.Equal(t, 1, a.refreshed)
		})
	}
}

func TestAlignedGeometry(t *testing.T) {
	c := geommanager.NewMemoryContainer("input.root")
	c.Add(geommanager.DefaultGeometryKey, fgdTree(t))
	aid := geomid.NewAlignmentId(geomid.NewHashValue(1, 2, 3, 4, 5), "survey")
	lookup := &fakeAlignments{aid: aid, corrections: []geommanager.Correction{
		{Id: geomid.FGDBar(0, 0, 0, 0), Transform: geotree.Translation(r3.Vec{X: 7})},
	}}
	cfg := testConfig(t)
	cfg.InputFile = "input.root"
	d := newDatabase(t, cfg,
		WithOpener(geommanager.MemoryOpener{"input.root": c}.Open),
		WithAlignmentLookup(lookup))

	ev := runEvent(1, 0)
	_, err := d.Geometry(ev)
	require.NoError(t, err)
	assert.Equal(t, 1, lookup.calls)
	assert.Equal(t, aid.HashValue, ev.AlignmentId().HashValue)

	pos, err := d.GeomId().GetPosition(geomid.FGDBar(0, 0, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 7, pos.X, 1e-9)
	assert.InDelta(t, -5, pos.Y, 1e-9)
	assert.InDelta(t, -500, pos.Z, 1e-9)

	// a failed re-alignment is retried by the next event
	lookup.check = true
	lookup.err = errors.New("database down")
	next := runEvent(1, 0)
	next.SetAlignmentId(geomid.NewAlignmentId(geomid.NewHashValue(9, 9, 9, 9, 9), ""))
	_, err = d.Geometry(next)
	assert.ErrorIs(t, err, geommanager.ErrBadAlignment)
	assert.False(t, d.GeomId().GetAlignmentId().Valid())
	assert.Equal(t, geomid.NewHashValue(9, 9, 9, 9, 9), next.AlignmentId().HashValue)

	lookup.err = nil
	_, err = d.Geometry(next)
	require.NoError(t, err)
	assert.Equal(t, 3, lookup.calls)
	assert.Equal(t, aid.HashValue, next.AlignmentId().HashValue)
	pos, err = d.GeomId().GetPosition(geomid.FGDBar(0, 0, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 7, pos.X, 1e-9)
}

func TestCloseKeepsOtherResolver(t *testing.T) {
	first := newDatabase(t, testConfig(t))
	first.GeomId().SetGeometry(fgdTree(t))
	second := newDatabase(t, testConfig(t))

	require.NoError(t, second.Close())
	name, err := geomid.FGDBar(0, 0, 0, 1).GetName()
	require.NoError(t, err)
	assert.Contains(t, name, "Bar_1")

	require.NoError(t, first.Close())
	_, err = geomid.FGDBar(0, 0, 0, 1).GetName()
	assert.ErrorIs(t, err, geomid.ErrNoGeometry)
}
