package oadb

import (
	"math"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE GeometryHash (
	MinRun INTEGER, MaxRun INTEGER,
	Hash0 INTEGER, Hash1 INTEGER, Hash2 INTEGER, Hash3 INTEGER, Hash4 INTEGER
);
CREATE TABLE AlignmentSet (
	SetId INTEGER PRIMARY KEY, MinRun INTEGER, MaxRun INTEGER,
	Align0 INTEGER, Align1 INTEGER, Align2 INTEGER, Align3 INTEGER, Align4 INTEGER,
	Doc TEXT
);
CREATE TABLE AlignmentCorrection (
	SetId INTEGER, GeomId INTEGER,
	DX REAL, DY REAL, DZ REAL, RotX REAL, RotY REAL, RotZ REAL
);
`

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	db.MustExec(schema)

	db.MustExec(`INSERT INTO GeometryHash VALUES (1, 99, 1, 2, 3, 4, 5)`)
	db.MustExec(`INSERT INTO GeometryHash VALUES (100, 199, 4294967295, 0, 0, 0, 10)`)
	db.MustExec(`INSERT INTO AlignmentSet VALUES (1, 1, 99, 11, 12, 13, 14, 15, 'survey 2010')`)
	db.MustExec(`INSERT INTO AlignmentSet VALUES (2, 100, 199, 21, 22, 23, 24, 25, 'survey 2011')`)
	bar1 := int64(geomid.FGDBar(0, 0, 0, 1))
	bar0 := int64(geomid.FGDBar(0, 0, 0, 0))
	db.MustExec(`INSERT INTO AlignmentCorrection VALUES (1, ?, 0, 0, 0, 0, 0, ?)`, bar1, math.Pi/2)
	db.MustExec(`INSERT INTO AlignmentCorrection VALUES (1, ?, 1, 2, 3, 0, 0, 0)`, bar0)
	return db
}

func TestSQLGeometryLookup(t *testing.T) {
	l := NewSQLGeometryLookup(testDB(t))

	assert.Equal(t, geomid.NewHashValue(1, 2, 3, 4, 5), l.GetHash(runEvent(50, 0)))
	assert.Equal(t, geomid.NewHashValue(0xffffffff, 0, 0, 0, 10), l.GetHash(runEvent(100, 0)))
	assert.False(t, l.GetHash(runEvent(500, 0)).Valid())
	assert.False(t, l.GetHash(nil).Valid())

	ev := runEvent(50, 0)
	stored := geomid.NewHashValue(9, 9, 9, 9, 9)
	ev.SetGeometryHash(stored)
	assert.Equal(t, stored, l.GetHash(ev))
}

func TestSQLAlignmentLookup(t *testing.T) {
	l := NewSQLAlignmentLookup(testDB(t))
	first := runEvent(50, 0)
	assert.True(t, l.CheckAlignment(first))

	aid, corrections, err := l.Alignments(first)
	require.NoError(t, err)
	assert.Equal(t, geomid.NewHashValue(11, 12, 13, 14, 15), aid.HashValue)
	assert.Equal(t, "survey 2010", aid.Doc)
	require.Len(t, corrections, 2)
	assert.True(t, l.CheckAlignment(first))
	l.AlignmentApplied(true)
	assert.False(t, l.CheckAlignment(first))

	bar0, bar1 := corrections[0], corrections[1]
	assert.Equal(t, geomid.FGDBar(0, 0, 0, 0), bar0.Id)
	assert.Equal(t, geomid.FGDBar(0, 0, 0, 1), bar1.Id)
	p := bar0.Transform.Apply(r3.Vec{})
	assert.InDelta(t, 1, p.X, 1e-12)
	assert.InDelta(t, 2, p.Y, 1e-12)
	assert.InDelta(t, 3, p.Z, 1e-12)
	v := bar1.Transform.Apply(r3.Vec{X: 1})
	assert.InDelta(t, 0, v.X, 1e-12)
	assert.InDelta(t, 1, math.Abs(v.Y), 1e-12)

	second := runEvent(150, 0)
	assert.True(t, l.CheckAlignment(second))
	aid, corrections, err = l.Alignments(second)
	require.NoError(t, err)
	assert.Equal(t, "survey 2011", aid.Doc)
	assert.Empty(t, corrections)

	none := runEvent(500, 0)
	assert.True(t, l.CheckAlignment(none))
	aid, corrections, err = l.Alignments(none)
	require.NoError(t, err)
	assert.False(t, aid.Valid())
	assert.Nil(t, corrections)
	l.AlignmentApplied(true)
	assert.False(t, l.CheckAlignment(none))

	// a failed application leaves no set in effect
	_, _, err = l.Alignments(first)
	require.NoError(t, err)
	l.AlignmentApplied(false)
	assert.True(t, l.CheckAlignment(first))
	assert.True(t, l.CheckAlignment(none))
}

func TestDatabaseWithDB(t *testing.T) {
	db := testDB(t)
	d := newDatabase(t, testConfig(t), WithDB(db))
	assert.Equal(t, geomid.NewHashValue(1, 2, 3, 4, 5), d.FindEventGeometry(runEvent(5, 0)))
	assert.True(t, d.CheckAlignment(runEvent(5, 0)))
}

func TestDatabaseAlignmentFailure(t *testing.T) {
	d := newDatabase(t, testConfig(t), WithDB(testDB(t)))
	ev := runEvent(50, 0)

	_, err := d.ApplyAlignmentLookup(ev, &fakeAligner{fail: true})
	assert.ErrorIs(t, err, geommanager.ErrBadAlignment)
	assert.True(t, d.CheckAlignment(ev))

	a := &fakeAligner{}
	aid, err := d.ApplyAlignmentLookup(ev, a)
	require.NoError(t, err)
	assert.Equal(t, "survey 2010", aid.Doc)
	assert.Len(t, a.aligned, 2)
	assert.False(t, d.CheckAlignment(ev))
}
