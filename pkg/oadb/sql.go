package oadb

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/next-exp/oaevent_go/pkg/event"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"github.com/next-exp/oaevent_go/pkg/geotree"
	"github.com/next-exp/oaevent_go/pkg/logger"
	"gonum.org/v1/gonum/spatial/r3"
)

// ConnectToDatabase opens the MySQL run database.
func ConnectToDatabase(user, password, host, database string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, password, host, port, database)
	return sqlx.Connect("mysql", dbURI)
}

type hashRow struct {
	Hash0 uint32 `db:"Hash0"`
	Hash1 uint32 `db:"Hash1"`
	Hash2 uint32 `db:"Hash2"`
	Hash3 uint32 `db:"Hash3"`
	Hash4 uint32 `db:"Hash4"`
}

func (r hashRow) HashValue() geomid.HashValue {
	return geomid.NewHashValue(r.Hash0, r.Hash1, r.Hash2, r.Hash3, r.Hash4)
}

// SQLGeometryLookup chooses the geometry by run number from the
// GeometryHash table.
type SQLGeometryLookup struct {
	db *sqlx.DB
}

func NewSQLGeometryLookup(db *sqlx.DB) *SQLGeometryLookup {
	return &SQLGeometryLookup{db: db}
}

func runNumber(ev *event.Event) (int32, error) {
	if ev == nil || ev.Context().Run == event.Invalid {
		return 0, ErrNoRunContext
	}
	return ev.Context().Run, nil
}

func (l *SQLGeometryLookup) GetHash(ev *event.Event) geomid.HashValue {
	if ev != nil && ev.GeometryHash().Valid() {
		return ev.GeometryHash()
	}
	run, err := runNumber(ev)
	if err != nil {
		return geomid.HashValue{}
	}

	query := "SELECT Hash0, Hash1, Hash2, Hash3, Hash4 FROM GeometryHash " +
		"WHERE MinRun <= ? AND MaxRun >= ? ORDER BY MinRun DESC LIMIT 1"
	var row hashRow
	if err := l.db.Get(&row, query, run, run); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Error(fmt.Errorf("error querying geometry hash: %w", err).Error())
		}
		return geomid.HashValue{}
	}
	return row.HashValue()
}

type alignmentSetRow struct {
	SetId  int64  `db:"SetId"`
	Align0 uint32 `db:"Align0"`
	Align1 uint32 `db:"Align1"`
	Align2 uint32 `db:"Align2"`
	Align3 uint32 `db:"Align3"`
	Align4 uint32 `db:"Align4"`
	Doc    string `db:"Doc"`
}

type correctionRow struct {
	GeomId int32   `db:"GeomId"`
	DX     float64 `db:"DX"`
	DY     float64 `db:"DY"`
	DZ     float64 `db:"DZ"`
	RotX   float64 `db:"RotX"`
	RotY   float64 `db:"RotY"`
	RotZ   float64 `db:"RotZ"`
}

// Correction rotates about X, then Y, then Z, and then translates.
func (r correctionRow) Correction() geommanager.Correction {
	rot := geotree.Rotation(r3.Vec{Z: 1}, r.RotZ).
		Compose(geotree.Rotation(r3.Vec{Y: 1}, r.RotY)).
		Compose(geotree.Rotation(r3.Vec{X: 1}, r.RotX))
	return geommanager.Correction{
		Id:        geomid.GeometryId(r.GeomId),
		Transform: geotree.Translation(r3.Vec{X: r.DX, Y: r.DY, Z: r.DZ}).Compose(rot),
	}
}

// SQLAlignmentLookup reads alignment sets by run number from the
// AlignmentSet and AlignmentCorrection tables.
type SQLAlignmentLookup struct {
	db *sqlx.DB

	mu      sync.Mutex
	pending int64
	applied int64
}

const (
	noAlignmentSet      = -1
	unknownAlignmentSet = -2
)

func NewSQLAlignmentLookup(db *sqlx.DB) *SQLAlignmentLookup {
	return &SQLAlignmentLookup{db: db, pending: noAlignmentSet, applied: noAlignmentSet}
}

func (l *SQLAlignmentLookup) alignmentSet(ev *event.Event) (alignmentSetRow, bool, error) {
	run, err := runNumber(ev)
	if err != nil {
		return alignmentSetRow{}, false, nil
	}
	query := "SELECT SetId, Align0, Align1, Align2, Align3, Align4, Doc FROM AlignmentSet " +
		"WHERE MinRun <= ? AND MaxRun >= ? ORDER BY MinRun DESC LIMIT 1"
	var row alignmentSetRow
	if err := l.db.Get(&row, query, run, run); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return alignmentSetRow{}, false, nil
		}
		return alignmentSetRow{}, false, fmt.Errorf("error querying alignment set: %w", err)
	}
	return row, true, nil
}

// CheckAlignment is true when the run of ev uses another alignment set
// than the one applied last.
func (l *SQLAlignmentLookup) CheckAlignment(ev *event.Event) bool {
	set, found, err := l.alignmentSet(ev)
	if err != nil {
		logger.Error(err.Error())
		return false
	}
	id := int64(noAlignmentSet)
	if found {
		id = set.SetId
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return id != l.applied
}

func (l *SQLAlignmentLookup) Alignments(ev *event.Event) (geomid.AlignmentId, []geommanager.Correction, error) {
	set, found, err := l.alignmentSet(ev)
	if err != nil {
		return geomid.AlignmentId{}, nil, err
	}
	if !found {
		l.mu.Lock()
		l.pending = noAlignmentSet
		l.mu.Unlock()
		return geomid.AlignmentId{}, nil, nil
	}

	var rows []correctionRow
	query := "SELECT GeomId, DX, DY, DZ, RotX, RotY, RotZ FROM AlignmentCorrection " +
		"WHERE SetId = ? ORDER BY GeomId"
	if err := l.db.Select(&rows, query, set.SetId); err != nil {
		return geomid.AlignmentId{}, nil, fmt.Errorf("error querying alignment corrections: %w", err)
	}
	corrections := make([]geommanager.Correction, 0, len(rows))
	for _, r := range rows {
		corrections = append(corrections, r.Correction())
	}

	l.mu.Lock()
	l.pending = set.SetId
	l.mu.Unlock()

	h := geomid.NewHashValue(set.Align0, set.Align1, set.Align2, set.Align3, set.Align4)
	return geomid.NewAlignmentId(h, set.Doc), corrections, nil
}

// AlignmentApplied records the set returned last by Alignments as the one
// in effect. After a failure no set is in effect and CheckAlignment
// reports true for every event.
func (l *SQLAlignmentLookup) AlignmentApplied(ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ok {
		l.applied = l.pending
	} else {
		l.applied = unknownAlignmentSet
	}
}
