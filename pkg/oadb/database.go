// Package oadb ties the geometry manager, the digit manager and the
// geometry and alignment lookups together for one processing session.
package oadb

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/next-exp/oaevent_go/pkg/config"
	"github.com/next-exp/oaevent_go/pkg/digits"
	"github.com/next-exp/oaevent_go/pkg/event"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"github.com/next-exp/oaevent_go/pkg/geotree"
	"github.com/next-exp/oaevent_go/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

type Database struct {
	config  config.Configuration
	geom    *geommanager.Manager
	digits  *digits.Manager
	geomOps []geommanager.Option

	mu               sync.Mutex
	callbacks        []GeometryChange
	geometryLookup   GeometryLookup
	alignmentLookup  AlignmentLookup
	defaultLookup    *DefaultGeometryLookup
	currentInputFile string
	db               *sqlx.DB
}

type Option func(*Database)

func WithOpener(o geommanager.Opener) Option {
	return func(d *Database) { d.geomOps = append(d.geomOps, geommanager.WithOpener(o)) }
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(d *Database) { d.geomOps = append(d.geomOps, geommanager.WithRegisterer(reg)) }
}

func WithGeometryLookup(l GeometryLookup) Option {
	return func(d *Database) { d.geometryLookup = l }
}

func WithAlignmentLookup(l AlignmentLookup) Option {
	return func(d *Database) { d.alignmentLookup = l }
}

// WithDB uses the run database for both lookups. The database is closed
// with the Database.
func WithDB(db *sqlx.DB) Option {
	return func(d *Database) {
		d.db = db
		d.geometryLookup = NewSQLGeometryLookup(db)
		d.alignmentLookup = NewSQLAlignmentLookup(db)
	}
}

// New builds the database for a session. The geometry overrides and the
// input file of cfg are applied.
func New(cfg config.Configuration, opts ...Option) (*Database, error) {
	d := &Database{
		config:           cfg,
		digits:           digits.NewManager(cfg.PersistentDigits),
		currentInputFile: cfg.InputFile,
	}
	for _, opt := range opts {
		opt(d)
	}
	geomOps := append([]geommanager.Option{
		geommanager.WithHooks(d),
		geommanager.WithGeometryDir(cfg.GeometryDir),
	}, d.geomOps...)
	d.geom = geommanager.New(geomOps...)

	if cfg.GeometryHash != "" {
		hc, ok := geomid.ParseHashValue(cfg.GeometryHash)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBadGeometryHash, cfg.GeometryHash)
		}
		d.SetGeometryHashOverride(hc)
	}
	if cfg.GeometryFile != "" {
		d.SetGeometryOverride(cfg.GeometryFile)
	}
	return d, nil
}

func (d *Database) GeomId() *geommanager.Manager {
	return d.geom
}

func (d *Database) Digits() *digits.Manager {
	return d.digits
}

// Geometry returns the geometry for ev, loading and aligning it when
// needed.
func (d *Database) Geometry(ev *event.Event) (*geotree.Tree, error) {
	return d.geom.GetGeometry(ev)
}

// SetGeometryOverride forces the geometry to be read from file. An empty
// name removes both overrides.
func (d *Database) SetGeometryOverride(file string) {
	d.geom.SetGeometryFileOverride("")
	d.geom.SetGeometryHashOverride(geomid.HashValue{})
	if file != "" {
		d.geom.SetGeometryFileOverride(file)
	}
}

// SetGeometryHashOverride forces the geometry with hash hc to be used.
func (d *Database) SetGeometryHashOverride(hc geomid.HashValue) {
	d.geom.SetGeometryFileOverride("")
	d.geom.SetGeometryHashOverride(hc)
}

func (d *Database) SetCurrentInputFile(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentInputFile = path
}

func (d *Database) CurrentInputFile() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentInputFile
}

func (d *Database) InputFile() (string, error) {
	path := d.CurrentInputFile()
	if path == "" {
		return "", ErrNoInputFile
	}
	return path, nil
}

// RegisterGeometryCallback adds a callback. Adding it twice has no effect.
func (d *Database) RegisterGeometryCallback(c GeometryChange) {
	if c == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, old := range d.callbacks {
		if old == c {
			return
		}
	}
	d.callbacks = append(d.callbacks, c)
}

func (d *Database) RemoveGeometryCallback(c GeometryChange) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, old := range d.callbacks {
		if old == c {
			d.callbacks = append(d.callbacks[:i], d.callbacks[i+1:]...)
			return
		}
	}
}

func (d *Database) ClearGeometryCallbacks() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks = nil
}

// ApplyGeometryCallbacks calls every callback in registration order.
func (d *Database) ApplyGeometryCallbacks(ev *event.Event) {
	d.mu.Lock()
	callbacks := append([]GeometryChange(nil), d.callbacks...)
	d.mu.Unlock()
	for _, c := range callbacks {
		c.Callback(ev)
	}
}

// RegisterGeometryLookup replaces the geometry lookup and returns the old
// one. A nil lookup selects the GEOMETRY.LIST lookup.
func (d *Database) RegisterGeometryLookup(l GeometryLookup) GeometryLookup {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.geometryLookup
	d.geometryLookup = l
	return old
}

// RegisterAlignmentLookup replaces the alignment lookup and returns the old
// one. A nil lookup disables alignment.
func (d *Database) RegisterAlignmentLookup(l AlignmentLookup) AlignmentLookup {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.alignmentLookup
	d.alignmentLookup = l
	return old
}

func (d *Database) geometryListPath() string {
	path := d.config.GeometryList
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.config.GeometryDir, path)
}

// lookupLocked returns the registered geometry lookup, loading the default
// one on first use.
func (d *Database) lookupLocked() GeometryLookup {
	if d.geometryLookup != nil {
		return d.geometryLookup
	}
	if d.defaultLookup == nil {
		l, err := LoadGeometryList(d.geometryListPath())
		if err != nil {
			logger.Error(err.Error())
			l = &DefaultGeometryLookup{}
		}
		d.defaultLookup = l
	}
	return d.defaultLookup
}

// FindEventGeometry asks the geometry lookup for the hash of ev. A lookup
// that panics gives the invalid hash.
func (d *Database) FindEventGeometry(ev *event.Event) (hc geomid.HashValue) {
	d.mu.Lock()
	l := d.lookupLocked()
	d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("Geometry lookup failed: %v", r))
			hc = geomid.HashValue{}
		}
	}()
	return l.GetHash(ev)
}

func (d *Database) CheckAlignment(ev *event.Event) bool {
	d.mu.Lock()
	l := d.alignmentLookup
	d.mu.Unlock()
	if l == nil {
		return false
	}
	return l.CheckAlignment(ev)
}

// ApplyAlignmentLookup clears the alignment of the geometry and applies the
// corrections of the alignment lookup. An alignment id without corrections,
// or corrections without an id, is an error. Without a valid id the empty
// alignment id is returned.
func (d *Database) ApplyAlignmentLookup(ev *event.Event, a geommanager.Aligner) (geomid.AlignmentId, error) {
	a.ClearAlignment()

	d.mu.Lock()
	l := d.alignmentLookup
	d.mu.Unlock()

	var id geomid.AlignmentId
	if l != nil {
		aid, err := applyAlignments(ev, l, a)
		if r, ok := l.(AlignmentRecorder); ok {
			r.AlignmentApplied(err == nil)
		}
		if err != nil {
			return geomid.AlignmentId{}, err
		}
		id = aid
	} else {
		a.Refresh()
	}

	if !id.Valid() {
		if logger.Verbosity() > 1 {
			logger.Info("No alignment id, so create an empty one", "geometry")
		}
		id = geomid.EmptyAlignmentId()
	}
	return id, nil
}

func applyAlignments(ev *event.Event, l AlignmentLookup, a geommanager.Aligner) (geomid.AlignmentId, error) {
	logger.Info("Apply alignment to event", "geometry")
	id, corrections, err := l.Alignments(ev)
	if err != nil {
		a.Refresh()
		return geomid.AlignmentId{}, fmt.Errorf("%w: %w", geommanager.ErrBadAlignment, err)
	}
	if !id.Valid() {
		logger.Info("No alignment should be applied", "geometry")
	}

	count := 0
	for _, c := range corrections {
		if err := a.Align(c); err != nil {
			a.Refresh()
			return geomid.AlignmentId{}, fmt.Errorf("%w: %w", geommanager.ErrBadAlignment, err)
		}
		count++
	}
	if count > 0 {
		logger.Info(fmt.Sprintf("Applied %d alignment matrices.", count), "geometry")
	}
	a.Refresh()

	if id.Valid() != (count > 0) {
		logger.Error("Invalid alignment applied to geometry")
		return geomid.AlignmentId{}, geommanager.ErrBadAlignment
	}
	return id, nil
}

// Close forgets the callbacks, removes the geometry resolver and closes the
// lookups that hold resources.
func (d *Database) Close() error {
	d.ClearGeometryCallbacks()
	geomid.ClearResolver(d.geom)

	d.mu.Lock()
	defer d.mu.Unlock()
	var closeErr error
	for _, l := range []any{d.geometryLookup, d.alignmentLookup} {
		if c, ok := l.(io.Closer); ok {
			if err := c.Close(); err != nil && closeErr == nil {
				closeErr = err
			}
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
		d.db = nil
	}
	return closeErr
}
