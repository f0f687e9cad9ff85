// Package geommanager maps between the volumes of a geometry tree and
// geometry ids. It loads geometries by hash, applies alignments and tells
// the rest of the program when the geometry changes.
package geommanager

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/next-exp/oaevent_go/pkg/event"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geotree"
	"github.com/next-exp/oaevent_go/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// Correction moves the volume Id away from its nominal placement. The new
// placement is the nominal one composed with Transform.
type Correction struct {
	Id        geomid.GeometryId
	Transform geotree.Transform
}

// Aligner moves volumes of the geometry being aligned. It is only valid
// during the ApplyAlignmentLookup call it is handed to.
type Aligner interface {
	// ClearAlignment restores the nominal geometry and returns the number
	// of volumes that were moved.
	ClearAlignment() int
	Align(c Correction) error
	Refresh()
}

// Hooks connects the manager to the database that owns it. The manager
// calls them while holding its lock, so they must not call back into the
// manager, except ApplyGeometryCallbacks which runs after the lock is
// released.
type Hooks interface {
	FindEventGeometry(ev *event.Event) geomid.HashValue
	CheckAlignment(ev *event.Event) bool
	ApplyAlignmentLookup(ev *event.Event, a Aligner) (geomid.AlignmentId, error)
	ApplyGeometryCallbacks(ev *event.Event)
	CurrentInputFile() string
}

type noHooks struct{}

func (noHooks) FindEventGeometry(*event.Event) geomid.HashValue { return geomid.HashValue{} }
func (noHooks) CheckAlignment(*event.Event) bool                { return false }
func (noHooks) ApplyGeometryCallbacks(*event.Event)             {}
func (noHooks) CurrentInputFile() string                        { return "" }

func (noHooks) ApplyAlignmentLookup(_ *event.Event, a Aligner) (geomid.AlignmentId, error) {
	a.ClearAlignment()
	a.Refresh()
	return geomid.EmptyAlignmentId(), nil
}

type Manager struct {
	mu          sync.RWMutex
	tree        *geotree.Tree
	hash        geomid.HashValue
	changedHash geomid.HashValue
	alignment   geomid.AlignmentId
	geomContext event.Context
	geomIdMap   map[geomid.GeometryId]int
	rootIdMap   map[int]geomid.GeometryId

	fileOverride string
	hashOverride geomid.HashValue
	geometryDir  string

	opener  Opener
	hooks   Hooks
	finders func() []Finder
	metrics *metrics

	// number of GetGeometry calls in progress
	busy atomic.Int32

	navMu sync.Mutex
	nav   *geotree.Navigator
}

type Option func(*Manager)

func WithOpener(o Opener) Option {
	return func(m *Manager) { m.opener = o }
}

func WithHooks(h Hooks) Option {
	return func(m *Manager) { m.hooks = h }
}

func WithGeometryDir(dir string) Option {
	return func(m *Manager) { m.geometryDir = dir }
}

// WithFinders replaces the ND280 finders. newFinders is called for every
// id map build.
func WithFinders(newFinders func() []Finder) Option {
	return func(m *Manager) { m.finders = newFinders }
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Manager) { m.metrics = newMetrics(reg) }
}

func New(opts ...Option) *Manager {
	m := &Manager{
		geometryDir: ".",
		hooks:       noHooks{},
		finders:     DefaultFinders,
		geomContext: event.NewContext(),
		geomIdMap:   make(map[geomid.GeometryId]int),
		rootIdMap:   make(map[int]geomid.GeometryId),
		opener: func(path string) (Container, error) {
			return nil, fmt.Errorf("no geometry opener for %s", path)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = newMetrics(nil)
	}
	return m
}

func (m *Manager) Tree() *geotree.Tree {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree
}

// GetHash returns the hash of the loaded geometry, zero when none is
// loaded.
func (m *Manager) GetHash() geomid.HashValue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hash
}

func (m *Manager) GetAlignmentId() geomid.AlignmentId {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alignment
}

// Generation identifies the loaded tree, zero when none is loaded.
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tree == nil {
		return 0
	}
	return m.tree.Generation()
}

// GeomEventContext is the context of the last event the geometry was
// checked for.
func (m *Manager) GeomEventContext() event.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.geomContext
}

func (m *Manager) SetGeometryFileOverride(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileOverride = path
}

func (m *Manager) GeometryFileOverride() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fileOverride
}

func (m *Manager) SetGeometryHashOverride(h geomid.HashValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashOverride = h
}

func (m *Manager) GeometryHashOverride() geomid.HashValue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hashOverride
}

func (m *Manager) SetGeometryDir(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geometryDir = dir
}

// GetGeometry makes sure the geometry for ev is loaded and aligned and
// returns it. ev may be nil. Calls made while another GetGeometry is in
// progress, such as from a geometry change callback, return the current
// tree without any check.
func (m *Manager) GetGeometry(ev *event.Event) (*geotree.Tree, error) {
	if count := m.busy.Add(1); count > 1 {
		defer m.busy.Add(-1)
		logger.Warn(fmt.Sprintf("Recursive geometry access: lock count is %d", count), "geometry")
		tree := m.Tree()
		if tree == nil {
			return nil, ErrNoGeometry
		}
		return tree, nil
	}
	defer m.busy.Add(-1)

	m.mu.Lock()
	changing := false
	if m.checkGeometryLocked(ev) {
		if m.findAndLoadLocked(ev) {
			changing = true
			if logger.Verbosity() > 1 {
				logger.Info("Loaded geometry with hash "+m.hash.String(), "geometry")
			}
		} else if m.tree != nil {
			logger.Warn("Geometry not reloaded, keeping "+m.tree.Name(), "geometry")
		}
	}

	if ev != nil {
		if ev.GeometryHash().Valid() && !ev.GeometryHash().Equivalent(m.hash) {
			logger.Warn(fmt.Sprintf("Event geometry has been changed from %s to %s", ev.GeometryHash(), m.hash), "geometry")
		}
		ev.SetGeometryHash(m.hash)
	}

	var alignErr error
	if m.tree != nil && m.checkAlignmentLocked(ev) {
		changing = true
		alignErr = m.applyAlignmentLocked(ev)
	}

	if ev != nil && alignErr == nil {
		if ev.AlignmentId().Valid() && !ev.AlignmentId().Equivalent(m.alignment.HashValue) {
			logger.Warn(fmt.Sprintf("Event alignment has changed from %s to %s", ev.AlignmentId().HashValue, m.alignment.HashValue), "geometry")
		}
		ev.SetAlignmentId(m.alignment)
	}

	tree := m.tree
	notify := false
	if tree != nil && (changing || !m.changedHash.Equivalent(m.hash)) {
		m.changedHash = m.hash
		notify = true
	}
	if ev != nil && tree != nil {
		m.geomContext = ev.Context()
	}
	m.mu.Unlock()

	if alignErr != nil {
		return nil, alignErr
	}
	if tree == nil {
		logger.Error("No geometry is available.")
		return nil, ErrNoGeometry
	}
	if notify {
		m.hooks.ApplyGeometryCallbacks(ev)
		logger.Info("Loaded "+tree.Name(), "geometry")
	}
	return tree, nil
}

// CheckGeometry reports whether the geometry must be looked up again for
// ev.
func (m *Manager) CheckGeometry(ev *event.Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkGeometryLocked(ev)
}

func (m *Manager) checkGeometryLocked(ev *event.Event) bool {
	if m.hashOverride.Equivalent(m.hash) {
		return false
	} else if m.hashOverride.Valid() {
		return true
	} else if m.fileOverride != "" {
		return true
	}

	if ev == nil {
		logger.Error("Invalid event: Using suspicious geometry.")
	}

	if m.tree == nil {
		logger.Info("Reload Geometry -- Not currently loaded", "geometry")
		return true
	}
	if !m.hash.Valid() {
		logger.Info("Reload Geometry -- Current Hash Invalid", "geometry")
		return true
	}
	if ev == nil {
		return false
	}
	if ev.GeometryHash().Equivalent(m.hash) {
		return false
	}
	// Without a hash in the event only a new run can change the geometry.
	if !ev.GeometryHash().Valid() &&
		m.geomContext.Run != event.Invalid &&
		m.geomContext.Run == ev.Context().Run {
		return false
	}
	return true
}

// CheckAlignment reports whether the alignment must be applied again for
// ev.
func (m *Manager) CheckAlignment(ev *event.Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkAlignmentLocked(ev)
}

func (m *Manager) checkAlignmentLocked(ev *event.Event) bool {
	if !m.alignment.Valid() {
		return true
	}
	if ev == nil {
		return false
	}
	if ev.AlignmentId().Equivalent(m.alignment.HashValue) {
		return false
	}
	return m.hooks.CheckAlignment(ev)
}

// findAndLoadLocked loads the geometry for ev, trying in order the
// override file, the override hash, the current input file and the
// geometry lookup. It returns true when a geometry was loaded.
func (m *Manager) findAndLoadLocked(ev *event.Event) bool {
	if m.hashOverride.Equivalent(m.hash) {
		return false
	}

	if m.fileOverride != "" {
		if c, err := m.opener(m.fileOverride); err != nil {
			logger.Warn("Geometry override file does not exist: "+err.Error(), "geometry")
		} else {
			err := m.loadGeometryLocked(c, geomid.HashValue{}, geomid.AlignmentId{})
			c.Close()
			if err == nil {
				logger.Info("Override geometry from "+c.Name(), "geometry")
				m.hashOverride = m.hash
				return true
			}
			logger.Error(err.Error())
		}
	}

	if m.hashOverride.Valid() {
		if err := m.readGeometryLocked(m.hashOverride); err == nil {
			logger.Info("Override geometry hash "+m.hashOverride.String(), "geometry")
			m.hashOverride = m.hash
			return true
		} else {
			logger.Error(err.Error())
		}
	}

	var hc geomid.HashValue
	var aid geomid.AlignmentId
	if ev != nil {
		hc = ev.GeometryHash()
		aid = ev.AlignmentId()
	}
	if input := m.hooks.CurrentInputFile(); input == "" {
		if logger.Verbosity() > 1 {
			logger.Warn("Input file not available to provide geometry", "geometry")
		}
	} else if c, err := m.opener(input); err != nil {
		logger.Warn("Cannot open input file: "+err.Error(), "geometry")
	} else {
		err := m.loadGeometryLocked(c, hc, aid)
		c.Close()
		if err == nil {
			logger.Info("Geometry loaded from "+input, "geometry")
			return true
		}
		if hc.Valid() {
			logger.Warn(fmt.Sprintf("Event needs geometry with %s, but not in file", hc), "geometry")
		}
	}

	// The usual path: the geometry named by the lookup.
	hc = m.hooks.FindEventGeometry(ev)
	if hc.Valid() && !m.hash.Equivalent(hc) {
		logger.Info("Look for geometry with "+hc.String(), "geometry")
		if err := m.readGeometryLocked(hc); err == nil {
			logger.Info("Geometry loaded from the geometry lookup", "geometry")
			return true
		} else {
			logger.Error(err.Error())
		}
	}

	if logger.Verbosity() > 1 {
		logger.Info("Geometry not loaded (no valid method found)", "geometry")
	}
	return false
}

// ApplyAlignment aligns the loaded geometry for ev using the alignment
// lookup of the hooks.
func (m *Manager) ApplyAlignment(ev *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyAlignmentLocked(ev)
}

func (m *Manager) applyAlignmentLocked(ev *event.Event) error {
	if m.tree == nil {
		logger.Error("ApplyAlignment called with invalid geometry")
		return ErrNoGeometry
	}
	if !m.hash.Valid() {
		logger.Error("ApplyAlignment called with invalid geometry tables")
		return fmt.Errorf("%w: invalid geometry tables", ErrNoGeometry)
	}

	aid, err := m.hooks.ApplyAlignmentLookup(ev, aligner{m})
	if err != nil {
		// The physical nodes are gone, so no alignment is in effect.
		m.alignment = geomid.AlignmentId{}
		if serr := SaveAlignmentCode(m.tree, m.alignment); serr != nil {
			logger.Error(serr.Error())
		}
		if !errors.Is(err, ErrBadAlignment) {
			err = fmt.Errorf("%w: %w", ErrBadAlignment, err)
		}
		return err
	}
	m.alignment = aid
	if err := SaveAlignmentCode(m.tree, aid); err != nil {
		logger.Error(err.Error())
	}
	m.metrics.alignments.Inc()
	return nil
}

// aligner works on the tree of a manager whose lock is held.
type aligner struct {
	m *Manager
}

func (a aligner) ClearAlignment() int {
	n := a.m.tree.PhysicalNodes()
	if n > 0 {
		logger.Info(fmt.Sprintf("Clear existing physical nodes: %d", n), "geometry")
	}
	a.m.tree.ClearPhysicalNodes()
	return n
}

func (a aligner) Align(c Correction) error {
	index, ok := a.m.lookupLocked(c.Id)
	if !ok {
		return &NotFoundError{Id: c.Id}
	}
	node, err := a.m.tree.MakePhysicalNode(a.m.tree.Path(index))
	if err != nil {
		return err
	}
	node.Align(node.Original().Compose(c.Transform))
	return nil
}

func (a aligner) Refresh() {
	a.m.tree.RefreshPhysicalNodes()
}
