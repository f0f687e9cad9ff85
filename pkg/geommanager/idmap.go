package geommanager

import (
	"errors"
	"fmt"

	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geotree"
	"github.com/next-exp/oaevent_go/pkg/logger"
	"gonum.org/v1/gonum/spatial/r3"
)

func (m *Manager) buildGeomIdMap() {
	m.geomIdMap = make(map[geomid.GeometryId]int)
	m.rootIdMap = make(map[int]geomid.GeometryId)

	finders := m.finders()
	if len(finders) > 64 {
		logger.Error(fmt.Sprintf("Too many geometry id finders: %d", len(finders)))
		finders = finders[:64]
	}
	keepGoing := uint64(1)<<len(finders) - 1

	names := make([]string, 0, 20)
	m.recurseGeomId(m.tree.Top(), names, finders, keepGoing)

	m.metrics.entries.Set(float64(len(m.geomIdMap)))
	logger.Info(fmt.Sprintf("Geometry identifier map with %d entries.", len(m.geomIdMap)), "geometry")
}

// recurseGeomId offers node to every finder still interested in this
// branch. keepGoing holds one bit per finder and is copied into each call,
// so a finder that stops only misses the daughters of the current node.
func (m *Manager) recurseGeomId(index int, names []string, finders []Finder, keepGoing uint64) {
	node := m.tree.Node(index)
	names = append(names, node.Name)

	for i, f := range finders {
		mask := uint64(1) << i
		if keepGoing&mask == 0 {
			continue
		}
		id, ok, err := f.Search(names)
		if errors.Is(err, ErrFinderStop) {
			keepGoing &^= mask
			continue
		}
		if err != nil {
			logger.Error(fmt.Sprintf("Error from %T: %v", f, err))
			continue
		}
		if !ok {
			continue
		}
		// Ids are printed as integers: the resolver is not usable while
		// the map is being built.
		if !id.IsValid() {
			logger.Error(fmt.Sprintf("Invalid geometry id %d from %T", int32(id), f))
			continue
		}
		switch id.SubsystemName() {
		case "node":
			logger.Error(fmt.Sprintf("Plain node geometry id %d from %T", int32(id), f))
			continue
		case "unknown":
			logger.Error(fmt.Sprintf("Unknown geometry id %d from %T", int32(id), f))
			continue
		}
		if _, ok := m.geomIdMap[id]; ok {
			logger.Error(fmt.Sprintf("Duplicate id: %d", int32(id)))
			continue
		}
		m.geomIdMap[id] = index
		m.rootIdMap[index] = id
	}

	if keepGoing == 0 {
		return
	}
	for _, d := range node.Daughters {
		m.recurseGeomId(d, names, finders, keepGoing)
	}
}

// lookupLocked finds the node of id. A TPC pad resolves to its micromega.
func (m *Manager) lookupLocked(id geomid.GeometryId) (int, bool) {
	if index, ok := m.geomIdMap[id]; ok {
		return index, true
	}
	if geomid.IsTPCPad(id) {
		index, ok := m.geomIdMap[geomid.TPCPadMicroMega(id)]
		return index, ok
	}
	return -1, false
}

// GetGeometryId returns the id of the deepest mapped volume containing the
// point. The top volume is never mapped.
func (m *Manager) GetGeometryId(x, y, z float64) (geomid.GeometryId, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tree == nil {
		return geomid.EmptyId, ErrNoGeometry
	}
	chain := m.tree.Locate(r3.Vec{X: x, Y: y, Z: z})
	for i := len(chain) - 1; i > 0; i-- {
		if id, ok := m.rootIdMap[chain[i]]; ok {
			return id, nil
		}
	}
	m.metrics.misses.Inc()
	return geomid.EmptyId, &NotFoundError{Point: []float64{x, y, z}}
}

// GetPosition returns the master coordinates of the origin of the volume
// with id. Pads are placed at their micromega.
func (m *Manager) GetPosition(id geomid.GeometryId) (r3.Vec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.positionLocked(id)
}

func (m *Manager) positionLocked(id geomid.GeometryId) (r3.Vec, error) {
	if m.tree == nil {
		return r3.Vec{}, ErrNoGeometry
	}
	index, ok := m.lookupLocked(id)
	if !ok {
		return r3.Vec{}, &NotFoundError{Id: id}
	}
	return m.tree.GlobalTransform(index).Apply(r3.Vec{}), nil
}

// CdId moves the manager navigator to the volume with id.
func (m *Manager) CdId(id geomid.GeometryId) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	index, ok := m.lookupLocked(id)
	if !ok {
		return false
	}
	m.navMu.Lock()
	defer m.navMu.Unlock()
	return m.nav != nil && m.nav.CdNode(index)
}

// FindGeometryId walks up from the current node of the manager navigator
// and returns the first mapped id. The navigator is left where it was.
func (m *Manager) FindGeometryId() (geomid.GeometryId, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.navMu.Lock()
	defer m.navMu.Unlock()
	if m.nav == nil {
		return geomid.EmptyId, false
	}
	m.nav.PushPath()
	defer m.nav.PopPath()
	for {
		current := m.nav.CurrentNode()
		if current == m.tree.Top() {
			return geomid.EmptyId, false
		}
		if id, ok := m.rootIdMap[current]; ok {
			return id, true
		}
		m.nav.CdUp()
	}
}

// Navigator is the cursor moved by CdId. It is replaced when a geometry is
// loaded and must not be shared between goroutines.
func (m *Manager) Navigator() *geotree.Navigator {
	m.navMu.Lock()
	defer m.navMu.Unlock()
	return m.nav
}

func (m *Manager) GetPath(id geomid.GeometryId) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathLocked(id)
}

func (m *Manager) pathLocked(id geomid.GeometryId) string {
	if m.tree == nil || len(m.geomIdMap) == 0 {
		return "not-available"
	}
	if id == geomid.EmptyId {
		return "empty"
	}
	index, ok := m.lookupLocked(id)
	if !ok {
		return "invalid"
	}
	path := m.tree.Path(index)
	if geomid.IsTPCPad(id) {
		path += fmt.Sprintf("/Pad_%d", geomid.TPCGetPadNumber(id))
	}
	return path
}

func (m *Manager) GeomIdMap() map[geomid.GeometryId]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[geomid.GeometryId]int, len(m.geomIdMap))
	for k, v := range m.geomIdMap {
		out[k] = v
	}
	return out
}

func (m *Manager) RootIdMap() map[int]geomid.GeometryId {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int]geomid.GeometryId, len(m.rootIdMap))
	for k, v := range m.rootIdMap {
		out[k] = v
	}
	return out
}

// Volume describes the placed volume of an id.
type Volume struct {
	Index  int
	Name   string
	Path   string
	Shape  geotree.Shape
	Global geotree.Transform
}

func (m *Manager) Volume(id geomid.GeometryId) (Volume, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tree == nil {
		return Volume{}, ErrNoGeometry
	}
	index, ok := m.lookupLocked(id)
	if !ok {
		return Volume{}, &NotFoundError{Id: id}
	}
	node := m.tree.Node(index)
	return Volume{
		Index:  index,
		Name:   node.Name,
		Path:   m.tree.Path(index),
		Shape:  node.Shape,
		Global: m.tree.GlobalTransform(index),
	}, nil
}

// NodeStack returns the nodes containing p, deepest first, and the
// generation of the tree they belong to.
func (m *Manager) NodeStack(p r3.Vec) ([]int, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tree == nil {
		return nil, 0, ErrNoGeometry
	}
	chain := m.tree.Locate(p)
	stack := make([]int, len(chain))
	for i, index := range chain {
		stack[len(chain)-1-i] = index
	}
	return stack, m.tree.Generation(), nil
}

// Name and Position make the manager a geomid.Resolver. They do not wait
// for a load in progress.
func (m *Manager) Name(id geomid.GeometryId) (string, error) {
	if !m.mu.TryRLock() {
		return "", ErrGeometryBusy
	}
	defer m.mu.RUnlock()
	if m.tree == nil {
		return "", ErrNoGeometry
	}
	if _, ok := m.lookupLocked(id); !ok {
		return "", &NotFoundError{Id: id}
	}
	return m.pathLocked(id), nil
}

func (m *Manager) Position(id geomid.GeometryId) (r3.Vec, error) {
	if !m.mu.TryRLock() {
		return r3.Vec{}, ErrGeometryBusy
	}
	defer m.mu.RUnlock()
	return m.positionLocked(id)
}
