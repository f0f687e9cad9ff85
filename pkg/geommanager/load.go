package geommanager

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/next-exp/oaevent_go/pkg/event"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geotree"
	"github.com/next-exp/oaevent_go/pkg/logger"
)

// hashPattern matches the five words of h, any word for the unknown ones.
func hashPattern(h geomid.HashValue) string {
	words := make([]string, len(h))
	for i, w := range h {
		if w == 0 {
			words[i] = "[[:xdigit:]]{8}"
			continue
		}
		words[i] = fmt.Sprintf("%08x", w)
	}
	return strings.Join(words, "-")
}

// LoadGeometry reads a geometry from c and makes it current. The key is
// chosen in order of preference: one matching both hc and align, one
// matching hc, and the plain ND280Geometry key. Zero words of hc and align
// match anything.
func (m *Manager) LoadGeometry(c Container, hc geomid.HashValue, align geomid.AlignmentId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadGeometryLocked(c, hc, align)
}

func (m *Manager) loadGeometryLocked(c Container, hc geomid.HashValue, align geomid.AlignmentId) error {
	geometryRegexp := regexp.MustCompile("^" + geometryPrefix + hashPattern(hc))
	alignedRegexp := regexp.MustCompile("^" + geometryPrefix + hashPattern(hc) + ":" + hashPattern(align.HashValue))

	var defaultKey, geometryKey, alignedKey string
	for _, key := range c.Keys() {
		if defaultKey == "" && key == DefaultGeometryKey {
			defaultKey = key
		}
		if geometryKey == "" && geometryRegexp.MatchString(key) {
			geometryKey = key
		}
		if alignedKey == "" && alignedRegexp.MatchString(key) {
			alignedKey = key
		}
	}
	key := defaultKey
	if geometryKey != "" {
		key = geometryKey
	}
	if alignedKey != "" {
		key = alignedKey
	}
	if key == "" {
		return fmt.Errorf("%w: %s %s", ErrGeometryNotInFile, c.Name(), hc)
	}

	tree, err := c.ReadTree(key)
	if err != nil {
		return fmt.Errorf("error reading geometry %s from %s: %w", key, c.Name(), err)
	}

	fileName := filepath.Base(c.Name())
	logger.Info("Geometry read from "+fileName, "geometry")

	// A tree saved before hashing carries its hash in the file name only.
	if _, ok := HashCodeFromName(tree.Name()); !ok {
		start := strings.Index(fileName, "geom-")
		if start >= 0 && strings.Contains(fileName, ".root") {
			if h, ok := ParseHashCode(fileName[start+len("geom-"):]); ok {
				if err := SaveHashCode(tree, h); err != nil {
					logger.Error(err.Error())
				}
			}
		}
	}

	m.resetLocked(tree)
	m.metrics.loads.Inc()
	return nil
}

// FindGeometryFile returns the path of the first file in the geometry
// directory named after hc.
func (m *Manager) FindGeometryFile(hc geomid.HashValue) (string, error) {
	m.mu.RLock()
	dir := m.geometryDir
	m.mu.RUnlock()
	return findGeometryFile(dir, hc)
}

func findGeometryFile(dir string, hc geomid.HashValue) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNoGeometryDir, dir, err)
	}
	fileRegexp := regexp.MustCompile("geom-" + hashPattern(hc) + `\.root$`)
	for _, entry := range entries {
		if entry.IsDir() || !fileRegexp.MatchString(entry.Name()) {
			continue
		}
		return filepath.Join(dir, entry.Name()), nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoGeometryFile, hc)
}

// ReadGeometry finds the file named after hc and loads it.
func (m *Manager) ReadGeometry(hc geomid.HashValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readGeometryLocked(hc)
}

func (m *Manager) readGeometryLocked(hc geomid.HashValue) error {
	path, err := findGeometryFile(m.geometryDir, hc)
	if err != nil {
		return err
	}
	c, err := m.opener(path)
	if err != nil {
		return fmt.Errorf("cannot open geometry file %s: %w", path, err)
	}
	defer c.Close()
	return m.loadGeometryLocked(c, hc, geomid.AlignmentId{})
}

// SetGeometry makes tree the current geometry, as if it had been loaded
// from a file.
func (m *Manager) SetGeometry(tree *geotree.Tree) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked(tree)
	if tree != nil {
		m.metrics.loads.Inc()
	}
}

// ResetGeometry rebuilds the hash and id map of the current tree and
// forgets the alignment and the last notified hash.
func (m *Manager) ResetGeometry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked(m.tree)
}

func (m *Manager) resetLocked(tree *geotree.Tree) {
	m.geomIdMap = make(map[geomid.GeometryId]int)
	m.rootIdMap = make(map[int]geomid.GeometryId)
	m.hash = geomid.HashValue{}
	m.changedHash = geomid.HashValue{}
	m.alignment = geomid.AlignmentId{}
	m.geomContext = event.NewContext()
	m.tree = tree
	m.metrics.entries.Set(0)

	m.navMu.Lock()
	m.nav = nil
	if tree != nil {
		m.nav = tree.Navigator()
	}
	m.navMu.Unlock()

	if tree == nil {
		if logger.Verbosity() > 1 {
			logger.Info("ResetGeometry without a geometry", "geometry")
		}
		return
	}

	m.buildHashCode()
	if !m.hash.Valid() {
		logger.Error("Geometry reset, but no valid hash is available")
		return
	}

	// The geometry may already have an alignment applied.
	if aid, ok := AlignmentCodeFromName(tree.Name()); ok {
		m.alignment = aid
	}

	m.buildGeomIdMap()
	geomid.SetResolver(m)
}

func (m *Manager) buildHashCode() {
	tree := m.tree
	if top := tree.Node(tree.Top()); top != nil && top.Name != "t2k" {
		logger.Warn("Geometry top volume has changed to "+top.Name, "geometry")
	}

	if h, ok := HashCodeFromName(tree.Name()); ok {
		m.hash = h
		return
	}

	h := ComputeHash(tree)
	if err := SaveHashCode(tree, h); err != nil {
		logger.Error(fmt.Errorf("could not build hash code: %w", err).Error())
		return
	}
	m.hash = h
	if logger.Verbosity() > 1 {
		logger.Info("Built hash code: "+h.String(), "geometry")
	}
}
