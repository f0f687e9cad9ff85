package geofile

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/jmbenlloch/go-hdf5"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geotree"
	"github.com/next-exp/oaevent_go/pkg/logger"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	nodesTable = "nodes"
	infoTable  = "info"
)

// FileName is the canonical name of the file holding the geometry with
// hash h.
func FileName(h geomid.HashValue) string {
	return fmt.Sprintf("geom-%s.root", h.Hex())
}

var fileNameRegex = regexp.MustCompile(`geom-([0-9a-fx]{8}(?:-[0-9a-fx]{8}){4})`)

// ParseFileName recovers the geometry hash from a file name written by
// FileName. Directories are ignored.
func ParseFileName(path string) (geomid.HashValue, bool) {
	match := fileNameRegex.FindStringSubmatch(filepath.Base(path))
	if match == nil {
		return geomid.HashValue{}, false
	}
	return geomid.ParseHashValue(match[1])
}

// File is a geometry container: one HDF5 group per geometry key, each
// holding the node table of one tree.
type File struct {
	path     string
	file     *hdf5.File
	writable bool

	mu sync.Mutex
}

// Create truncates path and opens it for writing.
func Create(path string) (*File, error) {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("error creating geometry file %s: %w", path, err)
	}
	if logger.Verbosity() > 0 {
		logger.Info(fmt.Sprintf("file [%s] created (id=%d)", path, f.ID()), "geofile")
	}
	return &File{path: path, file: f, writable: true}, nil
}

func Open(path string) (*File, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("error opening geometry file %s: %w", path, err)
	}
	return &File{path: path, file: f}, nil
}

func (f *File) Path() string {
	return f.path
}

// Name makes File a geommanager.Container.
func (f *File) Name() string {
	return f.path
}

// Keys lists the geometry groups in the file, sorted.
func (f *File) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.file.NumObjects()
	if err != nil {
		logger.Error(fmt.Errorf("error listing %s: %w", f.path, err).Error())
		return nil
	}
	keys := make([]string, 0, n)
	for i := uint(0); i < n; i++ {
		name, err := f.file.ObjectNameByIndex(i)
		if err != nil {
			logger.Error(fmt.Errorf("error listing %s: %w", f.path, err).Error())
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

// WriteTree stores tree under key.
func (f *File) WriteTree(key string, tree *geotree.Tree) error {
	if !f.writable {
		return fmt.Errorf("geometry file %s is read only", f.path)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := make([]NodeHDF5, tree.NumNodes())
	for i := range rows {
		node := tree.Node(i)
		name, err := convertToHdf5String(node.Name)
		if err != nil {
			return err
		}
		t := node.Local.Trans
		rows[i] = NodeHDF5{
			Index:  int32(i),
			Parent: int32(node.Parent),
			Name:   name,
			HalfX:  node.Shape.DX,
			HalfY:  node.Shape.DY,
			HalfZ:  node.Shape.DZ,
			Rot:    node.Local.RotationElements(),
			Trans:  [3]float64{t.X, t.Y, t.Z},
		}
	}
	treeName, err := convertToHdf5TreeName(tree.Name())
	if err != nil {
		return err
	}
	info := []TreeInfoHDF5{{Name: treeName, Nodes: int32(len(rows))}}

	group, err := f.file.CreateGroup(key)
	if err != nil {
		return fmt.Errorf("error creating group %s: %w", key, err)
	}
	defer group.Close()

	nodes, err := createTable(group, nodesTable, NodeHDF5{})
	if err != nil {
		return err
	}
	defer nodes.Close()
	if err := writeArrayToTable(nodes, &rows); err != nil {
		return fmt.Errorf("error writing nodes of %s: %w", key, err)
	}

	infoDset, err := createTable(group, infoTable, TreeInfoHDF5{})
	if err != nil {
		return err
	}
	defer infoDset.Close()
	if err := writeArrayToTable(infoDset, &info); err != nil {
		return fmt.Errorf("error writing info of %s: %w", key, err)
	}
	return nil
}

// ReadTree rebuilds the tree stored under key.
func (f *File) ReadTree(key string) (*geotree.Tree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	group, err := f.file.OpenGroup(key)
	if err != nil {
		return nil, fmt.Errorf("error opening group %s: %w", key, err)
	}
	defer group.Close()

	info, err := readTable[TreeInfoHDF5](group, infoTable)
	if err != nil {
		return nil, err
	}
	if len(info) != 1 {
		return nil, fmt.Errorf("group %s has %d info rows", key, len(info))
	}
	rows, err := readTable[NodeHDF5](group, nodesTable)
	if err != nil {
		return nil, err
	}
	if int(info[0].Nodes) != len(rows) {
		return nil, fmt.Errorf("group %s has %d nodes, expected %d", key, len(rows), info[0].Nodes)
	}

	tree := geotree.New(convertFromHdf5String(info[0].Name[:]))
	for _, row := range rows {
		local := geotree.FromElements(row.Rot, r3.Vec{X: row.Trans[0], Y: row.Trans[1], Z: row.Trans[2]})
		shape := geotree.Shape{DX: row.HalfX, DY: row.HalfY, DZ: row.HalfZ}
		index, err := tree.AddNode(int(row.Parent), convertFromHdf5String(row.Name[:]), shape, local)
		if err != nil {
			return nil, fmt.Errorf("error rebuilding %s: %w", key, err)
		}
		if index != int(row.Index) {
			return nil, fmt.Errorf("group %s: node %d stored out of order", key, row.Index)
		}
	}
	return tree, nil
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
