package geofile

import (
	"bytes"
	"fmt"

	"github.com/jmbenlloch/go-hdf5"
)

const (
	NameLength     = 64
	TreeNameLength = 128
	chunkSize      = 1024
)

// NodeHDF5 is one row of the node table of a geometry group. Rows are
// written in index order so every parent precedes its daughters.
type NodeHDF5 struct {
	Index  int32            `hdf5:"index"`
	Parent int32            `hdf5:"parent"`
	Name   [NameLength]byte `hdf5:"name"`
	HalfX  float64          `hdf5:"half_x"`
	HalfY  float64          `hdf5:"half_y"`
	HalfZ  float64          `hdf5:"half_z"`
	Rot    [9]float64       `hdf5:"rotation"`
	Trans  [3]float64       `hdf5:"translation"`
}

type TreeInfoHDF5 struct {
	Name  [TreeNameLength]byte `hdf5:"name"`
	Nodes int32                `hdf5:"nodes"`
}

func convertToHdf5String(s string) ([NameLength]byte, error) {
	var byteArray [NameLength]byte
	if len(s) > NameLength {
		return byteArray, fmt.Errorf("name %q longer than %d characters", s, NameLength)
	}
	copy(byteArray[:], s)
	return byteArray, nil
}

func convertToHdf5TreeName(s string) ([TreeNameLength]byte, error) {
	var byteArray [TreeNameLength]byte
	if len(s) > TreeNameLength {
		return byteArray, fmt.Errorf("tree name %q longer than %d characters", s, TreeNameLength)
	}
	copy(byteArray[:], s)
	return byteArray, nil
}

func convertFromHdf5String(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func createTable(group *hdf5.Group, name string, datatype interface{}) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, fmt.Errorf("error creating dataspace for %s: %w", name, err)
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, fmt.Errorf("error creating property list for %s: %w", name, err)
	}
	defer plist.Close()
	plist.SetChunk([]uint{chunkSize})
	plist.SetDeflate(4)

	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, fmt.Errorf("error creating datatype for %s: %w", name, err)
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, fmt.Errorf("error creating dataset %s: %w", name, err)
	}
	return dset, nil
}

func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dataspace, err := hdf5.CreateSimpleDataspace([]uint{length}, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	// extend
	dimsGot, _, err := dataset.Space().SimpleExtentDims()
	if err != nil {
		return err
	}
	rowsInTable := dimsGot[0]
	if err := dataset.Resize([]uint{rowsInTable + length}); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{rowsInTable}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}

func readTable[T any](group *hdf5.Group, name string) ([]T, error) {
	dataset, err := group.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset %s: %w", name, err)
	}
	defer dataset.Close()

	space := dataset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, err
	}
	// The slice must be allocated with its final length before reading.
	rows := make([]T, dims[0])
	if len(rows) == 0 {
		return rows, nil
	}
	if err := dataset.Read(&rows); err != nil {
		return nil, fmt.Errorf("error reading dataset %s: %w", name, err)
	}
	return rows, nil
}
