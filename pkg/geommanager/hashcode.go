package geommanager

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geotree"
)

const (
	DefaultGeometryKey = "ND280Geometry"
	geometryPrefix     = DefaultGeometryKey + "-"
	// Offset of the ':' that separates the alignment code from the hash
	// code in a geometry name, and the length of a fully aligned name.
	alignmentOffset   = 58
	alignedNameLength = 102
)

// ComputeHash digests the tree depth first: for every node its path
// followed by the x, y and z of its nominal translation in the mother
// volume, as little endian float64.
func ComputeHash(tree *geotree.Tree) geomid.HashValue {
	top := tree.Top()
	if top < 0 {
		return geomid.HashValue{}
	}
	digest := sha1.New()
	var buf [8]byte
	var walk func(index int)
	walk = func(index int) {
		node := tree.Node(index)
		digest.Write([]byte(tree.Path(index)))
		t := node.Local.Trans
		for _, x := range []float64{t.X, t.Y, t.Z} {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
			digest.Write(buf[:])
		}
		for _, d := range node.Daughters {
			walk(d)
		}
	}
	walk(top)

	var sum [sha1.Size]byte
	copy(sum[:], digest.Sum(nil))
	return geomid.HashFromDigest(sum)
}

func ParseHashCode(s string) (geomid.HashValue, bool) {
	return geomid.ParseHashValue(s)
}

// HashCodeFromName reads the hash saved in a geometry name.
func HashCodeFromName(name string) (geomid.HashValue, bool) {
	if !strings.HasPrefix(name, geometryPrefix) || len(name) < alignmentOffset {
		return geomid.HashValue{}, false
	}
	return ParseHashCode(name[len(geometryPrefix):])
}

// AlignmentCodeFromName reads the alignment code saved after the hash in a
// geometry name.
func AlignmentCodeFromName(name string) (geomid.AlignmentId, bool) {
	if !strings.HasPrefix(name, geometryPrefix) {
		return geomid.AlignmentId{}, false
	}
	if strings.Index(name, ":") != alignmentOffset || len(name) < alignedNameLength {
		return geomid.AlignmentId{}, false
	}
	h, ok := ParseHashCode(name[alignmentOffset+1:])
	if !ok {
		return geomid.AlignmentId{}, false
	}
	return geomid.NewAlignmentId(h, ""), true
}

// SaveHashCode renames the tree to ND280Geometry-h0-h1-h2-h3-h4, keeping
// any alignment suffix.
func SaveHashCode(tree *geotree.Tree, hc geomid.HashValue) error {
	if !hc.Valid() {
		return ErrInvalidHashCode
	}
	name := tree.Name()
	if !strings.HasPrefix(name, geometryPrefix) {
		name = geometryPrefix
	}
	start := strings.Index(name, "-")
	end := len(name)
	if colon := strings.Index(name, ":"); colon >= 0 {
		end = colon
	}
	tree.SetName(name[:start] + "-" + hc.Hex() + name[end:])
	return nil
}

// SaveAlignmentCode appends or replaces the ":a0-a1-a2-a3-a4" suffix of a
// hashed geometry name. An invalid alignment removes the suffix.
func SaveAlignmentCode(tree *geotree.Tree, aid geomid.AlignmentId) error {
	name := tree.Name()
	if !strings.HasPrefix(name, geometryPrefix) {
		return fmt.Errorf("%w: cannot save alignment id in %q", ErrInvalidGeomName, name)
	}
	if len(name) < alignmentOffset {
		return fmt.Errorf("%w: no hash code saved in %q", ErrInvalidGeomName, name)
	}
	colon := strings.Index(name, ":")
	if !aid.Valid() {
		if colon >= 0 {
			tree.SetName(name[:colon])
		}
		return nil
	}
	suffix := ":" + aid.Hex()
	switch {
	case colon == alignmentOffset:
		name = name[:colon] + suffix
	case colon < 0:
		name += suffix
	}
	tree.SetName(name)
	return nil
}
