package geotree

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrNoParent   = errors.New("parent node does not exist")
	ErrTwoTops    = errors.New("geometry already has a top node")
	ErrNoNode     = errors.New("node does not exist")
	ErrBadPath    = errors.New("path does not name a node")
	ErrEmptyShape = errors.New("shape has a non positive half width")
)

type Node struct {
	Name      string
	Parent    int
	Daughters []int
	Shape     Shape
	Local     Transform
}

var generations atomic.Uint64

// Tree is a hierarchy of placed boxes. Node 0 is the top volume and the
// index of a node is its identifier for the lifetime of the tree.
type Tree struct {
	name       string
	nodes      []Node
	generation uint64

	mu       sync.Mutex
	physical map[int]Transform
	globals  []Transform
	dirty    bool
}

func New(name string) *Tree {
	return &Tree{
		name:       name,
		generation: generations.Add(1),
		physical:   make(map[int]Transform),
		dirty:      true,
	}
}

func (t *Tree) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

func (t *Tree) SetName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.name = name
}

// Generation is unique for every tree built in this process.
func (t *Tree) Generation() uint64 {
	return t.generation
}

// Clone copies the nodes, the name and the physical node placements into a
// tree with a new generation.
func (t *Tree) Clone() *Tree {
	c := New(t.Name())
	c.nodes = make([]Node, len(t.nodes))
	for i, n := range t.nodes {
		n.Daughters = append([]int(nil), n.Daughters...)
		c.nodes[i] = n
	}
	t.mu.Lock()
	for index, local := range t.physical {
		c.physical[index] = local
	}
	t.mu.Unlock()
	return c
}

func (t *Tree) NumNodes() int {
	return len(t.nodes)
}

// AddNode places a daughter in parent, or the top volume when parent is
// -1, and returns its index.
func (t *Tree) AddNode(parent int, name string, shape Shape, local Transform) (int, error) {
	if shape.DX <= 0 || shape.DY <= 0 || shape.DZ <= 0 {
		return -1, fmt.Errorf("%w: %s", ErrEmptyShape, name)
	}
	if parent < 0 {
		if len(t.nodes) > 0 {
			return -1, ErrTwoTops
		}
	} else if parent >= len(t.nodes) {
		return -1, fmt.Errorf("%w: %d", ErrNoParent, parent)
	}

	index := len(t.nodes)
	t.nodes = append(t.nodes, Node{
		Name:   name,
		Parent: parent,
		Shape:  shape,
		Local:  local,
	})
	if parent >= 0 {
		t.nodes[parent].Daughters = append(t.nodes[parent].Daughters, index)
	}

	t.mu.Lock()
	t.dirty = true
	t.mu.Unlock()
	return index, nil
}

// Node returns the node at index, or nil.
func (t *Tree) Node(index int) *Node {
	if index < 0 || index >= len(t.nodes) {
		return nil
	}
	return &t.nodes[index]
}

// Top returns the index of the top volume, -1 for an empty tree.
func (t *Tree) Top() int {
	if len(t.nodes) == 0 {
		return -1
	}
	return 0
}

// Ancestors lists the indices from the top volume down to index.
func (t *Tree) Ancestors(index int) []int {
	if t.Node(index) == nil {
		return nil
	}
	var chain []int
	for i := index; i >= 0; i = t.nodes[i].Parent {
		chain = append(chain, i)
	}
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	return chain
}

func (t *Tree) Names(index int) []string {
	chain := t.Ancestors(index)
	names := make([]string, len(chain))
	for i, n := range chain {
		names[i] = t.nodes[n].Name
	}
	return names
}

func (t *Tree) Path(index int) string {
	names := t.Names(index)
	if len(names) == 0 {
		return ""
	}
	return "/" + strings.Join(names, "/")
}

func (t *Tree) NodeByPath(path string) (int, error) {
	names := strings.Split(strings.Trim(path, "/"), "/")
	if len(t.nodes) == 0 || len(names) == 0 || names[0] != t.nodes[0].Name {
		return -1, fmt.Errorf("%w: %s", ErrBadPath, path)
	}
	current := 0
	for _, name := range names[1:] {
		found := -1
		for _, d := range t.nodes[current].Daughters {
			if t.nodes[d].Name == name {
				found = d
				break
			}
		}
		if found < 0 {
			return -1, fmt.Errorf("%w: %s", ErrBadPath, path)
		}
		current = found
	}
	return current, nil
}

// LocalTransform is the placement of index in its mother, including any
// alignment.
func (t *Tree) LocalTransform(index int) Transform {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.localLocked(index)
}

func (t *Tree) localLocked(index int) Transform {
	if aligned, ok := t.physical[index]; ok {
		return aligned
	}
	return t.nodes[index].Local
}

// GlobalTransform maps the local frame of index into the master frame.
func (t *Tree) GlobalTransform(index int) Transform {
	if t.Node(index) == nil {
		return Identity()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dirty || len(t.globals) != len(t.nodes) {
		t.refreshLocked()
	}
	return t.globals[index]
}

func (t *Tree) refreshLocked() {
	t.globals = make([]Transform, len(t.nodes))
	// parents always precede their daughters
	for i := range t.nodes {
		local := t.localLocked(i)
		if p := t.nodes[i].Parent; p >= 0 {
			t.globals[i] = t.globals[p].Compose(local)
		} else {
			t.globals[i] = local
		}
	}
	t.dirty = false
}

// Locate returns the chain of nodes containing p from the top volume down
// to the deepest one, or nil when p is outside the top volume. The first
// daughter containing the point wins.
func (t *Tree) Locate(p r3.Vec) []int {
	top := t.Top()
	if top < 0 {
		return nil
	}
	local := t.GlobalTransform(top).Inverse().Apply(p)
	if !t.nodes[top].Shape.Contains(local) {
		return nil
	}
	chain := []int{top}
	current := top
	for {
		next := -1
		var nextLocal r3.Vec
		for _, d := range t.nodes[current].Daughters {
			dl := t.LocalTransform(d).Inverse().Apply(local)
			if t.nodes[d].Shape.Contains(dl) {
				next, nextLocal = d, dl
				break
			}
		}
		if next < 0 {
			return chain
		}
		chain = append(chain, next)
		current, local = next, nextLocal
	}
}

// FindNode returns the deepest node containing p.
func (t *Tree) FindNode(p r3.Vec) (int, bool) {
	chain := t.Locate(p)
	if len(chain) == 0 {
		return -1, false
	}
	return chain[len(chain)-1], true
}
