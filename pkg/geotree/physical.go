package geotree

import "fmt"

// PhysicalNode is a handle used to move a single placed node away from its
// nominal position.
type PhysicalNode struct {
	tree  *Tree
	index int
	path  string
}

func (t *Tree) MakePhysicalNode(path string) (*PhysicalNode, error) {
	index, err := t.NodeByPath(path)
	if err != nil {
		return nil, err
	}
	return &PhysicalNode{tree: t, index: index, path: path}, nil
}

func (p *PhysicalNode) Index() int   { return p.index }
func (p *PhysicalNode) Path() string { return p.path }

// Original is the nominal placement of the node in its mother.
func (p *PhysicalNode) Original() Transform {
	return p.tree.nodes[p.index].Local
}

// Align replaces the placement of the node in its mother.
func (p *PhysicalNode) Align(local Transform) {
	t := p.tree
	t.mu.Lock()
	defer t.mu.Unlock()
	t.physical[p.index] = local
	t.dirty = true
}

// ClearPhysicalNodes restores every nominal placement.
func (t *Tree) ClearPhysicalNodes() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.physical) == 0 {
		return
	}
	t.physical = make(map[int]Transform)
	t.dirty = true
}

// RefreshPhysicalNodes recomputes the master frame placements.
func (t *Tree) RefreshPhysicalNodes() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshLocked()
}

func (t *Tree) PhysicalNodes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.physical)
}

func (p *PhysicalNode) String() string {
	return fmt.Sprintf("physical node %d %s", p.index, p.path)
}
