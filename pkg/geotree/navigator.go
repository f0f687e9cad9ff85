package geotree

import "gonum.org/v1/gonum/spatial/r3"

// Navigator is a cursor over a tree. It is not safe for concurrent use;
// each goroutine takes its own.
type Navigator struct {
	tree  *Tree
	path  []int
	saved [][]int
}

func (t *Tree) Navigator() *Navigator {
	n := &Navigator{tree: t}
	n.CdTop()
	return n
}

func (n *Navigator) Tree() *Tree {
	return n.tree
}

func (n *Navigator) CdTop() {
	n.path = n.path[:0]
	if top := n.tree.Top(); top >= 0 {
		n.path = append(n.path, top)
	}
}

func (n *Navigator) CdNode(index int) bool {
	chain := n.tree.Ancestors(index)
	if chain == nil {
		return false
	}
	n.path = chain
	return true
}

// CdUp moves to the mother volume. It fails at the top.
func (n *Navigator) CdUp() bool {
	if len(n.path) <= 1 {
		return false
	}
	n.path = n.path[:len(n.path)-1]
	return true
}

func (n *Navigator) CdDown(i int) bool {
	current := n.tree.Node(n.CurrentNode())
	if current == nil || i < 0 || i >= len(current.Daughters) {
		return false
	}
	n.path = append(n.path, current.Daughters[i])
	return true
}

// CurrentNode returns the cursor index, -1 for an empty tree.
func (n *Navigator) CurrentNode() int {
	if len(n.path) == 0 {
		return -1
	}
	return n.path[len(n.path)-1]
}

func (n *Navigator) Current() *Node {
	return n.tree.Node(n.CurrentNode())
}

func (n *Navigator) Level() int {
	return len(n.path) - 1
}

func (n *Navigator) Path() string {
	return n.tree.Path(n.CurrentNode())
}

func (n *Navigator) PushPath() {
	n.saved = append(n.saved, append([]int(nil), n.path...))
}

func (n *Navigator) PopPath() bool {
	if len(n.saved) == 0 {
		return false
	}
	n.path = n.saved[len(n.saved)-1]
	n.saved = n.saved[:len(n.saved)-1]
	return true
}

// FindNode moves the cursor to the deepest node containing the point. The
// cursor is left at the top when the point is outside the geometry.
func (n *Navigator) FindNode(x, y, z float64) (int, bool) {
	chain := n.tree.Locate(r3.Vec{X: x, Y: y, Z: z})
	if len(chain) == 0 {
		n.CdTop()
		return -1, false
	}
	n.path = chain
	return n.CurrentNode(), true
}

func (n *Navigator) CurrentMatrix() Transform {
	return n.tree.GlobalTransform(n.CurrentNode())
}

func (n *Navigator) LocalToMaster(local r3.Vec) r3.Vec {
	return n.CurrentMatrix().Apply(local)
}

func (n *Navigator) LocalToMasterVect(local r3.Vec) r3.Vec {
	return n.CurrentMatrix().ApplyVect(local)
}

func (n *Navigator) MasterToLocal(master r3.Vec) r3.Vec {
	return n.CurrentMatrix().Inverse().Apply(master)
}
