package geommanager

import (
	"fmt"
	"sync"

	"github.com/next-exp/oaevent_go/pkg/geotree"
)

// Container is a file holding one or more geometry trees under named keys.
type Container interface {
	Name() string
	Keys() []string
	ReadTree(key string) (*geotree.Tree, error)
	Close() error
}

// Opener opens the container stored at path.
type Opener func(path string) (Container, error)

// MemoryContainer keeps trees in memory. Keys are returned in insertion
// order.
type MemoryContainer struct {
	name string

	mu    sync.Mutex
	keys  []string
	trees map[string]*geotree.Tree
}

func NewMemoryContainer(name string) *MemoryContainer {
	return &MemoryContainer{name: name, trees: make(map[string]*geotree.Tree)}
}

func (c *MemoryContainer) Name() string {
	return c.name
}

// Add stores tree under key, replacing a tree with the same key.
func (c *MemoryContainer) Add(key string, tree *geotree.Tree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.trees[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.trees[key] = tree
}

func (c *MemoryContainer) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.keys...)
}

// ReadTree returns a copy of the stored tree, so every load starts from
// the tree as it was added.
func (c *MemoryContainer) ReadTree(key string) (*geotree.Tree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tree, ok := c.trees[key]
	if !ok {
		return nil, fmt.Errorf("no key %s in %s", key, c.name)
	}
	return tree.Clone(), nil
}

func (c *MemoryContainer) Close() error {
	return nil
}

// MemoryOpener serves containers by path, for tests and tools that build
// geometries on the fly.
type MemoryOpener map[string]*MemoryContainer

func (o MemoryOpener) Open(path string) (Container, error) {
	c, ok := o[path]
	if !ok {
		return nil, fmt.Errorf("geometry file %s does not exist", path)
	}
	return c, nil
}
