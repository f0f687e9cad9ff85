package event

import (
	"sync"

	"github.com/next-exp/oaevent_go/pkg/geomid"
	"golang.org/x/exp/slices"
)

// Event is the record passed to the geometry and digit layers. Besides its
// context it carries the geometry and alignment the data was taken or
// simulated with, and a store of named objects such as digit containers.
type Event struct {
	context      Context
	geometryHash geomid.HashValue
	alignmentId  geomid.AlignmentId

	mu        sync.Mutex
	objects   map[string]any
	temporary map[string]bool
}

func New(ctx Context) *Event {
	return &Event{
		context:   ctx,
		objects:   make(map[string]any),
		temporary: make(map[string]bool),
	}
}

func (e *Event) Context() Context {
	return e.context
}

func (e *Event) SetContext(ctx Context) {
	e.context = ctx
}

// GeometryHash is the hash of the geometry used to produce the event. A
// zero value means unknown.
func (e *Event) GeometryHash() geomid.HashValue {
	return e.geometryHash
}

func (e *Event) SetGeometryHash(h geomid.HashValue) {
	e.geometryHash = h
}

func (e *Event) AlignmentId() geomid.AlignmentId {
	return e.alignmentId
}

func (e *Event) SetAlignmentId(a geomid.AlignmentId) {
	e.alignmentId = a
}

func (e *Event) Get(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.objects[name]
	return obj, ok
}

// Add stores obj under name, replacing any previous object.
func (e *Event) Add(name string, obj any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.objects[name] = obj
	delete(e.temporary, name)
}

// AddTemporary stores obj under name until ClearTemporary is called.
func (e *Event) AddTemporary(name string, obj any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.objects[name] = obj
	e.temporary[name] = true
}

func (e *Event) IsTemporary(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.temporary[name]
}

func (e *Event) Remove(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.objects, name)
	delete(e.temporary, name)
}

// ClearTemporary drops every object stored with AddTemporary.
func (e *Event) ClearTemporary() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name := range e.temporary {
		delete(e.objects, name)
	}
	e.temporary = make(map[string]bool)
}

// Names lists the stored objects, sorted.
func (e *Event) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.objects))
	for name := range e.objects {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
