// Package digits holds the raw digit types and the manager that builds
// digit containers on demand and caches them in the event.
package digits

import (
	"errors"
	"fmt"
	"sync"

	"github.com/next-exp/oaevent_go/pkg/event"
	"github.com/next-exp/oaevent_go/pkg/logger"
)

const eventPrefix = "~/digits/"

// Factory builds the digits of one type for an event.
type Factory interface {
	Name() string
	MakeDigits(ev *event.Event) (*Container, error)
}

type funcFactory struct {
	name  string
	build func(ev *event.Event) (*Container, error)
}

func (f funcFactory) Name() string { return f.name }

func (f funcFactory) MakeDigits(ev *event.Event) (*Container, error) {
	return f.build(ev)
}

// NewFactory wraps a function as a Factory.
func NewFactory(name string, build func(ev *event.Event) (*Container, error)) Factory {
	return funcFactory{name: name, build: build}
}

type Manager struct {
	mu         sync.RWMutex
	factories  map[string]Factory
	persistent bool
}

// NewManager returns a manager that stores the digits it builds as
// temporary event objects, or as permanent ones when persistent is set.
func NewManager(persistent bool) *Manager {
	return &Manager{factories: make(map[string]Factory), persistent: persistent}
}

func (m *Manager) SetPersistentDigits(persistent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistent = persistent
}

func (m *Manager) PersistentDigits() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.persistent
}

func (m *Manager) RegisterFactory(f Factory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.factories[f.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrMultipleFactory, f.Name())
	}
	m.factories[f.Name()] = f
	return nil
}

func (m *Manager) FactoryAvailable(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.factories[name]
	return ok
}

// EventName is where digits of type name are kept in an event.
func EventName(name string) string {
	return eventPrefix + name
}

// CacheDigits returns the digits of type name stored in ev, building and
// storing them with the registered factory when they are missing.
func (m *Manager) CacheDigits(ev *event.Event, name string) (*Container, error) {
	if ev == nil {
		return nil, ErrDigitEventMissing
	}
	if obj, ok := ev.Get(EventName(name)); ok {
		if c, ok := obj.(*Container); ok {
			return c, nil
		}
		logger.Warn(fmt.Sprintf("Event object %s is a %T, not digits", EventName(name), obj), "digits")
	}

	m.mu.RLock()
	f, ok := m.factories[name]
	persistent := m.persistent
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no factory for %s", ErrDigitNotAvailable, name)
	}

	c, err := f.MakeDigits(ev)
	if err == nil && c == nil {
		err = errors.New("no digits returned")
	}
	if err != nil {
		logger.Warn(fmt.Sprintf("The %s digit factory failed: %v", name, err), "digits")
		return nil, &ErrFactory{Name: name, Err: err}
	}
	c.Name = name

	if persistent {
		ev.Add(EventName(name), c)
	} else {
		ev.AddTemporary(EventName(name), c)
	}
	return c, nil
}

// Digit returns the digit at offset in the digits of type name.
func (m *Manager) Digit(ev *event.Event, name string, offset int) (Digit, error) {
	c, err := m.CacheDigits(ev, name)
	if err != nil {
		if ev == nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDigitNotAvailable, err)
	}
	d := c.At(offset)
	if d == nil {
		return nil, fmt.Errorf("%w: offset %d of %d in %s", ErrDigitNotFound, offset, c.Len(), name)
	}
	return d, nil
}

// Resolve returns the digit referenced by p, checking that the container
// still holds the digit the proxy was made for.
func (m *Manager) Resolve(ev *event.Event, p Proxy) (Digit, error) {
	name, err := ConvertType(p.Type())
	if err != nil {
		return nil, err
	}
	if p.Type() == ProxyInvalid {
		return nil, fmt.Errorf("%w: %s", ErrDigitTypeInvalid, p)
	}
	c, err := m.CacheDigits(ev, name)
	if err != nil {
		if ev == nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDigitNotAvailable, err)
	}
	d := c.At(p.Offset())
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrDigitNotFound, p)
	}
	if !p.CheckSalt(c.Signature(), d) {
		return nil, fmt.Errorf("%w: %s", ErrDigitMismatch, p)
	}
	return d, nil
}
