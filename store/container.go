package store

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Container holds a single value and notifies observers on every write.
//
// Set replaces the value wholesale and runs every subscribed observer before it
// returns. Observers run with no lock held, so they may read or write any container,
// including this one. A write made while an earlier one is still being announced
// supersedes it: observers not yet reached get only the newer value, so the last
// value every observer sees is the one Get returns. Values are copied on the way in and on the way out when the
// container was built with a clone function, so callers never share memory with it.
type Container[T any] struct {
	name  string
	clone func(T) T

	mu        sync.Mutex
	value     T
	version   uint64
	observers []*observer[T]
}

type observer[T any] struct {
	fn     func(T)
	active atomic.Bool
}

// pending is a write that has been applied but not yet announced.
type pending[T any] struct {
	c         *Container[T]
	value     T
	version   uint64
	observers []*observer[T]
}

// NewContainer returns a container holding initial. Values are stored as given.
func NewContainer[T any](name string, initial T) *Container[T] {
	return newContainer(name, initial, nil)
}

// NewContainerWithClone returns a container that copies values with clone whenever
// they cross its boundary.
func NewContainerWithClone[T any](name string, initial T, clone func(T) T) *Container[T] {
	return newContainer(name, initial, clone)
}

func newContainer[T any](name string, initial T, clone func(T) T) *Container[T] {
	c := &Container[T]{name: name, clone: clone}
	c.value = c.copy(initial)
	return c
}

func (c *Container[T]) copy(v T) T {
	if c.clone == nil {
		return v
	}
	return c.clone(v)
}

// Name identifies the container in change notifications.
func (c *Container[T]) Name() string {
	return c.name
}

// Get returns the current value.
func (c *Container[T]) Get() T {
	c.mu.Lock()
	v := c.value
	c.mu.Unlock()
	return c.copy(v)
}

// Set replaces the value and notifies observers before returning.
func (c *Container[T]) Set(v T) {
	c.swap(v).dispatch()
}

// Update replaces the value with fn(old) atomically with respect to other writers of
// this container, then notifies observers. fn must not modify old in place or call
// back into the container.
func (c *Container[T]) Update(fn func(old T) T) {
	p, _ := c.tryUpdate(func(old T) (T, error) {
		return fn(old), nil
	})
	p.dispatch()
}

// Subscribe registers fn to run after every Set. The returned function removes it;
// calling it more than once, or from inside fn, is safe.
func (c *Container[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o := &observer[T]{fn: fn}
	o.active.Store(true)

	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()

	return func() {
		if !o.active.Swap(false) {
			return
		}
		c.mu.Lock()
		c.observers = slices.DeleteFunc(c.observers, func(x *observer[T]) bool { return x == o })
		c.mu.Unlock()
	}
}

// Observers reports how many observers are registered.
func (c *Container[T]) Observers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

// peek returns the stored value without copying. Callers must treat it as read-only.
func (c *Container[T]) peek() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *Container[T]) swap(v T) *pending[T] {
	v = c.copy(v)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	return c.pendingLocked()
}

// tryUpdate applies fn under the container lock. On error nothing changes and the
// returned pending write is nil.
func (c *Container[T]) tryUpdate(fn func(old T) (T, error)) (*pending[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := fn(c.value)
	if err != nil {
		return nil, err
	}
	c.value = c.copy(next)
	return c.pendingLocked(), nil
}

// pendingLocked stamps the current value as a new write. c.mu must be held.
func (c *Container[T]) pendingLocked() *pending[T] {
	c.version++
	return &pending[T]{c: c, value: c.value, version: c.version, observers: slices.Clone(c.observers)}
}

// superseded reports whether a later write has replaced p's value.
func (p *pending[T]) superseded() bool {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	return p.c.version != p.version
}

func (p *pending[T]) dispatch() {
	if p == nil {
		return
	}
	for _, o := range p.observers {
		// The newer write's dispatch delivers to the rest.
		if p.superseded() {
			return
		}
		// Skip observers removed earlier in this same dispatch.
		if !o.active.Load() {
			continue
		}
		o.fn(p.c.copy(p.value))
	}
}
