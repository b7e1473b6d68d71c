// Package dependencies provides the frozen, type-keyed service container that
// is handed to every plugin call.
//
// Services are keyed by the static type used at insertion. Adding a value with
// an interface type argument (Add[Store](b, redisStore)) keys it by the
// interface, and only Get[Store] finds it; Get[*RedisStore] does not, and the
// reverse holds as well. A missing service is reported as absent, never as an
// error: plugins are expected to log and skip.
package dependencies

import (
	"reflect"
	"sync"
)

// Cell holds one shared service behind its own lock. Cells are independent:
// holding the write lock of one service never blocks readers of another.
type Cell[T any] struct {
	mu    sync.RWMutex
	value T
}

// Read runs fn with the service under a read lock.
func (c *Cell[T]) Read(fn func(T)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.value)
}

// Write runs fn with a pointer to the service under the write lock.
func (c *Cell[T]) Write(fn func(*T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.value)
}

// Load returns the current value under a read lock.
func (c *Cell[T]) Load() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Builder collects services before the run loop starts.
type Builder struct {
	cells map[reflect.Type]any
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{cells: make(map[reflect.Type]any)}
}

// Add stores v under the static type T, replacing any earlier value of the
// same key. Instantiate T with an interface to register an implementation
// under that interface.
func Add[T any](b *Builder, v T) {
	b.cells[reflect.TypeFor[T]()] = &Cell[T]{value: v}
}

// Build freezes the collected services. The returned container holds its own
// copy of the key set, so later Add calls on b never reach it.
func (b *Builder) Build() *Dependencies {
	cells := make(map[reflect.Type]any, len(b.cells))
	for k, v := range b.cells {
		cells[k] = v
	}
	return &Dependencies{cells: cells}
}

// Dependencies is the frozen container. It is safe for concurrent use; the
// key set never changes after Build.
type Dependencies struct {
	cells map[reflect.Type]any
}

// Empty returns a container with no services.
func Empty() *Dependencies {
	return &Dependencies{cells: map[reflect.Type]any{}}
}

// Get returns the cell registered under T, or false when nothing was added
// under exactly that key.
func Get[T any](d *Dependencies) (*Cell[T], bool) {
	if d == nil {
		return nil, false
	}
	raw, ok := d.cells[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	cell, ok := raw.(*Cell[T])
	return cell, ok
}

// Len returns the number of registered services.
func (d *Dependencies) Len() int {
	return len(d.cells)
}
