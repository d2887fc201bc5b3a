package object

import (
	"sync"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
)

// Cell is the backing store of a shared value: a mutex-guarded slot with
// interior mutability. Lock acquisition never blocks; a slot that is
// already held the wrong way surfaces a data-race error instead, so
// aliasing a value through two non-nested frames fails loudly.
type Cell struct {
	mu  sync.RWMutex
	val Dynamic
}

// NewCell creates a cell holding v.
func NewCell(v Dynamic) *Cell {
	return &Cell{val: v}
}

func (c *Cell) raceError() *errors.ChervilError {
	return errors.New("RACE-0001", map[string]any{"Name": c.val.typeNameShallow()})
}

// Load returns a copy of the contents under a read lock.
func (c *Cell) Load() (Dynamic, error) {
	if !c.mu.TryRLock() {
		return Unit(), c.raceError()
	}
	defer c.mu.RUnlock()
	return c.val, nil
}

// Store replaces the contents under a write lock.
func (c *Cell) Store(v Dynamic) error {
	if !c.mu.TryLock() {
		return c.raceError()
	}
	defer c.mu.Unlock()
	c.val = v
	return nil
}

// WriteLock pins the contents for in-place mutation and returns a pointer
// to the slot plus a release function. The release function must be called
// on every path once mutation is done.
func (c *Cell) WriteLock() (*Dynamic, func(), error) {
	if !c.mu.TryLock() {
		return nil, nil, c.raceError()
	}
	return &c.val, c.mu.Unlock, nil
}

func (d Dynamic) typeNameShallow() string {
	if d.kind == KindShared {
		return "shared"
	}
	return d.TypeName()
}
