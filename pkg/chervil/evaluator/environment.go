package evaluator

import (
	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

// binding is one scope slot. When ref is set the slot aliases external
// storage (a write-locked shared cell, or a host-held value) and reads
// and writes go through it.
type binding struct {
	value    object.Dynamic
	ref      *object.Dynamic
	constant bool
}

func (b *binding) get() object.Dynamic {
	if b.ref != nil {
		return *b.ref
	}
	return b.value
}

func (b *binding) set(v object.Dynamic) {
	if b.ref != nil {
		*b.ref = v
		return
	}
	b.value = v
}

// Environment is a chain of lexical scopes.
type Environment struct {
	store map[string]*binding
	outer *Environment
}

// NewEnvironment creates an empty root scope.
func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]*binding)}
}

// NewEnclosedEnvironment creates a child scope.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

func (e *Environment) lookup(name string) (*binding, bool) {
	for env := e; env != nil; env = env.outer {
		if b, ok := env.store[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// Get returns the value bound to name anywhere in the chain.
func (e *Environment) Get(name string) (object.Dynamic, bool) {
	b, ok := e.lookup(name)
	if !ok {
		return object.Unit(), false
	}
	return b.get(), true
}

// Define binds a name in this scope, shadowing any outer binding.
func (e *Environment) Define(name string, value object.Dynamic) {
	e.store[name] = &binding{value: value}
}

// DefineConst binds an immutable name in this scope.
func (e *Environment) DefineConst(name string, value object.Dynamic) {
	e.store[name] = &binding{value: value, constant: true}
}

// DefineRef binds a name to external storage: reads and writes flow
// through the pointer for the lifetime of the binding.
func (e *Environment) DefineRef(name string, ref *object.Dynamic) {
	e.store[name] = &binding{ref: ref}
}

// Assign replaces the value of an existing binding anywhere in the chain.
func (e *Environment) Assign(name string, value object.Dynamic) error {
	b, ok := e.lookup(name)
	if !ok {
		return errors.New("UNDEF-0001", map[string]any{"Name": name})
	}
	if b.constant {
		return errors.New("STATE-0001", map[string]any{
			"Message": "cannot assign to constant '" + name + "'",
		})
	}
	b.set(value)
	return nil
}

// GetRef returns a pointer to the storage slot of an existing binding,
// for in-place mutation.
func (e *Environment) GetRef(name string) (*object.Dynamic, bool) {
	b, ok := e.lookup(name)
	if !ok {
		return nil, false
	}
	if b.ref != nil {
		return b.ref, true
	}
	return &b.value, true
}

// IsConst reports whether name resolves to a constant binding.
func (e *Environment) IsConst(name string) bool {
	b, ok := e.lookup(name)
	return ok && b.constant
}

// Promote shares the binding's value in place and returns the shared
// form, so that captures alias the original slot.
func (e *Environment) Promote(name string) (object.Dynamic, bool) {
	b, ok := e.lookup(name)
	if !ok {
		return object.Unit(), false
	}
	shared := b.get().Share()
	b.set(shared)
	return shared, true
}

// Names returns the names bound directly in this scope.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.store))
	for name := range e.store {
		names = append(names, name)
	}
	return names
}
