// Package module implements the native-function registry: named,
// overloadable functions keyed by their full argument-type signature,
// plus constants and nested sub-modules. Modules are built once and read
// concurrently; registration is not synchronized with evaluation.
package module

import (
	"strings"

	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

// Access controls whether a function is callable from outside the module
// that defines it.
type Access int

const (
	Public Access = iota
	Private
)

// NativeFunc is the raw native calling convention. Arguments arrive by
// pointer: a by-mutable-reference function writes through args[0] and the
// mutation is visible to the caller. The Caller lets natives re-enter the
// evaluator.
type NativeFunc func(c object.Caller, args []*object.Dynamic) (object.Dynamic, error)

// Func is one registered overload.
type Func struct {
	Name     string
	Access   Access
	ArgTypes []string
	Call     NativeFunc
}

// Signature renders the overload as "name (t1, t2)".
func (f *Func) Signature() string {
	return Signature(f.Name, f.ArgTypes)
}

// Signature renders a name and argument types as "name (t1, t2)".
func Signature(name string, argTypes []string) string {
	return name + " (" + strings.Join(argTypes, ", ") + ")"
}

func sigKey(name string, argTypes []string) string {
	return name + "|" + strings.Join(argTypes, "|")
}

// Module is a namespace of functions, constants and sub-modules.
type Module struct {
	functions map[string]*Func
	constants map[string]object.Dynamic
	modules   map[string]*Module
}

// New creates an empty module.
func New() *Module {
	return &Module{
		functions: make(map[string]*Func),
		constants: make(map[string]object.Dynamic),
		modules:   make(map[string]*Module),
	}
}

// SetFn registers a function under its exact signature. Registering the
// same name and argument types again replaces the previous entry; a
// different argument-type list is an independent overload.
func (m *Module) SetFn(name string, access Access, argTypes []string, fn NativeFunc) {
	m.functions[sigKey(name, argTypes)] = &Func{
		Name:     name,
		Access:   access,
		ArgTypes: append([]string(nil), argTypes...),
		Call:     fn,
	}
}

// GetFn resolves a call site to the overload whose signature matches the
// argument types exactly.
func (m *Module) GetFn(name string, argTypes []string) (*Func, bool) {
	f, ok := m.functions[sigKey(name, argTypes)]
	return f, ok
}

// ContainsFn reports whether any overload exists under the name.
func (m *Module) ContainsFn(name string) bool {
	for _, f := range m.functions {
		if f.Name == name {
			return true
		}
	}
	return false
}

// FuncCount returns the number of registered overloads.
func (m *Module) FuncCount() int {
	return len(m.functions)
}

// Funcs calls visit for every registered overload.
func (m *Module) Funcs(visit func(*Func)) {
	for _, f := range m.functions {
		visit(f)
	}
}

// SetConstant registers a named constant.
func (m *Module) SetConstant(name string, value object.Dynamic) {
	m.constants[name] = value
}

// GetConstant looks up a named constant.
func (m *Module) GetConstant(name string) (object.Dynamic, bool) {
	v, ok := m.constants[name]
	return v, ok
}

// Constants calls visit for every constant.
func (m *Module) Constants(visit func(name string, value object.Dynamic)) {
	for k, v := range m.constants {
		visit(k, v)
	}
}

// SetSubModule attaches a nested module under the given name.
func (m *Module) SetSubModule(name string, sub *Module) {
	m.modules[name] = sub
}

// GetSubModule looks up a nested module.
func (m *Module) GetSubModule(name string) (*Module, bool) {
	sub, ok := m.modules[name]
	return sub, ok
}

// Combine merges other into m, flattening: functions, constants and
// sub-modules are copied over, and an exact signature collision resolves
// to the entry from other (last write wins). Combining modules with
// disjoint signatures is associative and commutative.
func (m *Module) Combine(other *Module) *Module {
	if other == nil {
		return m
	}
	for k, f := range other.functions {
		m.functions[k] = f
	}
	for k, v := range other.constants {
		m.constants[k] = v
	}
	for k, sub := range other.modules {
		m.modules[k] = sub
	}
	return m
}
