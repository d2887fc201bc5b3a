package module

import (
	"sync"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
)

// Resolver maps import paths to modules.
type Resolver interface {
	// Resolve returns the module registered under path. The same path
	// always yields the same module instance: importing is idempotent and
	// never re-executes module code.
	Resolve(path string) (*Module, error)
}

// StaticResolver resolves imports from a fixed path table. Populate it
// before evaluation starts, then Seal it; inserts after sealing fail
// instead of racing the evaluator, and the lookup path is lock-free once
// sealed apart from the sealed check.
type StaticResolver struct {
	mu      sync.RWMutex
	modules map[string]*Module
	sealed  bool
}

// NewStaticResolver creates an empty resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		modules: make(map[string]*Module),
	}
}

// Insert registers a module under an exact path. Inserting after Seal
// returns an error and leaves the table unchanged.
func (r *StaticResolver) Insert(path string, m *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.New("MOD-0003", map[string]any{"Path": path})
	}
	r.modules[path] = m
	return nil
}

// Seal freezes the table. Sealing twice is a no-op.
func (r *StaticResolver) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Resolve implements Resolver.
func (r *StaticResolver) Resolve(path string) (*Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[path]
	if !ok {
		return nil, errors.New("MOD-0001", map[string]any{"Path": path})
	}
	return m, nil
}
