package evaluator

import (
	"github.com/chervil-lang/chervil/pkg/chervil/packages"
	"github.com/chervil-lang/chervil/pkg/chervil/packages/arithmetic"
)

// New creates an engine with the standard packages registered and
// checked arithmetic.
func New() *Engine {
	e := NewRaw()
	e.RegisterGlobalModule(packages.Standard(true))
	return e
}

// SetUncheckedArithmetic switches the arithmetic overloads between the
// checked and wrapping variants. Combining replaces them signature by
// signature, so the rest of the registry is untouched.
func (e *Engine) SetUncheckedArithmetic(unchecked bool) *Engine {
	e.RegisterGlobalModule(arithmetic.New(!unchecked))
	return e
}
