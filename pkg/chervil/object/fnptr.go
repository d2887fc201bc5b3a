package object

import (
	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
)

// Caller re-enters the evaluator from native code or a function pointer.
// The evaluator implements it; native functions receive it so they can
// call back into script without the object package depending on the
// evaluator.
type Caller interface {
	// CallFnDynamic invokes a function by name. this, when non-nil, is
	// bound mutably for the duration of the call.
	CallFnDynamic(name string, this *Dynamic, args []Dynamic) (Dynamic, error)
}

// FnPtr is a first-class reference to a named function, optionally
// carrying curried arguments that are prepended at every call.
type FnPtr struct {
	Name    string
	Curried []Dynamic
}

// NewFnPtr creates a function pointer to the named function. The name
// must be a proper identifier.
func NewFnPtr(name string) (*FnPtr, error) {
	if !lexer.IsValidIdentifier(name) {
		return nil, errors.New("FN-0003", map[string]any{"Name": name})
	}
	return &FnPtr{Name: name}, nil
}

// Clone returns an independent copy; the curried values themselves follow
// Dynamic clone semantics (shared ones stay aliased).
func (f *FnPtr) Clone() *FnPtr {
	curried := make([]Dynamic, len(f.Curried))
	for i, c := range f.Curried {
		curried[i] = c.Clone()
	}
	return &FnPtr{Name: f.Name, Curried: curried}
}

// Curry returns a new pointer with the extra arguments appended after any
/// already-curried ones. Currying twice composes: f.curry(a).curry(b) calls
// with a then b before the call-site arguments.
func (f *FnPtr) Curry(args ...Dynamic) *FnPtr {
	curried := make([]Dynamic, 0, len(f.Curried)+len(args))
	curried = append(curried, f.Curried...)
	curried = append(curried, args...)
	return &FnPtr{Name: f.Name, Curried: curried}
}

// IsCurried reports whether any arguments are pinned.
func (f *FnPtr) IsCurried() bool {
	return len(f.Curried) > 0
}

// CallDynamic invokes the target through the evaluator, passing curried
// arguments first and then the call-site arguments. this, when non-nil,
// is bound mutably and is distinct from the curried captures.
func (f *FnPtr) CallDynamic(c Caller, this *Dynamic, args ...Dynamic) (Dynamic, error) {
	full := make([]Dynamic, 0, len(f.Curried)+len(args))
	full = append(full, f.Curried...)
	full = append(full, args...)
	return c.CallFnDynamic(f.Name, this, full)
}
