package evaluator

import (
	"fmt"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

func typeNamesOf(args []object.Dynamic) []string {
	types := make([]string, len(args))
	for i, a := range args {
		types[i] = a.TypeName()
	}
	return types
}

// lookupFn resolves name against the module. The exact signature wins;
// otherwise every combination with positions widened to the dynamic type
// is tried, earlier positions widened first, ending with the all-dynamic
// overload that exported script functions register under.
func (in *interp) lookupFn(m *module.Module, name string, types []string) (*module.Func, bool) {
	n := len(types)
	if n > 16 {
		return m.GetFn(name, types)
	}
	probe := make([]string, n)
	for mask := 0; mask < 1<<n; mask++ {
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				probe[i] = object.TypeDynamic
			} else {
				probe[i] = types[i]
			}
		}
		if f, ok := m.GetFn(name, probe); ok {
			return f, true
		}
	}
	return nil, false
}

// flattenAll copies every argument out of its shared cell for a by-value
// call. A locked cell surfaces as a data-race error.
func (in *interp) flattenAll(args []object.Dynamic, pos lexer.Position) ([]object.Dynamic, error) {
	flat := make([]object.Dynamic, len(args))
	for i, a := range args {
		fa, err := a.Flatten()
		if err != nil {
			return nil, errAt(err, pos)
		}
		flat[i] = fa
	}
	return flat, nil
}

// invokeNative calls a native function with panic recovery. Engine errors
// pass through untouched; foreign errors and panics are wrapped so the
// failing function is named.
func (in *interp) invokeNative(f *module.Func, args []*object.Dynamic, pos lexer.Position) (result object.Dynamic, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = object.Unit()
			err = errAt(errors.New("FN-0002", map[string]any{
				"Function": f.Name,
				"Detail":   fmt.Sprint(r),
			}), pos)
		}
	}()

	result, err = f.Call(in, args)
	if err != nil {
		if _, ok := err.(*errors.ChervilError); !ok {
			err = errors.New("FN-0002", map[string]any{
				"Function": f.Name,
				"Detail":   err.Error(),
			})
		}
		return object.Unit(), errAt(err, pos)
	}
	return result, nil
}

// dispatch resolves and calls a global function by value: operators,
// free functions, anything without a mutable receiver.
func (in *interp) dispatch(name string, args []object.Dynamic, pos lexer.Position) (object.Dynamic, error) {
	flat, err := in.flattenAll(args, pos)
	if err != nil {
		return object.Unit(), err
	}
	types := typeNamesOf(flat)
	f, ok := in.lookupFn(in.eng.global, name, types)
	if !ok {
		return object.Unit(), errAt(errors.New("FN-0001", map[string]any{
			"Signature": module.Signature(name, types),
		}), pos)
	}
	ptrs := make([]*object.Dynamic, len(flat))
	for i := range flat {
		ptrs[i] = &flat[i]
	}
	return in.invokeNative(f, ptrs, pos)
}

func (in *interp) evalCall(ce *ast.CallExpression, env *Environment) (object.Dynamic, error) {
	args := make([]object.Dynamic, len(ce.Arguments))
	for i, a := range ce.Arguments {
		v, err := in.evalExpr(a, env)
		if err != nil {
			return object.Unit(), err
		}
		args[i] = v
	}

	switch fn := ce.Function.(type) {
	case *ast.Identifier:
		name := fn.Value

		if sf, ok := in.compiled.fns[fnKey(name, len(args))]; ok {
			return in.callScriptFn(sf, nil, args, nil)
		}
		if v, ok := env.Get(name); ok {
			fv, err := v.Flatten()
			if err != nil {
				return object.Unit(), errAt(err, ce.Pos())
			}
			fp, ok := fv.AsFnPtr()
			if !ok {
				return object.Unit(), errAt(errors.New("TYPE-0002", map[string]any{
					"Got": fv.TypeName(),
				}), ce.Pos())
			}
			result, err := fp.CallDynamic(in, nil, args...)
			return result, errAt(err, ce.Pos())
		}
		if v, handled, err := in.callBuiltin(name, args, env, ce.Pos()); handled {
			return v, err
		}
		return in.dispatch(name, args, ce.Pos())

	case *ast.PathExpression:
		m, last, err := in.resolvePath(fn)
		if err != nil {
			return object.Unit(), err
		}
		return in.callModuleFn(m, last, args, ce.Pos())
	}

	return object.Unit(), errAt(errors.New("PARSE-0005", nil), ce.Pos())
}

// callModuleFn dispatches a qualified call. A private function is
// indistinguishable from a missing one.
func (in *interp) callModuleFn(m *module.Module, name string, args []object.Dynamic, pos lexer.Position) (object.Dynamic, error) {
	flat, err := in.flattenAll(args, pos)
	if err != nil {
		return object.Unit(), err
	}
	types := typeNamesOf(flat)
	f, ok := in.lookupFn(m, name, types)
	if !ok || f.Access == module.Private {
		return object.Unit(), errAt(errors.New("FN-0001", map[string]any{
			"Signature": module.Signature(name, types),
		}), pos)
	}
	ptrs := make([]*object.Dynamic, len(flat))
	for i := range flat {
		ptrs[i] = &flat[i]
	}
	return in.invokeNative(f, ptrs, pos)
}

func arityError(name string, got, want int) *errors.ChervilError {
	return errors.New("ARITY-0001", map[string]any{
		"Function": name,
		"Got":      got,
		"Want":     want,
	})
}

// callBuiltin handles the keyword functions. They are not registered in
// the module registry: print and debug feed the engine hooks, eval needs
// the current scope, and the function-pointer builtins need unflattened
// arguments.
func (in *interp) callBuiltin(name string, args []object.Dynamic, env *Environment, pos lexer.Position) (object.Dynamic, bool, error) {
	switch name {
	case "print", "debug":
		if len(args) != 1 {
			return object.Unit(), true, errAt(arityError(name, len(args), 1), pos)
		}
		v, err := args[0].Flatten()
		if err != nil {
			return object.Unit(), true, errAt(err, pos)
		}
		if name == "print" {
			in.eng.onPrint(v.String())
		} else {
			in.eng.onDebug(v.Inspect())
		}
		return object.Unit(), true, nil

	case "type_of":
		if len(args) != 1 {
			return object.Unit(), true, errAt(arityError(name, len(args), 1), pos)
		}
		return object.Str(args[0].TypeName()), true, nil

	case "is_shared":
		if len(args) != 1 {
			return object.Unit(), true, errAt(arityError(name, len(args), 1), pos)
		}
		return object.Bool(args[0].IsShared()), true, nil

	case "Fn":
		if len(args) != 1 {
			return object.Unit(), true, errAt(arityError(name, len(args), 1), pos)
		}
		v, err := args[0].Flatten()
		if err != nil {
			return object.Unit(), true, errAt(err, pos)
		}
		s, ok := v.AsString()
		if !ok {
			return object.Unit(), true, errAt(errors.New("TYPE-0001", map[string]any{
				"Function": "Fn", "Expected": object.TypeString, "Got": v.TypeName(),
			}), pos)
		}
		fp, err := object.NewFnPtr(s)
		if err != nil {
			return object.Unit(), true, errAt(err, pos)
		}
		return object.Fn(fp), true, nil

	case "call", "curry":
		if len(args) < 1 {
			return object.Unit(), true, errAt(arityError(name, len(args), 1), pos)
		}
		v, err := args[0].Flatten()
		if err != nil {
			return object.Unit(), true, errAt(err, pos)
		}
		fp, ok := v.AsFnPtr()
		if !ok {
			return object.Unit(), true, errAt(errors.New("TYPE-0001", map[string]any{
				"Function": name, "Expected": object.TypeFnPtr, "Got": v.TypeName(),
			}), pos)
		}
		if name == "curry" {
			return object.Fn(fp.Curry(args[1:]...)), true, nil
		}
		result, err := fp.CallDynamic(in, nil, args[1:]...)
		return result, true, errAt(err, pos)

	case "eval":
		if len(args) != 1 {
			return object.Unit(), true, errAt(arityError(name, len(args), 1), pos)
		}
		v, err := args[0].Flatten()
		if err != nil {
			return object.Unit(), true, errAt(err, pos)
		}
		src, ok := v.AsString()
		if !ok {
			return object.Unit(), true, errAt(errors.New("TYPE-0001", map[string]any{
				"Function": "eval", "Expected": object.TypeString, "Got": v.TypeName(),
			}), pos)
		}
		c, err := in.eng.Compile(src)
		if err != nil {
			return object.Unit(), true, err
		}
		// Evaluated text runs in the caller's scope and shares the
		// operation budget.
		sub := &interp{
			eng:      in.eng,
			compiled: c,
			ops:      in.ops,
			imports:  in.imports,
		}
		result, err := sub.runProgram(c.program, env)
		return result, true, err
	}

	return object.Unit(), false, nil
}

func (in *interp) evalMethodCall(de *ast.DotExpression, env *Environment) (object.Dynamic, error) {
	name := de.Name
	pos := de.Pos()

	args := make([]object.Dynamic, len(de.Call.Arguments))
	for i, a := range de.Call.Arguments {
		v, err := in.evalExpr(a, env)
		if err != nil {
			return object.Unit(), err
		}
		args[i] = v
	}

	// Sharing-sensitive builtins must see the receiver before any lock.
	switch name {
	case "type_of":
		if len(args) == 0 {
			v, err := in.evalExpr(de.Left, env)
			if err != nil {
				return object.Unit(), err
			}
			return object.Str(v.TypeName()), nil
		}
	case "is_shared":
		if len(args) == 0 {
			v, err := in.evalExpr(de.Left, env)
			if err != nil {
				return object.Unit(), err
			}
			return object.Bool(v.IsShared()), nil
		}
	case "curry":
		v, err := in.evalExpr(de.Left, env)
		if err != nil {
			return object.Unit(), err
		}
		fv, err := v.Flatten()
		if err != nil {
			return object.Unit(), errAt(err, pos)
		}
		fp, ok := fv.AsFnPtr()
		if !ok {
			return object.Unit(), errAt(errors.New("TYPE-0001", map[string]any{
				"Function": "curry", "Expected": object.TypeFnPtr, "Got": fv.TypeName(),
			}), pos)
		}
		return object.Fn(fp.Curry(args...)), nil
	}

	recvPtr, done, err := in.methodTarget(de.Left, env)
	if err != nil {
		return object.Unit(), err
	}
	defer done()

	if name == "call" {
		if fp, ok := (*recvPtr).AsFnPtr(); ok {
			result, err := fp.CallDynamic(in, nil, args...)
			return result, errAt(err, pos)
		}
		// receiver.call(fnptr, args...) binds the receiver as 'this'.
		if len(args) < 1 {
			return object.Unit(), errAt(errors.New("TYPE-0001", map[string]any{
				"Function": "call", "Expected": object.TypeFnPtr, "Got": (*recvPtr).TypeName(),
			}), pos)
		}
		f0, err := args[0].Flatten()
		if err != nil {
			return object.Unit(), errAt(err, pos)
		}
		fp, ok := f0.AsFnPtr()
		if !ok {
			return object.Unit(), errAt(errors.New("TYPE-0001", map[string]any{
				"Function": "call", "Expected": object.TypeFnPtr, "Got": f0.TypeName(),
			}), pos)
		}
		result, err := fp.CallDynamic(in, recvPtr, args[1:]...)
		return result, errAt(err, pos)
	}

	// Script function as method: receiver becomes 'this'.
	if sf, ok := in.compiled.fns[fnKey(name, len(args))]; ok {
		return in.callScriptFn(sf, recvPtr, args, nil)
	}

	// Native method: receiver is the first, mutable argument.
	flat, err := in.flattenAll(args, pos)
	if err != nil {
		return object.Unit(), err
	}
	types := append([]string{(*recvPtr).TypeName()}, typeNamesOf(flat)...)
	f, ok := in.lookupFn(in.eng.global, name, types)
	if !ok {
		return object.Unit(), errAt(errors.New("FN-0001", map[string]any{
			"Signature": module.Signature(name, types),
		}), pos)
	}
	ptrs := make([]*object.Dynamic, 0, len(flat)+1)
	ptrs = append(ptrs, recvPtr)
	for i := range flat {
		ptrs = append(ptrs, &flat[i])
	}
	return in.invokeNative(f, ptrs, pos)
}

// methodTarget resolves a method receiver to a mutable slot. A variable
// yields its storage slot; a shared value is write-locked for the call; a
// container element yields the element; anything else is a temporary.
// done unwinds locks and writes back copied map entries.
func (in *interp) methodTarget(e ast.Expression, env *Environment) (*object.Dynamic, func(), error) {
	noop := func() {}

	lockIfShared := func(ptr *object.Dynamic, release func()) (*object.Dynamic, func(), error) {
		cell, shared := (*ptr).AsCell()
		if !shared {
			return ptr, release, nil
		}
		inner, unlock, err := cell.WriteLock()
		if err != nil {
			release()
			return nil, noop, errAt(err, e.Pos())
		}
		return inner, func() { unlock(); release() }, nil
	}

	switch t := e.(type) {
	case *ast.Identifier:
		if slot, ok := env.GetRef(t.Value); ok {
			return lockIfShared(slot, noop)
		}

	case *ast.IndexExpression:
		container, release, err := in.containerRef(t.Left, env)
		if err != nil {
			return nil, noop, err
		}
		idx, err := in.evalExpr(t.Index, env)
		if err != nil {
			release()
			return nil, noop, err
		}
		idx, err = idx.Flatten()
		if err != nil {
			release()
			return nil, noop, errAt(err, t.Index.Pos())
		}
		if elems, ok := container.AsArray(); ok {
			i, iok := idx.AsInt()
			if !iok || i < 0 || i >= int64(len(elems)) {
				release()
				return nil, noop, errAt(indexOutOfBounds(intOrMinus(idx), len(elems)), t.Pos())
			}
			return lockIfShared(&elems[i], release)
		}
		if m, ok := container.AsMap(); ok {
			k, kok := idx.AsString()
			if !kok {
				release()
				return nil, noop, errAt(errors.New("TYPE-0001", map[string]any{
					"Function": "index", "Expected": object.TypeString, "Got": idx.TypeName(),
				}), t.Index.Pos())
			}
			entry := m[k]
			commit := func() {
				m[k] = entry
				release()
			}
			return lockIfShared(&entry, commit)
		}
		release()
		return nil, noop, errAt(errors.New("TYPE-0001", map[string]any{
			"Function": "index", "Expected": "array or map", "Got": container.TypeName(),
		}), t.Pos())

	case *ast.DotExpression:
		if t.Call != nil {
			break
		}
		container, release, err := in.containerRef(t.Left, env)
		if err != nil {
			return nil, noop, err
		}
		m, ok := container.AsMap()
		if !ok {
			release()
			return nil, noop, errAt(errors.New("TYPE-0001", map[string]any{
				"Function": "property access", "Expected": object.TypeMap, "Got": container.TypeName(),
			}), t.Pos())
		}
		entry := m[t.Name]
		commit := func() {
			m[t.Name] = entry
			release()
		}
		return lockIfShared(&entry, commit)
	}

	v, err := in.evalExpr(e, env)
	if err != nil {
		return nil, noop, err
	}
	tmp := v
	return lockIfShared(&tmp, noop)
}

// callScriptFn runs a script function. Closures receive their shared
// captures as leading arguments. base, when non-nil, becomes the parent
// scope of the call frame; normal calls see nothing but their parameters.
func (in *interp) callScriptFn(fn *scriptFn, this *object.Dynamic, args []object.Dynamic, base *Environment) (object.Dynamic, error) {
	if len(args) != len(fn.params) {
		return object.Unit(), arityError(fn.name, len(args), len(fn.params))
	}

	var env *Environment
	if base != nil {
		env = NewEnclosedEnvironment(base)
	} else {
		env = NewEnvironment()
	}
	for i, p := range fn.params {
		env.Define(p, args[i])
	}
	if this != nil {
		env.DefineRef("this", this)
	}

	var result object.Dynamic
	var err error
	switch body := fn.body.(type) {
	case *ast.BlockStatement:
		result, err = in.evalBlock(body, env)
	case ast.Expression:
		result, err = in.evalExpr(body, env)
	}

	if err != nil {
		switch sig := err.(type) {
		case *returnSignal:
			return sig.value, nil
		case breakSignal, continueSignal:
			return object.Unit(), errors.New("STATE-0001", map[string]any{
				"Message": err.Error(),
			})
		}
		return object.Unit(), err
	}
	return result, nil
}

// CallFnDynamic implements object.Caller: function pointers and natives
// re-enter the evaluator through it. Script functions win over natives.
func (in *interp) CallFnDynamic(name string, this *object.Dynamic, args []object.Dynamic) (object.Dynamic, error) {
	if sf, ok := in.compiled.fns[fnKey(name, len(args))]; ok {
		return in.callScriptFn(sf, this, args, nil)
	}

	flat, err := in.flattenAll(args, lexer.NoPosition())
	if err != nil {
		return object.Unit(), err
	}
	var types []string
	var ptrs []*object.Dynamic
	if this != nil {
		types = append([]string{(*this).TypeName()}, typeNamesOf(flat)...)
		ptrs = append(ptrs, this)
	} else {
		types = typeNamesOf(flat)
	}
	for i := range flat {
		ptrs = append(ptrs, &flat[i])
	}
	f, ok := in.lookupFn(in.eng.global, name, types)
	if !ok {
		return object.Unit(), errors.New("FN-0001", map[string]any{
			"Signature": module.Signature(name, types),
		})
	}
	return in.invokeNative(f, ptrs, lexer.NoPosition())
}
