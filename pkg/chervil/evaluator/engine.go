// Package evaluator implements the tree-walking engine: compilation of
// source into an AST plus function table, evaluation with an operation
// counter, native-function dispatch through the module registry, closures
// with shared captures, and the host-facing registration and call APIs.
package evaluator

import (
	"fmt"
	"os"
	"reflect"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
	"github.com/chervil-lang/chervil/pkg/chervil/parser"
)

// Engine holds everything that outlives a single evaluation: the global
// function registry, the module resolver, limits, and the output hooks.
// Configure it fully before evaluating; the engine itself is not
// synchronized.
type Engine struct {
	global          *module.Module
	resolver        module.Resolver
	maxOps          uint64
	maxStringSize   int
	customKeywords  map[string]int
	disabledSymbols map[string]struct{}
	onPrint         func(string)
	onDebug         func(string)
	typeNames       map[reflect.Type]string
}

// NewRaw creates an engine with an empty function registry. Operators are
// functions, so a raw engine cannot even add two integers until packages
// are registered.
func NewRaw() *Engine {
	return &Engine{
		global:    module.New(),
		typeNames: make(map[reflect.Type]string),
		onPrint: func(s string) {
			fmt.Fprintln(os.Stdout, s)
		},
		onDebug: func(s string) {
			fmt.Fprintln(os.Stdout, s)
		},
	}
}

// RegisterGlobalModule merges a module's functions and constants into the
// global namespace.
func (e *Engine) RegisterGlobalModule(m *module.Module) *Engine {
	e.global.Combine(m)
	return e
}

// GlobalModule exposes the global registry for direct inspection.
func (e *Engine) GlobalModule() *module.Module {
	return e.global
}

// SetModuleResolver installs the resolver used by import statements.
func (e *Engine) SetModuleResolver(r module.Resolver) *Engine {
	e.resolver = r
	return e
}

// SetMaxOperations caps the number of evaluation steps per run. Zero
// means unlimited.
func (e *Engine) SetMaxOperations(n uint64) *Engine {
	e.maxOps = n
	return e
}

// SetMaxStringSize caps the length of string literals. Zero means
// unlimited.
func (e *Engine) SetMaxStringSize(n int) *Engine {
	e.maxStringSize = n
	return e
}

// SetCustomKeywords forwards custom keywords (name to precedence) to the
// lexer of every subsequent compilation.
func (e *Engine) SetCustomKeywords(kw map[string]int) *Engine {
	e.customKeywords = kw
	return e
}

// DisableSymbol disables a keyword or operator in subsequent
// compilations.
func (e *Engine) DisableSymbol(sym string) *Engine {
	if e.disabledSymbols == nil {
		e.disabledSymbols = make(map[string]struct{})
	}
	e.disabledSymbols[sym] = struct{}{}
	return e
}

// OnPrint installs the sink for the print builtin.
func (e *Engine) OnPrint(fn func(string)) *Engine {
	e.onPrint = fn
	return e
}

// OnDebug installs the sink for the debug builtin.
func (e *Engine) OnDebug(fn func(string)) *Engine {
	e.onDebug = fn
	return e
}

// RegisterTypeName maps a Go type to the name scripts see for it. Without
// a registration, boxed host values report reflect's type string.
func (e *Engine) RegisterTypeName(sample any, name string) *Engine {
	e.typeNames[reflect.TypeOf(sample)] = name
	return e
}

// Compiled is a parsed program plus the function table derived from it:
// script functions keyed by name and arity, and the synthetic functions
// backing closure literals.
type Compiled struct {
	program  *ast.Program
	fns      map[string]*scriptFn
	closures map[*ast.ClosureLiteral]*closureInfo
}

// scriptFn is one script-defined function (or closure body). Closures
// take their captured variables as leading parameters.
type scriptFn struct {
	name    string
	params  []string
	body    ast.Node
	private bool
}

// closureInfo links a closure literal to its synthetic function and the
// names it captures from the enclosing scope.
type closureInfo struct {
	name     string
	captures []string
}

func fnKey(name string, arity int) string {
	return fmt.Sprintf("%s|%d", name, arity)
}

// Compile parses source into a runnable program. Only the first error is
// reported; a lex error is terminal in the same way.
func (e *Engine) Compile(src string) (*Compiled, error) {
	return e.compile(src, false)
}

// CompileExpression parses a single expression. Closures are rejected and
// trailing input is an error.
func (e *Engine) CompileExpression(src string) (*Compiled, error) {
	return e.compile(src, true)
}

func (e *Engine) compile(src string, exprOnly bool) (*Compiled, error) {
	l := lexer.New(src)
	l.State.MaxStringSize = e.maxStringSize
	if e.customKeywords != nil {
		l.SetCustomKeywords(e.customKeywords)
	}
	if e.disabledSymbols != nil {
		l.SetDisabledSymbols(e.disabledSymbols)
	}

	var program *ast.Program
	var errs []*errors.ChervilError
	if exprOnly {
		p := parser.NewExpression(l)
		expr := p.ParseExpression()
		errs = p.Errors()
		if len(errs) == 0 {
			program = &ast.Program{
				Statements: []ast.Statement{
					&ast.ExpressionStatement{Expression: expr},
				},
			}
		}
	} else {
		p := parser.New(l)
		program = p.ParseProgram()
		errs = p.Errors()
	}
	if len(errs) > 0 {
		return nil, errs[0]
	}

	c := &Compiled{
		program:  program,
		fns:      make(map[string]*scriptFn),
		closures: make(map[*ast.ClosureLiteral]*closureInfo),
	}
	for _, fn := range program.Functions {
		params := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Value
		}
		c.fns[fnKey(fn.Name.Value, len(params))] = &scriptFn{
			name:    fn.Name.Value,
			params:  params,
			body:    fn.Body,
			private: fn.Private,
		}
	}
	analyzeClosures(c)
	return c, nil
}

// Eval compiles and runs source in a fresh scope, returning the value of
// the final statement.
func (e *Engine) Eval(src string) (object.Dynamic, error) {
	return e.EvalWithScope(NewEnvironment(), src)
}

// EvalWithScope compiles and runs source against an existing scope.
// Variables the script defines at top level stay in the scope afterwards.
func (e *Engine) EvalWithScope(scope *Environment, src string) (object.Dynamic, error) {
	c, err := e.Compile(src)
	if err != nil {
		return object.Unit(), err
	}
	return e.RunWithScope(scope, c)
}

// EvalExpression compiles and runs a single expression in a fresh scope.
func (e *Engine) EvalExpression(src string) (object.Dynamic, error) {
	c, err := e.CompileExpression(src)
	if err != nil {
		return object.Unit(), err
	}
	return e.RunWithScope(NewEnvironment(), c)
}

// Run executes a compiled program in a fresh scope.
func (e *Engine) Run(c *Compiled) (object.Dynamic, error) {
	return e.RunWithScope(NewEnvironment(), c)
}

// RunWithScope executes a compiled program against an existing scope. The
// result is flattened: a shared value comes back as a copy of its
// contents.
func (e *Engine) RunWithScope(scope *Environment, c *Compiled) (object.Dynamic, error) {
	in := newInterp(e, c)
	result, err := in.runProgram(c.program, scope)
	if err != nil {
		return object.Unit(), err
	}
	return result.Flatten()
}

// CallFn invokes a script function from the host against a compiled
// program. The scope is visible inside the function body and mutations to
// it persist, so a host can thread state through repeated calls. Private
// functions are not callable this way.
func (e *Engine) CallFn(scope *Environment, c *Compiled, name string, args ...object.Dynamic) (object.Dynamic, error) {
	fn, ok := c.fns[fnKey(name, len(args))]
	if !ok || fn.private {
		types := make([]string, len(args))
		for i, a := range args {
			types[i] = a.TypeName()
		}
		return object.Unit(), errors.New("FN-0001", map[string]any{
			"Signature": module.Signature(name, types),
		})
	}

	in := newInterp(e, c)
	result, err := in.callScriptFn(fn, nil, args, scope)
	if err != nil {
		return object.Unit(), err
	}
	return result.Flatten()
}

// EvalModule runs source as a module body and collects its exports:
// exported constants and all function definitions become module entries.
// Private functions are registered with private access so qualified calls
// cannot reach them.
func (e *Engine) EvalModule(src string) (*module.Module, error) {
	c, err := e.Compile(src)
	if err != nil {
		return nil, err
	}

	in := newInterp(e, c)
	in.exports = make(map[string]object.Dynamic)
	if _, err := in.runProgram(c.program, NewEnvironment()); err != nil {
		return nil, err
	}

	m := module.New()
	for name, v := range in.exports {
		m.SetConstant(name, v)
	}
	for _, fn := range c.fns {
		fn := fn
		access := module.Public
		if fn.private {
			access = module.Private
		}
		argTypes := make([]string, len(fn.params))
		for i := range argTypes {
			argTypes[i] = object.TypeDynamic
		}
		m.SetFn(fn.name, access, argTypes, func(caller object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			vals := make([]object.Dynamic, len(args))
			for i, a := range args {
				vals[i] = *a
			}
			sub := newInterp(e, c)
			return sub.callScriptFn(fn, nil, vals, nil)
		})
	}
	return m, nil
}
