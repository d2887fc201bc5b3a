package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

func TestCallFnOverloadsAndScope(t *testing.T) {
	e := New()
	c, err := e.Compile(`
fn hello(x, y) { x + y }
fn hello(x) { x *= foo; foo = 1; x }
fn hello() { 41 + foo }
`)
	require.NoError(t, err)

	scope := NewEnvironment()
	scope.Define("foo", object.Int(42))

	v, err := e.CallFn(scope, c, "hello", object.Int(42), object.Int(123))
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(165), i)

	v, err = e.CallFn(scope, c, "hello", object.Int(123))
	require.NoError(t, err)
	i, _ = v.AsInt()
	assert.Equal(t, int64(5166), i)

	// The one-argument overload wrote foo back into the scope.
	foo, ok := scope.Get("foo")
	require.True(t, ok)
	fi, _ := foo.AsInt()
	assert.Equal(t, int64(1), fi)

	v, err = e.CallFn(scope, c, "hello")
	require.NoError(t, err)
	i, _ = v.AsInt()
	assert.Equal(t, int64(42), i)
}

func TestCallFnPrivateIsHidden(t *testing.T) {
	e := New()
	c, err := e.Compile("private fn secret() { 42 }")
	require.NoError(t, err)

	_, err = e.CallFn(NewEnvironment(), c, "secret")
	require.Error(t, err)
	ce := err.(*errors.ChervilError)
	assert.Equal(t, errors.ClassFunction, ce.Class)
	assert.Contains(t, ce.Message, "function not found: secret")
}

func TestCallFnUnknownArity(t *testing.T) {
	e := New()
	c, err := e.Compile("fn f(x) { x }")
	require.NoError(t, err)

	_, err = e.CallFn(NewEnvironment(), c, "f")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function not found")
}

func TestEvalModuleExports(t *testing.T) {
	e := New()
	m, err := e.EvalModule(`
export const LIMIT = 10;

let hidden = 99;

fn triple(n) { n * 3 }
private fn helper() { 1 }
`)
	require.NoError(t, err)

	v, ok := m.GetConstant("LIMIT")
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int64(10), i)

	_, ok = m.GetConstant("hidden")
	assert.False(t, ok)

	_, ok = m.GetFn("triple", []string{object.TypeDynamic})
	assert.True(t, ok)
}

func TestModuleImportEndToEnd(t *testing.T) {
	e := New()
	utils, err := e.EvalModule(`
export const MYSTIC_NUMBER = 41.0;

fn euclidean_distance(x1, y1, x2, y2) {
	sqrt((x2 - x1) ~ 2.0 + (y2 - y1) ~ 2.0)
}
`)
	require.NoError(t, err)

	res := module.NewStaticResolver()
	require.NoError(t, res.Insert("utils", utils))
	res.Seal()
	e.SetModuleResolver(res)

	v, err := e.Eval(`
import "utils" as u;
u::euclidean_distance(0.0, 1.0, 0.0, 1.0) + u::MYSTIC_NUMBER
`)
	require.NoError(t, err)
	f, _ := v.AsFloat()
	assert.Equal(t, 41.0, f)
}

func TestModuleConstantAccess(t *testing.T) {
	e := New()
	m, err := e.EvalModule("export const ANSWER = 42;")
	require.NoError(t, err)

	res := module.NewStaticResolver()
	require.NoError(t, res.Insert("m", m))
	e.SetModuleResolver(res)

	v, err := e.Eval(`import "m" as m; m::ANSWER`)
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(42), i)
}

func TestModulePrivateFunction(t *testing.T) {
	e := New()
	m, err := e.EvalModule(`
private fn secret() { 1 }
fn open_fn() { 2 }
`)
	require.NoError(t, err)

	res := module.NewStaticResolver()
	require.NoError(t, res.Insert("m", m))
	e.SetModuleResolver(res)

	v, err := e.Eval(`import "m" as m; m::open_fn()`)
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(2), i)

	_, err = e.Eval(`import "m" as m; m::secret()`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function not found")
}

func TestModuleMissingExport(t *testing.T) {
	e := New()
	m, err := e.EvalModule("export const X = 1;")
	require.NoError(t, err)

	res := module.NewStaticResolver()
	require.NoError(t, res.Insert("m", m))
	e.SetModuleResolver(res)

	_, err = e.Eval(`import "m" as m; m::nope`)
	require.Error(t, err)
	ce := err.(*errors.ChervilError)
	assert.Equal(t, errors.ClassModule, ce.Class)
	assert.Contains(t, ce.Message, "does not export")
}

func TestImportUnknownModule(t *testing.T) {
	e := New()
	e.SetModuleResolver(module.NewStaticResolver())

	_, err := e.Eval(`import "ghost" as g;`)
	require.Error(t, err)
	ce := err.(*errors.ChervilError)
	assert.Equal(t, errors.ClassModule, ce.Class)
	assert.Contains(t, ce.Message, "module not found: ghost")
}

func TestImportWithoutResolver(t *testing.T) {
	_, err := New().Eval(`import "anything" as a;`)
	require.Error(t, err)
	assert.Equal(t, errors.ClassModule, err.(*errors.ChervilError).Class)
}

func TestUnknownModuleAlias(t *testing.T) {
	_, err := New().Eval("q::x")
	require.Error(t, err)
	assert.Equal(t, errors.ClassModule, err.(*errors.ChervilError).Class)
}

func TestExportRename(t *testing.T) {
	e := New()
	m, err := e.EvalModule("let inner = 7; export inner as OUTER;")
	require.NoError(t, err)

	v, ok := m.GetConstant("OUTER")
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int64(7), i)
}
