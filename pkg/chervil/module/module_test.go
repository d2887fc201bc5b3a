package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

func constFn(v object.Dynamic) NativeFunc {
	return func(object.Caller, []*object.Dynamic) (object.Dynamic, error) {
		return v, nil
	}
}

func callIt(t *testing.T, f *Func) object.Dynamic {
	t.Helper()
	v, err := f.Call(nil, nil)
	require.NoError(t, err)
	return v
}

func TestOverloadsAreIndependent(t *testing.T) {
	m := New()
	m.SetFn("add", Public, []string{object.TypeInt, object.TypeInt}, constFn(object.Int(1)))
	m.SetFn("add", Public, []string{object.TypeFloat, object.TypeFloat}, constFn(object.Int(2)))

	f, ok := m.GetFn("add", []string{object.TypeInt, object.TypeInt})
	require.True(t, ok)
	v, _ := callIt(t, f).AsInt()
	assert.Equal(t, int64(1), v)

	f, ok = m.GetFn("add", []string{object.TypeFloat, object.TypeFloat})
	require.True(t, ok)
	v, _ = callIt(t, f).AsInt()
	assert.Equal(t, int64(2), v)

	// A third signature does not disturb the first two.
	m.SetFn("add", Public, []string{object.TypeString, object.TypeString}, constFn(object.Int(3)))
	f, ok = m.GetFn("add", []string{object.TypeInt, object.TypeInt})
	require.True(t, ok)
	v, _ = callIt(t, f).AsInt()
	assert.Equal(t, int64(1), v)

	assert.Equal(t, 3, m.FuncCount())
}

func TestExactSignatureReplaces(t *testing.T) {
	m := New()
	sig := []string{object.TypeInt}
	m.SetFn("f", Public, sig, constFn(object.Int(1)))
	m.SetFn("f", Public, sig, constFn(object.Int(2)))

	assert.Equal(t, 1, m.FuncCount())
	f, _ := m.GetFn("f", sig)
	v, _ := callIt(t, f).AsInt()
	assert.Equal(t, int64(2), v)
}

func TestMismatchedSignatureNotFound(t *testing.T) {
	m := New()
	m.SetFn("add", Public, []string{object.TypeInt, object.TypeInt}, constFn(object.Unit()))

	_, ok := m.GetFn("add", []string{object.TypeInt, object.TypeFloat})
	assert.False(t, ok)
	_, ok = m.GetFn("add", []string{object.TypeInt})
	assert.False(t, ok)
	assert.True(t, m.ContainsFn("add"))
	assert.False(t, m.ContainsFn("sub"))
}

func TestSignatureRendering(t *testing.T) {
	f := &Func{Name: "add", ArgTypes: []string{object.TypeInt, object.TypeString}}
	assert.Equal(t, "add (i64, string)", f.Signature())
	assert.Equal(t, "f ()", Signature("f", nil))
}

func TestCombineLastWriteWins(t *testing.T) {
	sig := []string{object.TypeInt}

	a := New()
	a.SetFn("f", Public, sig, constFn(object.Int(1)))
	a.SetConstant("X", object.Int(10))

	b := New()
	b.SetFn("f", Public, sig, constFn(object.Int(2)))
	b.SetConstant("X", object.Int(20))

	a.Combine(b)

	f, _ := a.GetFn("f", sig)
	v, _ := callIt(t, f).AsInt()
	assert.Equal(t, int64(2), v)
	c, _ := a.GetConstant("X")
	x, _ := c.AsInt()
	assert.Equal(t, int64(20), x)
}

func TestCombineDisjointIsOrderIndependent(t *testing.T) {
	build := func(name string, v int64) *Module {
		m := New()
		m.SetFn(name, Public, []string{object.TypeInt}, constFn(object.Int(v)))
		return m
	}

	ab := build("a", 1).Combine(build("b", 2))
	ba := build("b", 2).Combine(build("a", 1))

	for _, m := range []*Module{ab, ba} {
		f, ok := m.GetFn("a", []string{object.TypeInt})
		require.True(t, ok)
		v, _ := callIt(t, f).AsInt()
		assert.Equal(t, int64(1), v)

		f, ok = m.GetFn("b", []string{object.TypeInt})
		require.True(t, ok)
		v, _ = callIt(t, f).AsInt()
		assert.Equal(t, int64(2), v)
	}

	// Associativity over three disjoint modules.
	abc := build("a", 1).Combine(build("b", 2).Combine(build("c", 3)))
	assert.Equal(t, 3, abc.FuncCount())
}

func TestSubModules(t *testing.T) {
	inner := New()
	inner.SetConstant("MYSTIC_NUMBER", object.Float(41))

	outer := New()
	outer.SetSubModule("utils", inner)

	sub, ok := outer.GetSubModule("utils")
	require.True(t, ok)
	c, ok := sub.GetConstant("MYSTIC_NUMBER")
	require.True(t, ok)
	f, _ := c.AsFloat()
	assert.Equal(t, 41.0, f)

	_, ok = outer.GetSubModule("nope")
	assert.False(t, ok)
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver()
	m := New()
	require.NoError(t, r.Insert("utils", m))

	got, err := r.Resolve("utils")
	require.NoError(t, err)
	assert.Same(t, m, got)

	// Same path, same instance: imports are idempotent.
	again, err := r.Resolve("utils")
	require.NoError(t, err)
	assert.Same(t, got, again)

	_, err = r.Resolve("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module not found: missing")
}

func TestStaticResolverSeal(t *testing.T) {
	r := NewStaticResolver()
	require.NoError(t, r.Insert("a", New()))

	r.Seal()
	r.Seal() // sealing twice is fine

	err := r.Insert("b", New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolver is sealed")

	// Existing entries still resolve.
	_, err = r.Resolve("a")
	assert.NoError(t, err)
	_, err = r.Resolve("b")
	assert.Error(t, err)
}
