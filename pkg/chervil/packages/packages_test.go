package packages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

func call(t *testing.T, m *module.Module, name string, argTypes []string, args ...object.Dynamic) (object.Dynamic, error) {
	t.Helper()
	f, ok := m.GetFn(name, argTypes)
	require.True(t, ok, "missing overload %s", module.Signature(name, argTypes))
	ptrs := make([]*object.Dynamic, len(args))
	for i := range args {
		ptrs[i] = &args[i]
	}
	return f.Call(nil, ptrs)
}

func ints(elems []object.Dynamic) []int64 {
	out := make([]int64, len(elems))
	for i, el := range elems {
		v, _ := el.AsInt()
		out[i] = v
	}
	return out
}

func TestRange(t *testing.T) {
	m := Core()
	ii := []string{object.TypeInt, object.TypeInt}
	iii := []string{object.TypeInt, object.TypeInt, object.TypeInt}

	v, err := call(t, m, "range", ii, object.Int(1), object.Int(5))
	require.NoError(t, err)
	arr, _ := v.AsArray()
	assert.Equal(t, []int64{1, 2, 3, 4}, ints(arr))

	v, err = call(t, m, "range", iii, object.Int(0), object.Int(10), object.Int(3))
	require.NoError(t, err)
	arr, _ = v.AsArray()
	assert.Equal(t, []int64{0, 3, 6, 9}, ints(arr))

	v, err = call(t, m, "range", iii, object.Int(5), object.Int(0), object.Int(-2))
	require.NoError(t, err)
	arr, _ = v.AsArray()
	assert.Equal(t, []int64{5, 3, 1}, ints(arr))

	_, err = call(t, m, "range", iii, object.Int(0), object.Int(10), object.Int(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid range")

	_, err = call(t, m, "range", ii, object.Int(5), object.Int(1))
	require.Error(t, err)
}

func TestPushMutatesReceiver(t *testing.T) {
	m := Core()
	f, ok := m.GetFn("push", []string{object.TypeArray, object.TypeDynamic})
	require.True(t, ok)

	recv := object.Array([]object.Dynamic{object.Int(1)})
	arg := object.Int(2)
	_, err := f.Call(nil, []*object.Dynamic{&recv, &arg})
	require.NoError(t, err)
	elems, _ := recv.AsArray()
	assert.Equal(t, []int64{1, 2}, ints(elems))
}

func TestPop(t *testing.T) {
	m := Core()
	f, _ := m.GetFn("pop", []string{object.TypeArray})

	recv := object.Array([]object.Dynamic{object.Int(1), object.Int(2)})
	v, err := f.Call(nil, []*object.Dynamic{&recv})
	require.NoError(t, err)
	popped, _ := v.AsInt()
	assert.Equal(t, int64(2), popped)
	elems, _ := recv.AsArray()
	assert.Len(t, elems, 1)

	empty := object.Array(nil)
	v, err = f.Call(nil, []*object.Dynamic{&empty})
	require.NoError(t, err)
	assert.True(t, v.IsUnit())
}

func TestContains(t *testing.T) {
	m := Core()
	arr := object.Array([]object.Dynamic{object.Int(1), object.Str("two")})

	v, err := call(t, m, "contains",
		[]string{object.TypeArray, object.TypeDynamic}, arr, object.Str("two"))
	require.NoError(t, err)
	b, _ := v.AsBool()
	assert.True(t, b)

	v, err = call(t, m, "contains",
		[]string{object.TypeArray, object.TypeDynamic}, arr, object.Int(3))
	require.NoError(t, err)
	b, _ = v.AsBool()
	assert.False(t, b)

	mp := object.Map(map[string]object.Dynamic{"a": object.Int(1)})
	v, err = call(t, m, "contains",
		[]string{object.TypeMap, object.TypeString}, mp, object.Str("a"))
	require.NoError(t, err)
	b, _ = v.AsBool()
	assert.True(t, b)
}

func TestKeysAndValuesAreSorted(t *testing.T) {
	m := Core()
	mp := object.Map(map[string]object.Dynamic{
		"b": object.Int(2),
		"a": object.Int(1),
		"c": object.Int(3),
	})

	v, err := call(t, m, "keys", []string{object.TypeMap}, mp)
	require.NoError(t, err)
	keys, _ := v.AsArray()
	got := make([]string, len(keys))
	for i, k := range keys {
		got[i], _ = k.AsString()
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	v, err = call(t, m, "values", []string{object.TypeMap}, mp)
	require.NoError(t, err)
	vals, _ := v.AsArray()
	assert.Equal(t, []int64{1, 2, 3}, ints(vals))
}

func TestRemove(t *testing.T) {
	m := Core()
	mp := object.Map(map[string]object.Dynamic{"a": object.Int(1)})

	v, err := call(t, m, "remove", []string{object.TypeMap, object.TypeString},
		mp, object.Str("a"))
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(1), i)

	inner, _ := mp.AsMap()
	assert.Empty(t, inner)

	v, err = call(t, m, "remove", []string{object.TypeMap, object.TypeString},
		mp, object.Str("missing"))
	require.NoError(t, err)
	assert.True(t, v.IsUnit())
}

func TestStandardCombinesEverything(t *testing.T) {
	m := Standard(true)

	for _, name := range []string{"+", "<", "to_string", "now", "gzip", "kv_open", "range"} {
		assert.True(t, m.ContainsFn(name), "missing %s", name)
	}
}
