package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

func compare(t *testing.T, op string, a, b object.Dynamic) bool {
	t.Helper()
	m := New()
	f, ok := m.GetFn(op, []string{a.TypeName(), b.TypeName()})
	require.True(t, ok, "missing overload %s", module.Signature(op, []string{a.TypeName(), b.TypeName()}))
	v, err := f.Call(nil, []*object.Dynamic{&a, &b})
	require.NoError(t, err)
	res, ok := v.AsBool()
	require.True(t, ok)
	return res
}

func TestIntegerComparisons(t *testing.T) {
	assert.True(t, compare(t, "<", object.Int(1), object.Int(2)))
	assert.False(t, compare(t, "<", object.Int(2), object.Int(2)))
	assert.True(t, compare(t, "<=", object.Int(2), object.Int(2)))
	assert.True(t, compare(t, ">", object.Int(3), object.Int(2)))
	assert.True(t, compare(t, ">=", object.Int(2), object.Int(2)))
	assert.True(t, compare(t, "==", object.Int(2), object.Int(2)))
	assert.True(t, compare(t, "!=", object.Int(1), object.Int(2)))
}

func TestMixedNumericComparisons(t *testing.T) {
	assert.True(t, compare(t, "<", object.Int(1), object.Float(1.5)))
	assert.True(t, compare(t, ">", object.Float(1.5), object.Int(1)))
	assert.True(t, compare(t, "==", object.Int(1), object.Float(1.0)))
	assert.True(t, compare(t, "==", object.Float(1.0), object.Int(1)))
	assert.False(t, compare(t, "!=", object.Float(1.0), object.Int(1)))
}

func TestStringAndCharComparisons(t *testing.T) {
	assert.True(t, compare(t, "<", object.Str("a"), object.Str("b")))
	assert.True(t, compare(t, "==", object.Str("x"), object.Str("x")))
	assert.True(t, compare(t, "<", object.Char('a'), object.Char('b')))
	assert.True(t, compare(t, ">=", object.Char('b'), object.Char('b')))
}

func TestBoolAndUnitEquality(t *testing.T) {
	assert.True(t, compare(t, "==", object.Bool(true), object.Bool(true)))
	assert.True(t, compare(t, "!=", object.Bool(true), object.Bool(false)))
	assert.True(t, compare(t, "==", object.Unit(), object.Unit()))
	assert.False(t, compare(t, "!=", object.Unit(), object.Unit()))
}
