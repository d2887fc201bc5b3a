package arithmetic

import (
	"math"
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

func intOp(t *testing.T, m *module.Module, name string, a, b int64) (int64, error) {
	t.Helper()
	v, err := call(t, m, name, []string{object.TypeInt, object.TypeInt}, object.Int(a), object.Int(b))
	if err != nil {
		return 0, err
	}
	i, ok := v.AsInt()
	require.True(t, ok)
	return i, nil
}

func TestCheckedAddition(t *testing.T) {
	m := New(true)

	v, err := intOp(t, m, "+", 40, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = intOp(t, m, "+", math.MaxInt64, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Addition overflow: 9223372036854775807 + 1")

	_, err = intOp(t, m, "-", math.MinInt64, 1)
	require.Error(t, err)
}

func TestCheckedMultiplication(t *testing.T) {
	m := New(true)

	v, err := intOp(t, m, "*", 6, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = intOp(t, m, "*", 0, math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	_, err = intOp(t, m, "*", math.MaxInt64, 2)
	require.Error(t, err)

	_, err = intOp(t, m, "*", math.MinInt64, -1)
	require.Error(t, err)
}

func TestCheckedDivision(t *testing.T) {
	m := New(true)

	v, err := intOp(t, m, "/", 84, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = intOp(t, m, "/", 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Division by zero: 10 / 0")

	_, err = intOp(t, m, "/", math.MinInt64, -1)
	require.Error(t, err)
}

func TestCheckedModulo(t *testing.T) {
	m := New(true)

	v, err := intOp(t, m, "%", 10, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = intOp(t, m, "%", math.MinInt64, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	_, err = intOp(t, m, "%", 10, 0)
	require.Error(t, err)
}

func TestCheckedPower(t *testing.T) {
	m := New(true)

	v, err := intOp(t, m, "~", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), v)

	v, err = intOp(t, m, "~", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = intOp(t, m, "~", 2, -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative exponent")

	_, err = intOp(t, m, "~", 2, 64)
	require.Error(t, err)
}

func TestCheckedShifts(t *testing.T) {
	m := New(true)

	v, err := intOp(t, m, "<<", 1, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(16), v)

	v, err = intOp(t, m, ">>", 256, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(16), v)

	_, err = intOp(t, m, "<<", 1, -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative number")

	_, err = intOp(t, m, "<<", 1, 64)
	require.Error(t, err)
}

func TestUncheckedWrapping(t *testing.T) {
	m := New(false)

	v, err := intOp(t, m, "+", math.MaxInt64, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), v)

	v, err = intOp(t, m, "*", math.MaxInt64, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v)

	// Division by zero has no wrapping interpretation.
	_, err = intOp(t, m, "/", 1, 0)
	require.Error(t, err)
	_, err = intOp(t, m, "%", 1, 0)
	require.Error(t, err)
}

func TestFloatOperators(t *testing.T) {
	m := New(true)
	ff := []string{object.TypeFloat, object.TypeFloat}

	v, err := call(t, m, "+", ff, object.Float(1.5), object.Float(2.25))
	require.NoError(t, err)
	f, _ := v.AsFloat()
	assert.Equal(t, 3.75, f)

	v, err = call(t, m, "~", ff, object.Float(2.0), object.Float(3.0))
	require.NoError(t, err)
	f, _ = v.AsFloat()
	assert.Equal(t, 8.0, f)

	v, err = call(t, m, "%", ff, object.Float(7.5), object.Float(2.0))
	require.NoError(t, err)
	f, _ = v.AsFloat()
	assert.Equal(t, 1.5, f)
}

func TestMixedNumericPromotion(t *testing.T) {
	m := New(true)

	v, err := call(t, m, "+", []string{object.TypeFloat, object.TypeInt},
		object.Float(1.5), object.Int(2))
	require.NoError(t, err)
	f, _ := v.AsFloat()
	assert.Equal(t, 3.5, f)

	v, err = call(t, m, "*", []string{object.TypeInt, object.TypeFloat},
		object.Int(2), object.Float(1.5))
	require.NoError(t, err)
	f, _ = v.AsFloat()
	assert.Equal(t, 3.0, f)
}

func TestUnaryMinus(t *testing.T) {
	m := New(true)

	v, err := call(t, m, "-", []string{object.TypeInt}, object.Int(42))
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(-42), i)

	_, err = call(t, m, "-", []string{object.TypeInt}, object.Int(math.MinInt64))
	require.Error(t, err)

	v, err = call(t, m, "-", []string{object.TypeFloat}, object.Float(1.5))
	require.NoError(t, err)
	f, _ := v.AsFloat()
	assert.Equal(t, -1.5, f)
}

func TestConversions(t *testing.T) {
	m := New(true)

	v, err := call(t, m, "to_float", []string{object.TypeInt}, object.Int(2))
	require.NoError(t, err)
	f, _ := v.AsFloat()
	assert.Equal(t, 2.0, f)

	v, err = call(t, m, "to_int", []string{object.TypeFloat}, object.Float(2.9))
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(2), i)

	_, err = call(t, m, "to_int", []string{object.TypeFloat}, object.Float(math.NaN()))
	require.Error(t, err)

	_, err = call(t, m, "to_int", []string{object.TypeFloat}, object.Float(1e300))
	require.Error(t, err)
}

func TestAbsSignSqrt(t *testing.T) {
	m := New(true)

	v, err := call(t, m, "abs", []string{object.TypeInt}, object.Int(-42))
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(42), i)

	v, err = call(t, m, "sign", []string{object.TypeInt}, object.Int(-5))
	require.NoError(t, err)
	i, _ = v.AsInt()
	assert.Equal(t, int64(-1), i)

	v, err = call(t, m, "sqrt", []string{object.TypeFloat}, object.Float(9.0))
	require.NoError(t, err)
	f, _ := v.AsFloat()
	assert.Equal(t, 3.0, f)

	v, err = call(t, m, "sqrt", []string{object.TypeInt}, object.Int(9))
	require.NoError(t, err)
	f, _ = v.AsFloat()
	assert.Equal(t, 3.0, f)
}
