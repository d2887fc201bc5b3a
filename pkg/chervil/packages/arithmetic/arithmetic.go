// Package arithmetic provides the numeric operator functions. Operators
// are ordinary overloads in the registry; the evaluator carries no
// arithmetic of its own. The checked build converts overflow, division by
// zero and friends into arithmetic errors; the unchecked build wraps the
// way the machine does.
package arithmetic

import (
	"fmt"
	"math"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

func arithErr(format string, args ...any) error {
	return errors.New("ARITH-0001", map[string]any{
		"Message": fmt.Sprintf(format, args...),
	})
}

// Integer binary operators, checked and raw variants side by side.
var intBinOps = []struct {
	name      string
	checked   func(a, b int64) (int64, error)
	unchecked func(a, b int64) int64
}{
	{"+", addChecked, func(a, b int64) int64 { return a + b }},
	{"-", subChecked, func(a, b int64) int64 { return a - b }},
	{"*", mulChecked, func(a, b int64) int64 { return a * b }},
	{"/", divChecked, divRaw},
	{"%", modChecked, modRaw},
	{"~", powChecked, powRaw},
	{"<<", shlChecked, func(a, b int64) int64 { return a << uint64(b&63) }},
	{">>", shrChecked, func(a, b int64) int64 { return a >> uint64(b&63) }},
	{"&", noFail(func(a, b int64) int64 { return a & b }), func(a, b int64) int64 { return a & b }},
	{"|", noFail(func(a, b int64) int64 { return a | b }), func(a, b int64) int64 { return a | b }},
	{"^", noFail(func(a, b int64) int64 { return a ^ b }), func(a, b int64) int64 { return a ^ b }},
}

// Float binary operators never trap; IEEE semantics carry infinities and
// NaN through.
var floatBinOps = []struct {
	name string
	fn   func(a, b float64) float64
}{
	{"+", func(a, b float64) float64 { return a + b }},
	{"-", func(a, b float64) float64 { return a - b }},
	{"*", func(a, b float64) float64 { return a * b }},
	{"/", func(a, b float64) float64 { return a / b }},
	{"%", math.Mod},
	{"~", math.Pow},
}

// New builds the arithmetic module.
func New(checked bool) *module.Module {
	m := module.New()

	for _, op := range intBinOps {
		op := op
		m.SetFn(op.name, module.Public, []string{object.TypeInt, object.TypeInt},
			func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
				a, _ := (*args[0]).AsInt()
				b, _ := (*args[1]).AsInt()
				if checked {
					r, err := op.checked(a, b)
					if err != nil {
						return object.Unit(), err
					}
					return object.Int(r), nil
				}
				return object.Int(op.unchecked(a, b)), nil
			})
	}

	for _, op := range floatBinOps {
		op := op
		fn := func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			a, err := asFloat(*args[0])
			if err != nil {
				return object.Unit(), err
			}
			b, err := asFloat(*args[1])
			if err != nil {
				return object.Unit(), err
			}
			return object.Float(op.fn(a, b)), nil
		}
		// Mixed int/float operands promote to float.
		m.SetFn(op.name, module.Public, []string{object.TypeFloat, object.TypeFloat}, fn)
		m.SetFn(op.name, module.Public, []string{object.TypeFloat, object.TypeInt}, fn)
		m.SetFn(op.name, module.Public, []string{object.TypeInt, object.TypeFloat}, fn)
	}

	m.SetFn("-", module.Public, []string{object.TypeInt},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			a, _ := (*args[0]).AsInt()
			if checked && a == math.MinInt64 {
				return object.Unit(), arithErr("Negation overflow: -%d", a)
			}
			return object.Int(-a), nil
		})
	m.SetFn("-", module.Public, []string{object.TypeFloat},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			a, _ := (*args[0]).AsFloat()
			return object.Float(-a), nil
		})
	m.SetFn("+", module.Public, []string{object.TypeInt}, identity)
	m.SetFn("+", module.Public, []string{object.TypeFloat}, identity)

	m.SetFn("abs", module.Public, []string{object.TypeInt},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			a, _ := (*args[0]).AsInt()
			if a >= 0 {
				return object.Int(a), nil
			}
			if checked && a == math.MinInt64 {
				return object.Unit(), arithErr("Negation overflow: -%d", a)
			}
			return object.Int(-a), nil
		})
	m.SetFn("abs", module.Public, []string{object.TypeFloat},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			a, _ := (*args[0]).AsFloat()
			return object.Float(math.Abs(a)), nil
		})

	m.SetFn("sign", module.Public, []string{object.TypeInt},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			a, _ := (*args[0]).AsInt()
			switch {
			case a > 0:
				return object.Int(1), nil
			case a < 0:
				return object.Int(-1), nil
			}
			return object.Int(0), nil
		})
	m.SetFn("sign", module.Public, []string{object.TypeFloat},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			a, _ := (*args[0]).AsFloat()
			switch {
			case a > 0:
				return object.Int(1), nil
			case a < 0:
				return object.Int(-1), nil
			}
			return object.Int(0), nil
		})

	m.SetFn("sqrt", module.Public, []string{object.TypeFloat},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			a, _ := (*args[0]).AsFloat()
			return object.Float(math.Sqrt(a)), nil
		})
	m.SetFn("sqrt", module.Public, []string{object.TypeInt},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			a, _ := (*args[0]).AsInt()
			return object.Float(math.Sqrt(float64(a))), nil
		})

	m.SetFn("to_float", module.Public, []string{object.TypeInt},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			a, _ := (*args[0]).AsInt()
			return object.Float(float64(a)), nil
		})
	m.SetFn("to_int", module.Public, []string{object.TypeFloat},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			a, _ := (*args[0]).AsFloat()
			if checked && (a > math.MaxInt64 || a < math.MinInt64 || math.IsNaN(a)) {
				return object.Unit(), arithErr("Integer overflow: to_int(%v)", a)
			}
			return object.Int(int64(a)), nil
		})

	return m
}

func identity(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
	return *args[0], nil
}

func asFloat(d object.Dynamic) (float64, error) {
	if f, ok := d.AsFloat(); ok {
		return f, nil
	}
	if i, ok := d.AsInt(); ok {
		return float64(i), nil
	}
	return 0, errors.New("TYPE-0001", map[string]any{
		"Function": "arithmetic", "Expected": object.TypeFloat, "Got": d.TypeName(),
	})
}

func noFail(fn func(a, b int64) int64) func(a, b int64) (int64, error) {
	return func(a, b int64) (int64, error) { return fn(a, b), nil }
}

func addChecked(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, arithErr("Addition overflow: %d + %d", a, b)
	}
	return a + b, nil
}

func subChecked(a, b int64) (int64, error) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, arithErr("Subtraction overflow: %d - %d", a, b)
	}
	return a - b, nil
}

func mulChecked(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if (a == math.MinInt64 && b == -1) || (b == math.MinInt64 && a == -1) {
		return 0, arithErr("Multiplication overflow: %d * %d", a, b)
	}
	r := a * b
	if r/a != b {
		return 0, arithErr("Multiplication overflow: %d * %d", a, b)
	}
	return r, nil
}

func divChecked(a, b int64) (int64, error) {
	if b == 0 {
		return 0, arithErr("Division by zero: %d / 0", a)
	}
	if a == math.MinInt64 && b == -1 {
		return 0, arithErr("Division overflow: %d / %d", a, b)
	}
	return a / b, nil
}

func divRaw(a, b int64) int64 {
	if b == 0 || (a == math.MinInt64 && b == -1) {
		return 0
	}
	return a / b
}

func modChecked(a, b int64) (int64, error) {
	if b == 0 {
		return 0, arithErr("Modulo by zero: %d %% 0", a)
	}
	if b == -1 {
		return 0, nil
	}
	return a % b, nil
}

func modRaw(a, b int64) int64 {
	if b == 0 || b == -1 {
		return 0
	}
	return a % b
}

func powChecked(a, b int64) (int64, error) {
	if b < 0 {
		return 0, arithErr("Power of negative exponent: %d ~ %d", a, b)
	}
	result := int64(1)
	base := a
	exp := b
	for exp > 0 {
		if exp&1 == 1 {
			r, err := mulChecked(result, base)
			if err != nil {
				return 0, arithErr("Power overflow: %d ~ %d", a, b)
			}
			result = r
		}
		exp >>= 1
		if exp == 0 {
			break
		}
		r, err := mulChecked(base, base)
		if err != nil {
			return 0, arithErr("Power overflow: %d ~ %d", a, b)
		}
		base = r
	}
	return result, nil
}

func powRaw(a, b int64) int64 {
	if b < 0 {
		return 0
	}
	result := int64(1)
	for ; b > 0; b >>= 1 {
		if b&1 == 1 {
			result *= a
		}
		a *= a
	}
	return result
}

func shlChecked(a, b int64) (int64, error) {
	if b < 0 {
		return 0, arithErr("Left-shift by a negative number: %d << %d", a, b)
	}
	if b > 63 {
		return 0, arithErr("Left-shift overflow: %d << %d", a, b)
	}
	return a << uint64(b), nil
}

func shrChecked(a, b int64) (int64, error) {
	if b < 0 {
		return 0, arithErr("Right-shift by a negative number: %d >> %d", a, b)
	}
	if b > 63 {
		return 0, arithErr("Right-shift overflow: %d >> %d", a, b)
	}
	return a >> uint64(b), nil
}
