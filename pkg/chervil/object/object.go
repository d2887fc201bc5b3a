// Package object defines Dynamic, the type-erased value container that
// flows through the evaluator and across the native-function boundary,
// together with the shared (interior-mutable) cell and function-pointer
// types built on it.
package object

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the closed set of Dynamic variants.
type Kind uint8

const (
	KindUnit Kind = iota
	KindBool
	KindInt
	KindFloat
	KindChar
	KindString
	KindArray
	KindMap
	KindFnPtr
	KindShared
	KindVariant
)

// Canonical type names. These double as the type identities used for
// dispatch: every variant has exactly one name, so two host spellings of
// the same conceptual type can never produce distinct signatures.
const (
	TypeUnit   = "()"
	TypeBool   = "bool"
	TypeInt    = "i64"
	TypeFloat  = "f64"
	TypeChar   = "char"
	TypeString = "string"
	TypeArray  = "array"
	TypeMap    = "map"
	TypeFnPtr  = "Fn"

	// TypeDynamic matches any argument in a signature. Script functions
	// exported from modules register under it since their parameters are
	// untyped.
	TypeDynamic = "?"
)

// Variant boxes an embedder-supplied host value under a registered type
// name, letting scripts carry opaque custom types.
type Variant struct {
	Name  string
	Value any
}

// Dynamic is the type-erased value container. The zero value is unit.
type Dynamic struct {
	kind Kind
	val  any
}

// Unit returns the unit value.
func Unit() Dynamic { return Dynamic{} }

// Bool wraps a boolean.
func Bool(b bool) Dynamic { return Dynamic{kind: KindBool, val: b} }

// Int wraps a 64-bit integer.
func Int(i int64) Dynamic { return Dynamic{kind: KindInt, val: i} }

// Float wraps a 64-bit float.
func Float(f float64) Dynamic { return Dynamic{kind: KindFloat, val: f} }

// Char wraps a single character.
func Char(c rune) Dynamic { return Dynamic{kind: KindChar, val: c} }

// Str wraps a string.
func Str(s string) Dynamic { return Dynamic{kind: KindString, val: s} }

// Array wraps an element slice. The slice is owned by the value.
func Array(elems []Dynamic) Dynamic { return Dynamic{kind: KindArray, val: elems} }

// Map wraps a property map. The map is owned by the value.
func Map(m map[string]Dynamic) Dynamic { return Dynamic{kind: KindMap, val: m} }

// Fn wraps a function pointer.
func Fn(fp *FnPtr) Dynamic { return Dynamic{kind: KindFnPtr, val: fp} }

// NewVariant boxes a host value under a custom type name.
func NewVariant(name string, value any) Dynamic {
	return Dynamic{kind: KindVariant, val: &Variant{Name: name, Value: value}}
}

// Kind returns the variant discriminator.
func (d Dynamic) Kind() Kind { return d.kind }

// IsUnit reports whether the value is unit.
func (d Dynamic) IsUnit() bool { return d.kind == KindUnit }

// IsShared reports whether the value is a shared cell.
func (d Dynamic) IsShared() bool { return d.kind == KindShared }

// AsBool returns the boolean payload.
func (d Dynamic) AsBool() (bool, bool) {
	b, ok := d.val.(bool)
	return b, ok && d.kind == KindBool
}

// AsInt returns the integer payload.
func (d Dynamic) AsInt() (int64, bool) {
	i, ok := d.val.(int64)
	return i, ok && d.kind == KindInt
}

// AsFloat returns the float payload.
func (d Dynamic) AsFloat() (float64, bool) {
	f, ok := d.val.(float64)
	return f, ok && d.kind == KindFloat
}

// AsChar returns the character payload.
func (d Dynamic) AsChar() (rune, bool) {
	c, ok := d.val.(rune)
	return c, ok && d.kind == KindChar
}

// AsString returns the string payload.
func (d Dynamic) AsString() (string, bool) {
	s, ok := d.val.(string)
	return s, ok && d.kind == KindString
}

// AsArray returns the element slice.
func (d Dynamic) AsArray() ([]Dynamic, bool) {
	a, ok := d.val.([]Dynamic)
	return a, ok && d.kind == KindArray
}

// AsMap returns the property map.
func (d Dynamic) AsMap() (map[string]Dynamic, bool) {
	m, ok := d.val.(map[string]Dynamic)
	return m, ok && d.kind == KindMap
}

// AsFnPtr returns the function pointer.
func (d Dynamic) AsFnPtr() (*FnPtr, bool) {
	f, ok := d.val.(*FnPtr)
	return f, ok && d.kind == KindFnPtr
}

// AsCell returns the shared cell.
func (d Dynamic) AsCell() (*Cell, bool) {
	c, ok := d.val.(*Cell)
	return c, ok && d.kind == KindShared
}

// AsVariant returns the boxed host value.
func (d Dynamic) AsVariant() (*Variant, bool) {
	v, ok := d.val.(*Variant)
	return v, ok && d.kind == KindVariant
}

// TypeName returns the canonical type identity of the value. A shared
// value reports the type of its contents.
func (d Dynamic) TypeName() string {
	switch d.kind {
	case KindUnit:
		return TypeUnit
	case KindBool:
		return TypeBool
	case KindInt:
		return TypeInt
	case KindFloat:
		return TypeFloat
	case KindChar:
		return TypeChar
	case KindString:
		return TypeString
	case KindArray:
		return TypeArray
	case KindMap:
		return TypeMap
	case KindFnPtr:
		return TypeFnPtr
	case KindShared:
		cell := d.val.(*Cell)
		inner, err := cell.Load()
		if err != nil {
			return TypeUnit
		}
		return inner.TypeName()
	case KindVariant:
		return d.val.(*Variant).Name
	}
	return TypeUnit
}

// Clone returns a deep copy for ordinary values. Cloning a shared value
// aliases the cell: both copies observe the same contents.
func (d Dynamic) Clone() Dynamic {
	switch d.kind {
	case KindArray:
		src := d.val.([]Dynamic)
		dst := make([]Dynamic, len(src))
		for i, el := range src {
			dst[i] = el.Clone()
		}
		return Array(dst)
	case KindMap:
		src := d.val.(map[string]Dynamic)
		dst := make(map[string]Dynamic, len(src))
		for k, v := range src {
			dst[k] = v.Clone()
		}
		return Map(dst)
	case KindFnPtr:
		return Fn(d.val.(*FnPtr).Clone())
	default:
		// Shared values alias; scalars copy by value.
		return d
	}
}

// Take moves the value out, leaving unit behind.
func (d *Dynamic) Take() Dynamic {
	v := *d
	*d = Unit()
	return v
}

// Share promotes the value into a shared cell. Sharing an already-shared
// value returns it unchanged.
func (d Dynamic) Share() Dynamic {
	if d.kind == KindShared {
		return d
	}
	return Dynamic{kind: KindShared, val: NewCell(d)}
}

// Flatten resolves a shared value to a deep copy of its contents;
// ordinary values are returned as-is.
func (d Dynamic) Flatten() (Dynamic, error) {
	if d.kind != KindShared {
		return d, nil
	}
	inner, err := d.val.(*Cell).Load()
	if err != nil {
		return Unit(), err
	}
	return inner.Clone(), nil
}

// Truthy reports whether the value counts as true in a condition: only
// booleans have a truth value.
func (d Dynamic) Truthy() (bool, bool) {
	return d.AsBool()
}

// Equal reports deep equality. Shared values compare by contents; a
// locked cell compares unequal.
func Equal(a, b Dynamic) bool {
	av, err := a.Flatten()
	if err != nil {
		return false
	}
	bv, err := b.Flatten()
	if err != nil {
		return false
	}

	if av.kind != bv.kind {
		return false
	}
	switch av.kind {
	case KindUnit:
		return true
	case KindArray:
		x := av.val.([]Dynamic)
		y := bv.val.([]Dynamic)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case KindMap:
		x := av.val.(map[string]Dynamic)
		y := bv.val.(map[string]Dynamic)
		if len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case KindFnPtr:
		return av.val.(*FnPtr).Name == bv.val.(*FnPtr).Name
	case KindVariant:
		return av.val == bv.val
	default:
		return av.val == bv.val
	}
}

// String renders the value the way print does: strings and chars raw,
// everything else in display form.
func (d Dynamic) String() string {
	switch d.kind {
	case KindString:
		return d.val.(string)
	case KindChar:
		return string(d.val.(rune))
	default:
		return d.Inspect()
	}
}

// Inspect renders the value the way debug does: strings quoted, nested
// values in display form, map keys sorted for stable output.
func (d Dynamic) Inspect() string {
	switch d.kind {
	case KindUnit:
		return "()"
	case KindBool:
		return strconv.FormatBool(d.val.(bool))
	case KindInt:
		return strconv.FormatInt(d.val.(int64), 10)
	case KindFloat:
		return formatFloat(d.val.(float64))
	case KindChar:
		return "'" + string(d.val.(rune)) + "'"
	case KindString:
		return strconv.Quote(d.val.(string))
	case KindArray:
		elems := d.val.([]Dynamic)
		parts := make([]string, len(elems))
		for i, el := range elems {
			parts[i] = el.Inspect()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		m := d.val.(map[string]Dynamic)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + m[k].Inspect()
		}
		return "#{" + strings.Join(parts, ", ") + "}"
	case KindFnPtr:
		return "Fn(" + d.val.(*FnPtr).Name + ")"
	case KindShared:
		inner, err := d.val.(*Cell).Load()
		if err != nil {
			return "<locked>"
		}
		return inner.Inspect()
	case KindVariant:
		v := d.val.(*Variant)
		return fmt.Sprintf("%s(%v)", v.Name, v.Value)
	}
	return "()"
}

// formatFloat keeps a trailing ".0" on integral floats so the type stays
// visible in output.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
