// Package logic provides the comparison operator functions for the
// ordered and equatable builtin types. The short-circuiting && and ||
// live in the evaluator; equality over aggregates falls back to deep
// structural comparison there as well.
package logic

import (
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

// ordering is -1, 0 or 1.
type cmpFn func(a, b object.Dynamic) int

func cmpInt(a, b object.Dynamic) int {
	x, _ := a.AsInt()
	y, _ := b.AsInt()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func cmpNum(a, b object.Dynamic) int {
	x := numOf(a)
	y := numOf(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func numOf(d object.Dynamic) float64 {
	if f, ok := d.AsFloat(); ok {
		return f
	}
	i, _ := d.AsInt()
	return float64(i)
}

func cmpString(a, b object.Dynamic) int {
	x, _ := a.AsString()
	y, _ := b.AsString()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func cmpChar(a, b object.Dynamic) int {
	x, _ := a.AsChar()
	y, _ := b.AsChar()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

var orderedPairs = []struct {
	types []string
	cmp   cmpFn
}{
	{[]string{object.TypeInt, object.TypeInt}, cmpInt},
	{[]string{object.TypeFloat, object.TypeFloat}, cmpNum},
	{[]string{object.TypeInt, object.TypeFloat}, cmpNum},
	{[]string{object.TypeFloat, object.TypeInt}, cmpNum},
	{[]string{object.TypeString, object.TypeString}, cmpString},
	{[]string{object.TypeChar, object.TypeChar}, cmpChar},
}

var relations = []struct {
	name string
	test func(ord int) bool
}{
	{"<", func(ord int) bool { return ord < 0 }},
	{"<=", func(ord int) bool { return ord <= 0 }},
	{">", func(ord int) bool { return ord > 0 }},
	{">=", func(ord int) bool { return ord >= 0 }},
	{"==", func(ord int) bool { return ord == 0 }},
	{"!=", func(ord int) bool { return ord != 0 }},
}

// New builds the logic module.
func New() *module.Module {
	m := module.New()

	for _, pair := range orderedPairs {
		for _, rel := range relations {
			pair, rel := pair, rel
			m.SetFn(rel.name, module.Public, pair.types,
				func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
					return object.Bool(rel.test(pair.cmp(*args[0], *args[1]))), nil
				})
		}
	}

	eqBool := func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
		a, _ := (*args[0]).AsBool()
		b, _ := (*args[1]).AsBool()
		return object.Bool(a == b), nil
	}
	neBool := func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
		a, _ := (*args[0]).AsBool()
		b, _ := (*args[1]).AsBool()
		return object.Bool(a != b), nil
	}
	m.SetFn("==", module.Public, []string{object.TypeBool, object.TypeBool}, eqBool)
	m.SetFn("!=", module.Public, []string{object.TypeBool, object.TypeBool}, neBool)

	m.SetFn("==", module.Public, []string{object.TypeUnit, object.TypeUnit},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			return object.Bool(true), nil
		})
	m.SetFn("!=", module.Public, []string{object.TypeUnit, object.TypeUnit},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			return object.Bool(false), nil
		})

	return m
}
