// Package packages assembles the standard library: the core container
// and iteration helpers here, plus the arithmetic, logic, strings, time,
// misc and storage sub-packages.
package packages

import (
	"sort"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
	"github.com/chervil-lang/chervil/pkg/chervil/packages/arithmetic"
	"github.com/chervil-lang/chervil/pkg/chervil/packages/logic"
	"github.com/chervil-lang/chervil/pkg/chervil/packages/misc"
	"github.com/chervil-lang/chervil/pkg/chervil/packages/storage"
	"github.com/chervil-lang/chervil/pkg/chervil/packages/strings"
	"github.com/chervil-lang/chervil/pkg/chervil/packages/timepkg"
)

// Standard builds the full standard library as one combined module.
// checked selects the arithmetic overflow policy.
func Standard(checked bool) *module.Module {
	m := module.New()
	m.Combine(arithmetic.New(checked))
	m.Combine(logic.New())
	m.Combine(strings.New())
	m.Combine(timepkg.New())
	m.Combine(misc.New())
	m.Combine(storage.New())
	m.Combine(Core())
	return m
}

// Core builds the container and iteration helpers: range, array
// push/pop/len, map keys/values/remove, containment.
func Core() *module.Module {
	m := module.New()

	rangeFn := func(from, to, step int64) (object.Dynamic, error) {
		if step == 0 || (step > 0 && to < from) || (step < 0 && to > from) {
			return object.Unit(), errors.New("STATE-0001", map[string]any{
				"Message": "invalid range",
			})
		}
		var elems []object.Dynamic
		if step > 0 {
			for i := from; i < to; i += step {
				elems = append(elems, object.Int(i))
			}
		} else {
			for i := from; i > to; i += step {
				elems = append(elems, object.Int(i))
			}
		}
		return object.Array(elems), nil
	}

	m.SetFn("range", module.Public, []string{object.TypeInt, object.TypeInt},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			from, _ := (*args[0]).AsInt()
			to, _ := (*args[1]).AsInt()
			return rangeFn(from, to, 1)
		})
	m.SetFn("range", module.Public, []string{object.TypeInt, object.TypeInt, object.TypeInt},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			from, _ := (*args[0]).AsInt()
			to, _ := (*args[1]).AsInt()
			step, _ := (*args[2]).AsInt()
			return rangeFn(from, to, step)
		})

	// push mutates the receiver in place.
	m.SetFn("push", module.Public, []string{object.TypeArray, object.TypeDynamic},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			elems, _ := (*args[0]).AsArray()
			*args[0] = object.Array(append(elems, (*args[1]).Clone()))
			return object.Unit(), nil
		})

	m.SetFn("pop", module.Public, []string{object.TypeArray},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			elems, _ := (*args[0]).AsArray()
			if len(elems) == 0 {
				return object.Unit(), nil
			}
			last := elems[len(elems)-1]
			*args[0] = object.Array(elems[:len(elems)-1])
			return last, nil
		})

	m.SetFn("len", module.Public, []string{object.TypeArray},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			elems, _ := (*args[0]).AsArray()
			return object.Int(int64(len(elems))), nil
		})
	m.SetFn("len", module.Public, []string{object.TypeMap},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			mp, _ := (*args[0]).AsMap()
			return object.Int(int64(len(mp))), nil
		})

	m.SetFn("contains", module.Public, []string{object.TypeArray, object.TypeDynamic},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			elems, _ := (*args[0]).AsArray()
			for _, el := range elems {
				if object.Equal(el, *args[1]) {
					return object.Bool(true), nil
				}
			}
			return object.Bool(false), nil
		})
	m.SetFn("contains", module.Public, []string{object.TypeMap, object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			mp, _ := (*args[0]).AsMap()
			k, _ := (*args[1]).AsString()
			_, ok := mp[k]
			return object.Bool(ok), nil
		})

	m.SetFn("keys", module.Public, []string{object.TypeMap},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			mp, _ := (*args[0]).AsMap()
			ks := make([]string, 0, len(mp))
			for k := range mp {
				ks = append(ks, k)
			}
			sort.Strings(ks)
			elems := make([]object.Dynamic, len(ks))
			for i, k := range ks {
				elems[i] = object.Str(k)
			}
			return object.Array(elems), nil
		})

	m.SetFn("values", module.Public, []string{object.TypeMap},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			mp, _ := (*args[0]).AsMap()
			ks := make([]string, 0, len(mp))
			for k := range mp {
				ks = append(ks, k)
			}
			sort.Strings(ks)
			elems := make([]object.Dynamic, len(ks))
			for i, k := range ks {
				elems[i] = mp[k].Clone()
			}
			return object.Array(elems), nil
		})

	m.SetFn("remove", module.Public, []string{object.TypeMap, object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			mp, _ := (*args[0]).AsMap()
			k, _ := (*args[1]).AsString()
			v, ok := mp[k]
			if !ok {
				return object.Unit(), nil
			}
			delete(mp, k)
			return v, nil
		})

	return m
}
