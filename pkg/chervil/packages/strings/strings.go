// Package strings provides string conversion, concatenation and
// inspection functions, including the to_string overload every builtin
// type routes through.
package strings

import (
	gostrings "strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// appendable lists the types that can be glued onto a string with +.
var appendable = []string{
	object.TypeInt,
	object.TypeFloat,
	object.TypeBool,
	object.TypeChar,
	object.TypeUnit,
}

// New builds the strings module.
func New() *module.Module {
	m := module.New()

	concat := func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Str((*args[0]).String() + (*args[1]).String()), nil
	}
	m.SetFn("+", module.Public, []string{object.TypeString, object.TypeString}, concat)
	m.SetFn("+", module.Public, []string{object.TypeChar, object.TypeChar}, concat)
	m.SetFn("+", module.Public, []string{object.TypeChar, object.TypeString}, concat)
	m.SetFn("+", module.Public, []string{object.TypeString, object.TypeChar}, concat)
	for _, t := range appendable {
		m.SetFn("+", module.Public, []string{object.TypeString, t}, concat)
		m.SetFn("+", module.Public, []string{t, object.TypeString}, concat)
	}

	// to_string accepts anything; String renders per type.
	m.SetFn("to_string", module.Public, []string{object.TypeDynamic},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			return object.Str((*args[0]).String()), nil
		})

	m.SetFn("len", module.Public, []string{object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			return object.Int(int64(utf8.RuneCountInString(s))), nil
		})

	m.SetFn("sub_string", module.Public, []string{object.TypeString, object.TypeInt, object.TypeInt},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			start, _ := (*args[1]).AsInt()
			length, _ := (*args[2]).AsInt()
			runes := []rune(s)
			n := int64(len(runes))
			if start < 0 || start > n {
				return object.Unit(), errors.New("STATE-0001", map[string]any{
					"Message": "sub_string start out of range",
				})
			}
			end := start + length
			if length < 0 || end > n {
				end = n
			}
			return object.Str(string(runes[start:end])), nil
		})

	m.SetFn("contains", module.Public, []string{object.TypeString, object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			sub, _ := (*args[1]).AsString()
			return object.Bool(gostrings.Contains(s, sub)), nil
		})
	m.SetFn("contains", module.Public, []string{object.TypeString, object.TypeChar},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			c, _ := (*args[1]).AsChar()
			return object.Bool(gostrings.ContainsRune(s, c)), nil
		})

	m.SetFn("trim", module.Public, []string{object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			return object.Str(gostrings.TrimSpace(s)), nil
		})

	m.SetFn("to_upper", module.Public, []string{object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			return object.Str(upper.String(s)), nil
		})
	m.SetFn("to_lower", module.Public, []string{object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			return object.Str(lower.String(s)), nil
		})

	m.SetFn("split", module.Public, []string{object.TypeString, object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			sep, _ := (*args[1]).AsString()
			parts := gostrings.Split(s, sep)
			elems := make([]object.Dynamic, len(parts))
			for i, p := range parts {
				elems[i] = object.Str(p)
			}
			return object.Array(elems), nil
		})

	m.SetFn("replace", module.Public, []string{object.TypeString, object.TypeString, object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			from, _ := (*args[1]).AsString()
			to, _ := (*args[2]).AsString()
			return object.Str(gostrings.ReplaceAll(s, from, to)), nil
		})

	return m
}
