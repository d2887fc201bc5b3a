// Package timepkg provides clock and timestamp functions. Timestamps are
// plain unix-second integers so they flow through arithmetic and
// comparisons like any other number.
package timepkg

import (
	"time"

	"github.com/araddon/dateparse"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

// New builds the time module.
func New() *module.Module {
	m := module.New()

	m.SetFn("now", module.Public, nil,
		func(_ object.Caller, _ []*object.Dynamic) (object.Dynamic, error) {
			return object.Int(time.Now().Unix()), nil
		})

	// parse_time understands most human date formats, not just one
	// layout.
	m.SetFn("parse_time", module.Public, []string{object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			t, err := dateparse.ParseAny(s)
			if err != nil {
				return object.Unit(), errors.New("STATE-0001", map[string]any{
					"Message": "cannot parse time: '" + s + "'",
				})
			}
			return object.Int(t.Unix()), nil
		})

	m.SetFn("format_time", module.Public, []string{object.TypeInt, object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			ts, _ := (*args[0]).AsInt()
			layout, _ := (*args[1]).AsString()
			return object.Str(time.Unix(ts, 0).UTC().Format(layout)), nil
		})

	return m
}
