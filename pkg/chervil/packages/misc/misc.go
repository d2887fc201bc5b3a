// Package misc provides compression and hashing helpers. Binary payloads
// travel as strings; scripts treat them as opaque.
package misc

import (
	"bytes"
	"encoding/hex"
	"io"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/crypto/blake2b"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

// New builds the misc module.
func New() *module.Module {
	m := module.New()

	m.SetFn("gzip", module.Public, []string{object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			var buf bytes.Buffer
			w := gzip.NewWriter(&buf)
			if _, err := w.Write([]byte(s)); err != nil {
				return object.Unit(), stateErr("gzip failed: " + err.Error())
			}
			if err := w.Close(); err != nil {
				return object.Unit(), stateErr("gzip failed: " + err.Error())
			}
			return object.Str(buf.String()), nil
		})

	m.SetFn("gunzip", module.Public, []string{object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			r, err := gzip.NewReader(bytes.NewReader([]byte(s)))
			if err != nil {
				return object.Unit(), stateErr("gunzip failed: " + err.Error())
			}
			defer r.Close()
			out, err := io.ReadAll(r)
			if err != nil {
				return object.Unit(), stateErr("gunzip failed: " + err.Error())
			}
			return object.Str(string(out)), nil
		})

	m.SetFn("blake2b", module.Public, []string{object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, _ := (*args[0]).AsString()
			sum := blake2b.Sum256([]byte(s))
			return object.Str(hex.EncodeToString(sum[:])), nil
		})

	return m
}

func stateErr(msg string) error {
	return errors.New("STATE-0001", map[string]any{"Message": msg})
}
