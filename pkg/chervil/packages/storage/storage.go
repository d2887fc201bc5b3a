// Package storage provides a small persistent key-value store backed by
// SQLite, exposed to scripts as an opaque KvStore handle.
package storage

import (
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

// TypeName is the script-visible type of an open store.
const TypeName = "KvStore"

// KvStore wraps the database handle boxed into the script value.
type KvStore struct {
	db   *sql.DB
	path string
}

func ioErr(op, path string, err error) error {
	return errors.New("IO-0001", map[string]any{
		"Operation": op,
		"Path":      path,
		"GoError":   err.Error(),
	})
}

func storeArg(d object.Dynamic) (*KvStore, error) {
	if v, ok := d.AsVariant(); ok {
		if s, ok := v.Value.(*KvStore); ok {
			return s, nil
		}
	}
	return nil, errors.New("TYPE-0001", map[string]any{
		"Function": "kv", "Expected": TypeName, "Got": d.TypeName(),
	})
}

// New builds the storage module.
func New() *module.Module {
	m := module.New()

	m.SetFn("kv_open", module.Public, []string{object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			path, _ := (*args[0]).AsString()
			db, err := sql.Open("sqlite", path)
			if err != nil {
				return object.Unit(), ioErr("open", path, err)
			}
			if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT NOT NULL)`); err != nil {
				db.Close()
				return object.Unit(), ioErr("open", path, err)
			}
			return object.NewVariant(TypeName, &KvStore{db: db, path: path}), nil
		})

	m.SetFn("kv_put", module.Public, []string{TypeName, object.TypeString, object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, err := storeArg(*args[0])
			if err != nil {
				return object.Unit(), err
			}
			k, _ := (*args[1]).AsString()
			v, _ := (*args[2]).AsString()
			if _, err := s.db.Exec(`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`, k, v); err != nil {
				return object.Unit(), ioErr("write", s.path, err)
			}
			return object.Unit(), nil
		})

	// kv_get returns unit for a missing key.
	m.SetFn("kv_get", module.Public, []string{TypeName, object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, err := storeArg(*args[0])
			if err != nil {
				return object.Unit(), err
			}
			k, _ := (*args[1]).AsString()
			var v string
			err = s.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, k).Scan(&v)
			if err == sql.ErrNoRows {
				return object.Unit(), nil
			}
			if err != nil {
				return object.Unit(), ioErr("read", s.path, err)
			}
			return object.Str(v), nil
		})

	m.SetFn("kv_delete", module.Public, []string{TypeName, object.TypeString},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, err := storeArg(*args[0])
			if err != nil {
				return object.Unit(), err
			}
			k, _ := (*args[1]).AsString()
			if _, err := s.db.Exec(`DELETE FROM kv WHERE k = ?`, k); err != nil {
				return object.Unit(), ioErr("write", s.path, err)
			}
			return object.Unit(), nil
		})

	m.SetFn("kv_close", module.Public, []string{TypeName},
		func(_ object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
			s, err := storeArg(*args[0])
			if err != nil {
				return object.Unit(), err
			}
			if err := s.db.Close(); err != nil {
				return object.Unit(), ioErr("close", s.path, err)
			}
			return object.Unit(), nil
		})

	return m
}
