// Package rundb is the run-configuration database abstraction described in
// the external interfaces design: a key-value lookup the core reads from
// but never owns. ViperDatabase backs it with github.com/spf13/viper, the
// same library ogdar's config.go uses to read "ogdar.toml" into its
// Regs/Radar structs — here isolated behind the Database interface so the
// rest of the module has no viper import, matching ogdar's stated intent
// ("hopefully the go build system can avoid having to rebuild this every
// time").
package rundb

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/triumf-dragon/coincore/internal/dlog"
)

// Database is the core's view of the run-configuration database: untyped
// reads keyed by slash-separated path, with generic helpers (ReadValue,
// ReadArray below) doing the typed decode the spec's read_value<T>/
// read_array<T> ask for.
type Database interface {
	Get(path string) (interface{}, bool)
	GetArray(path string, length int) (interface{}, bool)
}

// ReadValue reads a single scalar value at path, converting numeric types
// where the underlying storage type doesn't exactly match T.
func ReadValue[T any](db Database, path string) (T, bool) {
	var zero T
	raw, ok := db.Get(path)
	if !ok {
		return zero, false
	}
	return convert[T](raw)
}

// ReadArray reads an array at path; if length > 0 the backing array must
// have exactly that many elements.
func ReadArray[T any](db Database, path string, length int) ([]T, bool) {
	raw, ok := db.GetArray(path, length)
	if !ok {
		return nil, false
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]T, rv.Len())
	for i := range out {
		v, ok := convert[T](rv.Index(i).Interface())
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func convert[T any](raw interface{}) (T, bool) {
	var zero T
	if v, ok := raw.(T); ok {
		return v, true
	}
	target := reflect.TypeOf(zero)
	rv := reflect.ValueOf(raw)
	if target == nil || !rv.IsValid() {
		return zero, false
	}
	if rv.Type().ConvertibleTo(target) {
		switch target.Kind() {
		case reflect.Float32, reflect.Float64,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.String:
			return rv.Convert(target).Interface().(T), true
		}
	}
	return zero, false
}

// ViperDatabase backs Database with a *viper.Viper instance, reading a
// TOML/YAML/JSON configuration file the same way ogdar's loadConfig does.
type ViperDatabase struct {
	v *viper.Viper
}

func NewViperDatabase(v *viper.Viper) *ViperDatabase {
	return &ViperDatabase{v: v}
}

// LoadViperDatabase mirrors ogdar's loadConfig: look for a named config file
// in the given search paths, returning ok=false (not an error) if none is
// found, so callers can fall back to compiled-in defaults.
func LoadViperDatabase(name string, searchPaths ...string) (*ViperDatabase, bool) {
	v := viper.New()
	v.SetConfigName(name)
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		return NewViperDatabase(v), false
	}
	return NewViperDatabase(v), true
}

// LoadViperDatabaseFile reads a single explicit config file path, for
// callers (like the CLI's --config flag) that already know exactly which
// file to load rather than searching a name across directories.
func LoadViperDatabaseFile(path string) (*ViperDatabase, bool) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return NewViperDatabase(v), false
	}
	return NewViperDatabase(v), true
}

func (d *ViperDatabase) Get(path string) (interface{}, bool) {
	key := toViperKey(path)
	if !d.v.IsSet(key) {
		return nil, false
	}
	return d.v.Get(key), true
}

func (d *ViperDatabase) GetArray(path string, length int) (interface{}, bool) {
	key := toViperKey(path)
	if !d.v.IsSet(key) {
		return nil, false
	}
	raw, ok := d.v.Get(key).([]interface{})
	if !ok {
		return nil, false
	}
	if length > 0 && len(raw) != length {
		return nil, false
	}
	return raw, true
}

func toViperKey(path string) string {
	return strings.ReplaceAll(strings.TrimPrefix(path, "/"), "/", ".")
}

// MapDatabase is an in-memory Database, used by tests and by any embedder
// that doesn't want a config file at all.
type MapDatabase map[string]interface{}

func (m MapDatabase) Get(path string) (interface{}, bool) {
	v, ok := m[path]
	return v, ok
}

func (m MapDatabase) GetArray(path string, length int) (interface{}, bool) {
	v, ok := m[path]
	if !ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	if length > 0 && rv.Len() != length {
		return nil, false
	}
	return v, true
}

// ResolveBankName applies the truncate/pad rule from the external
// interfaces design: names longer than 4 characters are truncated, names
// shorter than 4 are right-padded with '0'; either case logs a warning.
func ResolveBankName(logger *dlog.Logger, name string) string {
	switch {
	case len(name) == 4:
		return name
	case len(name) > 4:
		logger.Warn("bank name longer than 4 characters, truncating", "name", name, "truncated", name[:4])
		return name[:4]
	default:
		padded := name + strings.Repeat("0", 4-len(name))
		logger.Warn("bank name shorter than 4 characters, right-padding with '0'", "name", name, "padded", padded)
		return padded
	}
}
