package registry

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/VanDung-dev/tableio/tableerr"
)

// Options are the pass-through options of a read or write call. Adapters
// consume the keys they understand and hand the rest to their backend.
type Options map[string]any

// Clone returns a shallow copy of o. Cloning a nil map yields an empty one.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Pop removes key and returns its value.
func (o Options) Pop(key string) (any, bool) {
	v, ok := o[key]
	if ok {
		delete(o, key)
	}
	return v, ok
}

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the string value of key. A missing or nil key yields "".
func (o Options) String(key string) (string, error) {
	return AsString(key, o[key])
}

// Strings returns the string-list value of key. A single string is treated
// as a one-element list.
func (o Options) Strings(key string) ([]string, error) {
	return AsStrings(key, o[key])
}

// Int returns the integer value of key, or def when the key is absent.
func (o Options) Int(key string, def int64) (int64, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	return AsInt(key, v)
}

// Bool returns the boolean value of key, or def when the key is absent.
func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		p, err := strconv.ParseBool(b)
		if err != nil {
			return false, &tableerr.InvalidOptionError{Key: key, Err: err}
		}
		return p, nil
	}
	return false, &tableerr.InvalidOptionError{Key: key, Err: fmt.Errorf("expected bool, got %T", v)}
}

// AsString converts an option value to a string.
func AsString(key string, v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return "", &tableerr.InvalidOptionError{Key: key, Err: fmt.Errorf("expected string, got %T", v)}
}

// AsStrings converts an option value to a list of strings.
func AsStrings(key string, v any) ([]string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{s}, nil
	case []string:
		return s, nil
	case []any:
		out := make([]string, len(s))
		for i, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, &tableerr.InvalidOptionError{Key: key, Err: fmt.Errorf("element %d is %T, expected string", i, e)}
			}
			out[i] = str
		}
		return out, nil
	}
	return nil, &tableerr.InvalidOptionError{Key: key, Err: fmt.Errorf("expected list of strings, got %T", v)}
}

// AsInt converts an option value to an int64.
func AsInt(key string, v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, &tableerr.InvalidOptionError{Key: key, Err: fmt.Errorf("%g is not an integer", n)}
		}
		return int64(n), nil
	case string:
		p, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, &tableerr.InvalidOptionError{Key: key, Err: err}
		}
		return p, nil
	}
	return 0, &tableerr.InvalidOptionError{Key: key, Err: fmt.Errorf("expected integer, got %T", v)}
}
