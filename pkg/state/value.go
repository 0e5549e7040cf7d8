package state

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Container is implemented by *Object and *Array.
type Container interface {
	// Path returns the dot-addressed position of the container in its root.
	Path() string

	// Tagged reports whether a path has been stamped on the container.
	Tagged() bool

	// Len returns the number of entries.
	Len() int

	setPath(path string)
	children(fn func(key string, v any))
}

// Object is an insertion-ordered string-keyed map.
type Object struct {
	keys   []string
	vals   map[string]any
	path   string
	tagged bool
}

// NewObject creates an empty Object.
func NewObject() *Object {
	return &Object{vals: make(map[string]any)}
}

// ObjectOf builds an Object from alternating key/value arguments.
// Values are normalized with Normalize.
func ObjectOf(kv ...any) *Object {
	if len(kv)%2 != 0 {
		panic("state: ObjectOf needs key/value pairs")
	}
	o := NewObject()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("state: ObjectOf key %v is not a string", kv[i]))
		}
		o.Set(key, kv[i+1])
	}
	return o
}

// Path returns the stamped path.
func (o *Object) Path() string { return o.path }

// Tagged reports whether a path was stamped.
func (o *Object) Tagged() bool { return o.tagged }

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

func (o *Object) setPath(path string) {
	o.path = path
	o.tagged = true
}

func (o *Object) children(fn func(key string, v any)) {
	for _, k := range o.keys {
		fn(k, o.vals[k])
	}
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.vals[key]
	return ok
}

// Set stores v under key, appending the key when it is new.
func (o *Object) Set(key string, v any) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = Normalize(v)
}

// Delete removes key.
func (o *Object) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Array is an ordered list of values.
type Array struct {
	items  []any
	path   string
	tagged bool
}

// NewArray creates an Array holding the normalized items.
func NewArray(items ...any) *Array {
	a := &Array{items: make([]any, 0, len(items))}
	a.Append(items...)
	return a
}

// Path returns the stamped path.
func (a *Array) Path() string { return a.path }

// Tagged reports whether a path was stamped.
func (a *Array) Tagged() bool { return a.tagged }

// Len returns the number of items.
func (a *Array) Len() int { return len(a.items) }

func (a *Array) setPath(path string) {
	a.path = path
	a.tagged = true
}

func (a *Array) children(fn func(key string, v any)) {
	for i, v := range a.items {
		fn(strconv.Itoa(i), v)
	}
}

// At returns the item at i, or nil when i is out of range.
func (a *Array) At(i int) any {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// SetAt stores v at i, growing the array with nil items when needed.
func (a *Array) SetAt(i int, v any) {
	if i < 0 {
		return
	}
	if i >= len(a.items) {
		a.SetLen(i + 1)
	}
	a.items[i] = Normalize(v)
}

// SetLen truncates the array or grows it with nil items.
func (a *Array) SetLen(n int) {
	if n < 0 {
		n = 0
	}
	switch {
	case n < len(a.items):
		clear(a.items[n:])
		a.items = a.items[:n]
	case n > len(a.items):
		a.items = append(a.items, make([]any, n-len(a.items))...)
	}
}

// Append adds items to the end of the array.
func (a *Array) Append(items ...any) {
	for _, it := range items {
		a.items = append(a.items, Normalize(it))
	}
}

// Items returns a copy of the items.
func (a *Array) Items() []any {
	out := make([]any, len(a.items))
	copy(out, a.items)
	return out
}

// IsContainer reports whether v is an *Object or *Array.
func IsContainer(v any) bool {
	_, ok := v.(Container)
	return ok
}

// Normalize converts Go values into tree values: integers become int64,
// floats float64 (integral floats stay floats), maps become *Object with
// sorted keys and slices become *Array. Containers and other values pass
// through unchanged.
func Normalize(v any) any {
	switch v := v.(type) {
	case nil, bool, int64, float64, string, *Object, *Array:
		return v
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return uintValue(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return uintValue(v)
	case float32:
		return float64(v)
	case []any:
		return NewArray(v...)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		o := NewObject()
		for _, k := range keys {
			o.Set(k, v[k])
		}
		return o
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		a := NewArray()
		for i := 0; i < rv.Len(); i++ {
			a.Append(rv.Index(i).Interface())
		}
		return a
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

func uintValue(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}
