package expr

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/reusee/starlarkutil"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"github.com/vango-dev/vbind/pkg/reactive"
	"github.com/vango-dev/vbind/pkg/state"
)

const centerKey = "vbind.center"

func centerOf(thread *starlark.Thread) *reactive.Center {
	c, _ := thread.Local(centerKey).(*reactive.Center)
	return c
}

// objectValue exposes a reactive object node to Starlark. Missing attributes
// read as None.
type objectValue struct {
	node *reactive.Node
}

var (
	_ starlark.HasAttrs    = objectValue{}
	_ starlark.HasSetField = objectValue{}
	_ starlark.HasSetKey   = objectValue{}
	_ starlark.Sequence    = objectValue{}
	_ starlark.Comparable  = objectValue{}
)

func (o objectValue) String() string        { return jsonString(o.node) }
func (o objectValue) Type() string          { return "object" }
func (o objectValue) Freeze()               {}
func (o objectValue) Truth() starlark.Bool  { return starlark.True }
func (o objectValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: object") }
func (o objectValue) Len() int              { return o.node.Len() }

func (o objectValue) Attr(name string) (starlark.Value, error) {
	return toStarlark(o.node.Center(), o.node.Get(name))
}

func (o objectValue) AttrNames() []string { return o.node.Keys() }

func (o objectValue) SetField(name string, v starlark.Value) error {
	return o.node.Set(name, ToGo(v))
}

func (o objectValue) Get(k starlark.Value) (starlark.Value, bool, error) {
	key, ok := starlark.AsString(k)
	if !ok {
		return nil, false, fmt.Errorf("object key must be a string, got %s", k.Type())
	}
	if !o.node.Has(key) {
		return starlark.None, false, nil
	}
	v, err := toStarlark(o.node.Center(), o.node.Get(key))
	return v, true, err
}

func (o objectValue) SetKey(k, v starlark.Value) error {
	key, ok := starlark.AsString(k)
	if !ok {
		return fmt.Errorf("object key must be a string, got %s", k.Type())
	}
	return o.node.Set(key, ToGo(v))
}

func (o objectValue) Iterate() starlark.Iterator {
	keys := o.node.Keys()
	items := make([]starlark.Value, len(keys))
	for i, k := range keys {
		items[i] = starlark.String(k)
	}
	return &iterator{items: items}
}

func (o objectValue) CompareSameType(op syntax.Token, y starlark.Value, depth int) (bool, error) {
	return compareIdentity(op, o.node, y.(objectValue).node)
}

// arrayValue exposes a reactive array node to Starlark.
type arrayValue struct {
	node *reactive.Node
}

var (
	_ starlark.Indexable   = arrayValue{}
	_ starlark.HasSetIndex = arrayValue{}
	_ starlark.HasAttrs    = arrayValue{}
	_ starlark.HasSetField = arrayValue{}
	_ starlark.Iterable    = arrayValue{}
	_ starlark.Comparable  = arrayValue{}
)

func (a arrayValue) String() string        { return jsonString(a.node) }
func (a arrayValue) Type() string          { return "array" }
func (a arrayValue) Freeze()               {}
func (a arrayValue) Truth() starlark.Bool  { return starlark.True }
func (a arrayValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: array") }
func (a arrayValue) Len() int              { return a.node.Len() }

func (a arrayValue) Index(i int) starlark.Value {
	v, err := toStarlark(a.node.Center(), a.node.At(i))
	if err != nil {
		return starlark.None
	}
	return v
}

func (a arrayValue) SetIndex(i int, v starlark.Value) error {
	return a.node.SetAt(i, ToGo(v))
}

func (a arrayValue) Iterate() starlark.Iterator {
	items := make([]starlark.Value, a.node.Len())
	for i := range items {
		items[i] = a.Index(i)
	}
	return &iterator{items: items}
}

func (a arrayValue) CompareSameType(op syntax.Token, y starlark.Value, depth int) (bool, error) {
	return compareIdentity(op, a.node, y.(arrayValue).node)
}

var arrayMethods = []string{"append", "extend", "length", "pop", "push"}

func (a arrayValue) AttrNames() []string { return arrayMethods }

func (a arrayValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "length":
		return starlark.MakeInt(a.node.Len()), nil
	case "append", "push":
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			items := make([]any, len(args))
			for i, v := range args {
				items[i] = ToGo(v)
			}
			if err := a.node.Push(items...); err != nil {
				return nil, err
			}
			return starlark.MakeInt(a.node.Len()), nil
		}), nil
	case "extend":
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var seq starlark.Iterable
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &seq); err != nil {
				return nil, err
			}
			var items []any
			iter := seq.Iterate()
			defer iter.Done()
			var v starlark.Value
			for iter.Next(&v) {
				items = append(items, ToGo(v))
			}
			return starlark.None, a.node.Push(items...)
		}), nil
	case "pop":
		return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			v, err := a.node.Pop()
			if err != nil {
				return nil, err
			}
			return toStarlark(a.node.Center(), v)
		}), nil
	}
	return nil, nil
}

func (a arrayValue) SetField(name string, v starlark.Value) error {
	if name != "length" {
		return starlark.NoSuchAttrError(fmt.Sprintf("array has no .%s field", name))
	}
	n, ok := ToGo(v).(int64)
	if !ok || n < 0 {
		return fmt.Errorf("invalid array length %s", v)
	}
	return a.node.SetLength(int(n))
}

type iterator struct {
	items []starlark.Value
	i     int
}

func (it *iterator) Next(p *starlark.Value) bool {
	if it.i >= len(it.items) {
		return false
	}
	*p = it.items[it.i]
	it.i++
	return true
}

func (it *iterator) Done() {}

func compareIdentity(op syntax.Token, x, y *reactive.Node) (bool, error) {
	switch op {
	case syntax.EQL:
		return x == y, nil
	case syntax.NEQ:
		return x != y, nil
	}
	return false, fmt.Errorf("%s not supported between containers", op)
}

func jsonString(n *reactive.Node) string {
	b, err := state.ToJSON(n.Raw())
	if err != nil {
		return fmt.Sprintf("<%s>", n.Path())
	}
	return string(b)
}

// ToGo converts a Starlark value into a tree value. Reactive containers come
// back as *reactive.Node, lists and dicts as fresh *state.Array and
// *state.Object. Reactive containers nested in a list or dict are stored as
// their raw container so the write re-stamps them at their new position.
// Callables are returned unchanged.
func ToGo(v starlark.Value) any {
	switch v := v.(type) {
	case nil, starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(v)
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return i
		}
		f, _ := starlark.AsFloat(v)
		return f
	case starlark.Float:
		return float64(v)
	case starlark.String:
		return string(v)
	case starlark.Bytes:
		return string(v)
	case objectValue:
		return v.node
	case arrayValue:
		return v.node
	case *starlark.List:
		items := make([]any, v.Len())
		for i := range items {
			items[i] = toElement(v.Index(i))
		}
		return state.NewArray(items...)
	case starlark.Tuple:
		items := make([]any, len(v))
		for i, it := range v {
			items[i] = toElement(it)
		}
		return state.NewArray(items...)
	case *starlark.Dict:
		o := state.NewObject()
		for _, kv := range v.Items() {
			key, ok := starlark.AsString(kv[0])
			if !ok {
				key = kv[0].String()
			}
			o.Set(key, toElement(kv[1]))
		}
		return o
	}
	return v
}

func toElement(v starlark.Value) any {
	switch v := v.(type) {
	case objectValue:
		return v.node.Raw()
	case arrayValue:
		return v.node.Raw()
	}
	return ToGo(v)
}

// ToStarlark converts a Go value for use in expressions. Containers are
// wrapped through c so that writes are observed.
func ToStarlark(c *reactive.Center, v any) (starlark.Value, error) {
	return toStarlark(c, v)
}

func toStarlark(c *reactive.Center, v any) (starlark.Value, error) {
	switch v := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return v, nil
	case *reactive.Node:
		if v.IsArray() {
			return arrayValue{node: v}, nil
		}
		return objectValue{node: v}, nil
	case *state.Object, *state.Array:
		if c != nil {
			return toStarlark(c, c.Wrap(v))
		}
		return detached(v)
	case bool:
		return starlark.Bool(v), nil
	case []byte:
		return starlark.Bytes(v), nil
	case string:
		return starlark.String(v), nil
	case int:
		return starlark.MakeInt(v), nil
	case int64:
		return starlark.MakeInt64(v), nil
	case uint64:
		return starlark.MakeUint64(v), nil
	case float32:
		return starlark.Float(v), nil
	case float64:
		return starlark.Float(v), nil
	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			ev, err := toStarlark(c, e)
			if err != nil {
				return nil, err
			}
			elems[i] = ev
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		d := starlark.NewDict(len(v))
		for k, val := range v {
			sv, err := toStarlark(c, val)
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return d, nil
	}

	value := reflect.ValueOf(v)
	switch value.Kind() {
	case reflect.Bool:
		return starlark.Bool(value.Bool()), nil
	case reflect.String:
		return starlark.String(value.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(value.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return starlark.MakeUint64(value.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return starlark.Float(value.Float()), nil
	case reflect.Slice, reflect.Array:
		elems := make([]starlark.Value, value.Len())
		for i := range elems {
			ev, err := toStarlark(c, value.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			elems[i] = ev
		}
		return starlark.NewList(elems), nil
	case reflect.Map:
		d := starlark.NewDict(value.Len())
		iter := value.MapRange()
		for iter.Next() {
			k, err := toStarlark(c, iter.Key().Interface())
			if err != nil {
				return nil, err
			}
			val, err := toStarlark(c, iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(k, val); err != nil {
				return nil, err
			}
		}
		return d, nil
	case reflect.Struct:
		typ := value.Type()
		fields := make(starlark.StringDict, value.NumField())
		for i := range value.NumField() {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			val, err := toStarlark(c, value.Field(i).Interface())
			if err != nil {
				return nil, err
			}
			fields[field.Name] = val
		}
		return starlarkstruct.FromStringDict(starlarkstruct.Default, fields), nil
	case reflect.Pointer, reflect.Interface:
		elem := value.Elem()
		if !elem.IsValid() {
			return starlark.None, nil
		}
		return toStarlark(c, elem.Interface())
	case reflect.Func:
		return starlarkutil.MakeFunc("", value.Interface()), nil
	}
	return nil, fmt.Errorf("unsupported type for expressions: %T", v)
}

// detached converts a container that belongs to no instance into plain
// Starlark lists and dicts.
func detached(v any) (starlark.Value, error) {
	switch v := v.(type) {
	case *state.Object:
		d := starlark.NewDict(v.Len())
		for _, k := range v.Keys() {
			child, _ := v.Get(k)
			sv, err := toStarlark(nil, child)
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return d, nil
	case *state.Array:
		return toStarlark(nil, v.Items())
	}
	return toStarlark(nil, v)
}

// Truth reports the truthiness of a value: nil, false, zero numbers and the
// empty string are false; containers are always true.
func Truth(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	case *reactive.Node, *state.Object, *state.Array:
		return true
	case starlark.Value:
		return bool(v.Truth())
	}
	return true
}

// ToString renders a value as binding text. nil renders empty and containers
// render as JSON.
func ToString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case *reactive.Node:
		return jsonString(v)
	case *state.Object, *state.Array:
		b, err := state.ToJSON(v)
		if err != nil {
			return ""
		}
		return string(b)
	case starlark.String:
		return string(v)
	case starlark.Value:
		return v.String()
	}
	return fmt.Sprint(v)
}

// Literal renders a scalar as expression source.
func Literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case string:
		return starlark.String(v).String()
	case bool:
		return starlark.Bool(v).String()
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return starlark.Float(v).String()
	}
	return starlark.String(ToString(v)).String()
}
