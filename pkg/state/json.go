package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// FromJSON decodes data into a tree, keeping object keys in document order.
func FromJSON(data []byte) (any, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("state: invalid JSON")
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// ObjectFromJSON decodes data that must hold a JSON object.
func ObjectFromJSON(data []byte) (*Object, error) {
	v, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	o, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("state: top-level JSON value is not an object")
	}
	return o, nil
}

func fromResult(r gjson.Result) any {
	switch {
	case r.IsObject():
		o := NewObject()
		r.ForEach(func(k, v gjson.Result) bool {
			o.Set(k.String(), fromResult(v))
			return true
		})
		return o
	case r.IsArray():
		a := NewArray()
		for _, v := range r.Array() {
			a.Append(fromResult(v))
		}
		return a
	}

	switch r.Type {
	case gjson.True, gjson.False:
		return r.Bool()
	case gjson.Number:
		if strings.ContainsAny(r.Raw, ".eE") {
			return r.Float()
		}
		return r.Int()
	case gjson.String:
		return r.String()
	}
	return nil
}

// MarshalJSON encodes the object with keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON encodes the array.
func (a *Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToJSON encodes any tree value.
func ToJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch c := v.(type) {
	case *Object:
		buf.WriteByte('{')
		for i, k := range c.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(k)
			buf.Write(key)
			buf.WriteByte(':')
			if err := encode(buf, c.vals[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case *Array:
		buf.WriteByte('[')
		for i, it := range c.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, it); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}
