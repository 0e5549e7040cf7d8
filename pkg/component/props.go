package component

import (
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/state"
)

// PropType describes one prop. Schema is a CUE expression the value must
// satisfy, for example `string`, `int | string` or `[...{name: string}]`.
// Nil values satisfy every schema.
type PropType struct {
	Schema     string
	Required   bool
	Default    any
	HasDefault bool
}

// Type returns a PropType with the given schema.
func Type(schema string) PropType {
	return PropType{Schema: schema}
}

// WithDefault sets the value used when the prop is absent.
func (p PropType) WithDefault(v any) PropType {
	p.Default = v
	p.HasDefault = true
	return p
}

// Require marks the prop as required.
func (p PropType) Require() PropType {
	p.Required = true
	return p
}

type propLink struct {
	parent string
	child  string
}

// splitProps deep-copies the prop argument into an Object keyed by child
// names and returns the parent to child key mapping.
func splitProps(arg any) (*state.Object, []propLink, error) {
	var src *state.Object
	switch a := arg.(type) {
	case nil:
		src = state.NewObject()
	case *state.Object:
		src = a
	case map[string]any:
		src = state.Normalize(a).(*state.Object)
	default:
		return nil, nil, errors.New(errors.CodePropNotObject).WithDetailf("got %T", arg)
	}

	prop := state.NewObject()
	var links []propLink
	for _, key := range src.Keys() {
		parent, child := key, key
		if p, c, ok := strings.Cut(key, ":"); ok {
			parent, child = strings.TrimSpace(p), strings.TrimSpace(c)
		}
		v, _ := src.Get(key)
		prop.Set(child, state.Clone(v))
		links = append(links, propLink{parent: parent, child: child})
	}
	return prop, links, nil
}

// checkProps applies defaults, then required checks, then schemas.
func checkProps(prop *state.Object, types map[string]PropType) error {
	if len(types) == 0 {
		return nil
	}
	keys := make([]string, 0, len(types))
	for k := range types {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx := cuecontext.New()
	schemas := make(map[string]cue.Value, len(types))
	for _, key := range keys {
		pt := types[key]
		if pt.Schema == "" {
			continue
		}
		schema := ctx.CompileString(pt.Schema, cue.Filename("propTypes."+key))
		if err := schema.Err(); err != nil {
			return errors.New(errors.CodePropTypes).WithDetailf("prop %q", key).Wrap(err)
		}
		schemas[key] = schema
	}

	for _, key := range keys {
		pt := types[key]
		if !prop.Has(key) {
			if pt.HasDefault {
				prop.Set(key, state.Clone(state.Normalize(pt.Default)))
			}
			if pt.Required && !prop.Has(key) {
				return errors.New(errors.CodeRequiredMissing).WithDetailf("prop %q", key)
			}
		}
		v, _ := prop.Get(key)
		schema, ok := schemas[key]
		if v == nil || !ok {
			continue
		}
		data, err := state.ToJSON(v)
		if err != nil {
			return errors.New(errors.CodePropType).WithDetailf("prop %q", key).Wrap(err)
		}
		value := ctx.CompileBytes(data)
		if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
			return errors.New(errors.CodePropType).
				WithDetailf("prop %q must match %s", key, pt.Schema).
				Wrap(err)
		}
	}
	return nil
}
