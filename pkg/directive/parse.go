package directive

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/state"
)

// EventBinding is one event=handler pair of a v-on attribute.
type EventBinding struct {
	Event   string
	Handler string
}

const (
	onExample  = `<button v-on="click=count += 1, dblclick=reset()">`
	forExample = `<li v-for="(item, i) in list" v-text="item"></li>`
)

// SplitEvents parses a v-on attribute. Pairs are separated by commas that
// are outside brackets and quotes.
func SplitEvents(s string) ([]EventBinding, error) {
	var out []EventBinding
	for _, part := range splitTopLevel(s, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		event, handler, ok := strings.Cut(part, "=")
		event, handler = strings.TrimSpace(event), strings.TrimSpace(handler)
		if !ok || event == "" || handler == "" {
			return nil, errors.New(errors.CodeOnSyntax).WithDetailf("%q", part).
				WithExample(onExample)
		}
		out = append(out, EventBinding{Event: event, Handler: handler})
	}
	if len(out) == 0 {
		return nil, errors.New(errors.CodeOnSyntax).WithDetailf("%q", s).
			WithExample(onExample)
	}
	return out, nil
}

// splitTopLevel splits s on sep where sep is not nested in (), [], {} or a
// quoted string.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			if depth > 0 {
				depth--
			}
		case ch == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// ForClause is a parsed v-for attribute.
type ForClause struct {
	Item  string
	Index string
	List  string
}

// ParseFor parses "(item, index) in list". The parentheses and the index
// name are optional.
func ParseFor(s string) (ForClause, error) {
	bad := func() (ForClause, error) {
		return ForClause{}, errors.New(errors.CodeForSyntax).WithDetailf("%q", s).
			WithExample(forExample)
	}
	i := strings.LastIndex(s, " in ")
	if i < 0 {
		return bad()
	}
	lhs := strings.TrimSpace(s[:i])
	list := strings.TrimSpace(s[i+len(" in "):])
	lhs = strings.TrimSuffix(strings.TrimPrefix(lhs, "("), ")")
	names := strings.Split(lhs, ",")
	if len(names) > 2 || list == "" {
		return bad()
	}
	fc := ForClause{Item: strings.TrimSpace(names[0]), List: list}
	if len(names) == 2 {
		fc.Index = strings.TrimSpace(names[1])
		if !isIdent(fc.Index) {
			return bad()
		}
	}
	if !isIdent(fc.Item) {
		return bad()
	}
	return fc, nil
}

// Declaration is one name = expr entry of a v-data attribute.
type Declaration struct {
	Name string
	Expr string
}

// ParseDeclarations parses "a = expr; b = expr".
func ParseDeclarations(s string) ([]Declaration, error) {
	var out []Declaration
	for _, part := range splitTopLevel(s, ';') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, code, ok := strings.Cut(part, "=")
		name, code = strings.TrimSpace(name), strings.TrimSpace(code)
		if !ok || !isIdent(name) || code == "" || strings.HasPrefix(code, "=") {
			return nil, errors.New(errors.CodeStatement).WithDetailf("v-data %q", part)
		}
		out = append(out, Declaration{Name: name, Expr: code})
	}
	return out, nil
}

// splitFilter separates "expr | name(args)" into the expression and the
// filter call source.
func splitFilter(s string) (key, filter string) {
	key, filter, _ = strings.Cut(s, "|")
	return strings.TrimSpace(key), strings.TrimSpace(filter)
}

// filterCall builds the source that applies filter to key: the value is
// passed as the first argument, followed by the filter's own arguments.
func filterCall(key, filter string) string {
	name, args, ok := strings.Cut(filter, "(")
	name = strings.TrimSpace(name)
	if !ok {
		return name + "(" + key + ")"
	}
	args = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(args), ")"))
	if args == "" {
		return name + "(" + key + ")"
	}
	return name + "(" + key + ", " + args + ")"
}

// pathCode renders a dot path as an assignable expression: list.0.name
// becomes list[0].name.
func pathCode(path string) string {
	var b strings.Builder
	for i, seg := range state.Split(path) {
		switch {
		case isIndex(seg):
			b.WriteString("[" + seg + "]")
		case isIdent(seg):
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg)
		default:
			b.WriteString("[" + strconv.Quote(seg) + "]")
		}
	}
	return b.String()
}

// isPath reports whether s is a plain member path such as user.name or
// list[0].name.
func isPath(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, seg := range strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == '[' || r == ']' }) {
		seg = strings.Trim(seg, `'"`)
		if !isIdent(seg) && !isIndex(seg) {
			return false
		}
	}
	return true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
