package reactive

import "strings"

// NormalizePath converts bracket member access into dot form and drops
// quotes: `list[0]['name']` becomes `list.0.name`.
func NormalizePath(expr string) string {
	var b strings.Builder
	for i := 0; i < len(expr); i++ {
		switch ch := expr[i]; ch {
		case '[':
			b.WriteByte('.')
		case ']', '\'', '"', ' ':
		default:
			b.WriteByte(ch)
		}
	}
	return strings.Trim(b.String(), ".")
}

// FirstSegment returns the top-level key of a path.
func FirstSegment(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}
