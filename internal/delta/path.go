package delta

import "strings"

// SetPath writes value at a dotted field path inside doc, creating
// intermediate objects as needed. An intermediate field holding a
// non-object value is replaced by an object.
func SetPath(doc map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := doc
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// GetPath reads the value at a dotted field path inside doc.
func GetPath(doc map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	current := doc
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	value, ok := current[segments[len(segments)-1]]
	return value, ok
}
