package mapping

import "strings"

// resolvePath walks a dot-path through nested maps. A missing key or a
// non-map intermediate makes the value absent, which is not an error.
func resolvePath(record map[string]interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	var current interface{} = record
	for _, segment := range segments {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// writePath sets a value at a dot-path, creating intermediate objects as
// needed. A non-object value sitting on an intermediate segment is
// overwritten by a fresh object.
func writePath(payload map[string]interface{}, path string, value interface{}) {
	segments := strings.Split(path, ".")
	node := payload
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			node[segment] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
}
