// Package tree manipulates decoded JSON trees addressed by slash-separated paths,
// following the semantics of a hierarchical realtime database: writing null removes
// a node and objects left empty by a removal disappear with it.
package tree

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Split breaks a path into its non-empty segments
func Split(path string) []string {
	raw := strings.Split(path, "/")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// Join builds a path from segments
func Join(segments ...string) string {
	return strings.Join(Split(strings.Join(segments, "/")), "/")
}

// Get returns the node at path. Arrays are descended into by index.
func Get(root any, path string) (any, bool) {
	node := root
	for _, seg := range Split(path) {
		switch t := node.(type) {
		case map[string]any:
			child, ok := t[seg]
			if !ok {
				return nil, false
			}
			node = child
		case []any:
			i, ok := index(seg)
			if !ok || i >= len(t) {
				return nil, false
			}
			node = t[i]
		default:
			return nil, false
		}
	}
	if node == nil {
		return nil, false
	}
	return node, true
}

// Set replaces the node at path with value and returns the new root.
// A nil value removes the node. Primitives on the way are replaced by objects.
func Set(root any, path string, value any) any {
	return set(root, Split(path), value)
}

func set(node any, segments []string, value any) any {
	if len(segments) == 0 {
		return prune(value)
	}

	if arr, ok := node.([]any); ok {
		if i, ok := index(segments[0]); ok {
			return setIndex(arr, i, segments[1:], value)
		}
	}

	obj, ok := node.(map[string]any)
	if !ok {
		if value == nil {
			return node
		}
		obj = make(map[string]any)
	}

	child := set(obj[segments[0]], segments[1:], value)
	if child == nil {
		delete(obj, segments[0])
	} else {
		obj[segments[0]] = child
	}

	if len(obj) == 0 {
		return nil
	}
	return obj
}

// setIndex writes into an array node, growing it when i is past the end.
// An array left without elements is removed.
func setIndex(arr []any, i int, segments []string, value any) any {
	var current any
	if i < len(arr) {
		current = arr[i]
	}
	child := set(current, segments, value)
	if i >= len(arr) {
		if child == nil {
			return arr
		}
		arr = append(arr, make([]any, i+1-len(arr))...)
	}
	arr[i] = child

	for _, v := range arr {
		if v != nil {
			return arr
		}
	}
	return nil
}

func index(seg string) (int, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Merge writes each field as a child of path, leaving siblings untouched.
// Field keys may themselves be multi-segment paths.
func Merge(root any, path string, fields map[string]any) any {
	for key, value := range fields {
		root = Set(root, Join(path, key), value)
	}
	return root
}

// Clone deep-copies a decoded JSON tree
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		c := make(map[string]any, len(t))
		for k, child := range t {
			c[k] = Clone(child)
		}
		return c
	case []any:
		c := make([]any, len(t))
		for i, child := range t {
			c[i] = Clone(child)
		}
		return c
	default:
		return v
	}
}

// Decode converts any JSON-marshalable value into its generic decoded form
func Decode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return prune(out), nil
}

// prune drops null members and empty objects, which the database never stores
func prune(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range obj {
		if p := prune(child); p == nil {
			delete(obj, k)
		} else {
			obj[k] = p
		}
	}
	if len(obj) == 0 {
		return nil
	}
	return obj
}
