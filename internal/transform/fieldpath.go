package transform

import (
	"strconv"
	"strings"
)

// Providers version their response shapes without notice, so field reads go
// through fallback paths: the first path that resolves wins, and callers
// supply a default for when none do.

// Lookup walks dot-separated paths through nested maps and slices, returning
// the first value found. Numeric segments index into slices.
func Lookup(doc any, paths ...string) (any, bool) {
	for _, path := range paths {
		if v, ok := walk(doc, strings.Split(path, ".")); ok {
			return v, true
		}
	}
	return nil, false
}

func walk(node any, segments []string) (any, bool) {
	for _, seg := range segments {
		switch cur := node.(type) {
		case map[string]any:
			next, ok := cur[seg]
			if !ok {
				return nil, false
			}
			node = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(cur) {
				return nil, false
			}
			node = cur[idx]
		default:
			return nil, false
		}
	}
	if node == nil {
		return nil, false
	}
	return node, true
}

// StringAt resolves the first path yielding a string, else def.
func StringAt(doc any, def string, paths ...string) string {
	if v, ok := Lookup(doc, paths...); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// IntAt resolves the first path yielding a number, else def. JSON numbers
// decode as float64.
func IntAt(doc any, def int, paths ...string) int {
	if v, ok := Lookup(doc, paths...); ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}
