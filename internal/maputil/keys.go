// Package maputil provides helpers for maps keyed by fragment paths and names.
package maputil

import "sort"

// SortedKeys returns the keys of m in ascending order. The result is never nil.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedKeysWhere returns, in ascending order, the keys whose value satisfies keep.
func SortedKeysWhere[V any](m map[string]V, keep func(V) bool) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if keep(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
