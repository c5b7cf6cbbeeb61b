// Package strings provides helpers for list-valued query parameters.
package strings

import (
	"strings"
)

// SplitList flattens repeated and comma-separated values into a single list.
// Elements are trimmed, empty ones dropped and duplicates removed. Order of
// first appearance is preserved.
//
// Example:
//
//	SplitList([]string{"a, b", "b", " ,c"}, nil)
//	// Returns: []string{"a", "b", "c"}
func SplitList(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if normalize != nil {
				part = normalize(part)
			}
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			result = append(result, part)
		}
	}
	return result
}

// SplitListUpper is SplitList with upper-casing, for case-insensitive names.
func SplitListUpper(values []string) []string {
	return SplitList(values, strings.ToUpper)
}
