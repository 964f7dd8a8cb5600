package generation

import (
	"reflect"
	"sort"
	"strings"
)

// findFirstURLWithExtensions walks an arbitrarily nested JSON value breadth
// first and returns the first string whose lowercase form ends with one of
// the given extensions. The walk uses an explicit queue rather than
// recursion, and tracks visited composites by identity so self-referential
// structures terminate.
func findFirstURLWithExtensions(root any, extensions []string) string {
	queue := []any{root}
	seen := make(map[uintptr]bool)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if curr == nil {
			continue
		}

		switch v := curr.(type) {
		case string:
			lower := strings.ToLower(v)
			for _, ext := range extensions {
				if strings.HasSuffix(lower, ext) {
					return v
				}
			}

		case []any:
			if len(v) == 0 {
				continue
			}
			p := reflect.ValueOf(v).Pointer()
			if seen[p] {
				continue
			}
			seen[p] = true
			queue = append(queue, v...)

		case map[string]any:
			p := reflect.ValueOf(v).Pointer()
			if seen[p] {
				continue
			}
			seen[p] = true

			// Deterministic traversal order.
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				queue = append(queue, v[k])
			}
		}
	}

	return ""
}
