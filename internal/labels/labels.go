// Package labels provides runner label set parsing and matching helpers.
package labels

import "strings"

// Parse splits a comma-separated label list into a normalized slice:
// entries are trimmed, empty entries dropped, duplicates removed while
// preserving first-seen order.
func Parse(list string) []string {
	if list == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var result []string
	for _, raw := range strings.Split(list, ",") {
		label := strings.TrimSpace(raw)
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		result = append(result, label)
	}
	return result
}

// Join renders a label slice back into the comma-separated form the
// vendor runner binaries expect.
func Join(labels []string) string {
	return strings.Join(labels, ",")
}

// Superset reports whether have contains every label in want.
// An empty want matches any set.
func Superset(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, l := range have {
		set[l] = struct{}{}
	}
	for _, l := range want {
		if _, ok := set[l]; !ok {
			return false
		}
	}
	return true
}
