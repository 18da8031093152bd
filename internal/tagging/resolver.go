package tagging

import (
	"sort"
	"strings"
	"unicode"
)

// Resolve maps an article title to the canonical service names whose name or
// aliases appear in it. Matching is case-insensitive and bounded on word
// edges, so "EC2" matches "Amazon EC2 launches" but not "SEC2025". Identical
// (title, table) inputs always yield the identical sorted result; unmatched
// titles yield an empty set.
func Resolve(title string, table map[string][]string) []string {
	if title == "" || len(table) == 0 {
		return nil
	}

	lowered := strings.ToLower(title)
	matched := make([]string, 0, 2)

	for canonical, aliases := range table {
		if containsTerm(lowered, canonical) {
			matched = append(matched, canonical)
			continue
		}
		for _, alias := range aliases {
			if containsTerm(lowered, alias) {
				matched = append(matched, canonical)
				break
			}
		}
	}

	if len(matched) == 0 {
		return nil
	}
	sort.Strings(matched)
	return matched
}

// containsTerm reports whether term occurs in the lowered title with
// non-word characters (or string edges) on both sides.
func containsTerm(lowered, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}

	for start := 0; ; {
		idx := strings.Index(lowered[start:], term)
		if idx < 0 {
			return false
		}
		idx += start

		before := idx == 0 || !isWordByte(lowered[idx-1])
		end := idx + len(term)
		after := end == len(lowered) || !isWordByte(lowered[end])
		if before && after {
			return true
		}
		start = idx + 1
	}
}

func isWordByte(b byte) bool {
	return unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
}
