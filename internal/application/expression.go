package application

import (
	"regexp"
	"sort"
	"strings"
)

// ParseExpression extracts the distinct asset names referenced by a
// band-math expression, in first-seen order. The alternation is built
// from the known names sorted in reverse lexicographic order so that a
// name overlapping a longer one ("B1" vs "B10") never shadows it. An
// empty known set matches nothing.
func ParseExpression(expression string, known []string) []string {
	if len(known) == 0 {
		return nil
	}

	sorted := make([]string, len(known))
	copy(sorted, known)
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))

	quoted := make([]string, len(sorted))
	for i, name := range sorted {
		quoted[i] = regexp.QuoteMeta(name)
	}

	re, err := regexp.Compile(strings.Join(quoted, "|"))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var names []string
	for _, match := range re.FindAllString(expression, -1) {
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		names = append(names, match)
	}
	return names
}

// splitBlocks splits a catalog-level expression into its per-output-band
// sub-expressions.
func splitBlocks(expression string) []string {
	parts := strings.Split(expression, ",")
	blocks := make([]string, len(parts))
	for i, p := range parts {
		blocks[i] = strings.TrimSpace(p)
	}
	return blocks
}
