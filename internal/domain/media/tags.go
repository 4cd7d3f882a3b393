package media

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowercaser = cases.Lower(language.Und)

// NormalizeTags trims each tag, collapses internal whitespace runs to single
// spaces, lowercases, drops entries that become empty, and removes duplicates
// while preserving first-seen order. It is pure and idempotent:
// NormalizeTags(NormalizeTags(x)) == NormalizeTags(x).
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		normalized := lowercaser.String(strings.Join(strings.Fields(tag), " "))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
