package vaultclient

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowercaser = cases.Lower(language.Und)

// NormalizeTags mirrors the server's tag normalization so editors can
// preview the stored form before submitting: trim, collapse internal
// whitespace, lowercase, drop empties, deduplicate preserving first
// occurrence order.
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
