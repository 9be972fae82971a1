package utils

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var yearRegex = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)

// ExtractYear extracts the first 4-digit year from a date or free-form string
// Returns "" if no year is found
// Matches "2021-10-22", "2019–2021", "(2009)", etc.
func ExtractYear(value string) string {
	matches := yearRegex.FindStringSubmatch(value)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// NormalizeTitle lowercases and trims a title for exact comparisons
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// FoldTitle normalizes a title and romanizes accents so "Amélie" matches "amelie"
func FoldTitle(title string) string {
	return NormalizeTitle(unidecode.Unidecode(title))
}
