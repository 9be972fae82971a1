package utils

import (
	"bufio"
	"os"
	"strings"
)

// defaultRejectedTitles are values the AI service returns instead of a real title
var defaultRejectedTitles = []string{"trailer", "tráiler"}

// defaultGarbageTitles must match the whole title (case-insensitive)
var defaultGarbageTitles = []string{"null", "undefined", "n/a", "none", "unknown"}

// TitleFilter rejects unusable titles produced by translation
type TitleFilter struct {
	terms   []string
	garbage []string
}

// NewTitleFilter returns a filter with the built-in rules only
func NewTitleFilter() *TitleFilter {
	return &TitleFilter{
		terms:   append([]string(nil), defaultRejectedTitles...),
		garbage: append([]string(nil), defaultGarbageTitles...),
	}
}

// LoadTitleFilter loads extra substring terms from a file on top of the built-in rules
func LoadTitleFilter(path string) (*TitleFilter, error) {
	filter := NewTitleFilter()

	// If file doesn't exist, return the built-in filter
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return filter, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		term := strings.TrimSpace(scanner.Text())
		if term != "" && !strings.HasPrefix(term, "#") {
			filter.terms = append(filter.terms, term)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return filter, nil
}

// IsRejected checks if a title is empty, garbage or contains a rejected term
// Returns (isRejected, matchedTerm)
func (f *TitleFilter) IsRejected(title string) (bool, string) {
	titleLower := strings.ToLower(strings.TrimSpace(title))
	if titleLower == "" {
		return true, ""
	}

	for _, value := range f.garbage {
		if titleLower == value {
			return true, value
		}
	}

	for _, term := range f.terms {
		if strings.Contains(titleLower, strings.ToLower(term)) {
			return true, term
		}
	}

	return false, ""
}
