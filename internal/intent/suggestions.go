package intent

import (
	"strings"

	"github.com/yangwenmai/storeops/internal/model"
)

const (
	// DefaultMaxSuggestions caps the autocomplete list.
	DefaultMaxSuggestions = 5

	// MinSuggestionInput is the trimmed input length below which no
	// suggestions are offered.
	MinSuggestionInput = 2
)

// FilterSuggestions returns the catalog entries matching input, in catalog
// order and truncated to limit. An entry matches when one of its keywords
// contains the lowercased input, or its own text does. The search term is
// not trimmed, so a trailing space narrows the match.
func FilterSuggestions(input string, catalog []model.SuggestionEntry, limit int) []model.SuggestionEntry {
	if len(strings.TrimSpace(input)) < MinSuggestionInput || limit <= 0 {
		return nil
	}
	term := strings.ToLower(input)

	var out []model.SuggestionEntry
	for _, e := range catalog {
		if !entryMatches(e, term) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}

func entryMatches(e model.SuggestionEntry, term string) bool {
	for _, k := range e.Keywords {
		if strings.Contains(strings.ToLower(k), term) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(e.Text), term)
}
