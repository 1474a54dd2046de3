package usecase

import (
	"github.com/sahilm/fuzzy"
)

const maxSuggestions = 3

// SuggestNames returns the closest fuzzy matches for a mistyped name
func SuggestNames(name string, candidates []string) []string {
	if name == "" || len(candidates) == 0 {
		return nil
	}

	matches := fuzzy.Find(name, candidates)
	suggestions := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(suggestions) == maxSuggestions {
			break
		}
		suggestions = append(suggestions, m.Str)
	}
	return suggestions
}
