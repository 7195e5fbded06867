package registry

import (
	"github.com/sahilm/fuzzy"
)

// maxSuggestions caps the names Suggest returns.
const maxSuggestions = 3

// Suggest returns up to three indexed names that fuzzy-match name, best
// match first.
func (s *Snapshot) Suggest(name string) []string {
	matches := fuzzy.Find(name, s.Names())
	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
