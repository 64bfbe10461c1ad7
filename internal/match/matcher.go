// Package match decides which lost reports and found records describe the
// same object and turns those decisions into matches.
package match

import (
	"log/slog"
	"strings"

	"github.com/erazemk/najdeno/internal/model"
)

// Matcher is the match predicate. The zero value ignores dates.
type Matcher struct {
	// RequireDateOrder rejects pairs where the item was reported lost after
	// it was found.
	RequireDateOrder bool
	Logger           *slog.Logger
}

// IsMatch reports whether lost and found plausibly describe the same object:
// both Pending, same category, dates in order when required, and at least one
// description word in common.
func (m Matcher) IsMatch(lost *model.LostReport, found *model.FoundRecord) bool {
	if lost.Status != model.StatusPending || found.Status != model.StatusPending {
		return false
	}
	if lost.Category != found.Category {
		return false
	}
	if m.RequireDateOrder && lost.DateLost.After(found.DateFound) {
		return false
	}

	lostWords := Tokens(lost.Description)
	foundWords := Tokens(found.Description)
	if len(lostWords) == 0 || len(foundWords) == 0 {
		m.logger().Warn("record without description, not matching",
			"lost_id", lost.ID, "found_id", found.ID)
		return false
	}

	for w := range lostWords {
		if _, ok := foundWords[w]; ok {
			return true
		}
	}
	return false
}

func (m Matcher) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

// Tokens returns the set of lower-cased whitespace-separated words in s.
func Tokens(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
