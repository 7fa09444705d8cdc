package asset

import (
	"github.com/sahilm/fuzzy"
)

// Match is an item key matched by Find.
type Match struct {
	Key     string
	Score   int
	Indexes []int // matched rune positions, for highlighting
}

// Find fuzzy-matches pattern against the library's keys, best match first.
// The pattern goes through KeyFor so "ĉeval" finds "cxevalo". An empty
// pattern returns every key.
func (l *Library) Find(pattern string, limit int) ([]Match, error) {
	keys, err := l.Keys()
	if err != nil {
		return nil, err
	}
	return findKeys(keys, pattern, limit), nil
}

func findKeys(keys []string, pattern string, limit int) []Match {
	var out []Match
	if pattern == "" {
		for _, k := range keys {
			out = append(out, Match{Key: k})
		}
	} else {
		for _, m := range fuzzy.Find(KeyFor(pattern), keys) {
			out = append(out, Match{Key: m.Str, Score: m.Score, Indexes: m.MatchedIndexes})
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
