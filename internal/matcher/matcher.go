// Package matcher decides whether a typed prefix should offer a template.
package matcher

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Matcher reports whether prefix loosely matches a template trigger.
type Matcher interface {
	LooselyMatches(prefix, trigger string) bool
}

// Func adapts a function to Matcher.
type Func func(prefix, trigger string) bool

func (f Func) LooselyMatches(prefix, trigger string) bool {
	return f(prefix, trigger)
}

// Loose is the default matcher. An empty prefix matches every trigger. A
// non-empty prefix must start the trigger (case-insensitively), or its runes
// must appear in order in the trigger with the first rune anchored at the
// start, so "fe" offers "forEach".
var Loose Matcher = Func(looselyMatches)

func looselyMatches(prefix, trigger string) bool {
	if prefix == "" {
		return true
	}
	if trigger == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(trigger), strings.ToLower(prefix)) {
		return true
	}
	p, _ := utf8.DecodeRuneInString(prefix)
	t, _ := utf8.DecodeRuneInString(trigger)
	if unicode.ToLower(p) != unicode.ToLower(t) {
		return false
	}
	return fuzzy.MatchFold(prefix, trigger)
}

// Rank orders triggers by how closely they match prefix, best first. Ties
// keep their original order. The result holds indexes into triggers.
func Rank(prefix string, triggers []string) []int {
	ranks := fuzzy.RankFindFold(prefix, triggers)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})
	out := make([]int, len(ranks))
	for i, r := range ranks {
		out[i] = r.OriginalIndex
	}
	return out
}
