package search

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/rainycape/unidecode"
)

const (
	// minCoverage is the share of a query word's trigrams an item must
	// contain for the word to count as found.
	minCoverage    = 0.4
	substringBonus = 0.5
	prefixBonus    = 0.25
)

// Match represents a search match with its index and score.
type Match struct {
	Index int
	Score float64
}

// gramSet is the set of trigrams of a normalised string.
type gramSet map[string]struct{}

// coverage returns |g ∩ other| / |g|. Unlike Jaccard it does not punish a
// short query against a long item text.
func (g gramSet) coverage(other gramSet) float64 {
	if len(g) == 0 {
		return 0
	}
	n := 0
	for tri := range g {
		if _, ok := other[tri]; ok {
			n++
		}
	}
	return float64(n) / float64(len(g))
}

type entry struct {
	text  string
	words []string
	grams gramSet
}

// TrigramMatcher scores items against multi-word queries. Every query word
// must be found in an item for it to match.
type TrigramMatcher struct {
	entries []entry
}

// NewTrigramMatcher indexes items by their filter value.
func NewTrigramMatcher(items []Item) *TrigramMatcher {
	m := &TrigramMatcher{entries: make([]entry, len(items))}
	for i, item := range items {
		text := normalize(item.FilterValue())
		m.entries[i] = entry{text: text, words: strings.Fields(text), grams: trigrams(text)}
	}
	return m
}

// Search returns the matching item indexes, best first. Items with equal
// scores keep their indexing order. A blank query matches everything with
// a zero score.
func (m *TrigramMatcher) Search(query string) []Match {
	words := strings.Fields(normalize(query))
	if len(words) == 0 {
		all := make([]Match, len(m.entries))
		for i := range all {
			all[i] = Match{Index: i}
		}
		return all
	}

	queryGrams := make([]gramSet, len(words))
	for i, w := range words {
		queryGrams[i] = trigrams(w)
	}

	var matches []Match
	for i := range m.entries {
		if score := m.entries[i].score(words, queryGrams); score > 0 {
			matches = append(matches, Match{Index: i, Score: score})
		}
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return matches
}

// score averages the per-word scores, or returns 0 when a word is missing.
func (e *entry) score(words []string, queryGrams []gramSet) float64 {
	total := 0.0
	for i, w := range words {
		s := e.wordScore(w, queryGrams[i])
		if s == 0 {
			return 0
		}
		total += s
	}
	return total / float64(len(words))
}

func (e *entry) wordScore(word string, grams gramSet) float64 {
	// one or two letters make too few trigrams to be meaningful
	if len([]rune(word)) <= 2 {
		if !strings.Contains(e.text, word) {
			return 0
		}
		return 1
	}

	s := grams.coverage(e.grams)
	if s < minCoverage {
		return 0
	}
	if strings.Contains(e.text, word) {
		s += substringBonus
		if slices.ContainsFunc(e.words, func(w string) bool { return strings.HasPrefix(w, word) }) {
			s += prefixBonus
		}
	}
	return s
}

// normalize transliterates to lowercase ASCII and turns punctuation into
// word breaks, so "AC/DC" and "ac dc" index the same.
func normalize(s string) string {
	s = strings.ToLower(unidecode.Unidecode(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// trigrams returns the trigrams of s padded with two spaces on each side,
// so prefixes and suffixes weigh in. All-blank trigrams are skipped.
func trigrams(s string) gramSet {
	if s == "" {
		return nil
	}
	runes := []rune("  " + s + "  ")
	out := make(gramSet, len(runes))
	for i := 0; i+3 <= len(runes); i++ {
		tri := string(runes[i : i+3])
		if strings.TrimSpace(tri) != "" {
			out[tri] = struct{}{}
		}
	}
	return out
}
