package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem string

func (t testItem) FilterValue() string { return string(t) }
func (t testItem) DisplayText() string { return string(t) }

func items(values ...string) []Item {
	out := make([]Item, len(values))
	for i, v := range values {
		out[i] = testItem(v)
	}
	return out
}

func indexes(matches []Match) []int {
	out := make([]int, len(matches))
	for i, m := range matches {
		out[i] = m.Index
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Radiohead", "radiohead"},
		{"", ""},
		{"Sigur Rós", "sigur ros"},
		{"Björk", "bjork"},
		{"AC/DC", "ac dc"},
		{"Guns N' Roses", "guns n roses"},
		{"  Kid   A ", "kid a"},
		{"Song (Live) [2009]", "song live 2009"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize(tt.in))
		})
	}
}

func TestTrigrams(t *testing.T) {
	assert.Nil(t, trigrams(""))

	g := trigrams("cat")
	for _, tri := range []string{"  c", " ca", "cat", "at ", "t  "} {
		assert.Contains(t, g, tri)
	}
	assert.NotContains(t, g, "   ")
	assert.Len(t, g, 5)
}

func TestCoverage(t *testing.T) {
	item := gramSet{"abc": {}, "bcd": {}, "cde": {}}

	assert.Zero(t, gramSet{}.coverage(item))
	assert.Equal(t, 1.0, gramSet{"abc": {}, "bcd": {}}.coverage(item))
	assert.Equal(t, 0.5, gramSet{"abc": {}, "xyz": {}}.coverage(item))
	assert.Zero(t, gramSet{"xyz": {}}.coverage(item))
}

func TestSearchBlankQueryMatchesAll(t *testing.T) {
	m := NewTrigramMatcher(items("Radiohead", "Portishead", "Massive Attack"))

	for _, q := range []string{"", "   ", "/"} {
		matches := m.Search(q)
		assert.Equal(t, []int{0, 1, 2}, indexes(matches), "query %q", q)
		for _, match := range matches {
			assert.Zero(t, match.Score)
		}
	}
}

func TestSearchEveryWordMustMatch(t *testing.T) {
	m := NewTrigramMatcher(items(
		"Radiohead OK Computer",
		"Radiohead Kid A",
		"Portishead Dummy",
	))

	assert.ElementsMatch(t, []int{0, 1}, indexes(m.Search("radiohead")))
	assert.Equal(t, []int{1}, indexes(m.Search("radiohead kid")))
	assert.Empty(t, m.Search("radiohead dummy"))
	assert.Empty(t, m.Search("xyz"))
}

func TestSearchShortWords(t *testing.T) {
	m := NewTrigramMatcher(items("Kid A", "Amnesiac", "Hail to the Thief"))

	assert.Equal(t, []int{1}, indexes(m.Search("am")))
	assert.ElementsMatch(t, []int{0, 1, 2}, indexes(m.Search("a")))
}

func TestSearchCaseAndAccents(t *testing.T) {
	m := NewTrigramMatcher(items("Sigur Rós Ágætis byrjun", "Björk Homogenic", "AC/DC Back in Black"))

	assert.Equal(t, []int{1}, indexes(m.Search("BJORK")))
	assert.Equal(t, []int{0}, indexes(m.Search("agaetis")))
	assert.Equal(t, []int{2}, indexes(m.Search("ac/dc")))
}

func TestSearchRanking(t *testing.T) {
	m := NewTrigramMatcher(items(
		"unrelated words",
		"the airbag song", // substring, not at a word start
		"airbag",          // whole word
		"xairbagx",        // substring inside a word
	))

	matches := m.Search("airbag")
	require.Len(t, matches, 3)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
	assert.NotEqual(t, 3, matches[0].Index, "word starts rank above inner substrings")
	assert.Equal(t, 3, matches[2].Index)
}

func TestSearchTiesKeepIndexOrder(t *testing.T) {
	m := NewTrigramMatcher(items("Radiohead", "Radiohead", "Radiohead"))

	assert.Equal(t, []int{0, 1, 2}, indexes(m.Search("radiohead")))
}
