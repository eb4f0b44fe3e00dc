// Package fuzzy normalises titles and names and compares them with
// Levenshtein distance.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"github.com/rainycape/unidecode"
)

// minContainLen is the shortest normalised title that may win by containment.
const minContainLen = 3

// editionRe matches bracketed or dashed edition suffixes such as
// "(Remastered 2011)", "[Deluxe Edition]" or "- 2009 Remaster".
var editionRe = regexp.MustCompile(
	`(?i)\s*(?:[\(\[][^\)\]]*\b(?:remaster(?:ed)?|edition|deluxe|anniversary|version|expanded|mono|stereo|bonus)\b[^\)\]]*[\)\]]` +
		`|\s-\s[^-]*\b(?:remaster(?:ed)?|edition|deluxe|version)\b.*$)`,
)

// Normalize prepares a string for comparison: transliterates to ASCII,
// lowercases, strips edition suffixes, drops punctuation and collapses
// whitespace.
func Normalize(s string) string {
	s = unidecode.Unidecode(s)
	s = editionRe.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", " and ")

	var result strings.Builder
	lastWasSpace := true // trims leading spaces

	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			result.WriteRune(r)
			lastWasSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/':
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// Distance is the Levenshtein distance between a and b, counted in runes.
func Distance(a, b string) int {
	return edlib.LevenshteinDistance(a, b)
}

// Similarity returns 1 - distance/maxLen, in [0,1]. Identical strings
// score 1; a single empty string scores 0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	lenA := len([]rune(a))
	lenB := len([]rune(b))
	if lenA == 0 || lenB == 0 {
		return 0.0
	}

	return 1.0 - float64(Distance(a, b))/float64(max(lenA, lenB))
}

// TitleDistance compares two titles after normalisation. It returns a value
// in [0,1]: 0 when they are equal, when one contains the other, or when
// either is empty.
func TitleDistance(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" || na == nb {
		return 0
	}
	if contains(na, nb) || contains(nb, na) {
		return 0
	}
	return 1 - Similarity(na, nb)
}

func contains(s, sub string) bool {
	return len([]rune(sub)) >= minContainLen && strings.Contains(s, sub)
}

// NameMatch pairs an external name with the local name it resolved to.
type NameMatch struct {
	Candidate string
	Local     string
	Score     float64
}

// MatchNames resolves each candidate to a local name: an exact normalised
// match first, otherwise the most similar local name scoring at least
// threshold. Candidates without a match are left out.
func MatchNames(candidates, locals []string, threshold float64) []NameMatch {
	type local struct {
		norm, name string
	}
	normalized := make([]local, 0, len(locals))
	exact := make(map[string]string, len(locals))
	for _, name := range locals {
		norm := Normalize(name)
		if norm == "" {
			continue
		}
		if _, ok := exact[norm]; !ok {
			exact[norm] = name
			normalized = append(normalized, local{norm, name})
		}
	}

	var matched []NameMatch
	for _, c := range candidates {
		normC := Normalize(c)
		if normC == "" {
			continue
		}

		if name, ok := exact[normC]; ok {
			matched = append(matched, NameMatch{Candidate: c, Local: name, Score: 1})
			continue
		}

		bestMatch := ""
		bestScore := 0.0
		for _, l := range normalized {
			score := Similarity(normC, l.norm)
			if score >= threshold && score > bestScore {
				bestScore = score
				bestMatch = l.name
			}
		}

		if bestMatch != "" {
			matched = append(matched, NameMatch{Candidate: c, Local: bestMatch, Score: bestScore})
		}
	}

	return matched
}
