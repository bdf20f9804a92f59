package nlq

import (
	"sort"
	"strings"
)

// vocabulary maps canonical values to accepted synonyms. The canonical value
// itself is always accepted.
type vocabulary map[string][]string

// maxEditDistance bounds the typo tolerance for a word of the given length.
// Short words get no tolerance at all; "tip" must never fuzzy-match "trip".
func maxEditDistance(wordLen int) int {
	switch {
	case wordLen < 4:
		return 0
	case wordLen <= 6:
		return 1
	default:
		return 2
	}
}

// matchWord resolves a single word against the vocabulary. Matching is
// case-insensitive with a bounded edit-distance fallback. When two canonical
// values tie at the best (non-exact) distance there is no clear winner, and
// both are returned as candidates.
func matchWord(word string, vocab vocabulary) (canonical string, candidates []string) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return "", nil
	}

	best := -1
	var bestCanonicals []string

	for canon, synonyms := range vocab {
		terms := append([]string{canon}, synonyms...)
		for _, term := range terms {
			t := strings.ToLower(term)
			d := levenshtein(w, t)
			// Tolerance follows the shorter of the two strings, so a long
			// word cannot fuzz its way into a short abbreviation.
			if d > maxEditDistance(min(len(w), len(t))) {
				continue
			}
			if best < 0 || d < best {
				best = d
				bestCanonicals = []string{canon}
			} else if d == best && !containsString(bestCanonicals, canon) {
				bestCanonicals = append(bestCanonicals, canon)
			}
		}
	}

	if best < 0 {
		return "", nil
	}
	if len(bestCanonicals) == 1 {
		return bestCanonicals[0], nil
	}
	return "", bestCanonicals
}

// ambiguousWord is a word whose best fuzzy matches tie between canonical
// values. The tie is surfaced to the user, never broken by picking one.
type ambiguousWord struct {
	Word       string
	Candidates []string
}

// matchText scans whitespace-separated words of text against the vocabulary
// and returns every canonical value hit, in first-appearance order, plus any
// words that tied between canonicals.
func matchText(text string, vocab vocabulary) (found []string, ambiguous []ambiguousWord) {
	for _, word := range splitWords(text) {
		canon, cands := matchWord(word, vocab)
		switch {
		case canon != "":
			if !containsString(found, canon) {
				found = append(found, canon)
			}
		case len(cands) > 1:
			sort.Strings(cands)
			ambiguous = append(ambiguous, ambiguousWord{Word: word, Candidates: cands})
		}
	}
	return found, ambiguous
}

// splitWords breaks text into lowercase alphabetic words.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

func lowercase(s string) string {
	return strings.ToLower(s)
}

// containsWord reports whether text contains word as a whole word.
func containsWord(text, word string) bool {
	return containsString(splitWords(text), word)
}

// containsPhrase reports whether text contains the whole-word sequence phrase.
func containsPhrase(text, phrase string) bool {
	words := splitWords(text)
	want := splitWords(phrase)
	if len(want) == 0 || len(want) > len(words) {
		return false
	}
outer:
	for i := 0; i+len(want) <= len(words); i++ {
		for j, w := range want {
			if words[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// levenshtein calculates the edit distance between two strings.
func levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}
