package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fuzzyThreshold is the minimum edit-distance similarity for a free-text
// answer to count as correct.
const fuzzyThreshold = 0.75

// Leading articles stripped before comparison so "The Beatles" matches
// "Beatles". French forms included; the catalog is bilingual.
var leadingArticles = []string{
	"the ", "a ", "an ",
	"le ", "la ", "les ", "l'", "un ", "une ", "des ",
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lowercases, strips diacritics, drops one leading article,
// removes punctuation and collapses whitespace.
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	if stripped, _, err := transform.String(diacriticStripper, s); err == nil {
		s = stripped
	}

	for _, article := range leadingArticles {
		if strings.HasPrefix(s, article) {
			s = s[len(article):]
			break
		}
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// matchText compares a submitted free-text answer against the expected
// one. It reports whether they match and the similarity used as the
// accuracy factor: exact matches score 1.0, containment and fuzzy matches
// score their edit-distance similarity (floored at the threshold for
// containment).
func matchText(given, correct string) (bool, float64) {
	g := normalizeText(given)
	c := normalizeText(correct)
	if g == "" || c == "" {
		return false, 0
	}

	if g == c {
		return true, 1.0
	}

	sim := editSimilarity(g, c)

	shorter, longer := g, c
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.Contains(longer, shorter) &&
		float64(len(shorter))/float64(len(longer)) >= 0.5 {
		if sim < fuzzyThreshold {
			sim = fuzzyThreshold
		}
		return true, sim
	}

	if sim >= fuzzyThreshold {
		return true, sim
	}
	return false, 0
}

// editSimilarity is 1 - levenshtein(a,b)/max(len(a),len(b)), computed on
// runes.
func editSimilarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
