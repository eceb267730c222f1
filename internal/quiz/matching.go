// Package quiz implements answer normalization and the fuzzy scoring oracle
// used for every non-picker answer in a round.
package quiz

import (
	"math"
	"regexp"
	"strings"

	"github.com/schollz/closestmatch"
)

const (
	// FullCreditThreshold: similarity at or above earns maximum points.
	FullCreditThreshold = 0.85
	// PartialCreditThreshold: similarity at or above earns proportional points.
	PartialCreditThreshold = 0.6
)

var (
	nonWord    = regexp.MustCompile(`[^\w\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize lowercases, strips punctuation and collapses whitespace so that
// "The  Blue-Whale! " and "the blue whale" compare equal.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = nonWord.ReplaceAllString(text, " ")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Similarity returns a matching-blocks ratio in [0,1]. It is symmetric,
// Similarity(a, a) == 1, and comparison against an empty string yields 0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	m := matchingBlocks(ra, rb)
	return 2 * float64(m) / float64(len(ra)+len(rb))
}

// AwardPoints scores a submitted answer against the round's canonical answer.
// Full credit at high similarity, proportional credit in the middle band,
// nothing below it or when either side is empty.
func AwardPoints(submitted, canonical string, maxPoints int) int {
	s := Normalize(submitted)
	c := Normalize(canonical)
	if s == "" || c == "" {
		return 0
	}

	sim := Similarity(s, c)
	switch {
	case sim >= FullCreditThreshold:
		return maxPoints
	case sim >= PartialCreditThreshold:
		return int(math.Round(float64(maxPoints) * sim))
	default:
		return 0
	}
}

// matchingBlocks sums the lengths of the recursively longest common
// substrings of a and b (Ratcliff/Obershelp).
func matchingBlocks(a, b []rune) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlocks(a[:ai], b[:bi])
	total += matchingBlocks(a[ai+size:], b[bi+size:])
	return total
}

func longestCommonSubstring(a, b []rune) (ai, bi, size int) {
	// lengths[j] holds the common-suffix length ending at a[i], b[j-1].
	lengths := make([]int, len(b)+1)
	for i := 0; i < len(a); i++ {
		for j := len(b); j > 0; j-- {
			if a[i] == b[j-1] {
				lengths[j] = lengths[j-1] + 1
				if lengths[j] > size {
					size = lengths[j]
					ai = i - size + 1
					bi = j - size
				}
			} else {
				lengths[j] = 0
			}
		}
	}
	return ai, bi, size
}

// CategoryResolver fuzzily maps user-submitted category labels onto the known
// category slugs, so "Romantic" and "romantic_knowing" both resolve.
type CategoryResolver struct {
	matcher *closestmatch.ClosestMatch
	bySlug  map[string]string // normalized label -> slug
}

// NewCategoryResolver indexes slug -> display-name pairs.
func NewCategoryResolver(categories map[string]string) *CategoryResolver {
	keys := make([]string, 0, len(categories)*2)
	bySlug := make(map[string]string, len(categories)*2)
	for slug, name := range categories {
		ns, nn := Normalize(slug), Normalize(name)
		keys = append(keys, ns, nn)
		bySlug[ns] = slug
		bySlug[nn] = slug
	}

	return &CategoryResolver{
		matcher: closestmatch.New(keys, []int{2, 3}),
		bySlug:  bySlug,
	}
}

// Resolve returns the category slug for a submitted label, or "" when nothing
// is close enough.
func (r *CategoryResolver) Resolve(label string) string {
	n := Normalize(label)
	if n == "" {
		return ""
	}
	if slug, ok := r.bySlug[n]; ok {
		return slug
	}
	closest := r.matcher.Closest(n)
	if closest == "" {
		return ""
	}
	return r.bySlug[closest]
}
