package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The  Blue-Whale! ", "the blue whale"},
		{"Pizza!!!", "pizza"},
		{"  spaced   out  ", "spaced out"},
		{"UPPER case", "upper case"},
		{"", ""},
		{"?!.,", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("blue", "blue"))
	assert.Equal(t, 0.0, Similarity("", "blue"))
	assert.Equal(t, 0.0, Similarity("blue", ""))

	// Symmetric.
	assert.Equal(t, Similarity("blu", "blue"), Similarity("blue", "blu"))

	// 2 * 3 matched runes / 7 total.
	assert.InDelta(t, 6.0/7.0, Similarity("blu", "blue"), 0.0001)

	assert.Less(t, Similarity("xyz", "blue"), 0.1)
}

func TestAwardPoints(t *testing.T) {
	tests := []struct {
		name      string
		submitted string
		canonical string
		max       int
		want      int
	}{
		{"exact match", "blue", "blue", 3, 3},
		{"case and punctuation ignored", "Blue!", "blue", 3, 3},
		{"near match gets full credit", "blu", "blue", 3, 3},
		{"partial credit is proportional", "grean", "green", 3, 2},
		{"unrelated answer gets nothing", "xyz", "blue", 3, 0},
		{"empty submission gets nothing", "", "blue", 3, 0},
		{"empty canonical gets nothing", "blue", "", 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AwardPoints(tt.submitted, tt.canonical, tt.max))
		})
	}
}

func TestCategoryResolver(t *testing.T) {
	resolver := NewCategoryResolver(map[string]string{
		"general":          "General",
		"romantic_knowing": "Romantic Knowing",
	})

	assert.Equal(t, "general", resolver.Resolve("general"))
	assert.Equal(t, "romantic_knowing", resolver.Resolve("romantic_knowing"))
	assert.Equal(t, "romantic_knowing", resolver.Resolve("Romantic Knowing"))
	assert.Equal(t, "", resolver.Resolve(""))
}

func TestCategoryResolverFuzzy(t *testing.T) {
	resolver := NewCategoryResolver(map[string]string{"general": "General"})

	assert.Equal(t, "general", resolver.Resolve("generel"))
}
