package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  The Beatles ", "beatles"},
		{"Émilie", "emilie"},
		{"L'aventurier", "aventurier"},
		{"Don't Stop Me Now!", "dont stop me now"},
		{"BOHEMIAN   RHAPSODY", "bohemian rhapsody"},
		{"Les Champs-Élysées", "champselysees"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeText(tt.in), "input %q", tt.in)
	}
}

func TestMatchTextExact(t *testing.T) {
	ok, sim := matchText("the beatles", "Beatles")
	assert.True(t, ok)
	assert.Equal(t, 1.0, sim)

	ok, sim = matchText("Désenchantée", "Desenchantee")
	assert.True(t, ok)
	assert.Equal(t, 1.0, sim)
}

func TestMatchTextContainment(t *testing.T) {
	// "Stairway to Heaven" is contained in the longer remaster title and
	// covers well over half of it; similarity is floored at the fuzzy
	// threshold.
	ok, sim := matchText("Stairway to Heaven", "Stairway to Heaven Remastered")
	assert.True(t, ok)
	assert.GreaterOrEqual(t, sim, fuzzyThreshold)

	// A contained fragment under half the length is not enough.
	ok, _ = matchText("Bohemian", "Bohemian Rhapsody")
	assert.False(t, ok)
}

func TestMatchTextFuzzy(t *testing.T) {
	ok, sim := matchText("Bohemian Rapsody", "Bohemian Rhapsody")
	assert.True(t, ok)
	assert.InDelta(t, 0.941, sim, 0.01)

	ok, _ = matchText("Hello", "Bohemian Rhapsody")
	assert.False(t, ok)
}

func TestMatchTextEmpty(t *testing.T) {
	ok, sim := matchText("", "Something")
	assert.False(t, ok)
	assert.Zero(t, sim)

	ok, _ = matchText("!!!", "Something")
	assert.False(t, ok)
}
