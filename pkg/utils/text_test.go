package utils

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a \n\t b   c "))
	assert.Equal(t, "", CleanText(" \n "))
}

func TestReadingTime(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{0, 0},
		{1, 1},
		{99, 1},
		{200, 1},
		{100, 1},
		{300, 2},
		{500, 2}, // halves round to even
		{700, 4},
		{1000, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReadingTime(tt.words), "words=%d", tt.words)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Apply daily. Reapply every two hours!  Is SPF 50 enough? Done")
	assert.Equal(t, []string{
		"Apply daily.",
		"Reapply every two hours!",
		"Is SPF 50 enough?",
		"Done",
	}, got)
	assert.Empty(t, SplitSentences("   "))
	assert.Equal(t, []string{"Version 2.5 is out."}, SplitSentences("Version 2.5 is out."))
}

func TestSplitSentencesAbbreviations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"title", "Dr. Smith recommends applying SPF 30 every two hours when outdoors in strong sun.", 1},
		{"latin", "Choose a mineral filter, e.g. zinc oxide, for sensitive skin.", 1},
		{"title then new sentence", "Dr. Smith recommends SPF 30. Reapply after swimming.", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, SplitSentences(tt.text), tt.want)
		})
	}

	st := Stats("Dr. Smith recommends applying SPF 30 every two hours when outdoors in strong sun.")
	assert.Equal(t, 1, st.Sentences)
}

func TestCountSyllables(t *testing.T) {
	tests := map[string]int{
		"the":         1,
		"sun":         1,
		"make":        1,
		"table":       2,
		"sunscreen":   2,
		"protection":  3,
		"ultraviolet": 4,
		"Zinc,":       1,
		"123":         0,
	}
	for word, want := range tests {
		assert.Equal(t, want, CountSyllables(word), word)
	}
}

func TestFleschMetrics(t *testing.T) {
	st := Stats("The cat sat on the mat. The dog ran.")
	assert.Equal(t, 9, st.Words)
	assert.Equal(t, 2, st.Sentences)
	assert.Greater(t, st.FleschReadingEase(), 90.0)
	assert.Less(t, st.FleschKincaidGrade(), 3.0)

	empty := Stats("")
	assert.Zero(t, empty.FleschReadingEase())
	assert.Zero(t, empty.FleschKincaidGrade())
}

func TestPer100Words(t *testing.T) {
	assert.Equal(t, 2.0, Per100Words(4, 200))
	assert.Zero(t, Per100Words(4, 0))
}

func TestCountMatches(t *testing.T) {
	num := regexp.MustCompile(`\d+`)
	pct := regexp.MustCompile(`%`)
	assert.Equal(t, 5, CountMatches("20% of 3 people, 50%", num, pct))
	assert.Zero(t, CountMatches("", num))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "hi", TruncateRunes("hi", 4))
	assert.True(t, ContainsAny("mineral sunscreen", "zinc", "sun"))
	assert.False(t, ContainsAny("mineral", "zinc"))
	assert.Equal(t, 100.0, Clamp(140, 0, 100))
	assert.Equal(t, 0.0, Clamp(-3, 0, 100))
	assert.Equal(t, 2.0, Mean(1, 2, 3))
	assert.Zero(t, Mean())
	assert.Equal(t, 3, CountWords(strings.Repeat("word ", 3)))
}
