package utils

import (
	"math"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// WordsPerMinute is the reading speed used for reading time estimates
const WordsPerMinute = 200

var (
	whitespace  = regexp.MustCompile(`\s+`)
	vowelGroups = regexp.MustCompile(`[aeiouy]+`)
)

// englishTokenizer loads the bundled Punkt model once
var englishTokenizer = sync.OnceValues(func() (*sentences.DefaultSentenceTokenizer, error) {
	return english.NewSentenceTokenizer(nil)
})

// CleanText removes extra whitespace and normalizes text
func CleanText(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// CountWords counts whitespace-separated words
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Per100Words expresses count as a density per 100 words of text
func Per100Words(count float64, wordCount int) float64 {
	if wordCount == 0 {
		return 0
	}
	return count / (float64(wordCount) / 100)
}

// ReadingTime estimates reading time in minutes, rounding halves to even;
// non-empty text takes at least a minute
func ReadingTime(wordCount int) int {
	if wordCount <= 0 {
		return 0
	}
	minutes := int(math.RoundToEven(float64(wordCount) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// SplitSentences splits text into sentences with the English Punkt model,
// so abbreviations like "Dr." or "e.g." do not end a sentence
func SplitSentences(text string) []string {
	text = CleanText(text)
	if text == "" {
		return nil
	}
	tokenizer, err := englishTokenizer()
	if err != nil {
		return []string{text}
	}
	var out []string
	for _, s := range tokenizer.Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// CountSyllables estimates the syllables of one English word
func CountSyllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r)
	}))
	if word == "" {
		return 0
	}
	if len(word) <= 3 {
		return 1
	}
	// silent trailing e, but keep "-le" endings ("table")
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") {
		word = word[:len(word)-1]
	}
	n := len(vowelGroups.FindAllString(word, -1))
	if n == 0 {
		return 1
	}
	return n
}

// TextStats holds the counts readability formulas are built from
type TextStats struct {
	Words     int
	Sentences int
	Syllables int
}

// Stats computes word, sentence and syllable counts for text
func Stats(text string) TextStats {
	words := strings.Fields(text)
	st := TextStats{Words: len(words), Sentences: len(SplitSentences(text))}
	for _, w := range words {
		st.Syllables += CountSyllables(w)
	}
	return st
}

// FleschReadingEase scores how easy text is to read; higher is easier
func (s TextStats) FleschReadingEase() float64 {
	if s.Words == 0 || s.Sentences == 0 {
		return 0
	}
	return 206.835 - 1.015*(float64(s.Words)/float64(s.Sentences)) - 84.6*(float64(s.Syllables)/float64(s.Words))
}

// FleschKincaidGrade maps text onto a US school grade level
func (s TextStats) FleschKincaidGrade() float64 {
	if s.Words == 0 || s.Sentences == 0 {
		return 0
	}
	return 0.39*(float64(s.Words)/float64(s.Sentences)) + 11.8*(float64(s.Syllables)/float64(s.Words)) - 15.59
}

// TruncateRunes cuts text to at most n runes
func TruncateRunes(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}

// ContainsAny reports whether s contains any of the substrings
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// CountMatches counts the non-overlapping matches of every pattern in text
func CountMatches(text string, patterns ...*regexp.Regexp) int {
	n := 0
	for _, p := range patterns {
		n += len(p.FindAllStringIndex(text, -1))
	}
	return n
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Mean returns the arithmetic mean of values, 0 for none
func Mean(values ...float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
