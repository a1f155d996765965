package scorer

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/amosWeiskopf/geoscan/internal/models"
	"github.com/amosWeiskopf/geoscan/pkg/utils"
)

var (
	directAnswerPhrases = []*regexp.Regexp{
		regexp.MustCompile(`\byes,?\s`),
		regexp.MustCompile(`\bno,?\s`),
		regexp.MustCompile(`\bthe answer is\b`),
		regexp.MustCompile(`\bin short,?\b`),
		regexp.MustCompile(`\bsimply put,?\b`),
		regexp.MustCompile(`\bthe key is\b`),
	}

	questionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bhow\s+(?:to|do|does|can)\b`),
		regexp.MustCompile(`\bwhat\s+(?:is|are|does)\b`),
		regexp.MustCompile(`\bwhen\s+(?:to|should|do)\b`),
		regexp.MustCompile(`\bwhere\s+(?:to|can|should)\b`),
		regexp.MustCompile(`\bwhy\s+(?:is|are|do|should)\b`),
		regexp.MustCompile(`\bwhich\s+(?:is|are|one)\b`),
	}

	conversationalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\byou\s+(?:can|should|need|might|will)\b`),
		regexp.MustCompile(`\bwe\s+(?:recommend|suggest|advise)\b`),
		regexp.MustCompile(`\bit's\s+(?:important|best|better)\b`),
		regexp.MustCompile(`\bhere's\s+(?:how|what|why)\b`),
	}

	directAnswerQuestion = regexp.MustCompile(`\b(?:is|are|can|will|should|does|how|what|when|where|why)\b.*?\?`)
	conversationalPhrase = regexp.MustCompile(`\b(?:you should|you can|you need|you might|we recommend)\b`)
	stepCue              = regexp.MustCompile(`\bstep \d+\b|\b(?:first|second|next|finally),`)
)

var (
	questionWords      = []string{"how", "what", "when", "where", "why", "which"}
	voiceQuestionWords = []string{"how", "what", "when", "where", "why"}
	localPhrases       = []string{"near me", "best for", "recommended for", "perfect for"}
)

func (s *Scorer) scoreAIConsumption(page models.PageRecord) models.DimensionScore {
	text := page.CleanText
	lower := strings.ToLower(text)
	words := utils.CountWords(text)

	subs := []models.SubScore{
		{Name: SubAnswerFormat, Score: answerFormatScore(lower, page.Headings, page.Lists)},
		{Name: SubQuestionAddressing, Score: questionAddressingScore(lower, words, page.Headings)},
		{Name: SubStructuredData, Score: structuredDataScore(page.StructuredData, page.ContentType)},
		{Name: SubSnippetOptimization, Score: snippetScore(page.Title, page.MetaDescription, page.Headings)},
		{Name: SubVoiceSearchReadiness, Score: voiceSearchScore(lower, page.Headings)},
	}

	kinds := make([]string, 0, len(page.StructuredData))
	for _, b := range page.StructuredData {
		kinds = append(kinds, b.Kind)
	}

	details := map[string]any{
		"direct_answer_patterns": utils.CountMatches(lower, directAnswerQuestion),
		"structured_data_types":  kinds,
		"faq_format_detected":    page.ContentType == models.ContentFAQPage || strings.Count(lower, "?") > 5,
		"conversational_phrases": utils.CountMatches(lower, conversationalPhrase),
		"step_by_step_content":   utils.CountMatches(lower, stepCue),
	}
	return dimension(models.DimensionAIConsumption, subs, details)
}

// headingsWith counts headings containing any of words
func headingsWith(headings models.Headings, words []string) int {
	n := 0
	for _, h := range headings.All() {
		if utils.ContainsAny(strings.ToLower(h), words...) {
			n++
		}
	}
	return n
}

func answerFormatScore(lower string, headings models.Headings, lists [][]string) float64 {
	if strings.TrimSpace(lower) == "" {
		return 0
	}
	score := 50.0
	for _, p := range directAnswerPhrases {
		if p.MatchString(lower) {
			score += 10
		}
	}
	for _, items := range lists {
		if len(items) >= 3 {
			score += 15
			break
		}
	}

	questions := 0
	for _, h := range headings.All() {
		if strings.HasSuffix(strings.TrimSpace(h), "?") {
			questions++
		}
	}
	score += math.Min(20, float64(questions*5))
	return math.Min(100, score)
}

// questionAddressingScore counts question patterns per 100 words, headings count double
func questionAddressingScore(lower string, words int, headings models.Headings) float64 {
	if words == 0 {
		return 0
	}
	n := utils.CountMatches(lower, questionPatterns...) + 2*headingsWith(headings, questionWords)
	return math.Min(100, utils.Per100Words(float64(n), words)*25)
}

func structuredDataScore(blocks []models.StructuredData, ct models.ContentType) float64 {
	if len(blocks) == 0 {
		return 0
	}

	var jsonLD, microdata bool
	for _, b := range blocks {
		switch b.Kind {
		case "json-ld":
			jsonLD = true
		case "microdata":
			microdata = true
		}
	}

	score := 0.0
	if jsonLD {
		score += 40
	}
	if microdata {
		score += 20
	}

	wanted := map[models.ContentType]string{
		models.ContentProductPage: "Product",
		models.ContentFAQPage:     "FAQPage",
		models.ContentBlogPost:    "Article",
	}[ct]
	if wanted != "" {
		for _, b := range blocks {
			if b.Mentions(wanted) {
				score += 30
				break
			}
		}
	}

	if len(blocks) > 2 {
		score += 10
	}
	return math.Min(100, score)
}

// lengthFit awards full points inside [lo, hi] characters and partial points otherwise
func lengthFit(s string, lo, hi int) float64 {
	n := utf8.RuneCountInString(s)
	switch {
	case n >= lo && n <= hi:
		return 25
	case n > 0:
		return 15
	}
	return 0
}

func snippetScore(title, meta string, headings models.Headings) float64 {
	score := lengthFit(title, 30, 60) + lengthFit(meta, 120, 160)

	switch h1 := len(headings.Level(1)); {
	case h1 == 1:
		score += 25
	case h1 > 1:
		score += 15
	}
	switch h2 := len(headings.Level(2)); {
	case h2 >= 2:
		score += 25
	case h2 == 1:
		score += 15
	}
	return math.Min(100, score)
}

func voiceSearchScore(lower string, headings models.Headings) float64 {
	if strings.TrimSpace(lower) == "" {
		return 0
	}
	score := 0.0
	for _, p := range conversationalPatterns {
		score += math.Min(15, float64(utils.CountMatches(lower, p)*3))
	}
	score += math.Min(30, float64(headingsWith(headings, voiceQuestionWords)*5))
	for _, phrase := range localPhrases {
		if strings.Contains(lower, phrase) {
			score += 5
		}
	}
	return math.Min(100, score)
}
