package scorer

import (
	"math"
	"unicode/utf8"

	"github.com/amosWeiskopf/geoscan/internal/config"
	"github.com/amosWeiskopf/geoscan/internal/models"
	"github.com/amosWeiskopf/geoscan/pkg/utils"
)

// bandFit rates n against r: 1 inside the band, proportional below it and
// penalised above it, each side with its own floor
func bandFit(n float64, r config.Range, lowFloor, maxPenalty, highFloor float64) float64 {
	switch {
	case n >= r.Min && n <= r.Max:
		return 1
	case n < r.Min:
		return math.Max(lowFloor, n/r.Min)
	default:
		return math.Max(highFloor, 1-math.Min(maxPenalty, (n-r.Max)/r.Max))
	}
}

func (s *Scorer) scoreContentStructure(page models.PageRecord) models.DimensionScore {
	bp := s.cfg.GeoBestPractices
	sentences := utils.SplitSentences(page.CleanText)

	subs := []models.SubScore{
		{Name: SubParagraphLength, Score: paragraphLengthScore(page.Paragraphs, bp.ParagraphBand())},
		{Name: SubSentenceLength, Score: sentenceLengthScore(sentences, bp.SentenceBand())},
		{Name: SubHeadingHierarchy, Score: headingHierarchyScore(page.Headings, bp.HeadingBand())},
		{Name: SubListOptimization, Score: listOptimizationScore(page.Lists, bp.ListBand())},
		{Name: SubReadability, Score: readabilityScore(page.CleanText)},
	}

	totalWords := 0
	for _, p := range page.Paragraphs {
		totalWords += utils.CountWords(p)
	}
	avgParagraph := 0.0
	if len(page.Paragraphs) > 0 {
		avgParagraph = float64(totalWords) / float64(len(page.Paragraphs))
	}

	details := map[string]any{
		"paragraph_count":      len(page.Paragraphs),
		"avg_paragraph_length": avgParagraph,
		"sentence_count":       len(sentences),
		"heading_levels":       page.Headings.LevelsWithContent(),
		"h1_count":             len(page.Headings.Level(1)),
		"list_count":           len(page.Lists),
		"flesch_reading_ease":  utils.Stats(page.CleanText).FleschReadingEase(),
	}
	return dimension(models.DimensionContentStructure, subs, details)
}

func paragraphLengthScore(paragraphs []string, band config.Range) float64 {
	if len(paragraphs) == 0 {
		return 0
	}
	fits := make([]float64, len(paragraphs))
	for i, p := range paragraphs {
		fits[i] = bandFit(float64(utils.CountWords(p)), band, 0.3, 0.7, 0.2)
	}
	return utils.Mean(fits...) * 100
}

func sentenceLengthScore(sentences []string, band config.Range) float64 {
	if len(sentences) == 0 {
		return 0
	}
	fits := make([]float64, len(sentences))
	for i, sentence := range sentences {
		fits[i] = bandFit(float64(utils.CountWords(sentence)), band, 0.4, 0.6, 0.3)
	}
	return utils.Mean(fits...) * 100
}

func headingHierarchyScore(headings models.Headings, band config.Range) float64 {
	levels := float64(headings.LevelsWithContent())
	if levels == 0 {
		return 0
	}

	var base float64
	switch {
	case levels >= band.Min && levels <= band.Max:
		base = 1
	case levels < band.Min:
		base = math.Max(0.4, levels/band.Min)
	default:
		base = math.Max(0.5, 1-(levels-band.Max)*0.1)
	}

	switch h1 := len(headings.Level(1)); {
	case h1 == 1:
		base += 0.1
	case h1 == 0:
		base -= 0.2
	default:
		base -= 0.1
	}
	return utils.Clamp(base*100, 0, 100)
}

func listOptimizationScore(lists [][]string, band config.Range) float64 {
	if len(lists) == 0 {
		return 50
	}
	fits := make([]float64, len(lists))
	for i, items := range lists {
		fits[i] = bandFit(float64(len(items)), band, 0.5, 0.4, 0.4)
	}
	return utils.Mean(fits...) * 100
}

// readabilityScore peaks for Flesch reading ease 60-80 and grade level 8-12
func readabilityScore(text string) float64 {
	if utf8.RuneCountInString(text) < 100 {
		return 0
	}
	st := utils.Stats(text)
	ease := st.FleschReadingEase()
	grade := st.FleschKincaidGrade()

	var score float64
	switch {
	case ease >= 60 && ease <= 80:
		score = 100
	case ease > 80:
		score = math.Max(70, 100-(ease-80)*2)
	default:
		score = math.Max(20, ease)
	}

	var bonus float64
	switch {
	case grade >= 8 && grade <= 12:
		bonus = 10
	case grade < 8:
		bonus = math.Max(-20, (grade-8)*2)
	default:
		bonus = math.Max(-30, (12-grade)*2)
	}
	return utils.Clamp(score+bonus, 0, 100)
}
