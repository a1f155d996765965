package scorer

import (
	"math"
	"regexp"
	"strings"

	"github.com/amosWeiskopf/geoscan/internal/config"
	"github.com/amosWeiskopf/geoscan/internal/models"
	"github.com/amosWeiskopf/geoscan/pkg/utils"
)

var (
	numericFact      = regexp.MustCompile(`\b\d+(?:\.\d+)?(?:%|(?:percent|mg|ml|spf|minutes?|hours?|years?|studies?|research)\b)`)
	numericFactShort = regexp.MustCompile(`\b\d+(?:\.\d+)?(?:%|(?:percent|mg|ml|spf|minutes?|hours?)\b)`)
	factClaim        = regexp.MustCompile(`\b(?:proven|clinically|scientifically|research shows|studies show|dermatologist|fda approved)\b`)
	citationMarker   = regexp.MustCompile(`\[(.*?)\]|\(.*?20\d{2}.*?\)|according to|source:`)
	expertMention    = regexp.MustCompile(`\b(?:dr\.|doctor|dermatologist|researcher|expert|professor|scientist|md|phd)\b`)
	quotedText       = regexp.MustCompile(`"[^"]*"`)
	visualReference  = regexp.MustCompile(`\b(?:chart|graph|figure|table|image|photo|shows|demonstrates)\b`)

	authorityIndicators = []*regexp.Regexp{
		regexp.MustCompile(`\bclinically proven\b`),
		regexp.MustCompile(`\bfda approved\b`),
		regexp.MustCompile(`\bdermatologist tested\b`),
		regexp.MustCompile(`\bresearch shows\b`),
		regexp.MustCompile(`\bstudies show\b`),
		regexp.MustCompile(`\bpeer.reviewed\b`),
		regexp.MustCompile(`\buniversity\b`),
		regexp.MustCompile(`\bhospital\b`),
		regexp.MustCompile(`\binstitute\b`),
	}
)

// citedDomains are the sources that count as citations in body links
var citedDomains = []string{
	"ncbi.nlm.nih.gov",
	"pubmed.ncbi.nlm.nih.gov",
	"fda.gov",
	"aad.org",
	"cancer.org",
	"who.int",
}

var (
	dataImageWords     = []string{"chart", "graph", "data", "study", "result", "comparison", "before", "after"}
	dataImageWordsBare = []string{"chart", "graph", "data", "study"}
)

func (s *Scorer) scoreCitationWorthiness(page models.PageRecord) models.DimensionScore {
	cw := s.cfg.GeoBestPractices.CitationWorthiness
	text := page.CleanText
	lower := strings.ToLower(text)
	words := utils.CountWords(text)

	subs := []models.SubScore{
		{Name: SubFactDensity, Score: factDensityScore(lower, words, cw.FactDensityScore)},
		{Name: SubSourceCitation, Score: sourceCitationScore(text, words, page.Links, cw.SourceCitationRate)},
		{Name: SubExpertAuthority, Score: expertAuthorityScore(text, lower, words, cw.ExpertQuoteFrequency)},
		{Name: SubDataVisualization, Score: dataVisualizationScore(page.Images, lower, words, cw.DataVisualizationRatio)},
		{Name: SubSpecificity, Score: specificityScore(lower, words, s.cfg.Keywords)},
	}

	external := 0
	for _, l := range page.Links {
		if l.Type == models.LinkExternal {
			external++
		}
	}
	dataImages := 0
	for _, img := range page.Images {
		if utils.ContainsAny(strings.ToLower(img.Alt), dataImageWordsBare...) {
			dataImages++
		}
	}

	details := map[string]any{
		"numerical_facts_count": utils.CountMatches(lower, numericFactShort),
		"external_links_count":  external,
		"authority_indicators":  utils.CountMatches(lower, authorityIndicators...),
		"images_with_data":      dataImages,
		"specificity_keywords":  len(matchedKeywords(lower, s.cfg.Keywords)),
	}
	return dimension(models.DimensionCitationWorthiness, subs, details)
}

// densityScore is full marks at or above target, proportional below it
func densityScore(actual, target float64) float64 {
	if target <= 0 || actual >= target {
		return 100
	}
	return actual / target * 100
}

func factDensityScore(lower string, words int, target float64) float64 {
	if words == 0 {
		return 0
	}
	if target <= 0 {
		return 100
	}
	density := utils.Per100Words(float64(utils.CountMatches(lower, numericFact, factClaim)), words)
	if density >= target {
		return math.Min(100, density/target*80+20)
	}
	return density / target * 100
}

func sourceCitationScore(text string, words int, links []models.Link, target float64) float64 {
	if words == 0 {
		return 0
	}
	cited := 0
	for _, l := range links {
		if utils.ContainsAny(l.Href, citedDomains...) {
			cited++
		}
	}
	rate := utils.Per100Words(float64(cited+utils.CountMatches(text, citationMarker)), words)
	return densityScore(rate, target)
}

func expertAuthorityScore(text, lower string, words int, target float64) float64 {
	if words == 0 {
		return 0
	}
	n := float64(utils.CountMatches(lower, expertMention)) + float64(utils.CountMatches(text, quotedText))*0.5
	return densityScore(utils.Per100Words(n, words), target)
}

func dataVisualizationScore(images []models.Image, lower string, words int, target float64) float64 {
	if words == 0 {
		return 0
	}
	dataImages := 0
	for _, img := range images {
		if utils.ContainsAny(strings.ToLower(img.Alt)+strings.ToLower(img.Title), dataImageWords...) {
			dataImages++
		}
	}
	n := float64(dataImages) + float64(utils.CountMatches(lower, visualReference))*0.3
	return densityScore(utils.Per100Words(n, words), target)
}

// specificityScore weights primary, secondary and long-tail keyword hits 3, 2 and 4
func specificityScore(lower string, words int, kw config.Keywords) float64 {
	if words == 0 {
		return 0
	}
	weighted := 3*countPresent(lower, kw.Primary) +
		2*countPresent(lower, kw.Secondary) +
		4*countPresent(lower, kw.LongTail)
	return math.Min(100, utils.Per100Words(float64(weighted), words)*10)
}

func countPresent(lower string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			n++
		}
	}
	return n
}

func matchedKeywords(lower string, kw config.Keywords) []string {
	var found []string
	for _, list := range [][]string{kw.Primary, kw.Secondary, kw.LongTail} {
		for _, k := range list {
			if k != "" && strings.Contains(lower, strings.ToLower(k)) {
				found = append(found, k)
			}
		}
	}
	return found
}
