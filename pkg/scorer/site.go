package scorer

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/amosWeiskopf/geoscan/internal/models"
	"github.com/amosWeiskopf/geoscan/pkg/utils"
)

const (
	maxPriorityRecommendations = 8
	maxKeywordGaps             = 3
	keywordsChecked            = 5
	minSuccessRatio            = 0.8
)

// ScoreSite scores every scorable page of a crawl and aggregates the results
func (s *Scorer) ScoreSite(analysis *models.SiteAnalysis) models.SiteScore {
	var (
		scored []models.PageRecord
		pages  []models.PageScore
	)
	for _, page := range analysis.Pages {
		if !s.Scorable(page) {
			continue
		}
		scored = append(scored, page)
		pages = append(pages, s.ScorePage(page))
	}

	gaps := s.contentGaps(analysis, pages)
	result := models.SiteScore{
		Domain:                  analysis.Domain,
		PageScores:              pages,
		AggregateScores:         s.aggregate(pages),
		ContentGaps:             gaps,
		PriorityRecommendations: priorityRecommendations(pages, gaps),
		SiteLevelIssues:         siteLevelIssues(analysis, scored),
		ScoredAt:                s.now(),
	}
	if result.PageScores == nil {
		result.PageScores = []models.PageScore{}
	}

	s.logger.Info("Scored site",
		zap.String("domain", analysis.Domain),
		zap.Int("pages_scored", len(pages)),
		zap.Int("pages_skipped", len(analysis.Pages)-len(pages)),
		zap.Float64("overall", result.AggregateScores.OverallScore),
	)
	return result
}

func (s *Scorer) aggregate(pages []models.PageScore) models.AggregateScores {
	agg := models.AggregateScores{
		PagesAnalyzed: len(pages),
		ContentTypes:  map[models.ContentType]models.ContentTypeStats{},
	}
	if len(pages) == 0 {
		return agg
	}

	top := s.cfg.QualityBenchmarks.TopScoringThreshold
	if top == 0 {
		top = 75
	}
	low := s.cfg.QualityBenchmarks.NeedsImprovementThreshold
	if low == 0 {
		low = 50
	}

	var overall, structure, citation, authority, ai []float64
	byType := map[models.ContentType][]float64{}
	for _, p := range pages {
		overall = append(overall, p.OverallScore)
		structure = append(structure, p.ContentStructure.TotalScore)
		citation = append(citation, p.CitationWorthiness.TotalScore)
		authority = append(authority, p.AuthoritySignals.TotalScore)
		ai = append(ai, p.AIConsumption.TotalScore)
		byType[p.PageType] = append(byType[p.PageType], p.OverallScore)

		if p.OverallScore >= top {
			agg.TopScoringPages++
		}
		if p.OverallScore < low {
			agg.NeedsImprovementPages++
		}
	}

	agg.OverallScore = utils.Mean(overall...)
	agg.ContentStructureAvg = utils.Mean(structure...)
	agg.CitationWorthinessAvg = utils.Mean(citation...)
	agg.AuthoritySignalsAvg = utils.Mean(authority...)
	agg.AIConsumptionAvg = utils.Mean(ai...)
	for ct, scores := range byType {
		agg.ContentTypes[ct] = models.ContentTypeStats{AvgScore: utils.Mean(scores...), Count: len(scores)}
	}
	return agg
}

// contentGaps reports configured content types the site lacks and primary
// keywords that no fetched URL mentions
func (s *Scorer) contentGaps(analysis *models.SiteAnalysis, pages []models.PageScore) []string {
	counts := map[string]int{}
	for _, p := range pages {
		counts[string(p.PageType)]++
	}

	gaps := []string{}
	for _, name := range s.cfg.ContentTypeNames() {
		ct := s.cfg.ContentTypes[name]
		label := strings.ReplaceAll(name, "_", " ")
		switch n := counts[ct.PageType]; {
		case n == 0:
			gaps = append(gaps, fmt.Sprintf("Missing %s content", label))
		case n == 1 && ct.ExpectMultiple:
			gaps = append(gaps, fmt.Sprintf("Limited %s content - consider expanding", label))
		}
	}

	var urls []string
	for _, page := range analysis.Pages {
		if page.Success {
			urls = append(urls, page.URL)
		}
	}
	urlText := strings.ToLower(strings.Join(urls, " "))

	primary := s.cfg.Keywords.Primary
	if len(primary) > keywordsChecked {
		primary = primary[:keywordsChecked]
	}
	missing := 0
	for _, kw := range primary {
		if missing == maxKeywordGaps {
			break
		}
		if !strings.Contains(urlText, strings.ToLower(kw)) {
			gaps = append(gaps, fmt.Sprintf("No content found for '%s'", kw))
			missing++
		}
	}
	return gaps
}

type dimensionAverage struct {
	name  string
	score float64
}

func priorityRecommendations(pages []models.PageScore, gaps []string) []string {
	if len(pages) == 0 {
		return []string{"No pages successfully analyzed - check website accessibility"}
	}

	recs := []string{}
	var overall []float64
	areas := []dimensionAverage{
		{name: "Content Structure"},
		{name: "Citation Worthiness"},
		{name: "Authority Signals"},
		{name: "AI Consumption"},
	}
	for _, p := range pages {
		overall = append(overall, p.OverallScore)
		areas[0].score += p.ContentStructure.TotalScore
		areas[1].score += p.CitationWorthiness.TotalScore
		areas[2].score += p.AuthoritySignals.TotalScore
		areas[3].score += p.AIConsumption.TotalScore
	}
	for i := range areas {
		areas[i].score /= float64(len(pages))
	}

	switch avg := utils.Mean(overall...); {
	case avg < 40:
		recs = append(recs, "CRITICAL: Overall content quality is poor - comprehensive content audit recommended")
	case avg < 60:
		recs = append(recs, "IMPORTANT: Content quality needs significant improvement across multiple areas")
	}

	sort.SliceStable(areas, func(i, j int) bool { return areas[i].score < areas[j].score })
	for _, a := range areas[:2] {
		if a.score < 50 {
			recs = append(recs, fmt.Sprintf("Priority: Improve %s (current score: %.1f/100)", a.name, a.score))
		}
	}

	for i, gap := range gaps {
		if i == 3 {
			break
		}
		recs = append(recs, "Content Gap: "+gap)
	}

	low := 0
	for _, p := range pages {
		if p.OverallScore < 40 {
			low++
		}
	}
	if low > 0 {
		recs = append(recs, fmt.Sprintf("Immediate attention: %d pages scoring below 40/100", low))
	}

	if len(recs) > maxPriorityRecommendations {
		recs = recs[:maxPriorityRecommendations]
	}
	return recs
}

// siteLevelIssues checks crawl health and site-wide markup habits
func siteLevelIssues(analysis *models.SiteAnalysis, scored []models.PageRecord) []string {
	issues := []string{}

	if analysis.TotalPages > 0 && float64(analysis.SuccessfulScrapes)/float64(analysis.TotalPages) < minSuccessRatio {
		issues = append(issues, fmt.Sprintf("High scraping failure rate: %d/%d pages failed",
			analysis.FailedScrapes, analysis.TotalPages))
	}
	if len(scored) == 0 {
		return issues
	}

	var badH1, withData, authorityLinks int
	for _, page := range scored {
		if len(page.Headings.Level(1)) != 1 {
			badH1++
		}
		if len(page.StructuredData) > 0 {
			withData++
		}
		authorityLinks += countAuthorityLinks(page.Links)
	}

	n := float64(len(scored))
	if float64(badH1) > n*0.5 {
		issues = append(issues, "Inconsistent H1 tag usage across pages")
	}
	if float64(withData)/n < 0.3 {
		issues = append(issues, "Low structured data implementation across site")
	}
	if float64(authorityLinks) < n*0.5 {
		issues = append(issues, "Insufficient external authority links across content")
	}
	return issues
}
