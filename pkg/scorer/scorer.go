// Package scorer turns extracted pages into GEO quality scores.
package scorer

import (
	"time"

	"go.uber.org/zap"

	"github.com/amosWeiskopf/geoscan/internal/config"
	"github.com/amosWeiskopf/geoscan/internal/logging"
	"github.com/amosWeiskopf/geoscan/internal/models"
	"github.com/amosWeiskopf/geoscan/pkg/utils"
)

// Sub-score names, grouped by dimension
const (
	SubParagraphLength  = "paragraph_length_score"
	SubSentenceLength   = "sentence_length_score"
	SubHeadingHierarchy = "heading_hierarchy_score"
	SubListOptimization = "list_optimization_score"
	SubReadability      = "readability_score"

	SubFactDensity       = "fact_density_score"
	SubSourceCitation    = "source_citation_score"
	SubExpertAuthority   = "expert_authority_score"
	SubDataVisualization = "data_visualization_score"
	SubSpecificity       = "specificity_score"

	SubAuthorCredentials     = "author_credentials_score"
	SubPublicationFreshness  = "publication_freshness_score"
	SubUpdateFrequency       = "update_frequency_score"
	SubExternalAuthorityLink = "external_authority_links_score"
	SubExpertiseIndicators   = "expertise_indicators_score"

	SubAnswerFormat         = "answer_format_score"
	SubQuestionAddressing   = "question_addressing_score"
	SubStructuredData       = "structured_data_score"
	SubSnippetOptimization  = "snippet_optimization_score"
	SubVoiceSearchReadiness = "voice_search_readiness_score"
)

// recommendationThreshold is the sub-score below which a page gets a fix hint
const recommendationThreshold = 60

const maxPageRecommendations = 5

// Scorer scores pages and sites against a sector scoring configuration.
// The configuration must have passed Validate; it is never modified.
type Scorer struct {
	cfg    *config.ScoringConfig
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Scorer for cfg
func New(cfg *config.ScoringConfig, logger *zap.Logger) *Scorer {
	return &Scorer{
		cfg:    cfg,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// Scorable reports whether a page carries enough content to be scored
func (s *Scorer) Scorable(page models.PageRecord) bool {
	return page.Success && page.WordCount > s.minWordCount()
}

func (s *Scorer) minWordCount() int {
	if n := s.cfg.QualityBenchmarks.MinWordCount; n > 0 {
		return n
	}
	return 50
}

// ScorePage scores one page across the four dimensions
func (s *Scorer) ScorePage(page models.PageRecord) models.PageScore {
	structure := s.scoreContentStructure(page)
	citation := s.scoreCitationWorthiness(page)
	authority := s.scoreAuthoritySignals(page)
	ai := s.scoreAIConsumption(page)

	score := models.PageScore{
		URL:                page.URL,
		PageType:           page.ContentType,
		ContentStructure:   structure,
		CitationWorthiness: citation,
		AuthoritySignals:   authority,
		AIConsumption:      ai,
		OverallScore:       s.overall(structure, citation, authority, ai),
		Recommendations:    pageRecommendations(structure, citation, authority, ai),
		ScoredAt:           s.now(),
	}

	s.logger.Debug("Scored page",
		zap.String("url", page.URL),
		zap.String("page_type", string(page.ContentType)),
		zap.Float64("overall", score.OverallScore),
	)
	return score
}

// overall is the weighted sum of the four dimension totals
func (s *Scorer) overall(structure, citation, authority, ai models.DimensionScore) float64 {
	w := s.cfg.ScoringWeights
	return structure.TotalScore*w.ContentStructure +
		citation.TotalScore*w.CitationWorthiness +
		authority.TotalScore*w.AuthoritySignals +
		ai.TotalScore*w.AIConsumptionOptimization
}

// dimension assembles a DimensionScore whose total is the mean of its sub-scores
func dimension(name string, subs []models.SubScore, details map[string]any) models.DimensionScore {
	values := make([]float64, len(subs))
	for i := range subs {
		subs[i].Score = utils.Clamp(subs[i].Score, 0, 100)
		values[i] = subs[i].Score
	}
	return models.DimensionScore{
		Dimension:  name,
		SubScores:  subs,
		TotalScore: utils.Mean(values...),
		Details:    details,
	}
}

type recommendationRule struct {
	dim     *models.DimensionScore
	sub     string
	message string
}

// pageRecommendations lists fix hints in structure, citation, authority, AI order
func pageRecommendations(structure, citation, authority, ai models.DimensionScore) []string {
	rules := []recommendationRule{
		{&structure, SubParagraphLength, "Optimize paragraph length (aim for 50-150 words per paragraph)"},
		{&structure, SubSentenceLength, "Shorten sentences for better readability (aim for 15-25 words)"},
		{&structure, SubHeadingHierarchy, "Improve heading structure with proper H1-H4 hierarchy"},
		{&structure, SubReadability, "Improve readability - content may be too complex"},
		{&citation, SubFactDensity, "Add more specific facts, statistics, and numerical data"},
		{&citation, SubSourceCitation, "Include more external authority links and source citations"},
		{&authority, SubAuthorCredentials, "Add author credentials and expertise information"},
		{&authority, SubExternalAuthorityLink, "Link to more authoritative external sources"},
		{&ai, SubStructuredData, "Implement structured data markup (JSON-LD, Schema.org)"},
		{&ai, SubAnswerFormat, "Format content to directly answer common questions"},
	}

	recs := []string{}
	for _, r := range rules {
		if r.dim.Sub(r.sub) < recommendationThreshold {
			recs = append(recs, r.message)
		}
		if len(recs) == maxPageRecommendations {
			break
		}
	}
	return recs
}
