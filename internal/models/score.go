package models

import "time"

// Scoring dimensions
const (
	DimensionContentStructure   = "content_structure"
	DimensionCitationWorthiness = "citation_worthiness"
	DimensionAuthoritySignals   = "authority_signals"
	DimensionAIConsumption      = "ai_consumption"
)

// SubScore is one named component of a dimension
type SubScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// DimensionScore holds the five sub-scores of one dimension and their mean
type DimensionScore struct {
	Dimension  string         `json:"dimension"`
	SubScores  []SubScore     `json:"sub_scores"`
	TotalScore float64        `json:"total_score"`
	Details    map[string]any `json:"details"`
}

// Sub returns the named sub-score, or 0 if the dimension has no such component
func (d DimensionScore) Sub(name string) float64 {
	for _, s := range d.SubScores {
		if s.Name == name {
			return s.Score
		}
	}
	return 0
}

// PageScore is the complete scoring of a single page
type PageScore struct {
	URL                string         `json:"url"`
	PageType           ContentType    `json:"page_type"`
	ContentStructure   DimensionScore `json:"content_structure"`
	CitationWorthiness DimensionScore `json:"citation_worthiness"`
	AuthoritySignals   DimensionScore `json:"authority_signals"`
	AIConsumption      DimensionScore `json:"ai_consumption"`
	OverallScore       float64        `json:"overall_score"`
	Recommendations    []string       `json:"recommendations"`
	ScoredAt           time.Time      `json:"scoring_timestamp"`
}

// ContentTypeStats is the per-classification breakdown of scored pages
type ContentTypeStats struct {
	AvgScore float64 `json:"avg_score"`
	Count    int     `json:"count"`
}

// AggregateScores summarizes all scored pages of a site
type AggregateScores struct {
	OverallScore          float64                          `json:"overall_score"`
	ContentStructureAvg   float64                          `json:"content_structure_avg"`
	CitationWorthinessAvg float64                          `json:"citation_worthiness_avg"`
	AuthoritySignalsAvg   float64                          `json:"authority_signals_avg"`
	AIConsumptionAvg      float64                          `json:"ai_consumption_avg"`
	PagesAnalyzed         int                              `json:"pages_analyzed"`
	TopScoringPages       int                              `json:"top_scoring_pages"`
	NeedsImprovementPages int                              `json:"needs_improvement_pages"`
	ContentTypes          map[ContentType]ContentTypeStats `json:"content_types"`
}

// SiteScore is the scored, aggregated result derived from a SiteAnalysis
type SiteScore struct {
	Domain                  string          `json:"domain"`
	PageScores              []PageScore     `json:"page_scores"`
	AggregateScores         AggregateScores `json:"aggregate_scores"`
	ContentGaps             []string        `json:"content_gaps"`
	PriorityRecommendations []string        `json:"priority_recommendations"`
	SiteLevelIssues         []string        `json:"site_level_issues"`
	ScoredAt                time.Time       `json:"scoring_timestamp"`
}
