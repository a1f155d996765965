package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// weightTolerance is how far a weight set may drift from 1.0
const weightTolerance = 0.01

var requiredScoringKeys = []string{
	"brand",
	"competitors",
	"content_types",
	"scoring_weights",
	"geo_best_practices",
	"quality_benchmarks",
	"keywords",
}

// ScoringConfig is the sector configuration the scorer runs against.
// It is loaded once and treated as read-only afterwards.
type ScoringConfig struct {
	Sector            string                       `mapstructure:"sector"`
	Brand             BrandConfig                  `mapstructure:"brand"`
	Competitors       CompetitorsConfig            `mapstructure:"competitors"`
	ContentTypes      map[string]ContentTypeConfig `mapstructure:"content_types"`
	ScoringWeights    ScoringWeights               `mapstructure:"scoring_weights"`
	GeoBestPractices  GeoBestPractices             `mapstructure:"geo_best_practices"`
	QualityBenchmarks QualityBenchmarks            `mapstructure:"quality_benchmarks"`
	Keywords          Keywords                     `mapstructure:"keywords"`
}

// BrandConfig identifies the analysed brand
type BrandConfig struct {
	Name       string   `mapstructure:"name"`
	Website    string   `mapstructure:"website"`
	Variations []string `mapstructure:"variations"`
}

// Competitor is one tracked competitor site
type Competitor struct {
	Name     string `mapstructure:"name"`
	Website  string `mapstructure:"website"`
	Priority string `mapstructure:"priority"`
}

// CompetitorsConfig groups competitors by importance
type CompetitorsConfig struct {
	Primary   []Competitor `mapstructure:"primary"`
	Secondary []Competitor `mapstructure:"secondary"`
}

// All returns primary competitors followed by secondary ones
func (c CompetitorsConfig) All() []Competitor {
	return append(append([]Competitor{}, c.Primary...), c.Secondary...)
}

// ContentTypeConfig describes one content type the site is expected to carry
type ContentTypeConfig struct {
	Weight           float64  `mapstructure:"weight"`
	RequiredElements []string `mapstructure:"required_elements"`
	PageType         string   `mapstructure:"page_type"`
	ExpectMultiple   bool     `mapstructure:"expect_multiple"`
}

// ScoringWeights are the weights of the four scoring dimensions
type ScoringWeights struct {
	ContentStructure          float64 `mapstructure:"content_structure"`
	CitationWorthiness        float64 `mapstructure:"citation_worthiness"`
	AuthoritySignals          float64 `mapstructure:"authority_signals"`
	AIConsumptionOptimization float64 `mapstructure:"ai_consumption_optimization"`
}

// Sum returns the total of the four weights
func (w ScoringWeights) Sum() float64 {
	return w.ContentStructure + w.CitationWorthiness + w.AuthoritySignals + w.AIConsumptionOptimization
}

// Range is an inclusive [min, max] band
type Range struct {
	Min float64
	Max float64
}

// StructurePractices are the content structure targets
type StructurePractices struct {
	OptimalParagraphLength []float64 `mapstructure:"optimal_paragraph_length"`
	OptimalSentenceLength  []float64 `mapstructure:"optimal_sentence_length"`
	HeadingHierarchyDepth  []float64 `mapstructure:"heading_hierarchy_depth"`
	ListItemOptimal        []float64 `mapstructure:"list_item_optimal"`
}

// CitationPractices are the citation worthiness targets
type CitationPractices struct {
	FactDensityScore       float64 `mapstructure:"fact_density_score"`
	SourceCitationRate     float64 `mapstructure:"source_citation_rate"`
	ExpertQuoteFrequency   float64 `mapstructure:"expert_quote_frequency"`
	DataVisualizationRatio float64 `mapstructure:"data_visualization_ratio"`
}

// GeoBestPractices are the GEO best-practice targets
type GeoBestPractices struct {
	ContentStructure   StructurePractices `mapstructure:"content_structure"`
	CitationWorthiness CitationPractices  `mapstructure:"citation_worthiness"`
}

// ParagraphBand returns the optimal paragraph length in words
func (g GeoBestPractices) ParagraphBand() Range {
	return toRange(g.ContentStructure.OptimalParagraphLength)
}

// SentenceBand returns the optimal sentence length in words
func (g GeoBestPractices) SentenceBand() Range {
	return toRange(g.ContentStructure.OptimalSentenceLength)
}

// HeadingBand returns the optimal number of heading levels in use
func (g GeoBestPractices) HeadingBand() Range {
	return toRange(g.ContentStructure.HeadingHierarchyDepth)
}

// ListBand returns the optimal number of items per list
func (g GeoBestPractices) ListBand() Range {
	return toRange(g.ContentStructure.ListItemOptimal)
}

func toRange(v []float64) Range {
	if len(v) < 2 {
		return Range{}
	}
	return Range{Min: v[0], Max: v[1]}
}

// QualityBenchmarks are the thresholds used when aggregating a site
type QualityBenchmarks struct {
	MinWordCount              int     `mapstructure:"min_word_count"`
	TopScoringThreshold       float64 `mapstructure:"top_scoring_threshold"`
	NeedsImprovementThreshold float64 `mapstructure:"needs_improvement_threshold"`
}

// Keywords are the sector keyword lists
type Keywords struct {
	Primary   []string `mapstructure:"primary"`
	Secondary []string `mapstructure:"secondary"`
	LongTail  []string `mapstructure:"long_tail"`
}

// LoadScoring loads and validates a sector scoring configuration
func LoadScoring(path string) (*ScoringConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: scoring config path is empty", ErrInvalidConfig)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading scoring config %s: %w", path, err)
	}

	for _, key := range requiredScoringKeys {
		if !v.IsSet(key) {
			return nil, fmt.Errorf("%w: missing required field %q", ErrInvalidConfig, key)
		}
	}

	setScoringDefaults(v)

	var sc ScoringConfig
	if err := v.Unmarshal(&sc); err != nil {
		return nil, fmt.Errorf("unable to decode scoring config: %w", err)
	}
	sc.normalize()

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// setScoringDefaults fills best-practice targets the sector file leaves out
func setScoringDefaults(v *viper.Viper) {
	v.SetDefault("geo_best_practices.content_structure.optimal_paragraph_length", []float64{50, 150})
	v.SetDefault("geo_best_practices.content_structure.optimal_sentence_length", []float64{15, 25})
	v.SetDefault("geo_best_practices.content_structure.heading_hierarchy_depth", []float64{2, 4})
	v.SetDefault("geo_best_practices.content_structure.list_item_optimal", []float64{3, 7})

	v.SetDefault("geo_best_practices.citation_worthiness.fact_density_score", 0.3)
	v.SetDefault("geo_best_practices.citation_worthiness.source_citation_rate", 0.2)
	v.SetDefault("geo_best_practices.citation_worthiness.expert_quote_frequency", 0.1)
	v.SetDefault("geo_best_practices.citation_worthiness.data_visualization_ratio", 0.15)

	v.SetDefault("quality_benchmarks.min_word_count", 50)
	v.SetDefault("quality_benchmarks.top_scoring_threshold", 75)
	v.SetDefault("quality_benchmarks.needs_improvement_threshold", 50)
}

// normalize derives the classification each content type maps to
func (sc *ScoringConfig) normalize() {
	for name, ct := range sc.ContentTypes {
		if ct.PageType == "" {
			ct.PageType = strings.TrimSuffix(name, "s")
			sc.ContentTypes[name] = ct
		}
	}
}

// ContentTypeNames returns the configured content type names in sorted order
func (sc *ScoringConfig) ContentTypeNames() []string {
	names := make([]string, 0, len(sc.ContentTypes))
	for name := range sc.ContentTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the scoring configuration; it fails closed
func (sc *ScoringConfig) Validate() error {
	var issues []string

	if sc.Brand.Name == "" {
		issues = append(issues, "brand name is required")
	}
	if sc.Brand.Website == "" {
		issues = append(issues, "brand website is required")
	}

	if total := sc.ScoringWeights.Sum(); math.Abs(total-1.0) > weightTolerance {
		issues = append(issues, fmt.Sprintf("scoring weights don't sum to 1.0 (current: %.3f)", total))
	}

	if len(sc.ContentTypes) > 0 {
		total := 0.0
		for _, ct := range sc.ContentTypes {
			total += ct.Weight
		}
		if math.Abs(total-1.0) > weightTolerance {
			issues = append(issues, fmt.Sprintf("content type weights don't sum to 1.0 (current: %.3f)", total))
		}
	}

	bands := map[string]Range{
		"optimal_paragraph_length": sc.GeoBestPractices.ParagraphBand(),
		"optimal_sentence_length":  sc.GeoBestPractices.SentenceBand(),
		"heading_hierarchy_depth":  sc.GeoBestPractices.HeadingBand(),
		"list_item_optimal":        sc.GeoBestPractices.ListBand(),
	}
	names := make([]string, 0, len(bands))
	for name := range bands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := bands[name]
		if r.Min <= 0 || r.Max < r.Min {
			issues = append(issues, fmt.Sprintf("%s must be a [min, max] pair with 0 < min <= max", name))
		}
	}

	cw := sc.GeoBestPractices.CitationWorthiness
	if cw.FactDensityScore <= 0 || cw.SourceCitationRate <= 0 || cw.ExpertQuoteFrequency <= 0 || cw.DataVisualizationRatio <= 0 {
		issues = append(issues, "citation worthiness targets must be positive")
	}

	if len(issues) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(issues, "; "))
	}
	return nil
}
