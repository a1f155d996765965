package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/amosWeiskopf/geoscan/internal/models"
)

// Supported output formats
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Report bundles a crawl and, when scoring ran, its score
type Report struct {
	Analysis *models.SiteAnalysis `json:"site_analysis,omitempty"`
	Score    *models.SiteScore    `json:"site_score,omitempty"`
}

// Reporter renders reports in various formats
type Reporter struct {
	indent string
}

// New creates a new Reporter instance
func New() *Reporter {
	return &Reporter{indent: "  "}
}

// Write renders report to w in the given format
func (r *Reporter) Write(w io.Writer, report Report, format string) error {
	var (
		out []byte
		err error
	)
	switch format {
	case "", FormatJSON:
		out, err = r.generateJSON(report)
	case FormatMarkdown, "md":
		out, err = r.generateMarkdown(report)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// generateJSON creates a JSON formatted report
func (r *Reporter) generateJSON(report Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", r.indent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// generateMarkdown creates a Markdown summary of the crawl and its scores
func (r *Reporter) generateMarkdown(report Report) ([]byte, error) {
	var buf bytes.Buffer

	domain := ""
	switch {
	case report.Score != nil:
		domain = report.Score.Domain
	case report.Analysis != nil:
		domain = report.Analysis.Domain
	}
	fmt.Fprintf(&buf, "# GEO Report for %s\n\n", domain)

	if a := report.Analysis; a != nil {
		fmt.Fprintf(&buf, "*Crawled on %s in %s*\n\n", a.AnalyzedAt.Format("January 2, 2006"), a.CrawlDuration.Round(time.Millisecond))
		writeCrawlSummary(&buf, a)
	}
	if s := report.Score; s != nil {
		writeScores(&buf, s)
	}
	return buf.Bytes(), nil
}

func writeCrawlSummary(buf *bytes.Buffer, a *models.SiteAnalysis) {
	fmt.Fprintf(buf, "## Crawl\n\n")
	fmt.Fprintf(buf, "| Metric | Value |\n")
	fmt.Fprintf(buf, "|--------|-------|\n")
	fmt.Fprintf(buf, "| Pages attempted | %d |\n", a.TotalPages)
	fmt.Fprintf(buf, "| Successful | %d |\n", a.SuccessfulScrapes)
	fmt.Fprintf(buf, "| Failed | %d |\n", a.FailedScrapes)
	fmt.Fprintf(buf, "| Sitemaps | %d |\n\n", len(a.SitemapURLs))

	if len(a.FailuresByReason) > 0 {
		reasons := make([]string, 0, len(a.FailuresByReason))
		for reason := range a.FailuresByReason {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)

		fmt.Fprintf(buf, "### Failures\n\n")
		for _, reason := range reasons {
			fmt.Fprintf(buf, "- %s: %d\n", reason, a.FailuresByReason[models.FailureReason(reason)])
		}
		fmt.Fprintf(buf, "\n")
	}

	if len(a.SkippedURLs) > 0 {
		reasons := make([]string, 0, len(a.SkippedURLs))
		for reason := range a.SkippedURLs {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)

		fmt.Fprintf(buf, "### Skipped URLs\n\n")
		for _, reason := range reasons {
			fmt.Fprintf(buf, "- %s: %d\n", reason, len(a.SkippedURLs[reason]))
		}
		fmt.Fprintf(buf, "\n")
	}
}

func writeScores(buf *bytes.Buffer, s *models.SiteScore) {
	agg := s.AggregateScores

	fmt.Fprintf(buf, "## Scores\n\n")
	fmt.Fprintf(buf, "| Dimension | Score |\n")
	fmt.Fprintf(buf, "|-----------|-------|\n")
	fmt.Fprintf(buf, "| Content Structure | %.1f |\n", agg.ContentStructureAvg)
	fmt.Fprintf(buf, "| Citation Worthiness | %.1f |\n", agg.CitationWorthinessAvg)
	fmt.Fprintf(buf, "| Authority Signals | %.1f |\n", agg.AuthoritySignalsAvg)
	fmt.Fprintf(buf, "| AI Consumption | %.1f |\n", agg.AIConsumptionAvg)
	fmt.Fprintf(buf, "| **Overall** | **%.1f** |\n\n", agg.OverallScore)
	fmt.Fprintf(buf, "%d pages analyzed, %d top scoring, %d need improvement.\n\n",
		agg.PagesAnalyzed, agg.TopScoringPages, agg.NeedsImprovementPages)

	writeList(buf, "Priority Recommendations", s.PriorityRecommendations)
	writeList(buf, "Site-Level Issues", s.SiteLevelIssues)
	writeList(buf, "Content Gaps", s.ContentGaps)

	if len(s.PageScores) > 0 {
		pages := append([]models.PageScore(nil), s.PageScores...)
		sort.SliceStable(pages, func(i, j int) bool { return pages[i].OverallScore > pages[j].OverallScore })

		fmt.Fprintf(buf, "## Pages\n\n")
		fmt.Fprintf(buf, "| URL | Type | Overall | Top recommendation |\n")
		fmt.Fprintf(buf, "|-----|------|---------|--------------------|\n")
		for _, p := range pages {
			rec := "-"
			if len(p.Recommendations) > 0 {
				rec = p.Recommendations[0]
			}
			fmt.Fprintf(buf, "| %s | %s | %.1f | %s |\n", p.URL, p.PageType, p.OverallScore, escapeCell(rec))
		}
		fmt.Fprintf(buf, "\n")
	}
}

func writeList(buf *bytes.Buffer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(buf, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(buf, "- %s\n", item)
	}
	fmt.Fprintf(buf, "\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
