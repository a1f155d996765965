package models

import (
	"strings"
	"time"
)

// ContentType is the classification assigned to a fetched page
type ContentType string

const (
	ContentProductPage      ContentType = "product_page"
	ContentFAQPage          ContentType = "faq_page"
	ContentBlogPost         ContentType = "blog_post"
	ContentAboutPage        ContentType = "about_page"
	ContentContactPage      ContentType = "contact_page"
	ContentGuidePage        ContentType = "guide_page"
	ContentIngredientGuide  ContentType = "ingredient_guide"
	ContentApplicationGuide ContentType = "application_guide"
	ContentGeneralPage      ContentType = "general_page"
	ContentUnknown          ContentType = "unknown"
)

// FailureReason categorizes why a page could not be fetched
type FailureReason string

const (
	ReasonForbidden        FailureReason = "forbidden"
	ReasonNotFound         FailureReason = "not found"
	ReasonServerError      FailureReason = "server error"
	ReasonHTTPError        FailureReason = "http error"
	ReasonExternalRedirect FailureReason = "redirected to external domain"
	ReasonTooLarge         FailureReason = "too large"
	ReasonNonHTML          FailureReason = "non-html content"
	ReasonNetwork          FailureReason = "network error"
	ReasonDeadline         FailureReason = "crawl deadline exceeded"
	ReasonInternal         FailureReason = "internal error"
)

// LinkType tells whether a link stays on the page's host
type LinkType string

const (
	LinkInternal LinkType = "internal"
	LinkExternal LinkType = "external"
)

// Headings maps "h1".."h6" to the heading texts of that level, in document order
type Headings map[string][]string

// Level returns the headings of level n (1-6)
func (h Headings) Level(n int) []string {
	return h["h"+string(rune('0'+n))]
}

// All returns every heading text, level by level
func (h Headings) All() []string {
	var all []string
	for level := 1; level <= 6; level++ {
		all = append(all, h.Level(level)...)
	}
	return all
}

// LevelsWithContent counts the heading levels that have at least one heading
func (h Headings) LevelsWithContent() int {
	n := 0
	for level := 1; level <= 6; level++ {
		if len(h.Level(level)) > 0 {
			n++
		}
	}
	return n
}

// Image is an <img> found on a page
type Image struct {
	Src   string `json:"src"`
	Alt   string `json:"alt"`
	Title string `json:"title"`
}

// Link represents a hyperlink from one page to another
type Link struct {
	Href string   `json:"href"`
	Text string   `json:"text"`
	Type LinkType `json:"type"`
}

// StructuredData is one JSON-LD script or microdata scope
type StructuredData struct {
	Kind     string   `json:"kind"` // "json-ld" or "microdata"
	Raw      string   `json:"raw"`
	ItemType string   `json:"item_type,omitempty"`
	Types    []string `json:"types,omitempty"`
}

// Mentions reports whether the block references the given schema type
func (s StructuredData) Mentions(schemaType string) bool {
	if strings.Contains(s.Raw, schemaType) || strings.Contains(s.ItemType, schemaType) {
		return true
	}
	for _, t := range s.Types {
		if t == schemaType {
			return true
		}
	}
	return false
}

// PageRecord is the extracted content of one fetched URL
type PageRecord struct {
	URL             string           `json:"url"`
	Title           string           `json:"title"`
	MetaDescription string           `json:"meta_description"`
	Headings        Headings         `json:"headings"`
	Paragraphs      []string         `json:"paragraphs"`
	Lists           [][]string       `json:"lists"`
	Images          []Image          `json:"images"`
	Links           []Link           `json:"links"`
	StructuredData  []StructuredData `json:"structured_data"`
	WordCount       int              `json:"word_count"`
	ReadingTime     int              `json:"reading_time"`
	LastModified    *time.Time       `json:"last_modified,omitempty"`
	LastModifiedRaw string           `json:"last_modified_raw,omitempty"`
	ContentType     ContentType      `json:"content_type"`
	RawHTML         string           `json:"raw_html,omitempty"`
	CleanText       string           `json:"clean_text"`
	Markdown        string           `json:"markdown"`
	ScrapedAt       time.Time        `json:"scrape_timestamp"`
	Success         bool             `json:"scrape_success"`
	FailureReason   FailureReason    `json:"failure_reason,omitempty"`
	Error           string           `json:"error_message,omitempty"`
}

// FailedPage builds the record of a fetch that produced no content
func FailedPage(url string, reason FailureReason, msg string) PageRecord {
	if msg == "" {
		msg = string(reason)
	}
	return PageRecord{
		URL:           url,
		ContentType:   ContentUnknown,
		ScrapedAt:     time.Now(),
		FailureReason: reason,
		Error:         msg,
	}
}

// SiteStructure is what the discoverer learned about a site before fetching pages
type SiteStructure struct {
	Domain       string   `json:"domain"`
	RobotsTxt    string   `json:"robots_txt"`
	SitemapURLs  []string `json:"sitemap_urls"`
	SitemapPages []string `json:"sitemap_pages"`
	CrawledURLs  []string `json:"crawled_urls"`
}

// SiteAnalysis contains the results of one crawl run
type SiteAnalysis struct {
	RunID             string                `json:"run_id"`
	Domain            string                `json:"domain"`
	RootDomain        string                `json:"root_domain"`
	TotalPages        int                   `json:"total_pages"`
	SuccessfulScrapes int                   `json:"successful_scrapes"`
	FailedScrapes     int                   `json:"failed_scrapes"`
	Pages             []PageRecord          `json:"pages"`
	SiteStructure     SiteStructure         `json:"site_structure"`
	RobotsTxt         string                `json:"robots_txt"`
	SitemapURLs       []string              `json:"sitemap_urls"`
	SkippedURLs       map[string][]string   `json:"skipped_urls"`
	FailuresByReason  map[FailureReason]int `json:"failures_by_reason"`
	CrawlDuration     time.Duration         `json:"crawl_duration"`
	AnalyzedAt        time.Time             `json:"analysis_timestamp"`
}
