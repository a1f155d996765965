package scorer

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/amosWeiskopf/geoscan/internal/models"
	"github.com/amosWeiskopf/geoscan/pkg/utils"
)

var (
	authorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bby\s+[A-Z][a-z]+\s+[A-Z][a-z]+\b`),
		regexp.MustCompile(`\bauthor:\s*[A-Z][a-z]+`),
		regexp.MustCompile(`\bwritten by\b`),
		regexp.MustCompile(`\bdr\.\s+[A-Z][a-z]+`),
		regexp.MustCompile(`\bmd\b`),
	}

	updateCue = regexp.MustCompile(`updated\s+(?:on|in)\s+20\d{2}|revised\s+(?:on|in)\s+20\d{2}|last\s+(?:updated|modified|reviewed)|as\s+of\s+20\d{2}`)
)

// authorityDomains are the external sites whose links signal authority
var authorityDomains = []string{
	"ncbi.nlm.nih.gov",
	"pubmed.ncbi.nlm.nih.gov",
	"fda.gov",
	"aad.org",
	"cancer.org",
	"who.int",
	"mayoclinic.org",
	"harvard.edu",
	"stanford.edu",
	"nih.gov",
}

var expertiseKeywords = []string{
	"clinical", "research", "study", "studies", "trial", "tested",
	"dermatologist", "scientist", "expert", "professional",
	"peer-reviewed", "published", "journal", "medical",
}

var scientificTerms = []string{
	"zinc oxide", "titanium dioxide", "uv radiation", "broad spectrum",
	"spf", "photoprotection", "melanin", "epidermis", "dermal",
	"photoaging", "photodamage", "carcinogenic", "antioxidant",
}

func (s *Scorer) scoreAuthoritySignals(page models.PageRecord) models.DimensionScore {
	now := s.now()
	lower := strings.ToLower(page.CleanText)
	words := utils.CountWords(page.CleanText)
	hasAuthor := hasAuthorInfo(page.CleanText, page.StructuredData)

	credentials := 25.0
	if hasAuthor {
		credentials = 85
	}

	subs := []models.SubScore{
		{Name: SubAuthorCredentials, Score: credentials},
		{Name: SubPublicationFreshness, Score: freshnessScore(page.LastModified, now)},
		{Name: SubUpdateFrequency, Score: updateFrequencyScore(lower, page.LastModified, now)},
		{Name: SubExternalAuthorityLink, Score: authorityLinksScore(page.Links)},
		{Name: SubExpertiseIndicators, Score: expertiseScore(lower, words)},
	}

	details := map[string]any{
		"has_author_info":          hasAuthor,
		"last_modified_date":       page.LastModifiedRaw,
		"authority_domains_linked": countAuthorityLinks(page.Links),
		"expertise_keywords":       len(presentTerms(lower, expertiseKeywords)),
		"scientific_terms_count":   len(presentTerms(lower, scientificTerms)),
	}
	return dimension(models.DimensionAuthoritySignals, subs, details)
}

// hasAuthorInfo looks for an author in structured data first, then in byline patterns
func hasAuthorInfo(text string, blocks []models.StructuredData) bool {
	for _, b := range blocks {
		if strings.Contains(strings.ToLower(b.Raw), "author") {
			return true
		}
	}
	for _, p := range authorPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func ageInDays(t time.Time, now time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}

// freshnessScore steps down with age and decays a point a month after a year
func freshnessScore(lastModified *time.Time, now time.Time) float64 {
	if lastModified == nil {
		return 30
	}
	switch age := ageInDays(*lastModified, now); {
	case age <= 30:
		return 100
	case age <= 90:
		return 90
	case age <= 180:
		return 75
	case age <= 365:
		return 60
	default:
		return math.Max(20, float64(60-(age-365)/30))
	}
}

func updateFrequencyScore(lower string, lastModified *time.Time, now time.Time) float64 {
	score := 50.0
	if updateCue.MatchString(lower) {
		score += 15
	}
	if lastModified != nil {
		switch age := ageInDays(*lastModified, now); {
		case age <= 90:
			score += 20
		case age <= 180:
			score += 10
		}
	}
	return math.Min(100, score)
}

func countAuthorityLinks(links []models.Link) int {
	n := 0
	for _, l := range links {
		if l.Type == models.LinkExternal && utils.ContainsAny(l.Href, authorityDomains...) {
			n++
		}
	}
	return n
}

func authorityLinksScore(links []models.Link) float64 {
	external := 0
	for _, l := range links {
		if l.Type == models.LinkExternal {
			external++
		}
	}
	if external == 0 {
		return 20
	}
	ratio := float64(countAuthorityLinks(links)) / float64(external)
	return math.Min(100, ratio*100+30)
}

func expertiseScore(lower string, words int) float64 {
	if words == 0 {
		return 0
	}
	n := len(presentTerms(lower, expertiseKeywords)) + len(presentTerms(lower, scientificTerms))
	return math.Min(100, utils.Per100Words(float64(n), words)*20)
}

// presentTerms returns the terms that occur in lower at least once
func presentTerms(lower string, terms []string) []string {
	var found []string
	for _, t := range terms {
		if strings.Contains(lower, t) {
			found = append(found, t)
		}
	}
	return found
}
