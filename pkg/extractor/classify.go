package extractor

import (
	"strings"

	"github.com/amosWeiskopf/geoscan/internal/models"
	"github.com/amosWeiskopf/geoscan/pkg/utils"
)

// faqQuestionThreshold is the number of question marks above which text reads as an FAQ
const faqQuestionThreshold = 5

type urlRule struct {
	keywords    []string
	contentType models.ContentType
}

// urlRules are checked in order; the first match wins
var urlRules = []urlRule{
	{[]string{"product", "sunscreen"}, models.ContentProductPage},
	{[]string{"faq", "frequently-asked"}, models.ContentFAQPage},
	{[]string{"blog", "news", "article"}, models.ContentBlogPost},
	{[]string{"about", "company", "story"}, models.ContentAboutPage},
	{[]string{"contact", "support"}, models.ContentContactPage},
	{[]string{"ingredient", "guide", "how-to"}, models.ContentGuidePage},
}

// Classify assigns a content type. Precedence is fixed: URL keywords, then
// text patterns, then structured-data type hints, then general_page.
func Classify(pageURL, text string, blocks []models.StructuredData) models.ContentType {
	urlLower := strings.ToLower(pageURL)
	for _, rule := range urlRules {
		if utils.ContainsAny(urlLower, rule.keywords...) {
			return rule.contentType
		}
	}

	textLower := strings.ToLower(text)
	switch {
	case strings.Contains(textLower, "ingredients") && utils.ContainsAny(textLower, "zinc", "titanium"):
		return models.ContentIngredientGuide
	case strings.Contains(textLower, "application") && utils.ContainsAny(textLower, "apply", "use"):
		return models.ContentApplicationGuide
	case strings.Count(textLower, "?") > faqQuestionThreshold:
		return models.ContentFAQPage
	}

	for _, b := range blocks {
		if b.Kind != "json-ld" {
			continue
		}
		if b.Mentions("Product") {
			return models.ContentProductPage
		}
		if b.Mentions("Article") {
			return models.ContentBlogPost
		}
	}

	return models.ContentGeneralPage
}
