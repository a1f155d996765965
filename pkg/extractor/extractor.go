package extractor

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"github.com/amosWeiskopf/geoscan/internal/models"
	"github.com/amosWeiskopf/geoscan/pkg/utils"
)

// microdataSnippetLen caps the text kept for one microdata scope
const microdataSnippetLen = 200

// Options controls what the extractor keeps of the raw page
type Options struct {
	SaveHTML     bool
	MaxHTMLBytes int
}

// Extractor handles content extraction from HTML
type Extractor struct {
	opts Options
}

// New creates a new Extractor instance
func New(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// Extract parses an HTML body fetched from pageURL into a successful PageRecord.
// Malformed markup yields whatever could be recovered; it never fails.
func (e *Extractor) Extract(pageURL string, body string, header http.Header) models.PageRecord {
	base, _ := url.Parse(pageURL)
	doc := parseDocument(body)

	record := models.PageRecord{
		URL:             pageURL,
		Title:           strings.TrimSpace(doc.Find("title").First().Text()),
		MetaDescription: metaContent(doc, "description"),
		Headings:        ExtractHeadings(doc),
		Paragraphs:      ExtractParagraphs(doc),
		Lists:           ExtractLists(doc),
		Images:          ExtractImages(doc, base),
		Links:           ExtractLinks(doc, base),
		StructuredData:  ExtractStructuredData(doc),
		ScrapedAt:       time.Now(),
		Success:         true,
	}

	record.CleanText = e.ExtractText(body, base, doc)
	record.WordCount = utils.CountWords(record.CleanText)
	record.ReadingTime = utils.ReadingTime(record.WordCount)
	record.LastModifiedRaw, record.LastModified = ExtractLastModified(doc, header, record.StructuredData)
	record.ContentType = Classify(pageURL, record.CleanText, record.StructuredData)
	record.Markdown = ToMarkdown(body, base)

	if e.opts.SaveHTML {
		record.RawHTML = capBytes(body, e.opts.MaxHTMLBytes)
	}
	return record
}

func parseDocument(body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	return doc
}

// ExtractText extracts clean main text using trafilatura, falling back to the body text
func (e *Extractor) ExtractText(body string, base *url.URL, doc *goquery.Document) string {
	result, err := trafilatura.Extract(strings.NewReader(body), trafilatura.Options{OriginalURL: base})
	if err == nil && result != nil && strings.TrimSpace(result.ContentText) != "" {
		return strings.TrimSpace(result.ContentText)
	}
	return fallbackText(doc)
}

func fallbackText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	return utils.CleanText(body.Text())
}

func metaContent(doc *goquery.Document, name string) string {
	var content string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(s.AttrOr("name", ""), name) {
			content = strings.TrimSpace(s.AttrOr("content", ""))
			return false
		}
		return true
	})
	return content
}

// ExtractHeadings collects h1-h6 texts per level
func ExtractHeadings(doc *goquery.Document) models.Headings {
	headings := make(models.Headings, 6)
	for level := 1; level <= 6; level++ {
		tag := "h" + strconv.Itoa(level)
		texts := []string{}
		doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
			if t := utils.CleanText(s.Text()); t != "" {
				texts = append(texts, t)
			}
		})
		headings[tag] = texts
	}
	return headings
}

// ExtractParagraphs returns the non-empty <p> texts
func ExtractParagraphs(doc *goquery.Document) []string {
	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := utils.CleanText(s.Text()); t != "" {
			paragraphs = append(paragraphs, t)
		}
	})
	return paragraphs
}

// ExtractLists returns the items of every non-empty ul/ol
func ExtractLists(doc *goquery.Document) [][]string {
	var lists [][]string
	doc.Find("ul, ol").Each(func(_ int, s *goquery.Selection) {
		var items []string
		s.Find("li").Each(func(_ int, li *goquery.Selection) {
			items = append(items, utils.CleanText(li.Text()))
		})
		if len(items) > 0 {
			lists = append(lists, items)
		}
	})
	return lists
}

// ExtractImages returns every <img> with a source, resolved against base
func ExtractImages(doc *goquery.Document, base *url.URL) []models.Image {
	var images []models.Image
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			return
		}
		images = append(images, models.Image{
			Src:   resolveURL(base, src),
			Alt:   s.AttrOr("alt", ""),
			Title: s.AttrOr("title", ""),
		})
	})
	return images
}

// ExtractLinks returns all anchors, classified internal/external by host
func ExtractLinks(doc *goquery.Document, base *url.URL) []models.Link {
	var links []models.Link
	baseHost := ""
	if base != nil {
		baseHost = strings.ToLower(base.Host)
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		abs := resolveURL(base, href)
		linkType := models.LinkExternal
		if u, err := url.Parse(abs); err == nil && strings.ToLower(u.Host) == baseHost {
			linkType = models.LinkInternal
		}
		links = append(links, models.Link{
			Href: abs,
			Text: utils.CleanText(s.Text()),
			Type: linkType,
		})
	})
	return links
}

// ExtractStructuredData collects JSON-LD scripts and microdata scopes
func ExtractStructuredData(doc *goquery.Document) []models.StructuredData {
	var blocks []models.StructuredData
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		blocks = append(blocks, models.StructuredData{
			Kind:  "json-ld",
			Raw:   raw,
			Types: schemaTypes(raw),
		})
	})
	doc.Find("[itemscope]").Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, models.StructuredData{
			Kind:     "microdata",
			Raw:      utils.TruncateRunes(utils.CleanText(s.Text()), microdataSnippetLen),
			ItemType: s.AttrOr("itemtype", ""),
		})
	})
	return blocks
}

// schemaTypes returns every @type named in a JSON-LD payload
func schemaTypes(raw string) []string {
	var types []string
	walkJSONLD(raw, func(node map[string]any) {
		switch t := node["@type"].(type) {
		case string:
			types = append(types, t)
		case []any:
			for _, v := range t {
				if s, ok := v.(string); ok {
					types = append(types, s)
				}
			}
		}
	})
	return types
}

// walkJSONLD visits every object of a JSON-LD payload, including @graph members
func walkJSONLD(raw string, fn func(map[string]any)) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return
	}
	var walk func(any)
	walk = func(v any) {
		switch node := v.(type) {
		case map[string]any:
			fn(node)
			for _, child := range node {
				walk(child)
			}
		case []any:
			for _, child := range node {
				walk(child)
			}
		}
	}
	walk(v)
}

// ExtractLastModified finds the page date: HTTP header, then meta tag, then
// dateModified/datePublished properties, then JSON-LD date fields
func ExtractLastModified(doc *goquery.Document, header http.Header, blocks []models.StructuredData) (string, *time.Time) {
	candidates := []string{}
	if header != nil {
		candidates = append(candidates, header.Get("Last-Modified"))
	}
	candidates = append(candidates, metaContent(doc, "last-modified"))
	for _, attr := range []string{"dateModified", "datePublished"} {
		sel := doc.Find(`[property="` + attr + `"], [itemprop="` + attr + `"]`).First()
		candidates = append(candidates, strings.TrimSpace(sel.AttrOr("content", "")))
	}
	for _, field := range []string{"dateModified", "datePublished"} {
		for _, b := range blocks {
			if b.Kind != "json-ld" {
				continue
			}
			walkJSONLD(b.Raw, func(node map[string]any) {
				if s, ok := node[field].(string); ok {
					candidates = append(candidates, s)
				}
			})
		}
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if t, err := dateparse.ParseAny(c); err == nil {
			return c, &t
		}
		return c, nil
	}
	return "", nil
}

// ToMarkdown renders the page as markdown; it returns "" when conversion fails
func ToMarkdown(body string, base *url.URL) string {
	domain := ""
	if base != nil && base.Host != "" {
		domain = base.Scheme + "://" + base.Host
	}
	converter := md.NewConverter(domain, true, nil)
	markdown, err := converter.ConvertString(body)
	if err != nil {
		return ""
	}
	return markdown
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func capBytes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return strings.ToValidUTF8(s[:max], "")
}
