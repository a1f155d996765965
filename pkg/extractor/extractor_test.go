package extractor

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/geoscan/internal/models"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
	<title> How to Apply Mineral Sunscreen </title>
	<meta name="Description" content="A step-by-step guide.">
	<meta name="last-modified" content="2024-03-01">
	<script type="application/ld+json">
	{"@context":"https://schema.org","@graph":[{"@type":"Article","dateModified":"2024-02-10"},{"@type":["Person","Thing"]}]}
	</script>
</head>
<body>
	<h1>How to apply sunscreen</h1>
	<h2>Step one</h2>
	<h2>  </h2>
	<h3>Why reapply?</h3>
	<p>Apply a <b>generous</b> layer.</p>
	<p>   </p>
	<ul><li>Face</li><li>Neck</li><li>Ears</li></ul>
	<ol></ol>
	<img src="/img/chart.png" alt="SPF comparison chart" title="Results">
	<img alt="no source">
	<a href="/products/spf-50">Shop SPF 50</a>
	<a href="https://www.aad.org/sunscreen">AAD</a>
	<div itemscope itemtype="https://schema.org/Product">Zinc Sunscreen</div>
	<script>var tracking = true;</script>
</body>
</html>`

func TestExtract(t *testing.T) {
	e := New(Options{SaveHTML: true, MaxHTMLBytes: 64})
	rec := e.Extract("https://example.com/learn/apply", articleHTML, nil)

	assert.True(t, rec.Success)
	assert.Equal(t, "https://example.com/learn/apply", rec.URL)
	assert.Equal(t, "How to Apply Mineral Sunscreen", rec.Title)
	assert.Equal(t, "A step-by-step guide.", rec.MetaDescription)

	assert.Equal(t, []string{"How to apply sunscreen"}, rec.Headings.Level(1))
	assert.Equal(t, []string{"Step one"}, rec.Headings.Level(2))
	assert.Equal(t, []string{"Why reapply?"}, rec.Headings.Level(3))
	assert.Empty(t, rec.Headings.Level(4))

	assert.Equal(t, []string{"Apply a generous layer."}, rec.Paragraphs)
	assert.Equal(t, [][]string{{"Face", "Neck", "Ears"}}, rec.Lists)

	require.Len(t, rec.Images, 1)
	assert.Equal(t, models.Image{Src: "https://example.com/img/chart.png", Alt: "SPF comparison chart", Title: "Results"}, rec.Images[0])

	require.Len(t, rec.Links, 2)
	assert.Equal(t, models.Link{Href: "https://example.com/products/spf-50", Text: "Shop SPF 50", Type: models.LinkInternal}, rec.Links[0])
	assert.Equal(t, models.LinkExternal, rec.Links[1].Type)

	require.Len(t, rec.StructuredData, 2)
	assert.Equal(t, "json-ld", rec.StructuredData[0].Kind)
	assert.Equal(t, []string{"Article", "Person", "Thing"}, rec.StructuredData[0].Types)
	assert.Equal(t, "microdata", rec.StructuredData[1].Kind)
	assert.Equal(t, "https://schema.org/Product", rec.StructuredData[1].ItemType)
	assert.Equal(t, "Zinc Sunscreen", rec.StructuredData[1].Raw)

	// meta tag wins over the JSON-LD date
	require.NotNil(t, rec.LastModified)
	assert.Equal(t, "2024-03-01", rec.LastModifiedRaw)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), rec.LastModified.UTC())

	assert.NotEmpty(t, rec.CleanText)
	assert.NotContains(t, rec.CleanText, "tracking")
	assert.Equal(t, len(strings.Fields(rec.CleanText)), rec.WordCount)
	assert.Equal(t, 1, rec.ReadingTime)
	assert.Contains(t, rec.Markdown, "# How to apply sunscreen")
	assert.Len(t, rec.RawHTML, 64)
}

func TestExtractWithoutSavingHTML(t *testing.T) {
	rec := New(Options{}).Extract("https://example.com/", articleHTML, nil)
	assert.Empty(t, rec.RawHTML)
}

func TestExtractMalformedHTML(t *testing.T) {
	rec := New(Options{}).Extract("https://example.com/x", "<html><body><p>Unclosed <b>tags<div>", nil)

	assert.True(t, rec.Success)
	assert.Equal(t, []string{"Unclosed tags"}, rec.Paragraphs)
	assert.Nil(t, rec.LastModified)
}

func TestExtractEmptyBody(t *testing.T) {
	rec := New(Options{}).Extract("https://example.com/x", "", nil)

	assert.True(t, rec.Success)
	assert.Zero(t, rec.WordCount)
	assert.Zero(t, rec.ReadingTime)
	assert.Equal(t, models.ContentGeneralPage, rec.ContentType)
}

func TestExtractLastModifiedPriority(t *testing.T) {
	header := http.Header{}
	header.Set("Last-Modified", "Wed, 21 Oct 2015 07:28:00 GMT")

	rec := New(Options{}).Extract("https://example.com/x", articleHTML, header)
	require.NotNil(t, rec.LastModified)
	assert.Equal(t, 2015, rec.LastModified.Year())

	jsonOnly := `<html><head><script type="application/ld+json">{"@type":"Article","datePublished":"2023-06-15T10:00:00Z"}</script></head><body><p>x</p></body></html>`
	rec = New(Options{}).Extract("https://example.com/x", jsonOnly, nil)
	require.NotNil(t, rec.LastModified)
	assert.Equal(t, time.June, rec.LastModified.Month())

	itemprop := `<html><body><meta itemprop="dateModified" content="2022-01-05"><p>x</p></body></html>`
	rec = New(Options{}).Extract("https://example.com/x", itemprop, nil)
	require.NotNil(t, rec.LastModified)
	assert.Equal(t, 2022, rec.LastModified.Year())

	unparsable := `<html><head><meta name="last-modified" content="sometime soon"></head></html>`
	rec = New(Options{}).Extract("https://example.com/x", unparsable, nil)
	assert.Nil(t, rec.LastModified)
	assert.Equal(t, "sometime soon", rec.LastModifiedRaw)
}

func TestSchemaTypesInvalidJSON(t *testing.T) {
	assert.Empty(t, schemaTypes("{not json"))
}
