package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityTableScore(t *testing.T) {
	table := DefaultPriorityTable()
	tests := []struct {
		name string
		url  string
		want int
	}{
		{name: "plain page", url: "https://example.com/page", want: 3},
		{name: "homepage", url: "https://example.com/", want: 8},
		{name: "bare host counts as homepage", url: "https://example.com", want: 8},
		{name: "product keywords", url: "https://example.com/product/sunscreen-zinc", want: 33},
		{name: "product listing path", url: "https://example.com/products/x", want: 21},
		{name: "deep path is clamped to one", url: "https://example.com/x/x/x/x/x/x/x", want: 1},
		{name: "many query params", url: "https://example.com/p?a=1&b=2&c=3", want: 1},
		{name: "single query param", url: "https://example.com/p?a=1", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Score(tt.url))
		})
	}
}

func TestPrioritizeProductBeatsPlainPage(t *testing.T) {
	got := Prioritize([]string{"https://example.com/page", "https://example.com/product/sunscreen-zinc"}, 10)
	assert.Equal(t, []string{"https://example.com/product/sunscreen-zinc", "https://example.com/page"}, got)

	table := DefaultPriorityTable()
	assert.GreaterOrEqual(t, table.Score(got[0])-table.Score(got[1]), 10)
}

func TestPrioritizeDeterministicAndStable(t *testing.T) {
	urls := []string{
		"https://example.com/b",
		"https://example.com/a",
		"https://example.com/about",
		"https://example.com/c",
		"https://example.com/a",
	}

	first := Prioritize(urls, 10)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Prioritize(urls, 10))
	}
	assert.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/b",
		"https://example.com/a",
		"https://example.com/c",
	}, first)
}

func TestPrioritizeLimit(t *testing.T) {
	urls := []string{"https://example.com/a", "https://example.com/faq", "https://example.com/b"}

	assert.Equal(t, []string{"https://example.com/faq"}, Prioritize(urls, 1))
	assert.Empty(t, Prioritize(urls, 0))
	assert.Len(t, Prioritize(urls, 10), 3)
}

func TestRankCustomTable(t *testing.T) {
	table := PriorityTable{
		Tiers:    []KeywordTier{{Keywords: []string{"docs"}, Bonus: 50}},
		MaxDepth: 10,
	}
	ranked := table.Rank([]string{"https://example.com/blog", "https://example.com/docs"})
	assert.Equal(t, "https://example.com/docs", ranked[0].URL)
	assert.Equal(t, 53, ranked[0].Score)
}
