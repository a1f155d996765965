package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestShouldInclude(t *testing.T) {
	blocked := []string{"facebook.com", "cdnjs.cloudflare.com"}
	tests := []struct {
		name       string
		url        string
		wantOK     bool
		wantReason string
	}{
		{name: "same domain page", url: "https://example.com/products/spf-50", wantOK: true},
		{name: "www host", url: "https://www.example.com/about", wantOK: true},
		{name: "subdomain", url: "https://blog.example.com/post", wantOK: true},
		{name: "blocked domain", url: "https://facebook.com/brand", wantReason: SkipBlockedDomain},
		{name: "blocked subdomain", url: "https://m.facebook.com/brand", wantReason: SkipBlockedDomain},
		{name: "blocked www", url: "https://www.facebook.com/brand", wantReason: SkipBlockedDomain},
		{name: "lookalike is external, not blocked", url: "https://notfacebook.com/x", wantReason: SkipExternalDomain},
		{name: "external domain", url: "https://other.com/page", wantReason: SkipExternalDomain},
		{name: "pdf", url: "https://example.com/guide.PDF", wantReason: rejectExtension},
		{name: "image", url: "https://example.com/img/hero.webp", wantReason: rejectExtension},
		{name: "fragment", url: "https://example.com/page#top", wantReason: rejectPattern},
		{name: "mailto", url: "mailto:hi@example.com", wantReason: rejectPattern},
		{name: "cart", url: "https://example.com/cart", wantReason: rejectPattern},
		{name: "search", url: "https://example.com/search?q=spf", wantReason: rejectPattern},
		{name: "tracking", url: "https://example.com/page?utm_source=x", wantReason: rejectPattern},
		{name: "api", url: "https://example.com/api/v1/items", wantReason: rejectPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := ShouldInclude(tt.url, "www.example.com", blocked)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestShouldIncludeIdempotentAndOrderIndependent(t *testing.T) {
	urls := []string{
		"https://example.com/",
		"https://example.com/products/a",
		"https://facebook.com/x",
		"https://example.com/cart",
		"https://other.com/",
		"https://example.com/learn/spf",
		"https://example.com/style.css",
	}
	accept := func(in []string) map[string]bool {
		out := map[string]bool{}
		for _, u := range in {
			if ok, _ := ShouldInclude(u, "example.com", []string{"facebook.com"}); ok {
				out[u] = true
			}
		}
		return out
	}

	first := accept(urls)
	reversed := make([]string, len(urls))
	for i, u := range urls {
		reversed[len(urls)-1-i] = u
	}

	assert.Equal(t, first, accept(urls))
	assert.Equal(t, first, accept(reversed))
	assert.Len(t, first, 3)
}

func TestURLFilterRecordsDomainSkipsOnly(t *testing.T) {
	state := newRunState()
	f := newURLFilter("example.com", []string{"facebook.com"}, state, zap.NewNop())

	assert.True(t, f.Allow("https://example.com/about"))
	assert.False(t, f.Allow("https://facebook.com/x"))
	assert.False(t, f.Allow("https://facebook.com/x"))
	assert.False(t, f.Allow("https://other.com/y"))
	assert.False(t, f.Allow("https://example.com/login"))

	skipped := state.skippedByReason()
	assert.Equal(t, []string{"https://facebook.com/x"}, skipped[SkipBlockedDomain])
	assert.Equal(t, []string{"https://other.com/y"}, skipped[SkipExternalDomain])
	assert.Len(t, skipped, 2)
	assert.Equal(t, 2, state.skippedTotal())
}
