package crawler

import (
	"net/url"
	"sort"
	"strings"
)

// KeywordTier awards Bonus for every keyword found in the lowercased URL
type KeywordTier struct {
	Keywords []string
	Bonus    int
}

// PathRule awards Bonus once when the path contains any of Segments
type PathRule struct {
	Segments []string
	Bonus    int
}

// PriorityTable is the scoring table used to rank URLs for fetching
type PriorityTable struct {
	Tiers          []KeywordTier
	PathRules      []PathRule
	HomePaths      []string
	HomeBonus      int
	MaxDepth       int
	DepthPenalty   int
	MaxQueryParams int
	QueryPenalty   int
}

// DefaultPriorityTable returns the table tuned for sun-care retail sites
func DefaultPriorityTable() PriorityTable {
	return PriorityTable{
		Tiers: []KeywordTier{
			{Keywords: []string{"product", "sunscreen", "spf", "mineral", "zinc", "titanium", "ingredient", "faq", "about"}, Bonus: 10},
			{Keywords: []string{"how-to", "guide", "application", "use", "apply", "tutorial", "science", "research", "benefit", "protection", "safety"}, Bonus: 5},
			{Keywords: []string{"skin", "face", "care", "sensitive", "tips", "advice", "blog", "news", "story", "learn", "education"}, Bonus: 3},
			{Keywords: []string{"support", "help", "contact", "shipping", "return"}, Bonus: 1},
		},
		PathRules: []PathRule{
			{Segments: []string{"/products/", "/collections/", "/categories/"}, Bonus: 8},
			{Segments: []string{"/learn/", "/education/", "/guides/", "/how-to/"}, Bonus: 7},
			{Segments: []string{"/about", "/story", "/mission", "/science"}, Bonus: 6},
		},
		HomePaths:      []string{"/", "/home", "/index"},
		HomeBonus:      5,
		MaxDepth:       4,
		DepthPenalty:   2,
		MaxQueryParams: 2,
		QueryPenalty:   3,
	}
}

// ScoredURL is a URL with its priority score
type ScoredURL struct {
	URL   string
	Score int
}

// Score computes the priority of one URL; the result is at least 1
func (t PriorityTable) Score(rawURL string) int {
	score := 1
	lower := strings.ToLower(rawURL)

	for _, tier := range t.Tiers {
		for _, kw := range tier.Keywords {
			if strings.Contains(lower, kw) {
				score += tier.Bonus
			}
		}
	}

	path := ""
	if u, err := url.Parse(rawURL); err == nil {
		path = strings.ToLower(u.Path)
	}
	if path == "" {
		path = "/"
	}
	for _, rule := range t.PathRules {
		for _, seg := range rule.Segments {
			if strings.Contains(path, seg) {
				score += rule.Bonus
				break
			}
		}
	}
	for _, home := range t.HomePaths {
		if path == home {
			score += t.HomeBonus
			break
		}
	}

	switch {
	case len(rawURL) < 80:
		score += 2
	case len(rawURL) < 120:
		score++
	}

	// "https://host/a/b" has depth 2
	if depth := strings.Count(rawURL, "/") - 2; depth > t.MaxDepth {
		score -= (depth - t.MaxDepth) * t.DepthPenalty
	}

	if strings.Contains(rawURL, "?") && strings.Count(rawURL, "=") > t.MaxQueryParams {
		score -= t.QueryPenalty
	}

	if score < 1 {
		score = 1
	}
	return score
}

// Rank scores every distinct URL and sorts them by score, descending.
// Ties keep their input order.
func (t PriorityTable) Rank(urls []string) []ScoredURL {
	seen := make(map[string]struct{}, len(urls))
	ranked := make([]ScoredURL, 0, len(urls))
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		ranked = append(ranked, ScoredURL{URL: u, Score: t.Score(u)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Prioritize returns at most limit URLs, highest priority first
func (t PriorityTable) Prioritize(urls []string, limit int) []string {
	ranked := t.Rank(urls)
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.URL
	}
	return out
}

// Prioritize ranks urls with the default table
func Prioritize(urls []string, limit int) []string {
	return DefaultPriorityTable().Prioritize(urls, limit)
}
