package crawler

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Skip reasons recorded on the Site Analysis
const (
	SkipBlockedDomain    = "blocked domain"
	SkipExternalDomain   = "external domain"
	SkipExternalRedirect = "redirected to external domain"
)

// Reasons for rejections that are not recorded as skips
const (
	rejectInvalidURL = "invalid url"
	rejectExtension  = "non-content extension"
	rejectPattern    = "excluded pattern"
)

var skipExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".css", ".js", ".json", ".xml", ".txt",
	".zip", ".rar", ".tar", ".gz",
	".mp4", ".avi", ".mov", ".wmv", ".mp3", ".wav",
}

var skipPatterns = []string{
	"#", "mailto:", "tel:", "javascript:", "data:",
	"/wp-admin", "/admin", "/login", "/register", "/checkout",
	"/cart", "/account", "/profile", "/settings",
	"/search", "/filter", "?search=", "?filter=",
	"/api/", "/ajax/", "/webhook/",
	"?utm_", "?ref=", "?fb", "?gclid",
}

// ShouldInclude decides whether rawURL is worth fetching for targetDomain.
// It returns the rejection reason, or "" when the URL is accepted. It does no I/O.
func ShouldInclude(rawURL, targetDomain string, blockedDomains []string) (bool, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, rejectInvalidURL
	}

	host := stripWWW(strings.ToLower(u.Hostname()))
	for _, blocked := range blockedDomains {
		if matchesDomain(host, strings.ToLower(blocked)) {
			return false, SkipBlockedDomain
		}
	}

	path := strings.ToLower(u.Path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return false, rejectExtension
		}
	}

	lower := strings.ToLower(rawURL)
	for _, pattern := range skipPatterns {
		if strings.Contains(lower, pattern) {
			return false, rejectPattern
		}
	}

	if !matchesDomain(host, stripWWW(strings.ToLower(targetDomain))) {
		return false, SkipExternalDomain
	}
	return true, ""
}

func isDomainReason(reason string) bool {
	return reason == SkipBlockedDomain || reason == SkipExternalDomain
}

// matchesDomain reports whether host is domain or one of its subdomains
func matchesDomain(host, domain string) bool {
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}

// URLFilter applies ShouldInclude for one crawl run and records domain skips
type URLFilter struct {
	targetDomain   string
	blockedDomains []string
	state          *runState
	logger         *zap.Logger
}

func newURLFilter(targetDomain string, blockedDomains []string, state *runState, logger *zap.Logger) *URLFilter {
	return &URLFilter{
		targetDomain:   targetDomain,
		blockedDomains: blockedDomains,
		state:          state,
		logger:         logger,
	}
}

// Allow reports whether rawURL passes the filter
func (f *URLFilter) Allow(rawURL string) bool {
	ok, reason := ShouldInclude(rawURL, f.targetDomain, f.blockedDomains)
	if ok {
		return true
	}
	f.logger.Debug("Skipping URL", zap.String("url", rawURL), zap.String("reason", reason))
	if isDomainReason(reason) && f.state != nil {
		f.state.skip(reason, rawURL)
	}
	return false
}
