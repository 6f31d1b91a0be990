package processor

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	numericIDPattern = regexp.MustCompile(`\d{3,}`)
	uuidPattern      = regexp.MustCompile(`(?i)[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`)
	hexIDPattern     = regexp.MustCompile(`(?i)[a-f0-9]{6,}`)
	jobPathPattern   = regexp.MustCompile(`(?i)/(job|career|posting|position)s?/`)
	domainPattern    = regexp.MustCompile(`(?:https?://)?(?:www\.)?([^/\s]+)`)
)

// CanonicalURL decides what link to persist for a listing. A self-reported
// URL that looks like a genuine deep link (carries an id-like token or a
// job-path segment) is kept as-is. Anything else, such as a board homepage
// or a bare domain, is replaced with a domain-scoped search query for the
// posting.
func CanonicalURL(rawURL, company, jobTitle string) string {
	looksLikePosting := numericIDPattern.MatchString(rawURL) ||
		uuidPattern.MatchString(rawURL) ||
		hexIDPattern.MatchString(rawURL) ||
		jobPathPattern.MatchString(rawURL)

	if looksLikePosting && rawURL != "" && rawURL != "N/A" && strings.HasPrefix(rawURL, "http") {
		return rawURL
	}

	domain := extractDomain(rawURL)
	terms := company + " " + jobTitle + " job"
	if domain != "" {
		terms = "site:" + domain + " " + terms
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(terms)
}

// extractDomain pulls a bare hostname out of a full URL or a partial value
// like "company.com/careers".
func extractDomain(rawURL string) string {
	if rawURL == "" || rawURL == "N/A" || !strings.Contains(rawURL, ".") {
		return ""
	}
	if strings.HasPrefix(rawURL, "http") {
		if parsed, err := url.Parse(rawURL); err == nil && parsed.Hostname() != "" {
			return parsed.Hostname()
		}
	}
	if match := domainPattern.FindStringSubmatch(rawURL); len(match) == 2 {
		return strings.TrimPrefix(match[1], "www.")
	}
	return ""
}
