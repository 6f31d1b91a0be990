// Package scrape turns captured job-posting HTML into text the extraction
// pipeline can work with.
package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ReferenceSelector finds values the capture layer stamped onto the page,
// e.g. the posting's self-reported URL.
const ReferenceSelector = "[data-stashboard-ref='url']"

// InnerText extracts the visible text of a captured HTML document with
// script, style and navigation noise removed.
func InnerText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse captured HTML: %w", err)
	}
	doc.Find("script, style, noscript, iframe, svg").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return CleanText(root.Text()), nil
}

// InnerTextOf extracts the visible text of the first element matching the
// selector, or "" when nothing matches.
func InnerTextOf(html, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse captured HTML: %w", err)
	}
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return "", nil
	}
	return strings.TrimSpace(sel.First().Text()), nil
}

// EmbedHiddenText appends an invisible block holding text to an HTML
// artifact. Generated resumes carry the source job listing this way so ATS
// keyword scanners see it without it being rendered.
func EmbedHiddenText(html, text string) string {
	block := fmt.Sprintf(`<div style="display:none" aria-hidden="true">%s</div>`, escapeHTML(text))
	if idx := strings.LastIndex(strings.ToLower(html), "</body>"); idx >= 0 {
		return html[:idx] + block + html[idx:]
	}
	return html + block
}

// EmbedReferenceURL stamps the page with the address it was captured from.
// Extraction reads the marker back through ReferenceSelector to recover the
// posting's URL.
func EmbedReferenceURL(html, url string) string {
	block := fmt.Sprintf(
		`<div style="display:none" aria-hidden="true"><span data-stashboard-ref="url">%s</span></div>`,
		escapeHTML(url))
	if idx := strings.LastIndex(strings.ToLower(html), "</body>"); idx >= 0 {
		return html[:idx] + block + html[idx:]
	}
	return html + block
}

func escapeHTML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return replacer.Replace(s)
}
