// Package fetch retrieves job listing pages over HTTP, with a headless
// browser fallback for script-rendered boards and an in-memory cache to
// keep repeat ingestions cheap.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jonathan/stashboard/internal/scrape"
)

// DefaultTimeout bounds a single HTTP fetch.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent identifies the fetcher to job boards.
const DefaultUserAgent = "Mozilla/5.0 (compatible; Stashboard/1.0)"

// Result holds the raw and processed content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	Text        string
	ContentType string
	StatusCode  int
	Rendered    bool // true when the HTML came from the headless browser
}

// Error reports a failed fetch.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// UseBrowser enables the headless browser fallback when the plain
	// HTTP response yields too little text.
	UseBrowser bool
}

// DefaultOptions returns defaults suitable for job board pages.
func DefaultOptions() *Options {
	return &Options{
		Timeout:    DefaultTimeout,
		UserAgent:  DefaultUserAgent,
		UseBrowser: true,
	}
}

// Fetcher retrieves pages with a shared HTTP client.
type Fetcher struct {
	client  *http.Client
	options *Options
	logger  *zap.Logger
}

// NewFetcher creates a fetcher. Nil options or logger get defaults.
func NewFetcher(opts *Options, logger *zap.Logger) *Fetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		options: opts,
		logger:  logger,
	}
}

// Fetch retrieves a page. When the plain HTTP response looks like an empty
// script-rendered shell and the browser fallback is enabled, the page is
// re-fetched through headless Chrome.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	result, err := f.fetchHTTP(ctx, urlStr)
	if err != nil {
		return result, err
	}

	platform := DetectPlatform(urlStr)
	text, err := ExtractMainText(result.HTML,
		PlatformContentSelectors(platform),
		PlatformNoiseSelectors(platform)...)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to parse response HTML", Cause: err}
	}
	result.Text = text

	if f.options.UseBrowser && ShouldUseBrowser(text) {
		f.logger.Info("thin response, falling back to browser rendering",
			zap.String("url", urlStr),
			zap.Int("textLength", len(text)))
		html, berr := f.renderWithBrowser(ctx, urlStr)
		if berr != nil {
			f.logger.Warn("browser rendering failed, keeping HTTP response",
				zap.String("url", urlStr),
				zap.Error(berr))
			return result, nil
		}
		result.HTML = html
		result.Rendered = true
		if text, err = ExtractMainText(html,
			PlatformContentSelectors(platform),
			PlatformNoiseSelectors(platform)...); err == nil {
			result.Text = text
		}
	}

	return result, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, urlStr string) (*Result, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", f.options.UserAgent)
	for key, value := range f.options.Headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	result := &Result{
		URL:         urlStr,
		HTML:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	if resp.StatusCode != http.StatusOK {
		return result, &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	return result, nil
}

// ExtractMainText parses HTML and returns the main body text. Noise
// elements are stripped first, then content is located via the given
// selectors, falling back to the body element when none match.
func ExtractMainText(html string, contentSelectors []string, noiseSelectors ...string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, header, script, style, noscript, .ad, .advertisement, .sidebar, .cookie-banner, .popup").Remove()
	if len(noiseSelectors) > 0 {
		doc.Find(strings.Join(noiseSelectors, ", ")).Remove()
	}

	var content *goquery.Selection
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}

	return scrape.CleanText(content.Text()), nil
}
