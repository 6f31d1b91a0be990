package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// MinContentLength is the minimum extracted text length for a plain HTTP
// fetch to count as successful. Shorter pages are assumed to be
// script-rendered shells and go through the browser instead.
const MinContentLength = 500

// BrowserRenderTimeout bounds a single headless render.
const BrowserRenderTimeout = 60 * time.Second

// ShouldUseBrowser reports whether the extracted text is too short,
// indicating the page likely renders its content with JavaScript.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// renderWithBrowser loads the page in headless Chrome and returns the HTML
// after scripts have run. Requires Chrome or Chromium on the host.
func (f *Fetcher) renderWithBrowser(ctx context.Context, urlStr string) (string, error) {
	f.logger.Debug("starting headless browser", zap.String("url", urlStr))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(f.options.UserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, BrowserRenderTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(urlStr),
		chromedp.WaitReady("body"),
		// Give client-side rendering a moment to populate the page.
		chromedp.Sleep(3*time.Second),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Dismiss cookie banners when one is present. Best effort.
			_ = chromedp.Click(`button[id*="accept"], button[class*="accept"]`, chromedp.NodeVisible).Do(ctx)
			return nil
		}),
		chromedp.Sleep(1*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	f.logger.Debug("browser render complete",
		zap.String("url", urlStr),
		zap.Int("htmlBytes", len(html)))
	return html, nil
}
