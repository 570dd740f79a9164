package scrape

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// BrowserExtractor renders the page in headless Chrome so scripts run before
// the DOM is read. A fresh browser is started for every call and torn down
// before Extract returns.
type BrowserExtractor struct {
	allocOpts []chromedp.ExecAllocatorOption
}

var _ Extractor = (*BrowserExtractor)(nil)

// NewBrowserExtractor creates an extractor using the default headless flags.
func NewBrowserExtractor(userAgent string, extra ...chromedp.ExecAllocatorOption) *BrowserExtractor {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	opts = append(opts, extra...)
	return &BrowserExtractor{allocOpts: opts}
}

// Extract implements Extractor.
func (e *BrowserExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, e.allocOpts...)
	defer cancelAlloc() // kills the browser process

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var text string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	)
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}

	return normalizeLines(text), nil
}
