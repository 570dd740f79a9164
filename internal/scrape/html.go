package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// maxPageBytes caps how much of a response body is parsed.
const maxPageBytes = 5 << 20

// invisibleSelector matches elements whose text never renders.
const invisibleSelector = `head, script, style, noscript, template, iframe, svg, canvas, [hidden], [aria-hidden="true"], [style*="display:none"], [style*="display: none"]`

// blockElements get a line break before and after their text, like innerText.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "dd": true,
	"div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true, "li": true,
	"main": true, "nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tr": true, "ul": true, "body": true,
}

// HTMLExtractor downloads raw HTML and reads the body text without running scripts.
type HTMLExtractor struct {
	client    *http.Client
	userAgent string
}

var _ Extractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor creates an extractor. A nil client means http.DefaultClient.
func NewHTMLExtractor(client *http.Client, userAgent string) *HTMLExtractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTMLExtractor{client: client, userAgent: userAgent}
}

// Extract implements Extractor.
func (e *HTMLExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	// Pages are decoded to UTF-8 from the Content-Type charset, a <meta> tag or a BOM.
	body, err := charset.NewReader(io.LimitReader(resp.Body, maxPageBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	return VisibleText(doc), nil
}

// VisibleText returns the rendered-looking text of the document body:
// invisible elements are dropped, block elements start new lines, runs of
// whitespace collapse and blank lines are removed.
func VisibleText(doc *goquery.Document) string {
	doc.Find(invisibleSelector).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}

	var b strings.Builder
	for _, n := range body.Nodes {
		writeText(&b, n)
	}
	return normalizeLines(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		return
	}

	if n.Data == "br" {
		b.WriteByte('\n')
		return
	}

	block := blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	switch {
	case block:
		b.WriteByte('\n')
	case n.Data == "td" || n.Data == "th":
		b.WriteByte('\t')
	}
}

func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if fields := strings.Fields(line); len(fields) > 0 {
			out = append(out, strings.Join(fields, " "))
		}
	}
	return strings.Join(out, "\n")
}
