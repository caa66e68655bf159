package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DirectClient fetches pages itself and extracts readable text with goquery.
// It is used when no rendering proxy is configured.
type DirectClient struct {
	http      *http.Client
	userAgent string
	maxBytes  int64
}

func NewDirect(timeout time.Duration) *DirectClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &DirectClient{
		http:      &http.Client{Timeout: timeout},
		userAgent: "trend-radar/1.0 (+https://github.com/trend-radar)",
		maxBytes:  4 << 20,
	}
}

func (d *DirectClient) Name() string { return "direct" }

func (d *DirectClient) Scrape(ctx context.Context, u string) (Page, error) {
	if err := validURL(u); err != nil {
		return Page{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := d.http.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Page{}, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, d.maxBytes))
	if err != nil {
		return Page{}, fmt.Errorf("direct: parse html: %w", err)
	}
	content := HTMLText(doc)
	if content == "" {
		return Page{}, ErrEmptyContent
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	return Page{URL: u, Title: title, Content: content}, nil
}

// HTMLText renders headings, paragraphs and list items as markdown-ish text,
// preferring the <article> or <main> element when present.
func HTMLText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, footer, header, aside").Remove()
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	var parts []string
	root.Find("h1, h2, h3, h4, p, li, pre").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1":
			text = "# " + text
		case "h2":
			text = "## " + text
		case "h3", "h4":
			text = "### " + text
		case "li":
			text = "- " + text
		}
		parts = append(parts, text)
	})
	return strings.Join(parts, "\n\n")
}
