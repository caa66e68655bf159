// Package scrape fetches page content for the topic-driven blog scrape.
package scrape

import (
	"context"
	"errors"
	"fmt"
)

// Page is the text content of one scraped URL.
type Page struct {
	URL     string
	Title   string
	Content string
}

// Scraper fetches the readable content of a page.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, url string) (Page, error)
}

// ErrEmptyContent means the page was fetched but carried no text.
var ErrEmptyContent = errors.New("scrape: empty content")

// StatusError is a non-2xx answer from the page or the proxy.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scrape: status %d: %s", e.Code, e.Body)
}

// IsFailedFetch reports errors that mean the page could not be read,
// as opposed to transport errors or timeouts.
func IsFailedFetch(err error) bool {
	var se *StatusError
	return errors.As(err, &se) || errors.Is(err, ErrEmptyContent)
}
