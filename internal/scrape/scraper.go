// Package scrape fetches news articles and reduces them to plain text,
// falling back from a local HTML extractor to the Jina reader.
package scrape

import "context"

// Result holds the extracted text of one article.
type Result struct {
	URL        string
	Title      string
	Text       string
	StatusCode int
	Source     string // e.g. "local_http", "jina"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
