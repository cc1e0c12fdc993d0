// Package news searches the Google News RSS feed.
package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	defaultBaseURL = "https://news.google.com"
	defaultTimeout = 10 * time.Second
	feedLocale     = "hl=pt-BR&gl=BR&ceid=BR:pt-419"
)

// Item is a single RSS entry.
type Item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
	Source      Source `xml:"source"`
}

// Source is the publisher element Google attaches to each entry.
type Source struct {
	URL  string `xml:"url,attr"`
	Name string `xml:",chardata"`
}

// Published parses PubDate. ok is false when the date is missing or in an
// unrecognized layout.
func (i Item) Published() (time.Time, bool) {
	s := strings.TrimSpace(i.PubDate)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type feed struct {
	Channel struct {
		Items []Item `xml:"item"`
	} `xml:"channel"`
}

// Client searches a news feed.
type Client interface {
	Search(ctx context.Context, query string, limit int) ([]Item, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default feed base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Google News RSS client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, limit int) ([]Item, error) {
	reqURL := fmt.Sprintf("%s/rss/search?q=%s&%s", c.baseURL, url.QueryEscape(query), feedLocale)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "news: create request")
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "news: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, eris.Errorf("news: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	items, err := Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Parse decodes an RSS document, honoring the declared charset. Entries
// without a title or link are dropped.
func Parse(r io.Reader) ([]Item, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "news: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var f feed
	if err := decoder.Decode(&f); err != nil {
		return nil, eris.Wrap(err, "news: decode feed")
	}

	items := make([]Item, 0, len(f.Channel.Items))
	for _, it := range f.Channel.Items {
		it.Title = strings.TrimSpace(it.Title)
		it.Link = strings.TrimSpace(it.Link)
		if it.Title == "" || it.Link == "" {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}
