package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

const (
	maxBodyBytes    = 512 * 1024
	minArticleRunes = 200
	maxArticleRunes = 2000
)

// siteContainers maps publisher hosts to the class of their article body.
var siteContainers = map[string]string{
	"valor.globo.com": "content-text__container",
	"g1.globo.com":    "mc-article-body",
	"exame.com":       "article-content",
}

// skipTags never contribute article text.
var skipTags = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "aside": true, "noscript": true, "form": true,
}

// LocalScraper fetches HTML via net/http, detects blocks, and extracts the
// article body. Falls through to Jina when blocked or when the page is thin.
type LocalScraper struct {
	client *http.Client
}

// NewLocalScraper creates a LocalScraper with sensible defaults.
func NewLocalScraper() *LocalScraper {
	return &LocalScraper{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL, detects blocks and extracts the article text.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; RiskBot/1.0)")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", blockType)
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	utf8Body, err := charset.NewReader(bytes.NewReader(body), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: decode charset")
	}
	doc, err := html.Parse(utf8Body)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: parse html")
	}

	// resp.Request carries the final URL after redirects.
	finalURL := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	text := ExtractArticle(doc, finalURL)
	if len([]rune(text)) <= minArticleRunes {
		return nil, eris.New("local_http: thin content")
	}

	return &Result{
		URL:        finalURL,
		Title:      findTitle(doc),
		Text:       truncateRunes(text, maxArticleRunes),
		StatusCode: resp.StatusCode,
		Source:     "local_http",
	}, nil
}

// ExtractArticle returns the whitespace-collapsed text of the article body:
// the publisher-specific container when the host is known, else the first
// <article>, else the first <main>.
func ExtractArticle(doc *html.Node, pageURL string) string {
	var root *html.Node
	if u, err := url.Parse(pageURL); err == nil {
		for host, class := range siteContainers {
			if strings.HasSuffix(u.Hostname(), host) {
				root = findNode(doc, func(n *html.Node) bool {
					return n.Data == "div" && hasClass(n, class)
				})
				break
			}
		}
	}
	for _, tag := range []string{"article", "main"} {
		if root != nil {
			break
		}
		root = findNode(doc, func(n *html.Node) bool { return n.Data == tag })
	}
	if root == nil {
		return ""
	}

	var buf strings.Builder
	collectText(root, &buf)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func collectText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.ElementNode && skipTags[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
		buf.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, buf)
	}
}

func findTitle(doc *html.Node) string {
	n := findNode(doc, func(n *html.Node) bool { return n.Data == "title" })
	if n == nil || n.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(n.FirstChild.Data)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// StripHTML returns the whitespace-collapsed text of an HTML fragment, such
// as an RSS description.
func StripHTML(fragment string) string {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	var buf strings.Builder
	for _, n := range nodes {
		collectText(n, &buf)
	}
	return strings.Join(strings.Fields(buf.String()), " ")
}
