package pipeline

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/scrape"
	"github.com/sells-group/risk-cli/pkg/news"
)

const maxNewsContentRunes = 500

// financialTerms add 0.1 each to an article's relevance when present in the
// title.
var financialTerms = []string{"fundo", "gestora", "investimento", "risco", "compliance", "cvm", "bacen"}

// knownSources maps publisher hosts to display names.
var knownSources = map[string]string{
	"g1.globo.com":     "G1",
	"valor.globo.com":  "Valor Econômico",
	"exame.com":        "Exame",
	"infomoney.com.br": "InfoMoney",
	"estadao.com.br":   "Estadão",
	"folha.uol.com.br": "Folha de S.Paulo",
	"cnnbrasil.com.br": "CNN Brasil",
}

// NewsSearcher finds recent news about a company. It never fails: search
// problems are logged and yield an empty list.
type NewsSearcher interface {
	Search(ctx context.Context, companyName string) []model.NewsItem
}

// ArticleFetcher fetches an article body. *scrape.Chain satisfies it.
type ArticleFetcher interface {
	Scrape(ctx context.Context, targetURL string) (*scrape.Result, error)
}

// NewsOptions tunes the RSS news search.
type NewsOptions struct {
	WindowDays int
	PerQuery   int
	MaxItems   int
	QueryDelay time.Duration
	Now        func() time.Time
}

func (o NewsOptions) withDefaults() NewsOptions {
	if o.WindowDays <= 0 {
		o.WindowDays = 30
	}
	if o.PerQuery <= 0 {
		o.PerQuery = 5
	}
	if o.MaxItems <= 0 {
		o.MaxItems = 5
	}
	if o.QueryDelay < 0 {
		o.QueryDelay = 0
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// RSSNewsSearcher queries a news RSS feed and fetches article bodies.
type RSSNewsSearcher struct {
	client   news.Client
	articles ArticleFetcher
	opts     NewsOptions
}

// NewRSSNewsSearcher creates a searcher. articles may be nil, in which case
// the feed description stands in for the article body.
func NewRSSNewsSearcher(client news.Client, articles ArticleFetcher, opts NewsOptions) *RSSNewsSearcher {
	return &RSSNewsSearcher{client: client, articles: articles, opts: opts.withDefaults()}
}

// Search implements NewsSearcher.
func (s *RSSNewsSearcher) Search(ctx context.Context, companyName string) []model.NewsItem {
	name := strings.TrimSpace(companyName)
	if name == "" {
		return []model.NewsItem{}
	}
	log := zap.L().With(zap.String("company", name))
	start := time.Now()

	queries := []string{`"` + name + `"`, name + " fundo"}
	cutoff := s.opts.Now().AddDate(0, 0, -s.opts.WindowDays)
	seen := make(map[string]bool)
	var found []newsCandidate

	for i, q := range queries {
		if i > 0 && s.opts.QueryDelay > 0 {
			select {
			case <-ctx.Done():
				log.Warn("news: search cancelled", zap.Error(ctx.Err()))
				return s.withContent(ctx, rankNews(found, s.opts.MaxItems))
			case <-time.After(s.opts.QueryDelay):
			}
		}

		items, err := s.client.Search(ctx, q, s.opts.PerQuery)
		if err != nil {
			log.Warn("news: query failed", zap.String("query", q), zap.Error(err))
			continue
		}

		for _, it := range items {
			if pub, ok := it.Published(); ok && pub.Before(cutoff) {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(it.Title))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			found = append(found, newsCandidate{feed: it, item: feedNewsItem(it, name)})
		}
	}

	// Bodies are fetched only for items that survive the cap.
	out := s.withContent(ctx, rankNews(found, s.opts.MaxItems))
	log.Debug("news: search complete",
		zap.Int("candidates", len(found)),
		zap.Int("items", len(out)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return out
}

type newsCandidate struct {
	feed news.Item
	item model.NewsItem
}

// feedNewsItem fills everything that comes from the feed entry itself.
func feedNewsItem(it news.Item, companyName string) model.NewsItem {
	item := model.NewsItem{
		Title:      it.Title,
		URL:        it.Link,
		SourceName: sourceName(it),
		Relevance:  Relevance(it.Title, companyName),
	}
	if pub, ok := it.Published(); ok {
		item.PublishedAt = pub.Format(time.RFC3339)
	} else {
		item.PublishedAt = it.PubDate
	}
	return item
}

func (s *RSSNewsSearcher) withContent(ctx context.Context, ranked []newsCandidate) []model.NewsItem {
	out := make([]model.NewsItem, 0, len(ranked))
	for _, c := range ranked {
		c.item.Content = s.articleContent(ctx, c.feed)
		out = append(out, c.item)
	}
	return out
}

func (s *RSSNewsSearcher) articleContent(ctx context.Context, it news.Item) string {
	var content string
	if s.articles != nil {
		res, err := s.articles.Scrape(ctx, it.Link)
		if err != nil {
			zap.L().Debug("news: article fetch failed", zap.String("url", it.Link), zap.Error(err))
		} else if res != nil {
			content = res.Text
		}
	}
	if content == "" {
		content = scrape.StripHTML(it.Description)
	}
	if content == "" {
		content = "Notícia financeira: " + it.Title
	}
	return truncateContent(content)
}

// Relevance scores how closely a headline matches a company name: 1.0 when
// the whole name appears, otherwise the share of name words longer than three
// characters found in the title, plus 0.1 per financial term. Capped at 1.
func Relevance(title, companyName string) float64 {
	t := strings.ToLower(title)
	n := strings.ToLower(strings.TrimSpace(companyName))
	if t == "" || n == "" {
		return 0
	}

	var score float64
	if strings.Contains(t, n) {
		score = 1
	} else {
		var words, hits int
		for _, w := range strings.Fields(n) {
			if len([]rune(w)) <= 3 {
				continue
			}
			words++
			if strings.Contains(t, w) {
				hits++
			}
		}
		if words > 0 {
			score = float64(hits) / float64(words)
		}
	}

	for _, term := range financialTerms {
		if strings.Contains(t, term) {
			score += 0.1
		}
	}
	return min(score, 1)
}

// sourceName prefers the publisher named by the feed's <source> element
// over the item link, which for aggregators points at the aggregator.
func sourceName(it news.Item) string {
	for _, raw := range []string{it.Source.URL, it.Link} {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		for known, name := range knownSources {
			if host == known || strings.HasSuffix(host, "."+known) {
				return name
			}
		}
		if it.Source.Name != "" {
			return it.Source.Name
		}
		return host
	}
	return it.Source.Name
}

func truncateContent(s string) string {
	r := []rune(s)
	if len(r) <= maxNewsContentRunes {
		return s
	}
	return string(r[:maxNewsContentRunes]) + "..."
}

// rankNews orders candidates by relevance, stable on feed order, and keeps
// the first limit.
func rankNews(found []newsCandidate, limit int) []newsCandidate {
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].item.Relevance > found[j].item.Relevance
	})
	if len(found) > limit {
		found = found[:limit]
	}
	return found
}
