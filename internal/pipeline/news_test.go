package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/risk-cli/internal/scrape"
	"github.com/sells-group/risk-cli/pkg/news"
)

var newsNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newsOpts() NewsOptions {
	return NewsOptions{Now: func() time.Time { return newsNow }}
}

func feedItem(title, link string, age time.Duration) news.Item {
	return news.Item{
		Title:       title,
		Link:        link,
		PubDate:     newsNow.Add(-age).Format(time.RFC1123Z),
		Description: "<p>" + title + "</p>",
	}
}

func TestRSSNewsSearcher_Search(t *testing.T) {
	client := &mockNewsClient{}
	client.On("Search", mock.Anything, `"Acme Gestora"`, 5).Return([]news.Item{
		feedItem("Acme Gestora recebe multa da CVM", "https://valor.globo.com/a", 24*time.Hour),
		feedItem("Mercado fecha em alta", "https://g1.globo.com/b", 48*time.Hour),
		feedItem("Acme Gestora antiga", "https://exame.com/c", 60*24*time.Hour),
	}, nil)
	client.On("Search", mock.Anything, "Acme Gestora fundo", 5).Return([]news.Item{
		feedItem("ACME GESTORA RECEBE MULTA DA CVM", "https://valor.globo.com/dup", time.Hour),
		feedItem("Fundo da Acme capta R$ 1 bi", "https://www.infomoney.com.br/d", time.Hour),
	}, nil)

	articles := &mockArticleFetcher{}
	articles.On("Scrape", mock.Anything, "https://valor.globo.com/a").
		Return(&scrape.Result{Text: strings.Repeat("x", 600)}, nil)
	articles.On("Scrape", mock.Anything, mock.Anything).Return(nil, errors.New("blocked"))

	s := NewRSSNewsSearcher(client, articles, newsOpts())
	got := s.Search(context.Background(), "Acme Gestora")

	require.Len(t, got, 3)

	assert.Equal(t, "Acme Gestora recebe multa da CVM", got[0].Title)
	assert.InDelta(t, 1.0, got[0].Relevance, 1e-9)
	assert.Equal(t, "Valor Econômico", got[0].SourceName)
	assert.Len(t, []rune(got[0].Content), 503)
	assert.True(t, strings.HasSuffix(got[0].Content, "..."))

	// 1/2 name words + "fundo" bonus.
	assert.Equal(t, "Fundo da Acme capta R$ 1 bi", got[1].Title)
	assert.InDelta(t, 0.6, got[1].Relevance, 1e-9)
	assert.Equal(t, "InfoMoney", got[1].SourceName)
	assert.Equal(t, "Fundo da Acme capta R$ 1 bi", got[1].Content)

	assert.Equal(t, "Mercado fecha em alta", got[2].Title)
	assert.Zero(t, got[2].Relevance)
	assert.Equal(t, "G1", got[2].SourceName)

	client.AssertExpectations(t)
}

func TestRSSNewsSearcher_CapsAndSorts(t *testing.T) {
	var items []news.Item
	for i := range 5 {
		items = append(items, feedItem(strings.Repeat("z", i+1)+" Beta", "https://example.com/"+strings.Repeat("z", i+1), time.Hour))
	}
	items = append(items, feedItem("Beta Holdings investigada", "https://example.com/top", time.Hour))

	client := &mockNewsClient{}
	client.On("Search", mock.Anything, mock.Anything, 5).Return(items, nil).Once()
	client.On("Search", mock.Anything, mock.Anything, 5).Return([]news.Item{}, nil).Once()

	got := NewRSSNewsSearcher(client, nil, newsOpts()).Search(context.Background(), "Beta Holdings")

	require.Len(t, got, 5)
	assert.Equal(t, "Beta Holdings investigada", got[0].Title)
	assert.Equal(t, "example.com", got[0].SourceName)
}

func TestRSSNewsSearcher_FetchesOnlyKeptArticles(t *testing.T) {
	client := &mockNewsClient{}
	client.On("Search", mock.Anything, `"Beta Holdings"`, 5).Return([]news.Item{
		feedItem("Mercado fecha em alta", "https://g1.globo.com/a", time.Hour),
		feedItem("Beta Holdings investigada", "https://exame.com/b", time.Hour),
		feedItem("Dólar recua", "https://g1.globo.com/c", time.Hour),
	}, nil)
	client.On("Search", mock.Anything, "Beta Holdings fundo", 5).Return([]news.Item{
		feedItem("Fundo da Beta capta", "https://valor.globo.com/d", time.Hour),
	}, nil)

	articles := &mockArticleFetcher{}
	articles.On("Scrape", mock.Anything, "https://exame.com/b").Return(&scrape.Result{Text: "corpo b"}, nil).Once()
	articles.On("Scrape", mock.Anything, "https://valor.globo.com/d").Return(&scrape.Result{Text: "corpo d"}, nil).Once()

	opts := newsOpts()
	opts.MaxItems = 2
	got := NewRSSNewsSearcher(client, articles, opts).Search(context.Background(), "Beta Holdings")

	require.Len(t, got, 2)
	assert.Equal(t, "corpo b", got[0].Content)
	assert.Equal(t, "corpo d", got[1].Content)
	articles.AssertExpectations(t)
	articles.AssertNumberOfCalls(t, "Scrape", 2)
}

func TestRSSNewsSearcher_QueryErrorsDegrade(t *testing.T) {
	client := &mockNewsClient{}
	client.On("Search", mock.Anything, `"Acme"`, 5).Return(nil, errors.New("news: unexpected status 503"))
	client.On("Search", mock.Anything, "Acme fundo", 5).Return(nil, errors.New("news: unexpected status 503"))

	got := NewRSSNewsSearcher(client, nil, newsOpts()).Search(context.Background(), "Acme")

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRSSNewsSearcher_EmptyName(t *testing.T) {
	client := &mockNewsClient{}
	got := NewRSSNewsSearcher(client, nil, newsOpts()).Search(context.Background(), "  ")
	assert.Empty(t, got)
	client.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestRSSNewsSearcher_UnparseableDateKept(t *testing.T) {
	item := feedItem("Acme sob investigação", "https://estadao.com.br/x", 0)
	item.PubDate = "ontem"
	item.Description = ""

	client := &mockNewsClient{}
	client.On("Search", mock.Anything, mock.Anything, 5).Return([]news.Item{item}, nil)

	got := NewRSSNewsSearcher(client, nil, newsOpts()).Search(context.Background(), "Acme")

	require.Len(t, got, 1)
	assert.Equal(t, "ontem", got[0].PublishedAt)
	assert.Equal(t, "Estadão", got[0].SourceName)
	assert.Equal(t, "Notícia financeira: Acme sob investigação", got[0].Content)
}

func TestRSSNewsSearcher_DelayHonoursCancel(t *testing.T) {
	client := &mockNewsClient{}
	client.On("Search", mock.Anything, `"Acme"`, 5).Return([]news.Item{
		feedItem("Acme em destaque", "https://exame.com/a", time.Hour),
	}, nil)

	opts := newsOpts()
	opts.QueryDelay = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	got := NewRSSNewsSearcher(client, nil, opts).Search(ctx, "Acme")

	require.Len(t, got, 1)
	client.AssertNumberOfCalls(t, "Search", 1)
}

func TestRelevance(t *testing.T) {
	tests := []struct {
		name, title, company string
		want                 float64
	}{
		{"full name", "Acme Gestora anuncia resultado", "Acme Gestora", 1.0},
		{"full name capped", "Acme Gestora: fundo, risco e CVM", "Acme Gestora", 1.0},
		{"partial words plus term", "Gestora Acme anuncia", "Acme Gestora Ltda", 2.0/3.0 + 0.1},
		{"short words ignored", "Banco XP cresce", "XP SA", 0},
		{"financial bonus only", "Risco de mercado e compliance", "Beta Holdings", 0.2},
		{"empty title", "", "Acme", 0},
		{"empty name", "Acme", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Relevance(tt.title, tt.company), 1e-9)
		})
	}
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		item news.Item
		want string
	}{
		{news.Item{Link: "https://g1.globo.com/economia/x"}, "G1"},
		{news.Item{Link: "https://www.folha.uol.com.br/x"}, "Folha de S.Paulo"},
		{news.Item{Link: "https://news.google.com/rss/articles/x", Source: news.Source{URL: "https://www.cnnbrasil.com.br", Name: "CNN Brasil"}}, "CNN Brasil"},
		{news.Item{Link: "https://news.google.com/rss/articles/x", Source: news.Source{URL: "https://www.bloomberglinea.com.br", Name: "Bloomberg Línea"}}, "Bloomberg Línea"},
		{news.Item{Link: "https://www.neofeed.com.br/x"}, "neofeed.com.br"},
		{news.Item{Link: "::bad"}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sourceName(tt.item), tt.item.Link)
	}
}
