package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/risk-cli/pkg/jina"
)

type mockJinaClient struct {
	mock.Mock
}

func (m *mockJinaClient) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.ReadResponse), args.Error(1)
}

var longArticle = strings.Repeat("A Acme Gestora de Recursos foi alvo de processo administrativo na CVM. ", 5)

func TestJinaAdapter_NameAndSupports(t *testing.T) {
	t.Parallel()
	adapter := NewJinaAdapter(&mockJinaClient{})
	assert.Equal(t, "jina", adapter.Name())
	assert.True(t, adapter.Supports("https://exame.com/a"))
}

func TestJinaAdapter_Scrape_Success(t *testing.T) {
	t.Parallel()
	client := &mockJinaClient{}
	client.On("Read", mock.Anything, "https://exame.com/a").Return(&jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{Title: "Acme", Content: "  " + longArticle + "\n\n"},
	}, nil)

	result, err := NewJinaAdapter(client).Scrape(context.Background(), "https://exame.com/a")
	require.NoError(t, err)
	assert.Equal(t, "jina", result.Source)
	assert.Equal(t, "https://exame.com/a", result.URL)
	assert.Equal(t, "Acme", result.Title)
	assert.Equal(t, strings.TrimSpace(longArticle), result.Text)
	client.AssertExpectations(t)
}

func TestJinaAdapter_Scrape_TruncatesLongText(t *testing.T) {
	t.Parallel()
	client := &mockJinaClient{}
	client.On("Read", mock.Anything, mock.Anything).Return(&jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{Content: strings.Repeat("palavra ", 1000)},
	}, nil)

	result, err := NewJinaAdapter(client).Scrape(context.Background(), "https://exame.com/a")
	require.NoError(t, err)
	assert.Len(t, []rune(result.Text), maxArticleRunes)
}

func TestJinaAdapter_Scrape_ClientError(t *testing.T) {
	t.Parallel()
	client := &mockJinaClient{}
	client.On("Read", mock.Anything, "https://fail.com").Return(nil, errors.New("connection refused"))

	_, err := NewJinaAdapter(client).Scrape(context.Background(), "https://fail.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestJinaAdapter_PausesAfterRepeatedFailures(t *testing.T) {
	t.Parallel()
	client := &mockJinaClient{}
	client.On("Read", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Times(3)

	adapter := NewJinaAdapter(client)
	for range 3 {
		_, err := adapter.Scrape(context.Background(), "https://exame.com/a")
		require.Error(t, err)
	}

	assert.False(t, adapter.Supports("https://exame.com/a"))
	_, err := adapter.Scrape(context.Background(), "https://exame.com/a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paused after repeated failures")
	client.AssertNumberOfCalls(t, "Read", 3)
}

func TestJinaAdapter_BreakerSettings(t *testing.T) {
	t.Parallel()
	client := &mockJinaClient{}
	client.On("Read", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	clock := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	adapter := NewJinaAdapter(client, WithBreaker(BreakerSettings{
		Threshold: 2,
		Window:    10 * time.Second,
		Cooldown:  5 * time.Minute,
	}))
	adapter.now = func() time.Time { return clock }
	scrapeAt := func(d time.Duration) {
		clock = clock.Add(d)
		_, err := adapter.Scrape(context.Background(), "https://valor.globo.com/a")
		require.Error(t, err)
	}

	// Failures spread wider than the window never trip.
	scrapeAt(0)
	scrapeAt(11 * time.Second)
	assert.True(t, adapter.Supports(""))

	scrapeAt(time.Second)
	assert.False(t, adapter.Supports(""))

	clock = clock.Add(4 * time.Minute)
	assert.False(t, adapter.Supports(""))
	clock = clock.Add(time.Minute)
	assert.True(t, adapter.Supports(""))
	client.AssertNumberOfCalls(t, "Read", 3)
}

func TestJinaAdapter_SuccessResetsFailures(t *testing.T) {
	t.Parallel()
	client := &mockJinaClient{}
	client.On("Read", mock.Anything, "https://fail.com").Return(nil, errors.New("timeout"))
	client.On("Read", mock.Anything, "https://ok.com").Return(&jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{Content: longArticle},
	}, nil)

	adapter := NewJinaAdapter(client)
	ctx := context.Background()
	for _, u := range []string{"https://fail.com", "https://fail.com", "https://ok.com", "https://fail.com", "https://fail.com"} {
		_, _ = adapter.Scrape(ctx, u)
	}
	assert.True(t, adapter.Supports("https://fail.com"))
}

func TestBreakerSettings_WithDefaults(t *testing.T) {
	t.Parallel()
	got := BreakerSettings{Cooldown: time.Second}.withDefaults()
	assert.Equal(t, BreakerSettings{Threshold: 3, Window: 30 * time.Second, Cooldown: time.Second}, got)
}

func TestNeedsFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *jina.ReadResponse
		want bool
	}{
		{"nil response", nil, true},
		{"non-200 code", &jina.ReadResponse{Code: 403}, true},
		{"short content", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "too short"}}, true},
		{
			"paywall in short content",
			&jina.ReadResponse{Code: 200, Data: jina.ReadData{
				Content: "Conteúdo exclusivo para assinantes. Assine para continuar lendo esta reportagem do jornal.",
			}},
			true,
		},
		{"valid long content", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: longArticle}}, false},
		{"code 0 is acceptable", &jina.ReadResponse{Data: jina.ReadData{Content: longArticle}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, needsFallback(tt.resp))
		})
	}
}
