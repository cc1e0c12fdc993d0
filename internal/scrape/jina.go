package scrape

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/risk-cli/pkg/jina"
)

// minReaderRunes is the shortest Jina body accepted as an article.
const minReaderRunes = 100

// paywallSignatures mark bot walls and subscriber gates. They only count on
// short bodies; a long article may quote any of them.
var paywallSignatures = []string{
	"exclusivo para assinantes",
	"assine para continuar",
	"conteúdo para assinantes",
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

// BreakerSettings controls when the Jina adapter stops taking article
// fetches. Threshold failures inside Window pause it for Cooldown.
type BreakerSettings struct {
	Threshold int
	Window    time.Duration
	Cooldown  time.Duration
}

// DefaultBreakerSettings matches the jina.* config defaults.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{Threshold: 3, Window: 30 * time.Second, Cooldown: time.Minute}
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	d := DefaultBreakerSettings()
	if s.Threshold < 1 {
		s.Threshold = d.Threshold
	}
	if s.Window <= 0 {
		s.Window = d.Window
	}
	if s.Cooldown <= 0 {
		s.Cooldown = d.Cooldown
	}
	return s
}

// JinaOption configures a JinaAdapter.
type JinaOption func(*JinaAdapter)

// WithBreaker overrides the failure breaker settings. Zero fields keep
// their defaults.
func WithBreaker(s BreakerSettings) JinaOption {
	return func(j *JinaAdapter) { j.breaker = s.withDefaults() }
}

// JinaAdapter reads article bodies through Jina Reader. After a run of
// failed reads it reports Supports=false so the chain skips it until the
// cooldown passes.
type JinaAdapter struct {
	client  jina.Client
	breaker BreakerSettings
	now     func() time.Time

	mu          sync.Mutex
	failures    int
	firstFailed time.Time
	pausedUntil time.Time
}

// NewJinaAdapter creates a JinaAdapter from a Jina client.
func NewJinaAdapter(client jina.Client, opts ...JinaOption) *JinaAdapter {
	j := &JinaAdapter{
		client:  client,
		breaker: DefaultBreakerSettings(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports reports whether the adapter is taking fetches.
func (j *JinaAdapter) Supports(_ string) bool {
	return !j.paused()
}

// Scrape reads a URL via Jina Reader and rejects empty or walled bodies.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if j.paused() {
		return nil, eris.New("jina: paused after repeated failures")
	}

	resp, err := j.client.Read(ctx, targetURL)
	if err != nil {
		j.observe(false)
		return nil, err
	}
	if needsFallback(resp) {
		j.observe(false)
		return nil, eris.New("jina: response needs fallback")
	}
	j.observe(true)

	pageURL := resp.Data.URL
	if pageURL == "" {
		pageURL = targetURL
	}
	return &Result{
		URL:        pageURL,
		Title:      resp.Data.Title,
		Text:       truncateRunes(strings.Join(strings.Fields(resp.Data.Content), " "), maxArticleRunes),
		StatusCode: resp.Code,
		Source:     "jina",
	}, nil
}

func (j *JinaAdapter) paused() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.now().Before(j.pausedUntil)
}

func (j *JinaAdapter) observe(ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if ok {
		j.failures = 0
		return
	}

	now := j.now()
	if j.failures == 0 || now.Sub(j.firstFailed) > j.breaker.Window {
		j.failures = 0
		j.firstFailed = now
	}
	j.failures++
	if j.failures < j.breaker.Threshold {
		return
	}

	j.pausedUntil = now.Add(j.breaker.Cooldown)
	j.failures = 0
	zap.L().Warn("scrape: jina paused",
		zap.Int("threshold", j.breaker.Threshold),
		zap.Time("until", j.pausedUntil),
	)
}

// needsFallback reports whether a Jina response lacks a usable article body.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil || (resp.Code != 0 && resp.Code != 200) {
		return true
	}

	content := strings.TrimSpace(resp.Data.Content)
	n := len([]rune(content))
	if n < minReaderRunes {
		return true
	}
	if n >= 10*minReaderRunes {
		return false
	}

	lower := strings.ToLower(content)
	for _, sig := range paywallSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
