package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/risk-cli/internal/pipeline"
	"github.com/sells-group/risk-cli/internal/scrape"
	"github.com/sells-group/risk-cli/internal/store"
	anthropicpkg "github.com/sells-group/risk-cli/pkg/anthropic"
	"github.com/sells-group/risk-cli/pkg/classifier"
	"github.com/sells-group/risk-cli/pkg/jina"
	"github.com/sells-group/risk-cli/pkg/news"
	"github.com/sells-group/risk-cli/pkg/registry"
)

// pipelineEnv holds the initialized clients and the pipeline needed by the
// batch, sql and serve commands.
type pipelineEnv struct {
	Store      store.Store // nil when the lookup cache is disabled
	Pipeline   *pipeline.Pipeline
	Classifier classifier.Classifier
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the config for mode, opens the lookup cache and
// builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	cls, err := initClassifier()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	var cache pipeline.CompanyCache
	if st != nil {
		pruneCache(ctx, st)
		cache = st
	}

	registryClient := registry.NewClient(
		registry.WithBaseURL(cfg.Registry.BaseURL),
		registry.WithRatePerMinute(cfg.Registry.RatePerMinute),
		registry.WithHTTPClient(&http.Client{Timeout: seconds(cfg.Registry.TimeoutSecs, 10)}),
	)
	enricher := pipeline.NewRegistryEnricher(registryClient, cache, time.Duration(cfg.Registry.CacheTTLHours)*time.Hour)

	// Article bodies: local extraction first, Jina Reader for blocked or thin pages.
	jinaClient := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
	articles := scrape.NewChain(scrape.NewPathMatcher(cfg.News.SkipPaths),
		scrape.NewLocalScraper(),
		scrape.NewJinaAdapter(jinaClient, scrape.WithBreaker(scrape.BreakerSettings{
			Threshold: cfg.Jina.FailureThreshold,
			Window:    seconds(cfg.Jina.FailureWindowSecs, 30),
			Cooldown:  seconds(cfg.Jina.CooldownSecs, 60),
		})),
	)
	searcher := pipeline.NewRSSNewsSearcher(
		news.NewClient(news.WithBaseURL(cfg.News.BaseURL)),
		articles,
		pipeline.NewsOptions{
			WindowDays: cfg.News.WindowDays,
			PerQuery:   cfg.News.PerQuery,
			MaxItems:   cfg.News.MaxItems,
			QueryDelay: time.Duration(cfg.News.QueryDelayMs) * time.Millisecond,
		},
	)

	zap.L().Info("pipeline initialized",
		zap.String("classifier", cls.Name()),
		zap.String("store", storeDriver()),
		zap.Int("registry_rate_per_minute", cfg.Registry.RatePerMinute),
	)

	return &pipelineEnv{
		Store:      st,
		Pipeline:   pipeline.New(enricher, searcher, pipeline.NewScorer(cls)),
		Classifier: cls,
	}, nil
}

// initStore opens and migrates the lookup cache. It returns a nil Store when
// the cache is disabled.
func initStore(ctx context.Context) (store.Store, error) {
	driver := storeDriver()
	if driver == "none" {
		zap.L().Debug("registry lookup cache disabled")
		return nil, nil
	}

	dsn := cfg.Store.DatabaseURL
	if driver == "sqlite" && dsn == "" {
		dsn = "risk-cli.db"
	}
	st, err := store.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	return st, nil
}

// pruneCache removes expired lookups. Failures are logged, not returned.
func pruneCache(ctx context.Context, st store.Store) int {
	n, err := st.DeleteExpiredCompanies(ctx)
	if err != nil {
		zap.L().Warn("prune expired cache entries failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		zap.L().Info("pruned expired cache entries", zap.Int("deleted", n))
	}
	return n
}

func storeDriver() string {
	if cfg.Store.Driver == "" {
		return "sqlite"
	}
	return cfg.Store.Driver
}

// initClassifier builds the configured classifier backend.
func initClassifier() (classifier.Classifier, error) {
	switch cfg.Classifier.Provider {
	case "", "http":
		return classifier.NewHTTP(
			classifier.WithBaseURL(cfg.Classifier.BaseURL),
			classifier.WithTimeout(seconds(cfg.Classifier.TimeoutSecs, 30)),
		), nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("anthropic key is required (RISK_ANTHROPIC_KEY)")
		}
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		return classifier.NewAnthropic(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil
	default:
		return nil, eris.Errorf("unsupported classifier provider: %s", cfg.Classifier.Provider)
	}
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
