package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/scrape"
	"github.com/sells-group/risk-cli/pkg/classifier"
	"github.com/sells-group/risk-cli/pkg/news"
	"github.com/sells-group/risk-cli/pkg/registry"
)

// --- Registry Mock ---

type mockRegistryClient struct {
	mock.Mock
}

func (m *mockRegistryClient) Lookup(ctx context.Context, cnpj string) (*registry.Company, error) {
	args := m.Called(ctx, cnpj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registry.Company), args.Error(1)
}

// --- Cache Mock ---

type mockCompanyCache struct {
	mock.Mock
}

func (m *mockCompanyCache) GetCachedCompany(ctx context.Context, taxID string) (*model.CompanyRecord, error) {
	args := m.Called(ctx, taxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CompanyRecord), args.Error(1)
}

func (m *mockCompanyCache) SetCachedCompany(ctx context.Context, record model.CompanyRecord, ttl time.Duration) error {
	args := m.Called(ctx, record, ttl)
	return args.Error(0)
}

// --- News Feed Mock ---

type mockNewsClient struct {
	mock.Mock
}

func (m *mockNewsClient) Search(ctx context.Context, query string, limit int) ([]news.Item, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]news.Item), args.Error(1)
}

// --- Article Fetcher Mock ---

type mockArticleFetcher struct {
	mock.Mock
}

func (m *mockArticleFetcher) Scrape(ctx context.Context, targetURL string) (*scrape.Result, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scrape.Result), args.Error(1)
}

// --- Classifier Mock ---

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, text string) (*classifier.Verdict, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*classifier.Verdict), args.Error(1)
}

func (m *mockClassifier) Name() string { return "mock" }

// --- Stage Mocks ---

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) Enrich(ctx context.Context, taxID string) model.CompanyRecord {
	args := m.Called(ctx, taxID)
	return args.Get(0).(model.CompanyRecord)
}

type mockNewsSearcher struct {
	mock.Mock
}

func (m *mockNewsSearcher) Search(ctx context.Context, companyName string) []model.NewsItem {
	args := m.Called(ctx, companyName)
	return args.Get(0).([]model.NewsItem)
}

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) Score(ctx context.Context, company model.CompanyRecord, items []model.NewsItem, group model.Group) model.RiskAssessment {
	args := m.Called(ctx, company, items, group)
	return args.Get(0).(model.RiskAssessment)
}
