package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/risk-cli/internal/detect"
	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/pkg/registry"
)

// Enricher resolves a tax ID to registry data. It never fails: lookup
// problems come back as a record with Success false and Error set.
type Enricher interface {
	Enrich(ctx context.Context, taxID string) model.CompanyRecord
}

// CompanyCache is the subset of the store the enricher needs.
type CompanyCache interface {
	GetCachedCompany(ctx context.Context, taxID string) (*model.CompanyRecord, error)
	SetCachedCompany(ctx context.Context, record model.CompanyRecord, ttl time.Duration) error
}

// RegistryEnricher looks tax IDs up in the public CNPJ registry, consulting
// an optional cache first.
type RegistryEnricher struct {
	client registry.Client
	cache  CompanyCache
	ttl    time.Duration
}

// NewRegistryEnricher creates an enricher. cache may be nil.
func NewRegistryEnricher(client registry.Client, cache CompanyCache, ttl time.Duration) *RegistryEnricher {
	return &RegistryEnricher{client: client, cache: cache, ttl: ttl}
}

// Enrich implements Enricher.
func (e *RegistryEnricher) Enrich(ctx context.Context, taxID string) model.CompanyRecord {
	digits := detect.Digits(taxID)
	log := zap.L().With(zap.String("cnpj", digits))

	if e.cache != nil && digits != "" {
		cached, err := e.cache.GetCachedCompany(ctx, digits)
		if err != nil {
			log.Warn("enrich: cache read failed", zap.Error(err))
		} else if cached != nil {
			log.Debug("enrich: cache hit")
			return *cached
		}
	}

	start := time.Now()
	company, err := e.client.Lookup(ctx, digits)
	if err != nil {
		rec := model.CompanyRecord{
			TaxID:   digits,
			Success: false,
			Error:   lookupError(err),
			Source:  model.SourceRegistry,
		}
		log.Warn("enrich: registry lookup failed",
			zap.String("error", rec.Error),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return rec
	}

	rec := FromRegistry(company)
	log.Debug("enrich: registry lookup complete",
		zap.String("status", rec.Status),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if e.cache != nil && e.ttl > 0 {
		if err := e.cache.SetCachedCompany(ctx, rec, e.ttl); err != nil {
			log.Warn("enrich: cache write failed", zap.Error(err))
		}
	}
	return rec
}

// FromRegistry maps a registry response onto a CompanyRecord.
func FromRegistry(c *registry.Company) model.CompanyRecord {
	return model.CompanyRecord{
		TaxID:           c.CNPJ,
		LegalName:       strings.TrimSpace(c.RazaoSocial),
		TradeName:       strings.TrimSpace(c.NomeFantasia),
		Status:          strings.TrimSpace(c.SituacaoCadastral),
		PrimaryActivity: c.CNAEDescricao,
		SizeClass:       c.Porte,
		DeclaredCapital: c.CapitalSocial,
		Municipality:    c.Municipio,
		State:           c.UF,
		OpenedAt:        c.DataInicio,
		Phone:           c.Telefone,
		Success:         true,
		Source:          model.SourceRegistry,
	}
}

func lookupError(err error) string {
	var se *registry.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("registry returned %d", se.Code)
	}
	return err.Error()
}
