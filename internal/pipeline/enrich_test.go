package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/pkg/registry"
)

func acmeCompany() *registry.Company {
	return &registry.Company{
		CNPJ:              "11222333000181",
		RazaoSocial:       "ACME GESTORA DE RECURSOS LTDA",
		NomeFantasia:      "ACME",
		SituacaoCadastral: "ATIVA",
		CNAEDescricao:     "Gestão de fundos para fins previdenciários",
		Porte:             "DEMAIS",
		CapitalSocial:     150000,
		Municipio:         "SAO PAULO",
		UF:                "SP",
		DataInicio:        "2010-03-01",
		Telefone:          "1133334444",
	}
}

func TestRegistryEnricher_Success(t *testing.T) {
	client := &mockRegistryClient{}
	client.On("Lookup", mock.Anything, "11222333000181").Return(acmeCompany(), nil)

	rec := NewRegistryEnricher(client, nil, 0).Enrich(context.Background(), "11.222.333/0001-81")

	assert.True(t, rec.Success)
	assert.True(t, rec.FromRegistry())
	assert.Equal(t, "ACME GESTORA DE RECURSOS LTDA", rec.LegalName)
	assert.Equal(t, "ATIVA", rec.Status)
	assert.InDelta(t, 150000.0, rec.DeclaredCapital, 1e-9)
	assert.Equal(t, "SAO PAULO/SP", rec.Location())
	assert.Equal(t, "2010-03-01", rec.OpenedAt)
	client.AssertExpectations(t)
}

func TestRegistryEnricher_StatusError(t *testing.T) {
	client := &mockRegistryClient{}
	client.On("Lookup", mock.Anything, "11222333000181").
		Return(nil, &registry.StatusError{Code: 404, Body: "not found"})

	rec := NewRegistryEnricher(client, nil, 0).Enrich(context.Background(), "11222333000181")

	assert.False(t, rec.Success)
	assert.Equal(t, "registry returned 404", rec.Error)
	assert.Equal(t, "11222333000181", rec.TaxID)
}

func TestRegistryEnricher_TransportError(t *testing.T) {
	client := &mockRegistryClient{}
	client.On("Lookup", mock.Anything, "11222333000181").Return(nil, errors.New("dial tcp: i/o timeout"))

	rec := NewRegistryEnricher(client, nil, 0).Enrich(context.Background(), "11222333000181")

	assert.False(t, rec.Success)
	assert.Contains(t, rec.Error, "i/o timeout")
}

func TestRegistryEnricher_CacheHit(t *testing.T) {
	cached := FromRegistry(acmeCompany())
	cache := &mockCompanyCache{}
	cache.On("GetCachedCompany", mock.Anything, "11222333000181").Return(&cached, nil)
	client := &mockRegistryClient{}

	rec := NewRegistryEnricher(client, cache, time.Hour).Enrich(context.Background(), "11.222.333/0001-81")

	assert.Equal(t, cached, rec)
	client.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestRegistryEnricher_CacheMissStoresSuccess(t *testing.T) {
	cache := &mockCompanyCache{}
	cache.On("GetCachedCompany", mock.Anything, "11222333000181").Return(nil, nil)
	cache.On("SetCachedCompany", mock.Anything, mock.MatchedBy(func(r model.CompanyRecord) bool {
		return r.TaxID == "11222333000181" && r.Success
	}), 24*time.Hour).Return(nil)
	client := &mockRegistryClient{}
	client.On("Lookup", mock.Anything, "11222333000181").Return(acmeCompany(), nil)

	rec := NewRegistryEnricher(client, cache, 24*time.Hour).Enrich(context.Background(), "11222333000181")

	require.True(t, rec.Success)
	cache.AssertExpectations(t)
}

func TestRegistryEnricher_FailureNotCached(t *testing.T) {
	cache := &mockCompanyCache{}
	cache.On("GetCachedCompany", mock.Anything, "11222333000181").Return(nil, errors.New("database is locked"))
	client := &mockRegistryClient{}
	client.On("Lookup", mock.Anything, "11222333000181").Return(nil, &registry.StatusError{Code: 500})

	rec := NewRegistryEnricher(client, cache, time.Hour).Enrich(context.Background(), "11222333000181")

	assert.False(t, rec.Success)
	cache.AssertNotCalled(t, "SetCachedCompany", mock.Anything, mock.Anything, mock.Anything)
}
