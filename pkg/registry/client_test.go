package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acmePayload = `{
	"cnpj": "11222333000181",
	"razao_social": "ACME GESTORA DE RECURSOS LTDA",
	"nome_fantasia": "ACME",
	"descricao_situacao_cadastral": "ATIVA",
	"cnae_fiscal_descricao": "Gestão de fundos",
	"porte": "DEMAIS",
	"capital_social": 150000.5,
	"municipio": "SAO PAULO",
	"uf": "SP",
	"data_inicio_atividade": "2010-03-01",
	"ddd_telefone_1": "1133334444"
}`

func TestLookup_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cnpj/v1/11222333000181", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(acmePayload))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRatePerMinute(0))
	got, err := client.Lookup(context.Background(), "11.222.333/0001-81")

	require.NoError(t, err)
	assert.Equal(t, "ACME GESTORA DE RECURSOS LTDA", got.RazaoSocial)
	assert.Equal(t, "ATIVA", got.SituacaoCadastral)
	assert.Equal(t, "Gestão de fundos", got.CNAEDescricao)
	assert.InDelta(t, 150000.5, got.CapitalSocial, 1e-9)
	assert.Equal(t, "SP", got.UF)
	assert.Equal(t, "1133334444", got.Telefone)
}

func TestLookup_MissingCapitalDefaultsToZero(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"razao_social":"BETA LTDA"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRatePerMinute(0))
	got, err := client.Lookup(context.Background(), "22333444000172")

	require.NoError(t, err)
	assert.Zero(t, got.CapitalSocial)
	assert.Equal(t, "22333444000172", got.CNPJ)
}

func TestLookup_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"CNPJ não encontrado"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRatePerMinute(0))
	_, err := client.Lookup(context.Background(), "11222333000181")

	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 404, se.Code)
	assert.Equal(t, "registry returned 404", err.Error())
}

func TestLookup_EmptyCNPJ(t *testing.T) {
	t.Parallel()

	client := NewClient(WithBaseURL("http://127.0.0.1:1"))
	_, err := client.Lookup(context.Background(), "--")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty cnpj")
}

func TestLookup_BadJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRatePerMinute(0))
	_, err := client.Lookup(context.Background(), "11222333000181")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestLookup_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRatePerMinute(0))
	_, err := client.Lookup(context.Background(), "11222333000181")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request")
}

func TestLookup_RateLimiterHonorsContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(acmePayload))
	}))
	defer srv.Close()

	// One lookup per minute: the first goes through, the second must wait.
	client := NewClient(WithBaseURL(srv.URL), WithRatePerMinute(1))
	_, err := client.Lookup(context.Background(), "11222333000181")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Lookup(ctx, "11222333000181")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}
