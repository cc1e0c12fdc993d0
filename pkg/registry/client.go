// Package registry is a client for the BrasilAPI public company registry.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL       = "https://brasilapi.com.br"
	defaultTimeout       = 10 * time.Second
	defaultRatePerMinute = 60
)

var nonDigitRe = regexp.MustCompile(`\D`)

// Company is the subset of the BrasilAPI CNPJ payload used for enrichment.
type Company struct {
	CNPJ              string  `json:"cnpj"`
	RazaoSocial       string  `json:"razao_social"`
	NomeFantasia      string  `json:"nome_fantasia"`
	SituacaoCadastral string  `json:"descricao_situacao_cadastral"`
	CNAEDescricao     string  `json:"cnae_fiscal_descricao"`
	Porte             string  `json:"porte"`
	CapitalSocial     float64 `json:"capital_social"`
	Municipio         string  `json:"municipio"`
	UF                string  `json:"uf"`
	DataInicio        string  `json:"data_inicio_atividade"`
	Telefone          string  `json:"ddd_telefone_1"`
}

// StatusError is returned when the registry answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry returned %d", e.Code)
}

// Client looks up companies by CNPJ.
type Client interface {
	Lookup(ctx context.Context, cnpj string) (*Company, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRatePerMinute caps outgoing lookups. Zero or negative disables the cap.
func WithRatePerMinute(n int) Option {
	return func(c *httpClient) {
		if n <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a BrasilAPI registry client. The limiter is shared by
// every goroutine using the returned client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/defaultRatePerMinute), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, cnpj string) (*Company, error) {
	digits := nonDigitRe.ReplaceAllString(cnpj, "")
	if digits == "" {
		return nil, eris.New("registry: empty cnpj")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "registry: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/cnpj/v1/"+digits, nil)
	if err != nil {
		return nil, eris.Wrap(err, "registry: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "registry: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var company Company
	if err := json.Unmarshal(body, &company); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal response")
	}
	if company.CNPJ == "" {
		company.CNPJ = digits
	}
	return &company, nil
}
