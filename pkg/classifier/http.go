package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "http://127.0.0.1:8000"
	defaultTimeout = 30 * time.Second
)

// Option configures the HTTP classifier.
type Option func(*httpClassifier)

// WithBaseURL overrides the default service base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClassifier) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClassifier) {
		c.http = hc
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClassifier) {
		c.http.Timeout = d
	}
}

type httpClassifier struct {
	baseURL string
	http    *http.Client
}

// NewHTTP creates a classifier backed by a remote analyze-risk service.
func NewHTTP(opts ...Option) Classifier {
	c := &httpClassifier{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClassifier) Name() string { return "http" }

func (c *httpClassifier) Classify(ctx context.Context, text string) (*Verdict, error) {
	body, err := json.Marshal(map[string]any{
		"text":                text,
		"include_explanation": true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "classifier: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze-risk", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "classifier: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "classifier: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "classifier: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("classifier: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return decodeVerdict(respBody)
}
