package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathMatcher_IsExcluded(t *testing.T) {
	t.Parallel()
	m := NewPathMatcher([]string{"/video/*", "/*.pdf"})

	tests := []struct {
		name     string
		url      string
		excluded bool
	}{
		{"video page", "https://g1.globo.com/video/acme", true},
		{"video root", "https://g1.globo.com/video", true},
		{"video deep path", "https://g1.globo.com/video/2026/10/acme", true},
		{"pdf file", "https://cvm.gov.br/relatorio.pdf", true},
		{"article", "https://valor.globo.com/financas/noticia/acme.ghtml", false},
		{"homepage", "https://exame.com/", false},
		{"nested pdf in path", "https://cvm.gov.br/docs/relatorio.pdf", false},
		{"bad url", "://nope", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.excluded, m.IsExcluded(tt.url))
		})
	}
}

func TestPathMatcher_DefaultPatterns(t *testing.T) {
	t.Parallel()
	m := NewPathMatcher(nil)

	assert.Equal(t, defaultExcludePatterns, m.Patterns())
	assert.True(t, m.IsExcluded("https://g1.globo.com/podcast/episodio"))
	assert.True(t, m.IsExcluded("https://exame.com/videos/x"))
	assert.False(t, m.IsExcluded("https://exame.com/negocios/acme"))
}

func TestPathMatcher_CaseInsensitive(t *testing.T) {
	t.Parallel()
	m := NewPathMatcher([]string{"/Video/*"})
	assert.True(t, m.IsExcluded("https://g1.globo.com/VIDEO/acme"))
}
