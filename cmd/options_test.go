//go:build !integration

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/pipeline"
	"github.com/sells-group/risk-cli/internal/resilience"
)

func TestBatchParams_DefaultsFromConfig(t *testing.T) {
	t.Parallel()

	opts, err := batchParams{}.options(testBatchConfig())
	require.NoError(t, err)
	assert.Equal(t, pipeline.Options{
		Strategy:          model.StrategyAuto,
		IncludeNews:       true,
		IncludeEnrichment: true,
		MaxConcurrent:     5,
	}, opts)
}

func TestBatchParams_Overrides(t *testing.T) {
	t.Parallel()

	opts, err := batchParams{
		AnalysisStrategy:  "hybrid",
		IncludeNews:       boolPtr(false),
		IncludeEnrichment: boolPtr(false),
		MaxConcurrent:     50,
		ColumnMapping:     &model.ColumnMapping{NameColumn: "empresa"},
	}.options(testBatchConfig())
	require.NoError(t, err)
	assert.Equal(t, model.StrategyHybrid, opts.Strategy)
	assert.False(t, opts.IncludeNews)
	assert.False(t, opts.IncludeEnrichment)
	assert.Equal(t, 50, opts.MaxConcurrent)
	assert.Equal(t, "empresa", opts.ColumnMapping.NameColumn)
}

func TestBatchParams_Invalid(t *testing.T) {
	t.Parallel()

	for _, p := range []batchParams{
		{AnalysisStrategy: "random"},
		{MaxConcurrent: 51},
		{MaxConcurrent: -2},
	} {
		_, err := p.options(testBatchConfig())
		require.Error(t, err)
		assert.Equal(t, resilience.KindBadRequest, resilience.KindOf(err))
	}
}
