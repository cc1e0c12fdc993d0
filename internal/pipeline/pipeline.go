// Package pipeline routes classified batch items to the registry, news and
// classifier collaborators and compiles the outcome into a report.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/risk-cli/internal/detect"
	"github.com/sells-group/risk-cli/internal/model"
)

// DefaultMaxConcurrent bounds in-flight items when Options leaves it unset.
const DefaultMaxConcurrent = 5

// Per-item messages.
const (
	msgUnclassifiable = "unable to classify input"
	msgNoNews         = "no news found"
	msgNameMismatch   = "supplied name differs from the registry legal name"
)

// Options configures one batch run.
type Options struct {
	Strategy          model.Strategy
	IncludeNews       bool
	IncludeEnrichment bool
	MaxConcurrent     int
	ColumnMapping     model.ColumnMapping
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = model.StrategyAuto
	}
	if o.MaxConcurrent < 1 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	return o
}

// Pipeline runs batches. Its collaborators are shared by every worker and
// must be safe for concurrent use.
type Pipeline struct {
	enricher Enricher
	news     NewsSearcher
	scorer   RiskScorer
	now      func() time.Time
}

// New creates a Pipeline. news may be nil when news search is never
// requested.
func New(enricher Enricher, news NewsSearcher, scorer RiskScorer) *Pipeline {
	return &Pipeline{
		enricher: enricher,
		news:     news,
		scorer:   scorer,
		now:      time.Now,
	}
}

// Run classifies, routes and processes every raw item and compiles the
// report. It never fails: per-item problems are recorded on the item's
// result, and the report always has one result per input, in input order.
func (p *Pipeline) Run(ctx context.Context, raw []model.RawItem, opts Options) *model.BatchReport {
	opts = opts.withDefaults()
	started := p.now()
	batchID := uuid.New().String()
	log := zap.L().With(zap.String("batch_id", batchID))

	items := detect.Parse(raw, opts.ColumnMapping)
	routing := Route(items, opts.Strategy)
	log.Info("pipeline: batch routed",
		zap.Int("items", len(items)),
		zap.String("strategy_requested", string(routing.Requested)),
		zap.String("strategy_resolved", string(routing.Resolved)),
		zap.Int("tax_id_count", routing.TaxIDCount),
		zap.Int("name_count", routing.NameCount),
		zap.Any("distribution", routing.Distribution()),
	)

	results := make([]model.BatchResult, len(items))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxConcurrent)
	for i := range items {
		g.Go(func() error {
			results[i] = p.processItem(gCtx, items[i], routing.Assignments[i], opts)
			return nil
		})
	}
	_ = g.Wait()

	finished := p.now()
	meta := model.ReportMetadata{
		BatchID:           batchID,
		StartedAt:         started,
		FinishedAt:        finished,
		TotalItems:        len(raw),
		ProcessingTime:    finished.Sub(started).Seconds(),
		StrategyRequested: routing.Requested,
		StrategyResolved:  routing.Resolved,
		IncludeNews:       opts.IncludeNews,
		IncludeEnrichment: opts.IncludeEnrichment,
		MaxConcurrent:     opts.MaxConcurrent,
	}
	report := Compile(results, meta)

	log.Info("pipeline: batch complete",
		zap.Int("successful", report.Statistics.Successful),
		zap.Int("failed", report.Statistics.Failed),
		zap.Int64("duration_ms", finished.Sub(started).Milliseconds()),
	)
	return &report
}

func (p *Pipeline) processItem(ctx context.Context, item model.DataItem, group model.Group, opts Options) model.BatchResult {
	start := time.Now()
	log := zap.L().With(zap.String("item", item.Label()), zap.String("strategy", string(group)))

	res := model.BatchResult{
		OriginalData: item,
		StrategyUsed: group,
		NewsAnalysis: []model.NewsItem{},
		Errors:       []string{},
	}
	finish := func() model.BatchResult {
		res.FinalRiskScore = res.RiskAssessment.Score
		res.ProcessingTime = time.Since(start).Seconds()
		log.Info("pipeline: item complete",
			zap.Bool("success", res.Succeeded()),
			zap.Float64("score", res.FinalRiskScore),
			zap.Int("errors", len(res.Errors)),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return res
	}

	if group == model.GroupUnprocessable {
		res.Errors = append(res.Errors, msgUnclassifiable)
		res.RiskAssessment = model.FailedAssessment(msgUnclassifiable)
		return finish()
	}

	company, name := p.resolveCompany(ctx, item, group, opts, &res)
	res.EnrichmentData = company
	res.CompanyNameUsed = name

	if opts.IncludeNews && p.news != nil && name != "" {
		res.NewsAnalysis = p.news.Search(ctx, name)
		if len(res.NewsAnalysis) == 0 {
			res.Errors = append(res.Errors, msgNoNews)
		}
	}

	res.RiskAssessment = p.scorer.Score(ctx, company, res.NewsAnalysis, group)
	if !res.RiskAssessment.Success {
		res.Errors = append(res.Errors, "risk analysis failed: "+res.RiskAssessment.Error)
	}
	return finish()
}

// resolveCompany produces the record to score and the name to search news
// for, recording degraded lookups on res.
func (p *Pipeline) resolveCompany(ctx context.Context, item model.DataItem, group model.Group, opts Options, res *model.BatchResult) (model.CompanyRecord, string) {
	taxID := detect.Digits(item.TaxID)

	switch group {
	case model.GroupEnrichment:
		placeholder := "Empresa " + item.TaxID
		if !opts.IncludeEnrichment {
			rec := model.DirectRecord(placeholder, model.SourceDirectInput)
			rec.TaxID = taxID
			return rec, placeholder
		}
		rec := p.enricher.Enrich(ctx, item.TaxID)
		if rec.Success {
			return rec, rec.LegalName
		}
		res.Errors = append(res.Errors, "registry enrichment failed: "+rec.Error)
		return rec, placeholder

	case model.GroupHybrid:
		if !opts.IncludeEnrichment {
			rec := model.DirectRecord(item.CompanyName, model.SourceDirectInput)
			rec.TaxID = taxID
			return rec, item.CompanyName
		}
		rec := p.enricher.Enrich(ctx, item.TaxID)
		if rec.Success {
			if !strings.Contains(strings.ToLower(rec.LegalName), strings.ToLower(item.CompanyName)) {
				res.Warnings = append(res.Warnings, msgNameMismatch)
			}
			return rec, rec.LegalName
		}
		fallback := model.DirectRecord(item.CompanyName, model.SourceFallback)
		fallback.TaxID = taxID
		fallback.Error = rec.Error
		res.Warnings = append(res.Warnings, "registry enrichment failed, using supplied name: "+rec.Error)
		return fallback, item.CompanyName

	default:
		return model.DirectRecord(item.CompanyName, model.SourceDirectInput), item.CompanyName
	}
}
