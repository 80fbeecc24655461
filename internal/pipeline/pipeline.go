// Package pipeline wires one ranking build: staged search, context gate,
// reference extraction, catalog validation and aggregation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ehonhub/internal/aggregate"
	"ehonhub/internal/classify"
	"ehonhub/internal/extract"
	"ehonhub/internal/metrics"
	"ehonhub/internal/planner"
	"ehonhub/internal/validate"
	"ehonhub/pkg/models"
)

// ErrNoData is returned when the search produced no articles at all.
var ErrNoData = errors.New("no articles collected")

const (
	DefaultQuota       = 200
	DefaultConcurrency = 4
)

// Builder holds everything a build needs. Builds share no mutable state:
// every call to Build gets its own lookup cache and aggregator, so one
// Builder may run concurrent builds.
type Builder struct {
	Planner    *planner.Planner
	Catalog    validate.Catalog
	Classifier classify.Classifier
	Extractor  extract.Extractor
	Policy     aggregate.Policy

	// Quota is the number of unique articles the planner aims for.
	Quota int
	// Concurrency bounds parallel catalog lookups; 1 means sequential.
	Concurrency   int
	LookupTimeout time.Duration
	// Language restricts title lookups.
	Language string
	Logger   *zap.Logger

	now func() time.Time
}

// New returns a builder with default policy and lexicons.
func New(p *planner.Planner, catalog validate.Catalog, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		Planner:       p,
		Catalog:       catalog,
		Classifier:    classify.Default(),
		Policy:        aggregate.DefaultPolicy(),
		Quota:         DefaultQuota,
		Concurrency:   DefaultConcurrency,
		LookupTimeout: validate.DefaultTimeout,
		Language:      validate.DefaultLanguage,
		Logger:        logger,
	}
}

// Stats counts articles surviving each step of one build.
type Stats struct {
	Collected  int `json:"collected"`
	InContext  int `json:"in_context"`
	Referenced int `json:"referenced"`
	Accepted   int `json:"accepted"`
	Books      int `json:"books"`
}

// Result is the outcome of one build.
type Result struct {
	Snapshot models.Snapshot
	Stats    Stats
}

type work struct {
	article models.RawArticle
	ref     models.BookReference
}

// Build runs the whole pipeline once.
func (b *Builder) Build(ctx context.Context, mode planner.Mode) (*Result, error) {
	started := time.Now()
	res, err := b.build(ctx, mode)
	metrics.RecordBuild(string(mode), started, err)
	if err != nil {
		b.Logger.Error("ranking build failed", zap.String("mode", string(mode)), zap.Error(err))
		return nil, err
	}
	b.Logger.Info("ranking build done",
		zap.String("mode", string(mode)),
		zap.String("build_id", res.Snapshot.BuildID),
		zap.Int("collected", res.Stats.Collected),
		zap.Int("in_context", res.Stats.InContext),
		zap.Int("referenced", res.Stats.Referenced),
		zap.Int("accepted", res.Stats.Accepted),
		zap.Int("books", res.Stats.Books),
		zap.Duration("took", time.Since(started)))
	return res, nil
}

func (b *Builder) build(ctx context.Context, mode planner.Mode) (*Result, error) {
	quota := b.Quota
	if quota <= 0 {
		quota = DefaultQuota
	}
	articles, err := b.Planner.Collect(ctx, quota, mode)
	if err != nil {
		return nil, fmt.Errorf("collect articles: %w", err)
	}
	if len(articles) == 0 {
		return nil, ErrNoData
	}

	var stats Stats
	stats.Collected = len(articles)

	jobs := make([]work, 0, len(articles))
	for _, a := range articles {
		text := a.Text()
		if !b.Classifier.IsBookContext(text) {
			continue
		}
		stats.InContext++

		ref := b.Extractor.Extract(text)
		ref.Titles = classify.FilterTitles(ref.Titles)
		if ref.Empty() {
			continue
		}
		stats.Referenced++
		jobs = append(jobs, work{article: a, ref: ref})
	}

	cands, err := b.validateAll(ctx, jobs)
	if err != nil {
		return nil, err
	}

	agg := aggregate.New(b.Policy)
	for i, j := range jobs {
		if agg.Ingest(j.article, cands[i]) {
			stats.Accepted++
		}
	}
	ranking := agg.Finalize()
	stats.Books = len(ranking)
	recordStats(stats)

	now := time.Now
	if b.now != nil {
		now = b.now
	}
	return &Result{
		Snapshot: models.Snapshot{
			BuildID:     uuid.NewString(),
			Mode:        string(mode),
			GeneratedAt: now().UTC(),
			Ranking:     ranking,
		},
		Stats: stats,
	}, nil
}

// validateAll resolves every reference with bounded concurrency. Results are
// index-aligned with jobs so ingestion order stays deterministic.
func (b *Builder) validateAll(ctx context.Context, jobs []work) ([]models.Candidate, error) {
	v := validate.New(b.Catalog, b.Logger.Named("validate"))
	if b.LookupTimeout > 0 {
		v.Timeout = b.LookupTimeout
	}
	v.Language = b.Language

	limit := b.Concurrency
	if limit <= 0 {
		limit = 1
	}

	cands := make([]models.Candidate, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range jobs {
		i := i
		g.Go(func() error {
			cands[i] = v.Validate(gctx, jobs[i].ref)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("validate references: %w", err)
	}
	return cands, nil
}

func recordStats(s Stats) {
	metrics.BuildArticles.WithLabelValues("collected").Set(float64(s.Collected))
	metrics.BuildArticles.WithLabelValues("in_context").Set(float64(s.InContext))
	metrics.BuildArticles.WithLabelValues("referenced").Set(float64(s.Referenced))
	metrics.BuildArticles.WithLabelValues("accepted").Set(float64(s.Accepted))
	metrics.BuildArticles.WithLabelValues("books").Set(float64(s.Books))
}
