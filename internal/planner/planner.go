// Package planner runs the staged article search: it starts with narrow,
// language-restricted queries and only widens scope until a quota of unique
// articles is reached.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ehonhub/internal/metrics"
	"ehonhub/pkg/models"
)

// ErrUpstreamUnavailable is returned when the search capability failed from
// the very first call and nothing at all could be collected.
var ErrUpstreamUnavailable = errors.New("search upstream unavailable")

// SearchOptions are passed through to the search capability.
type SearchOptions struct {
	Limit int
	// Language restricts results; empty means unrestricted.
	Language string
	Page     int
}

// Searcher is the article search capability.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]models.RawArticle, error)
}

// Mode selects between the full and the quick-turnaround plan.
type Mode string

const (
	ModeFull Mode = "full"
	ModeFast Mode = "fast"
)

// DefaultTopics are broad picture-book-adjacent phrases, narrowest first.
var DefaultTopics = []string{
	"絵本", "読み聞かせ", "児童書", "幼児 絵本", "赤ちゃん 絵本", "知育 絵本",
	"名作 絵本", "ロングセラー 絵本", "ベストセラー 絵本",
}

const (
	DefaultLanguage  = "ja"
	DefaultFallback  = "絵本"
	DefaultPerQuery  = 50
	DefaultMinStocks = 3
	DefaultTimeout   = 8 * time.Second

	topicTag = "絵本"

	fastTopics   = 3
	fastStages   = 2
	fastPerQuery = 10
)

// Planner issues the staged queries.
type Planner struct {
	Searcher  Searcher
	Topics    []string
	Language  string
	Fallback  string
	PerQuery  int
	MinStocks int
	// Timeout bounds every single search call.
	Timeout time.Duration
	Logger  *zap.Logger
}

// New returns a planner with the default plan.
func New(s Searcher, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		Searcher:  s,
		Topics:    DefaultTopics,
		Language:  DefaultLanguage,
		Fallback:  DefaultFallback,
		PerQuery:  DefaultPerQuery,
		MinStocks: DefaultMinStocks,
		Timeout:   DefaultTimeout,
		Logger:    logger,
	}
}

// Query is one planned search call.
type Query struct {
	Text     string
	Language string
}

// Stage is one widening step.
type Stage struct {
	Name    string
	Queries []Query
}

// Stages returns the plan for a mode:
//
//  1. tag/title-qualified queries with a stock floor, language restricted
//  2. phrase-only queries, language restricted
//  3. phrase-only queries, unrestricted
//  4. the fixed fallback query
func (p *Planner) Stages(mode Mode) []Stage {
	topics := p.Topics
	if mode == ModeFast && len(topics) > fastTopics {
		topics = topics[:fastTopics]
	}

	narrow := make([]Query, 0, len(topics))
	phrase := make([]Query, 0, len(topics))
	open := make([]Query, 0, len(topics))
	for _, t := range topics {
		q := fmt.Sprintf("(tag:%s OR title:%s)", topicTag, t)
		if p.MinStocks > 0 {
			q += fmt.Sprintf(" stocks:>%d", p.MinStocks)
		}
		narrow = append(narrow, Query{Text: q, Language: p.Language})
		phrase = append(phrase, Query{Text: t, Language: p.Language})
		open = append(open, Query{Text: t})
	}

	stages := []Stage{
		{Name: "narrow", Queries: narrow},
		{Name: "phrase", Queries: phrase},
		{Name: "unrestricted", Queries: open},
	}
	if p.Fallback != "" {
		stages = append(stages, Stage{Name: "fallback", Queries: []Query{{Text: p.Fallback}}})
	}
	if mode == ModeFast && len(stages) > fastStages {
		stages = stages[:fastStages]
	}
	return stages
}

func (p *Planner) perQuery(mode Mode) int {
	if mode == ModeFast {
		return fastPerQuery
	}
	if p.PerQuery <= 0 {
		return DefaultPerQuery
	}
	return p.PerQuery
}

// Collect runs the plan until quota unique articles have been gathered.
// Articles are de-duplicated by id, first occurrence wins, and come back in
// discovery order. Failing queries are skipped.
func (p *Planner) Collect(ctx context.Context, quota int, mode Mode) ([]models.RawArticle, error) {
	var (
		out       []models.RawArticle
		seen      = make(map[string]struct{})
		calls     int
		failures  int
		firstFail bool
	)
	limit := p.perQuery(mode)

	for _, stage := range p.Stages(mode) {
		if quota > 0 && len(out) >= quota {
			break
		}
		stageSeen := make(map[string]struct{})

		for _, q := range stage.Queries {
			if err := ctx.Err(); err != nil {
				return out, err
			}

			items, err := p.search(ctx, q, limit)
			calls++
			metrics.RecordSearch(stage.Name, len(items), err)
			if err != nil {
				failures++
				if calls == 1 {
					firstFail = true
				}
				p.Logger.Warn("search query failed",
					zap.String("stage", stage.Name),
					zap.String("query", q.Text),
					zap.Error(err))
				continue
			}

			for _, it := range items {
				if it.ID == "" {
					continue
				}
				stageSeen[it.ID] = struct{}{}
				if _, dup := seen[it.ID]; dup {
					continue
				}
				seen[it.ID] = struct{}{}
				out = append(out, it)
			}

			if quota > 0 && len(stageSeen) >= quota {
				break
			}
		}

		p.Logger.Debug("stage done",
			zap.String("stage", stage.Name),
			zap.Int("stage_unique", len(stageSeen)),
			zap.Int("total_unique", len(out)))
	}

	if len(out) == 0 && firstFail {
		return nil, fmt.Errorf("%w: %d of %d queries failed", ErrUpstreamUnavailable, failures, calls)
	}
	return out, nil
}

func (p *Planner) search(ctx context.Context, q Query, limit int) ([]models.RawArticle, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Searcher.Search(ctx, q.Text, SearchOptions{Limit: limit, Language: q.Language, Page: 1})
}
