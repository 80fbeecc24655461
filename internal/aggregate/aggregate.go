// Package aggregate merges validated book references from many articles into
// one bucket per book identity and produces the final ranking.
package aggregate

import (
	"math"
	"sort"

	"ehonhub/pkg/models"
)

const (
	// DefaultMinMentions is the minimum-evidence threshold: a book needs this
	// many distinct articles unless it carries an ISBN.
	DefaultMinMentions = 2
	DefaultMaxResults  = 100
	// DefaultStockWeight is the share of stocks added to likes in the score.
	DefaultStockWeight = 0.3
)

// Policy holds the tunable acceptance and ranking knobs.
type Policy struct {
	MinMentions int
	MaxResults  int
	// RequireTitleConfirmation makes title-only references need a catalog
	// confirmation on top of the title marker.
	RequireTitleConfirmation bool
	StockWeight              float64
}

// DefaultPolicy returns the production policy.
func DefaultPolicy() Policy {
	return Policy{
		MinMentions:              DefaultMinMentions,
		MaxResults:               DefaultMaxResults,
		RequireTitleConfirmation: true,
		StockWeight:              DefaultStockWeight,
	}
}

// Score is totalLikes + floor(totalStocks * weight).
func Score(totalLikes, totalStocks int, weight float64) float64 {
	return float64(totalLikes) + math.Floor(float64(totalStocks)*weight)
}

type titleRank int

const (
	titlePlaceholder titleRank = iota
	titleQuoted
	titleConfirmed
)

type bucket struct {
	book      models.BookAggregate
	articles  map[string]struct{}
	titleRank titleRank
}

// Aggregator owns the buckets of one build. It is not safe for concurrent use.
type Aggregator struct {
	policy  Policy
	buckets map[string]*bucket
}

// New creates an empty aggregator.
func New(p Policy) *Aggregator {
	if p.MaxResults <= 0 {
		p.MaxResults = DefaultMaxResults
	}
	return &Aggregator{policy: p, buckets: make(map[string]*bucket)}
}

// Accepts applies the acceptance policy to a candidate.
func (a *Aggregator) Accepts(c models.Candidate) bool {
	if c.ISBN != "" || c.ASIN != "" {
		return true
	}
	if !c.TitleMarked {
		return false
	}
	return c.Confirmed || !a.policy.RequireTitleConfirmation
}

// Ingest adds one article's evidence for one candidate. It returns false when
// the candidate is rejected. Ingesting the same article twice for the same
// book leaves the counters unchanged.
func (a *Aggregator) Ingest(article models.RawArticle, c models.Candidate) bool {
	if !a.Accepts(c) {
		return false
	}
	key := c.IdentityKey
	if key == "" {
		key = models.IdentityKey(c.ISBN, c.ASIN, c.CanonicalTitle)
	}
	if key == "" {
		return false
	}

	b, ok := a.buckets[key]
	if !ok {
		b = &bucket{
			book:     models.BookAggregate{ID: key},
			articles: make(map[string]struct{}),
		}
		a.buckets[key] = b
	}
	a.merge(b, c)

	if _, dup := b.articles[article.ID]; dup {
		return true
	}
	b.articles[article.ID] = struct{}{}

	likes, stocks := max(article.LikeCount, 0), max(article.StockCount, 0)
	b.book.Mentions++
	b.book.TotalLikes += likes
	b.book.TotalStocks += stocks
	b.book.Score = Score(b.book.TotalLikes, b.book.TotalStocks, a.policy.StockWeight)
	b.book.Sources = append(b.book.Sources, models.Source{
		ArticleID: article.ID,
		URL:       article.URL,
		Title:     article.Title,
		Likes:     likes,
		Stocks:    stocks,
	})
	return true
}

// merge fills identifiers and refines the title:
//
// - ISBN and ASIN: first non-empty value wins, never overwritten.
// - Title: replaced only by a better-ranked title (confirmed > quoted > placeholder).
func (a *Aggregator) merge(b *bucket, c models.Candidate) {
	if b.book.ISBN == "" && c.ISBN != "" {
		b.book.ISBN = c.ISBN
	}
	if b.book.ASIN == "" && c.ASIN != "" {
		b.book.ASIN = c.ASIN
	}

	rank := titleQuoted
	switch {
	case c.CanonicalTitle == "" || c.CanonicalTitle == models.PlaceholderTitle(c.ISBN, c.ASIN):
		rank = titlePlaceholder
	case c.Confirmed:
		rank = titleConfirmed
	}
	if b.book.Title == "" || rank > b.titleRank {
		title := c.CanonicalTitle
		if title == "" {
			title = models.PlaceholderTitle(c.ISBN, c.ASIN)
		}
		b.book.Title = title
		b.titleRank = rank
	}
}

// Len returns the number of buckets, before any filtering.
func (a *Aggregator) Len() int { return len(a.buckets) }

// Finalize filters by minimum evidence, sorts by score, mentions and id, and
// caps the result. The aggregator can keep ingesting afterwards.
func (a *Aggregator) Finalize() []models.BookAggregate {
	out := make([]models.BookAggregate, 0, len(a.buckets))
	for _, b := range a.buckets {
		if b.book.Mentions < a.policy.MinMentions && b.book.ISBN == "" {
			continue
		}
		book := b.book
		book.Sources = append([]models.Source(nil), b.book.Sources...)
		out = append(out, book)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Mentions != out[j].Mentions {
			return out[i].Mentions > out[j].Mentions
		}
		return out[i].ID < out[j].ID
	})

	if len(out) > a.policy.MaxResults {
		out = out[:a.policy.MaxResults]
	}
	return out
}
