// Package validate confirms extracted references against a bibliographic
// catalog and settles their canonical title and identity key.
package validate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ehonhub/internal/classify"
	"ehonhub/internal/metrics"
	"ehonhub/pkg/models"
)

// Catalog is the bibliographic lookup capability.
type Catalog interface {
	LookupByISBN(ctx context.Context, isbn string) (*models.VolumeMeta, error)
	LookupByTitle(ctx context.Context, title, lang string) ([]models.VolumeMeta, error)
}

const (
	DefaultTimeout      = 4 * time.Second
	DefaultLanguage     = "ja"
	DefaultTitleResults = 3
)

// Validator wraps a Catalog with per-call timeouts and a per-build cache.
// Build one with New; Cache must be non-nil.
type Validator struct {
	Catalog Catalog
	Cache   *Cache
	Timeout time.Duration
	// Language restricts title lookups; empty means unrestricted.
	Language string
	Logger   *zap.Logger
}

// New builds a validator with a fresh cache.
func New(catalog Catalog, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		Catalog:  catalog,
		Cache:    NewCache(),
		Timeout:  DefaultTimeout,
		Language: DefaultLanguage,
		Logger:   logger,
	}
}

// Validate resolves ref into a candidate. Lookup failures and timeouts only
// leave the candidate unconfirmed; they are never returned.
func (v *Validator) Validate(ctx context.Context, ref models.BookReference) models.Candidate {
	cand := models.Candidate{ISBN: ref.ISBN, ASIN: ref.ASIN}

	var marked string
	for _, t := range ref.Titles {
		if classify.HasTitleMarker(t) {
			marked = t
			break
		}
	}
	cand.TitleMarked = marked != ""

	var metaTitle string
	switch {
	case ref.ISBN != "":
		if meta := v.byISBN(ctx, ref.ISBN); meta != nil {
			cand.Confirmed = classify.IsChildrensCategory(meta.Categories)
			metaTitle = meta.Title
		}
	case marked != "":
		if meta := v.byTitle(ctx, marked); meta != nil {
			cand.Confirmed = true
			metaTitle = meta.Title
			if ref.ASIN == "" && meta.ISBN13 != "" {
				cand.ISBN = meta.ISBN13
			}
		}
	}

	cand.CanonicalTitle = canonicalTitle(metaTitle, marked, ref, cand.ISBN)
	cand.IdentityKey = models.IdentityKey(cand.ISBN, cand.ASIN, cand.CanonicalTitle)
	return cand
}

func canonicalTitle(metaTitle, marked string, ref models.BookReference, isbn string) string {
	switch {
	case metaTitle != "":
		return metaTitle
	case marked != "":
		return marked
	case len(ref.Titles) > 0:
		return ref.Titles[0]
	}
	return models.PlaceholderTitle(isbn, ref.ASIN)
}

func (v *Validator) byISBN(ctx context.Context, isbn string) *models.VolumeMeta {
	metas, err := v.Cache.Do(ctx, "isbn:"+isbn, func(ctx context.Context) ([]models.VolumeMeta, error) {
		ctx, cancel := v.withTimeout(ctx)
		defer cancel()
		meta, err := v.Catalog.LookupByISBN(ctx, isbn)
		metrics.RecordLookup("isbn", err)
		if err != nil || meta == nil {
			return nil, err
		}
		return []models.VolumeMeta{*meta}, nil
	})
	if err != nil {
		v.Logger.Debug("isbn lookup inconclusive", zap.String("isbn", isbn), zap.Error(err))
	}
	if len(metas) == 0 {
		return nil
	}
	return &metas[0]
}

// byTitle returns the first result whose categories are children's books.
func (v *Validator) byTitle(ctx context.Context, title string) *models.VolumeMeta {
	metas, err := v.Cache.Do(ctx, "title:"+v.Language+":"+title, func(ctx context.Context) ([]models.VolumeMeta, error) {
		ctx, cancel := v.withTimeout(ctx)
		defer cancel()
		metas, err := v.Catalog.LookupByTitle(ctx, title, v.Language)
		metrics.RecordLookup("title", err)
		return metas, err
	})
	if err != nil {
		v.Logger.Debug("title lookup inconclusive", zap.String("title", title), zap.Error(err))
	}
	for i := range metas {
		if classify.IsChildrensCategory(metas[i].Categories) {
			return &metas[i]
		}
	}
	return nil
}

func (v *Validator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
