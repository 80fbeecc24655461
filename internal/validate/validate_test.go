package validate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ehonhub/pkg/models"
)

type fakeCatalog struct {
	byISBN     map[string]*models.VolumeMeta
	byTitle    map[string][]models.VolumeMeta
	err        error
	delay      time.Duration
	isbnCalls  atomic.Int32
	titleCalls atomic.Int32
}

func (f *fakeCatalog) LookupByISBN(ctx context.Context, isbn string) (*models.VolumeMeta, error) {
	f.isbnCalls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.byISBN[isbn], nil
}

func (f *fakeCatalog) LookupByTitle(ctx context.Context, title, lang string) ([]models.VolumeMeta, error) {
	f.titleCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.byTitle[title], nil
}

func TestValidateByISBNConfirmsAndRenames(t *testing.T) {
	cat := &fakeCatalog{byISBN: map[string]*models.VolumeMeta{
		"9784834000825": {Title: "ぐりとぐら", Categories: []string{"Juvenile Fiction"}},
	}}
	v := New(cat, zaptest.NewLogger(t))

	cand := v.Validate(context.Background(), models.BookReference{
		ISBN:   "9784834000825",
		Titles: []string{"ぐりとぐら（福音館）のおはなし"},
	})
	assert.True(t, cand.Confirmed)
	assert.Equal(t, "ぐりとぐら", cand.CanonicalTitle)
	assert.Equal(t, "isbn:9784834000825", cand.IdentityKey)
}

func TestValidateByISBNNotChildrens(t *testing.T) {
	cat := &fakeCatalog{byISBN: map[string]*models.VolumeMeta{
		"9784000000000": {Title: "統計学", Categories: []string{"Mathematics"}},
	}}
	v := New(cat, zaptest.NewLogger(t))

	cand := v.Validate(context.Background(), models.BookReference{ISBN: "9784000000000"})
	assert.False(t, cand.Confirmed)
	assert.Equal(t, "統計学", cand.CanonicalTitle)
	assert.Equal(t, "isbn:9784000000000", cand.IdentityKey)
}

func TestValidateCachesISBNLookups(t *testing.T) {
	cat := &fakeCatalog{byISBN: map[string]*models.VolumeMeta{
		"9784834000825": {Title: "ぐりとぐら", Categories: []string{"絵本"}},
	}}
	v := New(cat, zaptest.NewLogger(t))
	ref := models.BookReference{ISBN: "9784834000825"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Validate(context.Background(), ref)
		}()
	}
	wg.Wait()
	v.Validate(context.Background(), ref)

	assert.Equal(t, int32(1), cat.isbnCalls.Load())
	assert.Equal(t, 1, v.Cache.Len())

	v.Cache.Reset()
	v.Validate(context.Background(), ref)
	assert.Equal(t, int32(2), cat.isbnCalls.Load())
}

func TestValidateByTitlePicksFirstChildrensMatch(t *testing.T) {
	cat := &fakeCatalog{byTitle: map[string][]models.VolumeMeta{
		"どうぶつ絵本": {
			{Title: "どうぶつ絵本の研究", Categories: []string{"Education"}},
			{Title: "どうぶつえほん", ISBN13: "9784000000017", Categories: []string{"Juvenile Nonfiction"}},
			{Title: "別の絵本", ISBN13: "9784000000024", Categories: []string{"Picture Books"}},
		},
	}}
	v := New(cat, zaptest.NewLogger(t))

	cand := v.Validate(context.Background(), models.BookReference{Titles: []string{"おすすめ", "どうぶつ絵本"}})
	assert.True(t, cand.Confirmed)
	assert.True(t, cand.TitleMarked)
	assert.Equal(t, "どうぶつえほん", cand.CanonicalTitle)
	assert.Equal(t, "9784000000017", cand.ISBN)
	assert.Equal(t, "isbn:9784000000017", cand.IdentityKey)
}

func TestValidateByTitleKeepsASINIdentity(t *testing.T) {
	cat := &fakeCatalog{byTitle: map[string][]models.VolumeMeta{
		"しかけ絵本": {{Title: "しかけえほん", ISBN13: "9784000000017", Categories: []string{"絵本"}}},
	}}
	v := New(cat, zaptest.NewLogger(t))

	cand := v.Validate(context.Background(), models.BookReference{ASIN: "B00ABCDEFG", Titles: []string{"しかけ絵本"}})
	assert.Empty(t, cand.ISBN, "an ASIN reference never picks up an ISBN identity")
	assert.Equal(t, "asin:B00ABCDEFG", cand.IdentityKey)
	assert.Equal(t, "しかけえほん", cand.CanonicalTitle)
}

func TestValidateUnmarkedTitleSkipsLookup(t *testing.T) {
	cat := &fakeCatalog{}
	v := New(cat, zaptest.NewLogger(t))

	cand := v.Validate(context.Background(), models.BookReference{Titles: []string{"はじめてのおつかい"}})
	assert.False(t, cand.Confirmed)
	assert.False(t, cand.TitleMarked)
	assert.Equal(t, "はじめてのおつかい", cand.CanonicalTitle)
	assert.Equal(t, "title:はじめてのおつかい", cand.IdentityKey)
	assert.Zero(t, cat.titleCalls.Load())
}

func TestValidateErrorsAreUnconfirmed(t *testing.T) {
	cat := &fakeCatalog{err: errors.New("boom")}
	v := New(cat, zaptest.NewLogger(t))

	cand := v.Validate(context.Background(), models.BookReference{ISBN: "9784834000825"})
	assert.False(t, cand.Confirmed)
	assert.Equal(t, "ISBN 9784834000825", cand.CanonicalTitle)
	assert.Equal(t, "isbn:9784834000825", cand.IdentityKey)

	// the failure is memoized for the build
	v.Validate(context.Background(), models.BookReference{ISBN: "9784834000825"})
	assert.Equal(t, int32(1), cat.isbnCalls.Load())
}

func TestValidateTimeoutIsUnconfirmed(t *testing.T) {
	cat := &fakeCatalog{delay: time.Second}
	v := New(cat, zaptest.NewLogger(t))
	v.Timeout = 20 * time.Millisecond

	start := time.Now()
	cand := v.Validate(context.Background(), models.BookReference{ISBN: "9784834000825", ASIN: "4834000826"})
	require.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, cand.Confirmed)
	assert.Equal(t, "4834000826", cand.ASIN)
}
