package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"ehonhub/internal/planner"
	"ehonhub/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubSearcher struct {
	items []models.RawArticle
	err   error
}

func (s *stubSearcher) Search(ctx context.Context, query string, opts planner.SearchOptions) ([]models.RawArticle, error) {
	return s.items, s.err
}

type stubCatalog struct {
	isbn  map[string]*models.VolumeMeta
	title map[string][]models.VolumeMeta
}

func (c *stubCatalog) LookupByISBN(ctx context.Context, isbn string) (*models.VolumeMeta, error) {
	return c.isbn[isbn], nil
}

func (c *stubCatalog) LookupByTitle(ctx context.Context, title, lang string) ([]models.VolumeMeta, error) {
	return c.title[title], nil
}

func newBuilder(t *testing.T, items []models.RawArticle, cat *stubCatalog) *Builder {
	p := planner.New(&stubSearcher{items: items}, zaptest.NewLogger(t))
	p.Topics = []string{"絵本"}
	b := New(p, cat, zaptest.NewLogger(t))
	b.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.FixedZone("JST", 9*3600)) }
	return b
}

func TestBuildEndToEnd(t *testing.T) {
	items := []models.RawArticle{
		{ID: "a1", Title: "子どもに読んだ絵本", Body: "ISBN 9784834000825 『ぐりとぐら』", LikeCount: 5},
		{ID: "a2", Title: "絵本メモ", Body: "9784834000825 がよかった", LikeCount: 10, StockCount: 4},
		{ID: "a3", Title: "読み聞かせ記録", Body: "https://www.amazon.co.jp/dp/4834000826 と 9784834000825", LikeCount: 3},
		// whitepaper context: dropped by the classifier
		{ID: "n1", Title: "絵本市場白書", Body: "9784834000825", LikeCount: 500},
		// title without marker and no identifier: rejected by the aggregator
		{ID: "n2", Title: "絵本の話", Body: "『はじめてのおつかい』", LikeCount: 50},
		// only a banned title: no reference at all
		{ID: "n3", Title: "絵本アプリ", Body: "「ログイン画面」", LikeCount: 50},
		// not about picture books
		{ID: "n4", Title: "Go の話", Body: "9784000000000", LikeCount: 50},
	}
	cat := &stubCatalog{isbn: map[string]*models.VolumeMeta{
		"9784834000825": {Title: "ぐりとぐら", Categories: []string{"絵本"}},
	}}

	res, err := newBuilder(t, items, cat).Build(context.Background(), planner.ModeFull)
	require.NoError(t, err)

	assert.Equal(t, Stats{Collected: 7, InContext: 5, Referenced: 4, Accepted: 3, Books: 1}, res.Stats)

	snap := res.Snapshot
	assert.NotEmpty(t, snap.BuildID)
	assert.Equal(t, "full", snap.Mode)
	assert.Equal(t, time.UTC, snap.GeneratedAt.Location())
	require.Len(t, snap.Ranking, 1)

	book := snap.Ranking[0]
	assert.Equal(t, "isbn:9784834000825", book.ID)
	assert.Equal(t, "ぐりとぐら", book.Title)
	assert.Equal(t, "4834000826", book.ASIN)
	assert.Equal(t, 3, book.Mentions)
	assert.Equal(t, 18, book.TotalLikes)
	assert.Equal(t, 4, book.TotalStocks)
	assert.Equal(t, 19.0, book.Score)
	require.Len(t, book.Sources, 3)
	assert.Equal(t, "a1", book.Sources[0].ArticleID)
}

func TestBuildTitleOnlyNeedsConfirmationAndEvidence(t *testing.T) {
	items := []models.RawArticle{
		{ID: "a1", Title: "絵本紹介", Body: "『どうぶつ絵本』", LikeCount: 2},
		{ID: "a2", Title: "絵本紹介2", Body: "『どうぶつ絵本』", LikeCount: 2},
		{ID: "a3", Title: "絵本紹介3", Body: "『のりもの図鑑』『のりもの図鑑』", LikeCount: 9},
	}
	cat := &stubCatalog{title: map[string][]models.VolumeMeta{
		"どうぶつ絵本": {{Title: "どうぶつ絵本", Categories: []string{"Picture Books"}}},
	}}

	res, err := newBuilder(t, items, cat).Build(context.Background(), planner.ModeFull)
	require.NoError(t, err)
	require.Len(t, res.Snapshot.Ranking, 1)
	assert.Equal(t, "title:どうぶつ絵本", res.Snapshot.Ranking[0].ID)
	assert.Equal(t, 2, res.Snapshot.Ranking[0].Mentions)
}

func TestBuildNoData(t *testing.T) {
	_, err := newBuilder(t, nil, &stubCatalog{}).Build(context.Background(), planner.ModeFast)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestBuildUpstreamUnavailable(t *testing.T) {
	p := planner.New(&stubSearcher{err: errors.New("connection refused")}, zaptest.NewLogger(t))
	p.Topics = []string{"絵本"}
	b := New(p, &stubCatalog{}, zaptest.NewLogger(t))

	_, err := b.Build(context.Background(), planner.ModeFull)
	assert.ErrorIs(t, err, planner.ErrUpstreamUnavailable)
}

func TestBuildIsDeterministicUnderConcurrency(t *testing.T) {
	var items []models.RawArticle
	isbns := []string{"9784834000825", "9784032060706", "9784097265160"}
	for i := 0; i < 30; i++ {
		items = append(items, models.RawArticle{
			ID:        string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Title:     "絵本",
			Body:      isbns[i%3],
			LikeCount: i,
		})
	}
	cat := &stubCatalog{isbn: map[string]*models.VolumeMeta{}}

	seq := newBuilder(t, items, cat)
	seq.Concurrency = 1
	par := newBuilder(t, items, cat)
	par.Concurrency = 8

	r1, err := seq.Build(context.Background(), planner.ModeFull)
	require.NoError(t, err)
	r2, err := par.Build(context.Background(), planner.ModeFull)
	require.NoError(t, err)

	assert.Equal(t, r1.Snapshot.Ranking, r2.Snapshot.Ranking)
	assert.NotEqual(t, r1.Snapshot.BuildID, r2.Snapshot.BuildID)
}
