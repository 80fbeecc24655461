package mirror

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ehonhub/internal/pipeline"
	"ehonhub/internal/planner"
	"ehonhub/internal/sources"
	"ehonhub/pkg/models"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	f, err := Load("testdata")
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(f).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp
}

func TestItemsPagingAndStocksFilter(t *testing.T) {
	srv := newServer(t)

	var all []Item
	resp := getJSON(t, srv.URL+"/api/v2/items?per_page=100", &all)
	assert.Len(t, all, 6)
	assert.Equal(t, "6", resp.Header.Get("Total-Count"))

	var page2 []Item
	getJSON(t, srv.URL+"/api/v2/items?per_page=4&page=2", &page2)
	require.Len(t, page2, 2)
	assert.Equal(t, "q4", page2[0].ID)

	var popular []Item
	getJSON(t, srv.URL+"/api/v2/items?query="+"stocks%3A%3E3", &popular)
	ids := []string{}
	for _, it := range popular {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"q1", "q4"}, ids)
}

func TestVolumesQueries(t *testing.T) {
	srv := newServer(t)

	var body struct {
		TotalItems int      `json:"totalItems"`
		Items      []Volume `json:"items"`
	}
	getJSON(t, srv.URL+"/books/v1/volumes?q=isbn:9784834000825", &body)
	require.Equal(t, 1, body.TotalItems)
	assert.Equal(t, "ぐりとぐら", body.Items[0].VolumeInfo.Title)

	body.Items = nil
	getJSON(t, srv.URL+"/books/v1/volumes?q=isbn:9780000000000", &body)
	assert.Equal(t, 0, body.TotalItems)
	assert.Empty(t, body.Items)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f, err := Load("testdata")
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "mirror")
	require.NoError(t, Save(dir, f))
	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestLoadMissingDirIsEmpty(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, f.Items)
	assert.Empty(t, f.Volumes)
}

// The whole pipeline against the fixture server through the real clients.
func TestPipelineAgainstMirror(t *testing.T) {
	srv := newServer(t)

	p := planner.New(sources.NewQiitaClient(srv.URL, "", 0), zaptest.NewLogger(t))
	gb := sources.NewGoogleBooksClient(srv.URL, "", 0)
	b := pipeline.New(p, gb, zaptest.NewLogger(t))

	res, err := b.Build(context.Background(), planner.ModeFull)
	require.NoError(t, err)

	assert.Equal(t, pipeline.Stats{Collected: 6, InContext: 5, Referenced: 5, Accepted: 5, Books: 3}, res.Stats)
	require.Len(t, res.Snapshot.Ranking, 3)

	first := res.Snapshot.Ranking[0]
	assert.Equal(t, "isbn:9784834000825", first.ID)
	assert.Equal(t, "ぐりとぐら", first.Title)
	assert.Equal(t, "4834000826", first.ASIN)
	assert.Equal(t, 2, first.Mentions)
	assert.Equal(t, 19, first.TotalLikes)
	assert.Equal(t, 10, first.TotalStocks)
	assert.Equal(t, 22.0, first.Score)

	second := res.Snapshot.Ranking[1]
	assert.Equal(t, "title:のりもの絵本", second.ID)
	assert.Equal(t, 2, second.Mentions)
	assert.Equal(t, 9.0, second.Score)

	third := res.Snapshot.Ranking[2]
	assert.Equal(t, "isbn:9780399226908", third.ID)
	assert.Equal(t, "ISBN 9780399226908", third.Title)
	assert.Equal(t, 1, third.Mentions)

	thumb, err := gb.Thumbnail(context.Background(), "ぐりとぐら")
	require.NoError(t, err)
	assert.Equal(t, "https://books.google.com/books/content?id=gtg&img=1&zoom=1", thumb)
}

func TestVolumeFromMetaServesBack(t *testing.T) {
	v := VolumeFromMeta("x1", models.VolumeMeta{
		Title:      "しろくまちゃんのほっとけーき",
		ISBN13:     "9784772100199",
		Categories: []string{"絵本"},
	}, "ja")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(&Fixtures{Volumes: []Volume{v}}).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	gb := sources.NewGoogleBooksClient(srv.URL, "", 0)
	meta, err := gb.LookupByISBN(context.Background(), "9784772100199")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "しろくまちゃんのほっとけーき", meta.Title)
	assert.Equal(t, []string{"絵本"}, meta.Categories)

	item := ItemFromArticle(models.RawArticle{ID: "a", LikeCount: 2, StockCount: 1})
	assert.Equal(t, Item{ID: "a", LikesCount: 2, StocksCount: 1}, item)
}
