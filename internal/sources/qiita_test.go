package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ehonhub/internal/planner"
)

func TestQiitaSearch(t *testing.T) {
	var gotQuery, gotAuth, gotPerPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/items", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		gotPerPage = r.URL.Query().Get("per_page")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"a1","title":"おすすめ絵本","url":"https://qiita.com/u/items/a1","body":"『ぐりとぐら』","likes_count":12,"stocks_count":3},
			{"id":"a2","title":"English only","url":"https://qiita.com/u/items/a2","body":"picture book list"},
			{"id":"","title":"no id"}
		]`))
	}))
	defer srv.Close()

	c := NewQiitaClient(srv.URL, "tok", 0)

	items, err := c.Search(context.Background(), "絵本 stocks:>3", planner.SearchOptions{Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "絵本 stocks:>3", gotQuery)
	assert.Equal(t, "20", gotPerPage)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, 12, items[0].LikeCount)
	assert.Equal(t, 3, items[0].StockCount)
	assert.Equal(t, 0, items[1].LikeCount)

	ja, err := c.Search(context.Background(), "絵本", planner.SearchOptions{Limit: 20, Language: "ja"})
	require.NoError(t, err)
	require.Len(t, ja, 1)
	assert.Equal(t, "a1", ja[0].ID)
}

func TestQiitaSearchNonOKIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewQiitaClient(srv.URL, "", 0).Search(context.Background(), "絵本", planner.SearchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestQiitaSearchOmitsAuthWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	items, err := NewQiitaClient(srv.URL, "", 5).Search(context.Background(), "絵本", planner.SearchOptions{Limit: 500})
	require.NoError(t, err)
	assert.Empty(t, items)
}
