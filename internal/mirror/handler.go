package mirror

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

var stocksFilterRE = regexp.MustCompile(`stocks:>(\d+)`)

type Handler struct {
	Fixtures *Fixtures
}

func NewHandler(f *Fixtures) *Handler {
	return &Handler{Fixtures: f}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/api/v2/items", h.items)       // Qiita search
	r.GET("/books/v1/volumes", h.volumes) // Google Books search
}

// items honours page, per_page and a "stocks:>N" qualifier in query. Other
// query text is ignored: the fixture set is already topical.
func (h *Handler) items(c *gin.Context) {
	page := parseInt(c.Query("page"), 1, 1)
	perPage := parseInt(c.Query("per_page"), 20, 1)
	if perPage > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "per_page must be <= 100", "type": "bad_request"})
		return
	}

	minStocks := -1
	if m := stocksFilterRE.FindStringSubmatch(c.Query("query")); m != nil {
		minStocks, _ = strconv.Atoi(m[1])
	}

	matched := make([]Item, 0, len(h.Fixtures.Items))
	for _, it := range h.Fixtures.Items {
		if it.StocksCount > minStocks {
			matched = append(matched, it)
		}
	}

	start := (page - 1) * perPage
	if start > len(matched) {
		start = len(matched)
	}
	end := min(start+perPage, len(matched))

	c.Header("Total-Count", strconv.Itoa(len(matched)))
	c.JSON(http.StatusOK, matched[start:end])
}

// volumes understands "isbn:<n>" and "intitle:<words>" queries.
func (h *Handler) volumes(c *gin.Context) {
	q := c.Query("q")
	limit := parseInt(c.Query("maxResults"), 10, 1)
	lang := c.Query("langRestrict")

	var out []Volume
	for _, v := range h.Fixtures.Volumes {
		if len(out) >= limit {
			break
		}
		if lang != "" && v.VolumeInfo.Language != "" && v.VolumeInfo.Language != lang {
			continue
		}
		if matchVolume(v, q) {
			out = append(out, v)
		}
	}

	resp := gin.H{"kind": "books#volumes", "totalItems": len(out)}
	if len(out) > 0 {
		resp["items"] = out
	}
	c.JSON(http.StatusOK, resp)
}

func matchVolume(v Volume, q string) bool {
	switch {
	case strings.HasPrefix(q, "isbn:"):
		want := strings.ReplaceAll(strings.TrimPrefix(q, "isbn:"), "-", "")
		for _, id := range v.VolumeInfo.IndustryIdentifiers {
			if id.Identifier == want {
				return true
			}
		}
		return false
	case strings.HasPrefix(q, "intitle:"):
		want := strings.TrimSpace(strings.TrimPrefix(q, "intitle:"))
		return want != "" && strings.Contains(strings.ToLower(v.VolumeInfo.Title), strings.ToLower(want))
	}
	return false
}

func parseInt(s string, def, floor int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < floor {
		return def
	}
	return n
}
