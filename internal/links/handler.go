package links

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	openLibraryCovers = "https://covers.openlibrary.org/b/isbn/"

	coverFoundCache   = "s-maxage=86400, stale-while-revalidate=604800"
	coverMissingCache = "s-maxage=3600, stale-while-revalidate=86400"

	DefaultCoverTimeout = 3 * time.Second
)

// Thumbnailer finds a cover image for a title.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, title string) (string, error)
}

type Handler struct {
	Affiliate    Affiliate
	Covers       Thumbnailer
	CoverTimeout time.Duration
	Logger       *zap.Logger
}

func NewHandler(aff Affiliate, covers Thumbnailer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Affiliate:    aff,
		Covers:       covers,
		CoverTimeout: DefaultCoverTimeout,
		Logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/out/amazon", h.amazon) // GET /out/amazon?asin=...
	rg.GET("/cover", h.cover)       // GET /cover?isbn=...&title=...
}

func (h *Handler) amazon(c *gin.Context) {
	raw := c.Query("asin")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asin required"})
		return
	}
	asin, ok := NormalizeASIN(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asin"})
		return
	}
	c.Redirect(http.StatusFound, h.Affiliate.Wrap(AmazonURL(asin)))
}

// OpenLibraryCover is the medium cover URL for an ISBN. Open Library serves a
// placeholder when it has no cover, so the URL is always usable.
func OpenLibraryCover(isbn string) string {
	return openLibraryCovers + url.PathEscape(isbn) + "-M.jpg"
}

func (h *Handler) cover(c *gin.Context) {
	isbn := strings.TrimSpace(c.Query("isbn"))
	title := strings.TrimSpace(c.Query("title"))

	if isbn != "" {
		c.Header("Cache-Control", coverFoundCache)
		c.JSON(http.StatusOK, gin.H{"url": OpenLibraryCover(isbn)})
		return
	}

	if title != "" && h.Covers != nil {
		timeout := h.CoverTimeout
		if timeout <= 0 {
			timeout = DefaultCoverTimeout
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		thumb, err := h.Covers.Thumbnail(ctx, title)
		if err != nil {
			h.Logger.Debug("cover lookup failed", zap.String("title", title), zap.Error(err))
		}
		if thumb != "" {
			c.Header("Cache-Control", coverFoundCache)
			c.JSON(http.StatusOK, gin.H{"url": thumb})
			return
		}
	}

	c.Header("Cache-Control", coverMissingCache)
	c.JSON(http.StatusOK, gin.H{"url": nil})
}
