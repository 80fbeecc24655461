package ranking

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ehonhub/internal/planner"
	"ehonhub/pkg/models"
)

const (
	rankingCacheControl = "s-maxage=60, stale-while-revalidate=86400"

	DefaultBackgroundTimeout = 5 * time.Minute
)

type Handler struct {
	Service *Service
	Secret  Secret
	Logger  *zap.Logger
	// Context is the parent of background rebuilds; cancel it on shutdown.
	Context           context.Context
	BackgroundTimeout time.Duration

	rebuilding  atomic.Bool
	provisional atomic.Pointer[models.Snapshot]
	wg          sync.WaitGroup
}

func NewHandler(svc *Service, secret Secret, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:           svc,
		Secret:            secret,
		Logger:            logger,
		Context:           context.Background(),
		BackgroundTimeout: DefaultBackgroundTimeout,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ranking", h.get)      // GET /ranking
	rg.GET("/rebuild", h.rebuild)  // GET /rebuild?secret=...&fast=1
	rg.POST("/rebuild", h.rebuild) // POST /rebuild?secret=...
}

type rankingResponse struct {
	OK          bool                   `json:"ok"`
	BuildID     string                 `json:"build_id"`
	Mode        string                 `json:"mode"`
	GeneratedAt time.Time              `json:"generated_at"`
	Count       int                    `json:"count"`
	Ranking     []models.BookAggregate `json:"ranking"`
}

func (h *Handler) get(c *gin.Context) {
	ctx := c.Request.Context()

	snap, err := h.Service.Store.Read(ctx)
	if err != nil {
		h.Logger.Error("read snapshot failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "read failed"})
		return
	}

	if snap.Empty() {
		if p := h.provisional.Load(); p != nil {
			snap = *p
		} else {
			snap, err = h.Service.Preview(ctx, planner.ModeFast)
			if err != nil {
				h.Logger.Error("fast build failed", zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "ranking build failed"})
				return
			}
			h.provisional.Store(&snap)
		}
		h.startBackgroundRebuild()
	}

	ranking := snap.Ranking
	if ranking == nil {
		ranking = []models.BookAggregate{}
	}
	c.Header("Cache-Control", rankingCacheControl)
	c.JSON(http.StatusOK, rankingResponse{
		OK:          true,
		BuildID:     snap.BuildID,
		Mode:        snap.Mode,
		GeneratedAt: snap.GeneratedAt,
		Count:       len(ranking),
		Ranking:     ranking,
	})
}

func (h *Handler) rebuild(c *gin.Context) {
	given := c.Query("secret")
	if given == "" {
		given = c.GetHeader("X-Rebuild-Secret")
	}
	if err := h.Secret.Check(given); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
		return
	}

	mode := planner.ModeFull
	if fast, _ := strconv.ParseBool(c.Query("fast")); fast {
		mode = planner.ModeFast
	}

	snap, err := h.Service.Rebuild(c.Request.Context(), mode)
	if err != nil {
		h.Logger.Error("rebuild failed", zap.String("mode", string(mode)), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "ranking build failed"})
		return
	}
	h.provisional.Store(nil)

	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"build_id":     snap.BuildID,
		"generated_at": snap.GeneratedAt,
		"count":        len(snap.Ranking),
	})
}

// startBackgroundRebuild launches a full rebuild unless one is running.
func (h *Handler) startBackgroundRebuild() {
	if !h.rebuilding.CompareAndSwap(false, true) {
		return
	}
	parent := h.Context
	if parent == nil {
		parent = context.Background()
	}
	timeout := h.BackgroundTimeout
	if timeout <= 0 {
		timeout = DefaultBackgroundTimeout
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.rebuilding.Store(false)

		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		if _, err := h.Service.Rebuild(ctx, planner.ModeFull); err != nil {
			h.Logger.Warn("background rebuild failed", zap.Error(err))
			return
		}
		h.provisional.Store(nil)
	}()
}

// Wait blocks until background rebuilds have finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}
