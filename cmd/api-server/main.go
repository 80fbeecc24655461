package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ehonhub/internal/app"
	"ehonhub/internal/links"
	"ehonhub/internal/ranking"
	synchub "ehonhub/internal/sync"
	"ehonhub/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	store, err := app.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal("open snapshot store", zap.Error(err))
	}
	defer store.Close()

	if !app.Secret(cfg).Configured() {
		logger.Warn("no rebuild secret configured; /rebuild will always answer 403")
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	hub := synchub.NewHub(logger.Named("ws"))
	clients := app.NewClients(cfg)
	builder := app.NewBuilder(cfg, clients, logger)

	svc := ranking.NewService(builder, store, hub, logger.Named("ranking"))
	rankingHandler := ranking.NewHandler(svc, app.Secret(cfg), logger.Named("ranking"))
	rankingHandler.Context = rootCtx

	linksHandler := links.NewHandler(links.Affiliate{
		AID:  cfg.Affiliate.AID,
		PID:  cfg.Affiliate.PID,
		PCID: cfg.Affiliate.PCID,
		PLID: cfg.Affiliate.PLID,
	}, clients.GoogleBooks, logger.Named("links"))

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": cfg.Store.Backend})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"store":      "unavailable",
				"ws_clients": stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"store":      "ok",
			"ws_clients": stats.WSClients,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", synchub.WSHandler(hub))

	api := router.Group("")
	rankingHandler.RegisterRoutes(api)
	linksHandler.RegisterRoutes(api)

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API server listening", zap.String("addr", cfg.Listen))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
	hub.Close()

	// abort any background rebuild and wait for it to unwind
	cancelRoot()
	rankingHandler.Wait()
	logger.Info("server stopped")
}
