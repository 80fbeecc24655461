package main

import (
	"flag"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ehonhub/internal/mirror"
	"ehonhub/pkg/utils"
)

// mirror-server serves recorded fixtures in place of the Qiita and Google
// Books APIs. Point qiita.base_url and googlebooks.base_url at it.
func main() {
	var (
		dir  = flag.String("dir", "data/mirror", "fixture directory")
		addr = flag.String("addr", ":9000", "listen address")
	)
	flag.Parse()

	logger, err := utils.NewLogger("info", "console")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	fx, err := mirror.Load(*dir)
	if err != nil {
		logger.Fatal("load fixtures", zap.String("dir", *dir), zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	mirror.NewHandler(fx).RegisterRoutes(r)

	logger.Info("mirror-server listening",
		zap.String("addr", *addr),
		zap.Int("items", len(fx.Items)),
		zap.Int("volumes", len(fx.Volumes)))
	if err := r.Run(*addr); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}
