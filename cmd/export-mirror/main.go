package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ehonhub/internal/app"
	"ehonhub/internal/classify"
	"ehonhub/internal/mirror"
	"ehonhub/internal/planner"
	"ehonhub/pkg/utils"
)

// export-mirror records live search results and their catalog metadata as
// fixtures for mirror-server.
func main() {
	var (
		outDir  = flag.String("out", "data/mirror", "fixture directory")
		quota   = flag.Int("quota", 100, "articles to record")
		fast    = flag.Bool("fast", true, "use the quick search plan")
		cfgPath = flag.String("config", "", "config file")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Log.Level, "console")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	clients := app.NewClients(cfg)
	builder := app.NewBuilder(cfg, clients, logger)

	mode := planner.ModeFull
	if *fast {
		mode = planner.ModeFast
	}
	articles, err := builder.Planner.Collect(ctx, *quota, mode)
	if err != nil {
		logger.Fatal("collect articles", zap.Error(err))
	}

	fx := &mirror.Fixtures{}
	seen := make(map[string]struct{})
	for _, a := range articles {
		fx.Items = append(fx.Items, mirror.ItemFromArticle(a))

		ref := builder.Extractor.Extract(a.Text())
		if ref.ISBN != "" {
			if _, ok := seen["isbn:"+ref.ISBN]; !ok {
				seen["isbn:"+ref.ISBN] = struct{}{}
				meta, err := clients.GoogleBooks.LookupByISBN(ctx, ref.ISBN)
				if err != nil {
					logger.Warn("isbn lookup", zap.String("isbn", ref.ISBN), zap.Error(err))
				} else if meta != nil {
					fx.Volumes = append(fx.Volumes, mirror.VolumeFromMeta("isbn-"+ref.ISBN, *meta, ""))
				}
			}
		}

		for _, title := range classify.FilterTitles(ref.Titles) {
			if !classify.HasTitleMarker(title) {
				continue
			}
			if _, ok := seen["title:"+title]; ok {
				continue
			}
			seen["title:"+title] = struct{}{}
			metas, err := clients.GoogleBooks.LookupByTitle(ctx, title, cfg.Build.Language)
			if err != nil {
				logger.Warn("title lookup", zap.String("title", title), zap.Error(err))
				continue
			}
			for _, m := range metas {
				id := fmt.Sprintf("title-%d", len(fx.Volumes))
				fx.Volumes = append(fx.Volumes, mirror.VolumeFromMeta(id, m, cfg.Build.Language))
			}
		}
	}

	if err := mirror.Save(*outDir, fx); err != nil {
		logger.Fatal("save fixtures", zap.Error(err))
	}
	logger.Info("fixtures recorded",
		zap.String("dir", *outDir),
		zap.Int("items", len(fx.Items)),
		zap.Int("volumes", len(fx.Volumes)))
}
