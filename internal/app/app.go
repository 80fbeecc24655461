// Package app assembles the ranking stack from configuration. Both binaries
// go through here so they build identical pipelines.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ehonhub/internal/aggregate"
	"ehonhub/internal/pipeline"
	"ehonhub/internal/planner"
	"ehonhub/internal/ranking"
	"ehonhub/internal/sources"
	"ehonhub/pkg/database"
	"ehonhub/pkg/utils"
)

// Clients are the two upstream APIs.
type Clients struct {
	Qiita       *sources.QiitaClient
	GoogleBooks *sources.GoogleBooksClient
}

func NewClients(cfg utils.Config) Clients {
	gb := sources.NewGoogleBooksClient(cfg.GoogleBooks.BaseURL, cfg.GoogleBooks.APIKey, cfg.GoogleBooks.RPS)
	if cfg.GoogleBooks.TitleResults > 0 {
		gb.TitleResults = cfg.GoogleBooks.TitleResults
	}
	return Clients{
		Qiita:       sources.NewQiitaClient(cfg.Qiita.BaseURL, cfg.Qiita.Token, cfg.Qiita.RPS),
		GoogleBooks: gb,
	}
}

// NewBuilder wires planner, validator and aggregation policy.
func NewBuilder(cfg utils.Config, c Clients, logger *zap.Logger) *pipeline.Builder {
	bc := cfg.Build

	p := planner.New(c.Qiita, logger.Named("planner"))
	if len(bc.Topics) > 0 {
		p.Topics = bc.Topics
	}
	if bc.PerQuery > 0 {
		p.PerQuery = bc.PerQuery
	}
	if bc.Language != "" {
		p.Language = bc.Language
	}
	p.MinStocks = bc.MinStocks
	if bc.SearchTimeout > 0 {
		p.Timeout = bc.SearchTimeout
	}

	b := pipeline.New(p, c.GoogleBooks, logger.Named("pipeline"))
	b.Policy = aggregate.Policy{
		MinMentions:              bc.MinMentions,
		MaxResults:               bc.MaxResults,
		RequireTitleConfirmation: bc.RequireTitleConfirmation,
		StockWeight:              bc.StockWeight,
	}
	b.Extractor.ScanBareASIN = bc.ScanBareASIN
	if bc.Quota > 0 {
		b.Quota = bc.Quota
	}
	if bc.Concurrency > 0 {
		b.Concurrency = bc.Concurrency
	}
	if bc.LookupTimeout > 0 {
		b.LookupTimeout = bc.LookupTimeout
	}
	if bc.Language != "" {
		b.Language = bc.Language
	}
	return b
}

// Store is an opened snapshot store plus whatever must be closed with it.
type Store struct {
	ranking.Store
	// DB is set for the sqlite backend.
	DB    *sql.DB
	close func() error
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Ping checks the backing service, if any.
func (s *Store) Ping(ctx context.Context) error {
	switch st := s.Store.(type) {
	case *ranking.SQLStore:
		return st.DB.PingContext(ctx)
	case *ranking.RedisStore:
		return st.Client.Ping(ctx).Err()
	}
	return nil
}

// OpenStore opens the configured backend.
func OpenStore(cfg utils.Config, logger *zap.Logger) (*Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return &Store{Store: ranking.NewMemoryStore()}, nil

	case "redis":
		client, err := ranking.NewRedisClient(cfg.Store.RedisURL)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("using redis snapshot store", zap.String("key", cfg.Store.RedisKey))
		return &Store{Store: ranking.NewRedisStore(client, cfg.Store.RedisKey), close: client.Close}, nil

	default:
		dbCfg := database.DefaultConfig()
		if cfg.Store.DBPath != "" {
			dbCfg.Path = cfg.Store.DBPath
		}
		db, err := database.Open(dbCfg)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("using sqlite snapshot store", zap.String("path", dbCfg.Path))
		return &Store{Store: ranking.NewSQLStore(db), DB: db, close: db.Close}, nil
	}
}

// Secret converts the rebuild config.
func Secret(cfg utils.Config) ranking.Secret {
	return ranking.Secret{Plain: cfg.Rebuild.Secret, Hash: cfg.Rebuild.SecretHash}
}
