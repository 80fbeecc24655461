package ranking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ehonhub/internal/metrics"
	"ehonhub/internal/pipeline"
	"ehonhub/internal/planner"
	synchub "ehonhub/internal/sync"
	"ehonhub/pkg/models"
)

// Builder runs one ranking build.
type Builder interface {
	Build(ctx context.Context, mode planner.Mode) (*pipeline.Result, error)
}

// Notifier is told about every stored snapshot.
type Notifier interface {
	Publish(ev synchub.RankingEvent)
}

// DefaultBuildTimeout bounds a shared build once it is detached from its callers.
const DefaultBuildTimeout = 5 * time.Minute

// Service builds rankings and keeps the store current. Concurrent calls for
// the same mode share one build. The shared build runs detached from any single
// caller, so one caller giving up only affects that caller.
type Service struct {
	Builder  Builder
	Store    Store
	Notifier Notifier
	Logger   *zap.Logger
	Timeout  time.Duration

	group singleflight.Group
}

func NewService(b Builder, store Store, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Builder:  b,
		Store:    store,
		Notifier: notifier,
		Logger:   logger,
		Timeout:  DefaultBuildTimeout,
	}
}

// Preview builds a snapshot without storing it.
func (s *Service) Preview(ctx context.Context, mode planner.Mode) (models.Snapshot, error) {
	return s.shared(ctx, "preview:"+string(mode), func(bctx context.Context) (models.Snapshot, error) {
		res, err := s.Builder.Build(bctx, mode)
		if err != nil {
			return models.Snapshot{}, err
		}
		return res.Snapshot, nil
	})
}

// Rebuild builds a snapshot and replaces the stored one with it.
func (s *Service) Rebuild(ctx context.Context, mode planner.Mode) (models.Snapshot, error) {
	return s.shared(ctx, "rebuild:"+string(mode), func(bctx context.Context) (models.Snapshot, error) {
		return s.rebuild(bctx, mode)
	})
}

// shared runs fn once per key. The build gets a context that keeps the first
// caller's values but not its cancellation; each caller waits on its own ctx.
func (s *Service) shared(ctx context.Context, key string, fn func(context.Context) (models.Snapshot, error)) (models.Snapshot, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultBuildTimeout
	}
	ch := s.group.DoChan(key, func() (any, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return fn(bctx)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return models.Snapshot{}, r.Err
		}
		return r.Val.(models.Snapshot), nil
	case <-ctx.Done():
		return models.Snapshot{}, ctx.Err()
	}
}

func (s *Service) rebuild(ctx context.Context, mode planner.Mode) (models.Snapshot, error) {
	res, err := s.Builder.Build(ctx, mode)
	if err != nil {
		return models.Snapshot{}, err
	}
	snap := res.Snapshot
	if err := s.Store.Write(ctx, snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("store snapshot: %w", err)
	}
	metrics.RankingSize.Set(float64(len(snap.Ranking)))

	s.Logger.Info("snapshot stored",
		zap.String("build_id", snap.BuildID),
		zap.String("mode", snap.Mode),
		zap.Int("books", len(snap.Ranking)))

	if s.Notifier != nil {
		s.Notifier.Publish(synchub.NewRankingEvent(snap))
	}
	return snap, nil
}
