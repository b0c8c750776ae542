package service

import (
	"context"
	"time"

	"github.com/Astemirdum/library-cms/library/internal/model"
	"github.com/Astemirdum/library-cms/library/internal/repository"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const kpisKey = "kpis"

type Stats struct {
	repo  repository.Repository
	cache *cache.Cache
	log   *zap.Logger
}

func NewStats(repo repository.Repository, ttl time.Duration, log *zap.Logger) *Stats {
	return &Stats{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
		log:   log.Named("stats"),
	}
}

// KPIs reports the share of published books and the mean reliability
// score, both as percentages.
func (s *Stats) KPIs(ctx context.Context) (model.KPIs, error) {
	if v, ok := s.cache.Get(kpisKey); ok {
		return v.(model.KPIs), nil
	}

	var (
		total, published int
		avg              float64
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, published, err = s.repo.PublishStats(gCtx)
		return err
	})
	g.Go(func() (err error) {
		avg, err = s.repo.AverageReturnRate(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.KPIs{}, err
	}

	kpis := model.KPIs{AverageReturnRate: avg}
	if total > 0 {
		kpis.BooksPublishRate = float64(published) / float64(total) * 100
	}
	s.cache.SetDefault(kpisKey, kpis)
	return kpis, nil
}
