package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"AlphaWalk/internal/domain/models"
	domrepo "AlphaWalk/internal/domain/repository"
	"AlphaWalk/pkg/cache"
	applogger "AlphaWalk/pkg/logger"
)

// CachedPriceStore decorates a PriceStore with a read-through cache. Daily
// history is append-only, so entries only need a TTL to pick up backfills.
type CachedPriceStore struct {
	inner domrepo.PriceStore
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedPriceStore(inner domrepo.PriceStore, c cache.Service, ttl time.Duration) *CachedPriceStore {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &CachedPriceStore{inner: inner, cache: c, ttl: ttl}
}

// SetLogger injects a structured logger.
func (s *CachedPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CachedPriceStore) Fetch(ctx context.Context, tickers []string, start, end time.Time) (*models.PricePanel, error) {
	key := panelKey(tickers, start, end)

	var bars []models.Bar
	err := s.cache.Get(ctx, key, &bars)
	if err == nil && len(bars) > 0 {
		if s.l != nil {
			s.l.Debug("price cache hit",
				applogger.String("key", key),
				applogger.Int("rows", len(bars)),
			)
		}
		return models.NewPricePanel(bars), nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) && s.l != nil {
		s.l.Warn("price cache read error", applogger.Error(err))
	}

	panel, err := s.inner.Fetch(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}

	if setErr := s.cache.Set(ctx, key, panel.Bars(), s.ttl); setErr != nil && s.l != nil {
		s.l.Warn("price cache write error", applogger.Error(setErr))
	}
	return panel, nil
}

func (s *CachedPriceStore) Health(ctx context.Context) error {
	return s.inner.Health(ctx)
}

func (s *CachedPriceStore) Close() error {
	return s.inner.Close()
}

func panelKey(tickers []string, start, end time.Time) string {
	sorted := make([]string, len(tickers))
	copy(sorted, tickers)
	sort.Strings(sorted)

	universe := cache.HashKey(strings.Join(sorted, ","))
	return cache.GenerateKeyWithParams("bars", universe,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
}
