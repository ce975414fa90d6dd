package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/mada-pay/mada_pay/internal/domain"
)

const cacheKeyPrefix = "price:"

// CachedSource keeps quotes in Redis for ttl and collapses concurrent misses for
// the same asset into one upstream call. Redis errors degrade to direct lookups.
type CachedSource struct {
	next   Source
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedSource wraps next with a Redis cache.
func NewCachedSource(next Source, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedSource {
	return &CachedSource{next: next, client: client, ttl: ttl, logger: logger}
}

// UnitPrice implements Source.
func (s *CachedSource) UnitPrice(ctx context.Context, asset domain.Asset) (Quote, error) {
	key := cacheKeyPrefix + string(asset)

	if q, ok := s.lookup(ctx, key); ok {
		return q, nil
	}

	// The shared lookup outlives any single caller; each caller still stops
	// waiting when its own ctx is done.
	flight := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		q, err := s.next.UnitPrice(flight, asset)
		if err != nil {
			return Quote{}, err
		}
		s.store(flight, key, q)
		return q, nil
	})
	select {
	case <-ctx.Done():
		return Quote{}, domain.Fail(domain.ErrProviderFailure, "price lookup for %s: %v", asset, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Quote{}, res.Err
		}
		return res.Val.(Quote), nil
	}
}

// Invalidate drops the cached quote of asset.
func (s *CachedSource) Invalidate(ctx context.Context, asset domain.Asset) error {
	if err := s.client.Del(ctx, cacheKeyPrefix+string(asset)).Err(); err != nil {
		return fmt.Errorf("invalidate %s: %w", asset, err)
	}
	return nil
}

func (s *CachedSource) lookup(ctx context.Context, key string) (Quote, bool) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("price cache read failed", "key", key, "error", err)
		}
		return Quote{}, false
	}
	var q Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		s.logger.Warn("price cache entry corrupt", "key", key, "error", err)
		return Quote{}, false
	}
	if q.Validate() != nil {
		return Quote{}, false
	}
	return q, true
}

func (s *CachedSource) store(ctx context.Context, key string, q Quote) {
	raw, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("price cache write failed", "key", key, "error", err)
	}
}
