package pricing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mada-pay/mada_pay/internal/domain"
	"github.com/mada-pay/mada_pay/internal/logging"
)

type countingSource struct {
	calls atomic.Int32
	delay time.Duration
	err   error
	inner Source
}

func (s *countingSource) UnitPrice(ctx context.Context, asset domain.Asset) (Quote, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Quote{}, ctx.Err()
		}
	}
	if s.err != nil {
		return Quote{}, s.err
	}
	return s.inner.UnitPrice(ctx, asset)
}

func TestStaticSource_ReferencePrices(t *testing.T) {
	src := NewStaticSource(decimal.NewFromInt(4500))
	ctx := context.Background()

	btc, err := src.UnitPrice(ctx, domain.AssetBitcoin)
	require.NoError(t, err)
	assert.True(t, btc.USD.Equal(decimal.NewFromInt(95000)))
	assert.True(t, btc.Local.Equal(decimal.NewFromInt(427_500_000)))

	gold, err := src.UnitPrice(ctx, domain.AssetGold)
	require.NoError(t, err)
	assert.True(t, gold.Local.Equal(decimal.NewFromInt(382_500)))

	src.Set(domain.AssetEthereum, decimal.Zero)
	_, err = src.UnitPrice(ctx, domain.AssetEthereum)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = src.UnitPrice(ctx, domain.Asset("dogecoin"))
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestWithTimeout_SlowSourceIsProviderFailure(t *testing.T) {
	slow := &countingSource{delay: time.Second, inner: NewStaticSource(decimal.NewFromInt(4500))}
	src := WithTimeout(slow, 20*time.Millisecond)

	start := time.Now()
	_, err := src.UnitPrice(context.Background(), domain.AssetBitcoin)
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWithTimeout_WrapsUpstreamErrors(t *testing.T) {
	broken := &countingSource{err: errors.New("connection refused")}
	_, err := WithTimeout(broken, time.Second).UnitPrice(context.Background(), domain.AssetGold)
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Contains(t, domain.Reason(err), "connection refused")

	fast := WithTimeout(NewStaticSource(decimal.NewFromInt(4500)), time.Second)
	q, err := fast.UnitPrice(context.Background(), domain.AssetGold)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetGold, q.Asset)
}

func newCached(t *testing.T, next Source) (*CachedSource, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewCachedSource(next, client, time.Minute, logging.Discard()), mr
}

func TestCachedSource_HitsUpstreamOncePerTTL(t *testing.T) {
	upstream := &countingSource{inner: NewStaticSource(decimal.NewFromInt(4500))}
	cached, mr := newCached(t, upstream)
	ctx := context.Background()

	first, err := cached.UnitPrice(ctx, domain.AssetBitcoin)
	require.NoError(t, err)
	second, err := cached.UnitPrice(ctx, domain.AssetBitcoin)
	require.NoError(t, err)

	assert.Equal(t, int32(1), upstream.calls.Load())
	assert.True(t, first.Local.Equal(second.Local))
	assert.True(t, mr.Exists("price:bitcoin"))

	mr.FastForward(2 * time.Minute)
	_, err = cached.UnitPrice(ctx, domain.AssetBitcoin)
	require.NoError(t, err)
	assert.Equal(t, int32(2), upstream.calls.Load())

	require.NoError(t, cached.Invalidate(ctx, domain.AssetBitcoin))
	assert.False(t, mr.Exists("price:bitcoin"))
}

func TestCachedSource_CollapsesConcurrentMisses(t *testing.T) {
	upstream := &countingSource{delay: 50 * time.Millisecond, inner: NewStaticSource(decimal.NewFromInt(4500))}
	cached, _ := newCached(t, upstream)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cached.UnitPrice(ctx, domain.AssetEthereum)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), upstream.calls.Load())
}

func TestCachedSource_DoesNotCacheFailures(t *testing.T) {
	upstream := &countingSource{err: domain.Fail(domain.ErrInvalidPrice, "no quote")}
	cached, mr := newCached(t, upstream)

	_, err := cached.UnitPrice(context.Background(), domain.AssetGold)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	assert.False(t, mr.Exists("price:gold"))
}

// gatedSource holds every lookup until release is closed.
type gatedSource struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	inner   Source
}

func (s *gatedSource) UnitPrice(ctx context.Context, asset domain.Asset) (Quote, error) {
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return Quote{}, ctx.Err()
	}
	return s.inner.UnitPrice(ctx, asset)
}

func TestCachedSource_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	upstream := &gatedSource{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		inner:   NewStaticSource(decimal.NewFromInt(4500)),
	}
	cached, mr := newCached(t, upstream)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cached.UnitPrice(firstCtx, domain.AssetBitcoin)
		firstErr <- err
	}()
	<-upstream.entered

	secondErr := make(chan error, 1)
	go func() {
		_, err := cached.UnitPrice(context.Background(), domain.AssetBitcoin)
		secondErr <- err
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, domain.ErrProviderFailure)

	close(upstream.release)
	require.NoError(t, <-secondErr)
	assert.True(t, mr.Exists("price:bitcoin"))
}
