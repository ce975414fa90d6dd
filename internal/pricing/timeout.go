package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/mada-pay/mada_pay/internal/domain"
)

type timeoutSource struct {
	next    Source
	timeout time.Duration
}

// WithTimeout bounds every lookup of next. Lookups that exceed timeout, or fail
// for reasons other than a bad price, surface as domain.ErrProviderFailure.
func WithTimeout(next Source, timeout time.Duration) Source {
	return &timeoutSource{next: next, timeout: timeout}
}

type quoteResult struct {
	quote Quote
	err   error
}

func (s *timeoutSource) UnitPrice(ctx context.Context, asset domain.Asset) (Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan quoteResult, 1)
	go func() {
		q, err := s.next.UnitPrice(ctx, asset)
		done <- quoteResult{quote: q, err: err}
	}()

	select {
	case <-ctx.Done():
		return Quote{}, domain.Fail(domain.ErrProviderFailure, "price lookup for %s: %v", asset, ctx.Err())
	case res := <-done:
		if res.err == nil {
			if err := res.quote.Validate(); err != nil {
				return Quote{}, err
			}
			return res.quote, nil
		}
		if errors.Is(res.err, domain.ErrInvalidPrice) || errors.Is(res.err, domain.ErrProviderFailure) {
			return Quote{}, res.err
		}
		return Quote{}, domain.Fail(domain.ErrProviderFailure, "price lookup for %s: %v", asset, res.err)
	}
}
