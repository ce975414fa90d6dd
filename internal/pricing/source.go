package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mada-pay/mada_pay/internal/domain"
)

// Quote is a unit price snapshot for one asset.
type Quote struct {
	Asset domain.Asset    `json:"asset"`
	USD   decimal.Decimal `json:"usd"`
	Local decimal.Decimal `json:"local"`
	AsOf  time.Time       `json:"as_of"`
}

// Validate fails with domain.ErrInvalidPrice unless both prices are positive.
func (q Quote) Validate() error {
	if !q.Local.IsPositive() || !q.USD.IsPositive() {
		return domain.Fail(domain.ErrInvalidPrice, "%s quoted at %s (%s USD)", q.Asset, q.Local, q.USD)
	}
	return nil
}

// Source returns current unit prices. Implementations must honour ctx.
type Source interface {
	UnitPrice(ctx context.Context, asset domain.Asset) (Quote, error)
}

// ReferencePricesUSD are the static reference prices: gold is quoted per gram.
func ReferencePricesUSD() map[domain.Asset]decimal.Decimal {
	return map[domain.Asset]decimal.Decimal{
		domain.AssetBitcoin:  decimal.NewFromInt(95000),
		domain.AssetEthereum: decimal.NewFromInt(3200),
		domain.AssetGold:     decimal.NewFromInt(85),
	}
}

// StaticSource quotes fixed USD prices converted at a fixed local rate.
type StaticSource struct {
	usd  map[domain.Asset]decimal.Decimal
	rate decimal.Decimal
	now  func() time.Time
}

// NewStaticSource builds a source over the reference prices; rate is local units per USD.
func NewStaticSource(rate decimal.Decimal) *StaticSource {
	return &StaticSource{usd: ReferencePricesUSD(), rate: rate, now: time.Now}
}

// Set overrides the USD price of asset.
func (s *StaticSource) Set(asset domain.Asset, usd decimal.Decimal) {
	s.usd[asset] = usd
}

// UnitPrice implements Source.
func (s *StaticSource) UnitPrice(ctx context.Context, asset domain.Asset) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, domain.Fail(domain.ErrProviderFailure, "price lookup for %s: %v", asset, err)
	}
	usd, ok := s.usd[asset]
	if !ok {
		return Quote{}, domain.Fail(domain.ErrInvalidPrice, "no price for %s", asset)
	}
	q := Quote{
		Asset: asset,
		USD:   usd,
		Local: domain.RoundLocal(usd.Mul(s.rate)),
		AsOf:  s.now().UTC(),
	}
	if err := q.Validate(); err != nil {
		return Quote{}, err
	}
	return q, nil
}
