package projection

import (
	"context"
	"strconv"

	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/handler"
	"github.com/shopspring/decimal"
)

// Fee tracks one fee type.
type Fee struct {
	FeeType   uint8           `json:"fee_type"`
	Rate      decimal.Decimal `json:"rate"`
	Collected decimal.Decimal `json:"collected"`
}

// FeeDistribution accumulates every distribution round.
type FeeDistribution struct {
	Rounds     uint64          `json:"rounds"`
	ToStakers  decimal.Decimal `json:"to_stakers"`
	ToTreasury decimal.Decimal `json:"to_treasury"`
	Burned     decimal.Decimal `json:"burned"`
	LastBlock  uint64          `json:"last_block"`
}

func feeKey(t uint8) string {
	return strconv.Itoa(int(t))
}

func (p *projector) fee(ctx context.Context, scope handler.Scope, ev events.TypedEvent) error {
	switch e := ev.Payload.(type) {
	case events.FeeCollected:
		return update(ctx, scope, KindFee, feeKey(e.FeeType), func(f *Fee) {
			f.FeeType = e.FeeType
			f.Collected = f.Collected.Add(amount(e.Amount))
		})

	case events.FeeRateUpdated:
		return update(ctx, scope, KindFee, feeKey(e.FeeType), func(f *Fee) {
			f.FeeType = e.FeeType
			f.Rate = amount(e.NewRate)
		})

	case events.FeesDistributed:
		return update(ctx, scope, KindFeeDistribution, distributionKey, func(d *FeeDistribution) {
			d.Rounds++
			d.ToStakers = d.ToStakers.Add(amount(e.ToStakers))
			d.ToTreasury = d.ToTreasury.Add(amount(e.ToTreasury))
			d.Burned = d.Burned.Add(amount(e.Burned))
			d.LastBlock = ev.Meta.BlockNumber
		})

	default:
		return unexpected(ev)
	}
}
