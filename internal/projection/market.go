package projection

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/handler"
	"github.com/shopspring/decimal"
)

// Market statuses.
const (
	MarketOpen      = "open"
	MarketResolved  = "resolved"
	MarketCancelled = "cancelled"
)

type Market struct {
	ID       string          `json:"id"`
	Epoch    string          `json:"epoch"`
	Deadline uint64          `json:"deadline"`
	Status   string          `json:"status"`
	Outcome  bool            `json:"outcome"`
	YesPool  decimal.Decimal `json:"yes_pool"`
	NoPool   decimal.Decimal `json:"no_pool"`
	Claimed  decimal.Decimal `json:"claimed"`
}

// Bet aggregates the stakes of one bettor in one market.
type Bet struct {
	MarketID string          `json:"market_id"`
	Bettor   common.Address  `json:"bettor"`
	Yes      decimal.Decimal `json:"yes"`
	No       decimal.Decimal `json:"no"`
	Winnings decimal.Decimal `json:"winnings"`
}

func betKey(market string, bettor common.Address) string {
	return market + ":" + bettor.Hex()
}

func (p *projector) market(ctx context.Context, scope handler.Scope, ev events.TypedEvent) error {
	switch e := ev.Payload.(type) {
	case events.MarketCreated:
		return update(ctx, scope, KindMarket, idKey(e.MarketId), func(m *Market) {
			*m = Market{ID: idKey(e.MarketId), Epoch: idKey(e.Epoch), Deadline: e.Deadline, Status: MarketOpen}
		})

	case events.BetPlaced:
		id := idKey(e.MarketId)
		stake := amount(e.Amount)

		if err := update(ctx, scope, KindMarket, id, func(m *Market) {
			m.ID = id
			if e.Outcome {
				m.YesPool = m.YesPool.Add(stake)
			} else {
				m.NoPool = m.NoPool.Add(stake)
			}
		}); err != nil {
			return err
		}

		return update(ctx, scope, KindBet, betKey(id, e.Bettor), func(b *Bet) {
			b.MarketID = id
			b.Bettor = e.Bettor
			if e.Outcome {
				b.Yes = b.Yes.Add(stake)
			} else {
				b.No = b.No.Add(stake)
			}
		})

	case events.MarketResolved:
		return update(ctx, scope, KindMarket, idKey(e.MarketId), func(m *Market) {
			m.ID = idKey(e.MarketId)
			m.Status = MarketResolved
			m.Outcome = e.Outcome
		})

	case events.MarketCancelled:
		return update(ctx, scope, KindMarket, idKey(e.MarketId), func(m *Market) {
			m.ID = idKey(e.MarketId)
			m.Status = MarketCancelled
		})

	case events.WinningsClaimed:
		id := idKey(e.MarketId)
		won := amount(e.Amount)

		if err := update(ctx, scope, KindMarket, id, func(m *Market) {
			m.ID = id
			m.Claimed = m.Claimed.Add(won)
		}); err != nil {
			return err
		}

		return update(ctx, scope, KindBet, betKey(id, e.Bettor), func(b *Bet) {
			b.MarketID = id
			b.Bettor = e.Bettor
			b.Winnings = b.Winnings.Add(won)
		})

	default:
		return unexpected(ev)
	}
}
