package projection

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/handler"
	"github.com/shopspring/decimal"
)

// Position statuses.
const (
	PositionOpen   = "open"
	PositionClosed = "closed"
	PositionDead   = "dead"
)

// Position is the state of one staking position.
type Position struct {
	ID        string          `json:"id"`
	Owner     common.Address  `json:"owner"`
	RiskTier  uint8           `json:"risk_tier"`
	Status    string          `json:"status"`
	Stake     decimal.Decimal `json:"stake"`
	Withdrawn decimal.Decimal `json:"withdrawn"`
	Rewards   decimal.Decimal `json:"rewards"`
	Payout    decimal.Decimal `json:"payout"`

	// set by the settlement family
	DiedInScan string          `json:"died_in_scan,omitempty"`
	Lost       decimal.Decimal `json:"lost"`

	OpenedAt  uint64 `json:"opened_at"`
	UpdatedAt uint64 `json:"updated_at"`
}

func (p *projector) position(ctx context.Context, scope handler.Scope, ev events.TypedEvent) error {
	block := ev.Meta.BlockNumber

	switch e := ev.Payload.(type) {
	case events.PositionOpened:
		return update(ctx, scope, KindPosition, idKey(e.PositionId), func(pos *Position) {
			*pos = Position{
				ID:       idKey(e.PositionId),
				Owner:    e.Owner,
				RiskTier: e.RiskTier,
				Status:   PositionOpen,
				Stake:    amount(e.Stake),
				OpenedAt: block,
			}
			pos.UpdatedAt = block
		})

	case events.PositionIncreased:
		return update(ctx, scope, KindPosition, idKey(e.PositionId), func(pos *Position) {
			pos.ID = idKey(e.PositionId)
			pos.Stake = amount(e.NewStake)
			pos.UpdatedAt = block
		})

	case events.PositionWithdrawn:
		return update(ctx, scope, KindPosition, idKey(e.PositionId), func(pos *Position) {
			pos.ID = idKey(e.PositionId)
			pos.Owner = e.Owner
			pos.Stake = pos.Stake.Sub(amount(e.Amount))
			pos.Withdrawn = pos.Withdrawn.Add(amount(e.Amount))
			pos.UpdatedAt = block
		})

	case events.PositionClosed:
		return update(ctx, scope, KindPosition, idKey(e.PositionId), func(pos *Position) {
			pos.ID = idKey(e.PositionId)
			pos.Owner = e.Owner
			pos.Status = PositionClosed
			pos.Stake = decimal.Zero
			pos.Payout = amount(e.Payout)
			pos.UpdatedAt = block
		})

	case events.RewardsClaimed:
		return update(ctx, scope, KindPosition, idKey(e.PositionId), func(pos *Position) {
			pos.ID = idKey(e.PositionId)
			pos.Rewards = pos.Rewards.Add(amount(e.Amount))
			pos.UpdatedAt = block
		})

	default:
		return unexpected(ev)
	}
}
