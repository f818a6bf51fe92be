package projection

import (
	"context"

	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/handler"
	"github.com/shopspring/decimal"
)

// Settlement records how the stake of a dead position was split.
type Settlement struct {
	PositionID  string          `json:"position_id"`
	ToSurvivors decimal.Decimal `json:"to_survivors"`
	ToTreasury  decimal.Decimal `json:"to_treasury"`
	Burned      decimal.Decimal `json:"burned"`
	SettledAt   uint64          `json:"settled_at"`
}

func (p *projector) settlement(ctx context.Context, scope handler.Scope, ev events.TypedEvent) error {
	block := ev.Meta.BlockNumber

	switch e := ev.Payload.(type) {
	case events.PositionDied:
		return update(ctx, scope, KindPosition, idKey(e.PositionId), func(pos *Position) {
			pos.ID = idKey(e.PositionId)
			pos.Status = PositionDead
			pos.DiedInScan = idKey(e.ScanId)
			pos.Lost = amount(e.LostAmount)
			pos.Stake = decimal.Max(pos.Stake.Sub(pos.Lost), decimal.Zero)
			pos.UpdatedAt = block
		})

	case events.DeathSettled:
		return update(ctx, scope, KindSettlement, idKey(e.PositionId), func(s *Settlement) {
			*s = Settlement{
				PositionID:  idKey(e.PositionId),
				ToSurvivors: amount(e.ToSurvivors),
				ToTreasury:  amount(e.ToTreasury),
				Burned:      amount(e.Burned),
				SettledAt:   block,
			}
		})

	case events.SurvivorRewarded:
		return update(ctx, scope, KindPosition, idKey(e.PositionId), func(pos *Position) {
			pos.ID = idKey(e.PositionId)
			pos.Rewards = pos.Rewards.Add(amount(e.Amount))
			pos.UpdatedAt = block
		})

	case events.CascadeTriggered:
		return update(ctx, scope, KindScan, idKey(e.ScanId), func(s *Scan) {
			s.ID = idKey(e.ScanId)
			s.Deaths = s.Deaths.Add(amount(e.Deaths))
		})

	default:
		return unexpected(ev)
	}
}
