package projection

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/handler"
	"github.com/shopspring/decimal"
)

type Epoch struct {
	Number    string `json:"number"`
	StartTime uint64 `json:"start_time"`
	EndTime   uint64 `json:"end_time,omitempty"`
	Ended     bool   `json:"ended"`
}

type Scan struct {
	ID         string          `json:"id"`
	Epoch      string          `json:"epoch"`
	Completed  bool            `json:"completed"`
	Survivors  decimal.Decimal `json:"survivors"`
	Casualties decimal.Decimal `json:"casualties"`
	// Deaths is counted by the settlement family when a cascade triggers.
	Deaths      decimal.Decimal `json:"deaths"`
	RequestedAt uint64          `json:"requested_at"`
	CompletedAt uint64          `json:"completed_at,omitempty"`
}

type System struct {
	Paused    bool           `json:"paused"`
	ChangedBy common.Address `json:"changed_by"`
	UpdatedAt uint64         `json:"updated_at"`
}

func (p *projector) lifecycle(ctx context.Context, scope handler.Scope, ev events.TypedEvent) error {
	block := ev.Meta.BlockNumber

	switch e := ev.Payload.(type) {
	case events.EpochStarted:
		return update(ctx, scope, KindEpoch, idKey(e.Epoch), func(ep *Epoch) {
			ep.Number = idKey(e.Epoch)
			ep.StartTime = e.StartTime
		})

	case events.EpochEnded:
		return update(ctx, scope, KindEpoch, idKey(e.Epoch), func(ep *Epoch) {
			ep.Number = idKey(e.Epoch)
			ep.EndTime = e.EndTime
			ep.Ended = true
		})

	case events.ScanRequested:
		return update(ctx, scope, KindScan, idKey(e.ScanId), func(s *Scan) {
			s.ID = idKey(e.ScanId)
			s.Epoch = idKey(e.Epoch)
			s.RequestedAt = block
		})

	case events.ScanCompleted:
		return update(ctx, scope, KindScan, idKey(e.ScanId), func(s *Scan) {
			s.ID = idKey(e.ScanId)
			s.Epoch = idKey(e.Epoch)
			s.Completed = true
			s.Survivors = amount(e.Survivors)
			s.Casualties = amount(e.Casualties)
			s.CompletedAt = block
		})

	case events.SystemPaused:
		return p.setPaused(ctx, scope, true, e.Account, block)

	case events.SystemUnpaused:
		return p.setPaused(ctx, scope, false, e.Account, block)

	default:
		return unexpected(ev)
	}
}

func (p *projector) setPaused(ctx context.Context, scope handler.Scope, paused bool, by common.Address, block uint64) error {
	p.log.Infow("system pause state changed", "paused", paused, "account", by.Hex(), "block", block)

	return update(ctx, scope, KindSystem, systemKey, func(s *System) {
		s.Paused = paused
		s.ChangedBy = by
		s.UpdatedAt = block
	})
}
