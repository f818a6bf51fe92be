// Package projection maintains the default entity projections of every event family.
// Amounts are kept as decimals in token base units.
package projection

import (
	"context"
	"fmt"
	"math/big"

	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/handler"
	"github.com/shopspring/decimal"
)

// Entity kinds written by the default handlers.
const (
	KindPosition        = "position"
	KindEpoch           = "epoch"
	KindScan            = "scan"
	KindSystem          = "system"
	KindSettlement      = "settlement"
	KindMarket          = "market"
	KindBet             = "bet"
	KindBalance         = "balance"
	KindAllowance       = "allowance"
	KindToken           = "token"
	KindTaxExemption    = "tax_exemption"
	KindFee             = "fee"
	KindFeeDistribution = "fee_distribution"
)

// systemKey and distributionKey name the singleton rows of their kinds.
const (
	systemKey       = "status"
	distributionKey = "totals"
)

// New returns a handler set with one projection handler per family.
func New(log *logger.Logger) handler.Set {
	if log == nil {
		log = logger.NewNopLogger()
	}
	p := &projector{log: log}

	return handler.Set{
		Position:   handler.HandlerFunc(p.position),
		Lifecycle:  handler.HandlerFunc(p.lifecycle),
		Settlement: handler.HandlerFunc(p.settlement),
		Market:     handler.HandlerFunc(p.market),
		Token:      handler.HandlerFunc(p.token),
		Fee:        handler.HandlerFunc(p.fee),
	}
}

type projector struct {
	log *logger.Logger
}

func amount(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}

func idKey(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// update loads kind/key into a fresh T (zero if missing), applies fn and saves the result.
func update[T any](ctx context.Context, scope handler.Scope, kind, key string, fn func(v *T)) error {
	var v T
	if _, err := scope.Load(ctx, kind, key, &v); err != nil {
		return fmt.Errorf("failed to load %s %s: %w", kind, key, err)
	}

	fn(&v)

	if err := scope.Save(ctx, kind, key, &v); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", kind, key, err)
	}
	return nil
}

func unexpected(ev events.TypedEvent) error {
	return fmt.Errorf("unexpected %s event %s", ev.Family(), ev.Name())
}
