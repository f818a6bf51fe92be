package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type MarketCreated struct {
	MarketId *big.Int `json:"market_id"` //nolint:revive
	Epoch    *big.Int `json:"epoch"`
	Deadline uint64   `json:"deadline"`
}

type BetPlaced struct {
	MarketId *big.Int       `json:"market_id"` //nolint:revive
	Bettor   common.Address `json:"bettor"`
	Outcome  bool           `json:"outcome"`
	Amount   *big.Int       `json:"amount"`
}

type MarketResolved struct {
	MarketId *big.Int `json:"market_id"` //nolint:revive
	Outcome  bool     `json:"outcome"`
}

type MarketCancelled struct {
	MarketId *big.Int `json:"market_id"` //nolint:revive
}

type WinningsClaimed struct {
	MarketId *big.Int       `json:"market_id"` //nolint:revive
	Bettor   common.Address `json:"bettor"`
	Amount   *big.Int       `json:"amount"`
}

func (MarketCreated) EventName() string   { return "MarketCreated" }
func (BetPlaced) EventName() string       { return "BetPlaced" }
func (MarketResolved) EventName() string  { return "MarketResolved" }
func (MarketCancelled) EventName() string { return "MarketCancelled" }
func (WinningsClaimed) EventName() string { return "WinningsClaimed" }

func (MarketCreated) Family() Family   { return FamilyMarket }
func (BetPlaced) Family() Family       { return FamilyMarket }
func (MarketResolved) Family() Family  { return FamilyMarket }
func (MarketCancelled) Family() Family { return FamilyMarket }
func (WinningsClaimed) Family() Family { return FamilyMarket }

func (MarketCreated) isPayload()   {}
func (BetPlaced) isPayload()       {}
func (MarketResolved) isPayload()  {}
func (MarketCancelled) isPayload() {}
func (WinningsClaimed) isPayload() {}
