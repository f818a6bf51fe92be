package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type PositionOpened struct {
	PositionId *big.Int       `json:"position_id"` //nolint:revive
	Owner      common.Address `json:"owner"`
	RiskTier   uint8          `json:"risk_tier"`
	Stake      *big.Int       `json:"stake"`
}

type PositionIncreased struct {
	PositionId *big.Int `json:"position_id"` //nolint:revive
	Amount     *big.Int `json:"amount"`
	NewStake   *big.Int `json:"new_stake"`
}

type PositionWithdrawn struct {
	PositionId *big.Int       `json:"position_id"` //nolint:revive
	Owner      common.Address `json:"owner"`
	Amount     *big.Int       `json:"amount"`
}

type PositionClosed struct {
	PositionId *big.Int       `json:"position_id"` //nolint:revive
	Owner      common.Address `json:"owner"`
	Payout     *big.Int       `json:"payout"`
}

type RewardsClaimed struct {
	PositionId *big.Int       `json:"position_id"` //nolint:revive
	Owner      common.Address `json:"owner"`
	Amount     *big.Int       `json:"amount"`
}

func (PositionOpened) EventName() string    { return "PositionOpened" }
func (PositionIncreased) EventName() string { return "PositionIncreased" }
func (PositionWithdrawn) EventName() string { return "PositionWithdrawn" }
func (PositionClosed) EventName() string    { return "PositionClosed" }
func (RewardsClaimed) EventName() string    { return "RewardsClaimed" }

func (PositionOpened) Family() Family    { return FamilyPosition }
func (PositionIncreased) Family() Family { return FamilyPosition }
func (PositionWithdrawn) Family() Family { return FamilyPosition }
func (PositionClosed) Family() Family    { return FamilyPosition }
func (RewardsClaimed) Family() Family    { return FamilyPosition }

func (PositionOpened) isPayload()    {}
func (PositionIncreased) isPayload() {}
func (PositionWithdrawn) isPayload() {}
func (PositionClosed) isPayload()    {}
func (RewardsClaimed) isPayload()    {}
