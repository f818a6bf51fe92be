package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type FeeCollected struct {
	Payer   common.Address `json:"payer"`
	FeeType uint8          `json:"fee_type"`
	Amount  *big.Int       `json:"amount"`
}

type FeesDistributed struct {
	ToStakers  *big.Int `json:"to_stakers"`
	ToTreasury *big.Int `json:"to_treasury"`
	Burned     *big.Int `json:"burned"`
}

type FeeRateUpdated struct {
	FeeType uint8    `json:"fee_type"`
	OldRate *big.Int `json:"old_rate"`
	NewRate *big.Int `json:"new_rate"`
}

func (FeeCollected) EventName() string    { return "FeeCollected" }
func (FeesDistributed) EventName() string { return "FeesDistributed" }
func (FeeRateUpdated) EventName() string  { return "FeeRateUpdated" }

func (FeeCollected) Family() Family    { return FamilyFee }
func (FeesDistributed) Family() Family { return FamilyFee }
func (FeeRateUpdated) Family() Family  { return FamilyFee }

func (FeeCollected) isPayload()    {}
func (FeesDistributed) isPayload() {}
func (FeeRateUpdated) isPayload()  {}
