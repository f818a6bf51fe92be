package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Field names mirror the ABI argument names so the decoder can fill them directly.

type Transfer struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
}

type Approval struct {
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Value   *big.Int       `json:"value"`
}

type TaxCollected struct {
	Payer  common.Address `json:"payer"`
	Amount *big.Int       `json:"amount"`
	Burned *big.Int       `json:"burned"`
}

type TaxRateUpdated struct {
	OldRate *big.Int `json:"old_rate"`
	NewRate *big.Int `json:"new_rate"`
}

type TaxExemptionSet struct {
	Account common.Address `json:"account"`
	Exempt  bool           `json:"exempt"`
}

func (Transfer) EventName() string        { return "Transfer" }
func (Approval) EventName() string        { return "Approval" }
func (TaxCollected) EventName() string    { return "TaxCollected" }
func (TaxRateUpdated) EventName() string  { return "TaxRateUpdated" }
func (TaxExemptionSet) EventName() string { return "TaxExemptionSet" }

func (Transfer) Family() Family        { return FamilyToken }
func (Approval) Family() Family        { return FamilyToken }
func (TaxCollected) Family() Family    { return FamilyToken }
func (TaxRateUpdated) Family() Family  { return FamilyToken }
func (TaxExemptionSet) Family() Family { return FamilyToken }

func (Transfer) isPayload()        {}
func (Approval) isPayload()        {}
func (TaxCollected) isPayload()    {}
func (TaxRateUpdated) isPayload()  {}
func (TaxExemptionSet) isPayload() {}
