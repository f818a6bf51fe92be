package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type EpochStarted struct {
	Epoch     *big.Int `json:"epoch"`
	StartTime uint64   `json:"start_time"`
}

type EpochEnded struct {
	Epoch   *big.Int `json:"epoch"`
	EndTime uint64   `json:"end_time"`
}

type ScanRequested struct {
	ScanId *big.Int `json:"scan_id"` //nolint:revive
	Epoch  *big.Int `json:"epoch"`
}

type ScanCompleted struct {
	ScanId     *big.Int `json:"scan_id"` //nolint:revive
	Epoch      *big.Int `json:"epoch"`
	Survivors  *big.Int `json:"survivors"`
	Casualties *big.Int `json:"casualties"`
}

type SystemPaused struct {
	Account common.Address `json:"account"`
}

type SystemUnpaused struct {
	Account common.Address `json:"account"`
}

func (EpochStarted) EventName() string   { return "EpochStarted" }
func (EpochEnded) EventName() string     { return "EpochEnded" }
func (ScanRequested) EventName() string  { return "ScanRequested" }
func (ScanCompleted) EventName() string  { return "ScanCompleted" }
func (SystemPaused) EventName() string   { return "SystemPaused" }
func (SystemUnpaused) EventName() string { return "SystemUnpaused" }

func (EpochStarted) Family() Family   { return FamilyLifecycle }
func (EpochEnded) Family() Family     { return FamilyLifecycle }
func (ScanRequested) Family() Family  { return FamilyLifecycle }
func (ScanCompleted) Family() Family  { return FamilyLifecycle }
func (SystemPaused) Family() Family   { return FamilyLifecycle }
func (SystemUnpaused) Family() Family { return FamilyLifecycle }

func (EpochStarted) isPayload()   {}
func (EpochEnded) isPayload()     {}
func (ScanRequested) isPayload()  {}
func (ScanCompleted) isPayload()  {}
func (SystemPaused) isPayload()   {}
func (SystemUnpaused) isPayload() {}
