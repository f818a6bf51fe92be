package events

import "math/big"

type PositionDied struct {
	PositionId *big.Int `json:"position_id"` //nolint:revive
	ScanId     *big.Int `json:"scan_id"`     //nolint:revive
	LostAmount *big.Int `json:"lost_amount"`
}

type DeathSettled struct {
	PositionId  *big.Int `json:"position_id"` //nolint:revive
	ToSurvivors *big.Int `json:"to_survivors"`
	ToTreasury  *big.Int `json:"to_treasury"`
	Burned      *big.Int `json:"burned"`
}

type SurvivorRewarded struct {
	PositionId *big.Int `json:"position_id"` //nolint:revive
	Amount     *big.Int `json:"amount"`
}

type CascadeTriggered struct {
	ScanId *big.Int `json:"scan_id"` //nolint:revive
	Deaths *big.Int `json:"deaths"`
}

func (PositionDied) EventName() string     { return "PositionDied" }
func (DeathSettled) EventName() string     { return "DeathSettled" }
func (SurvivorRewarded) EventName() string { return "SurvivorRewarded" }
func (CascadeTriggered) EventName() string { return "CascadeTriggered" }

func (PositionDied) Family() Family     { return FamilySettlement }
func (DeathSettled) Family() Family     { return FamilySettlement }
func (SurvivorRewarded) Family() Family { return FamilySettlement }
func (CascadeTriggered) Family() Family { return FamilySettlement }

func (PositionDied) isPayload()     {}
func (DeathSettled) isPayload()     {}
func (SurvivorRewarded) isPayload() {}
func (CascadeTriggered) isPayload() {}
