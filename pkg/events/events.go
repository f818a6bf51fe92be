// Package events defines the closed set of typed events produced by the decoder.
//
// A TypedEvent pairs provenance Metadata with exactly one Payload. Payload is a
// sealed interface: the 28 catalog variants, Unrecognized and Malformed are the
// only implementations, so consumers can switch over it exhaustively.
package events

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Family groups variants by the handler port that consumes them.
type Family string

const (
	FamilyPosition   Family = "position"
	FamilyLifecycle  Family = "lifecycle"
	FamilySettlement Family = "settlement"
	FamilyMarket     Family = "market"
	FamilyToken      Family = "token"
	FamilyFee        Family = "fee"

	// FamilyAnomaly covers Unrecognized and Malformed logs.
	FamilyAnomaly Family = "anomaly"
)

// Families lists the six business families in routing order.
var Families = []Family{
	FamilyPosition,
	FamilyLifecycle,
	FamilySettlement,
	FamilyMarket,
	FamilyToken,
	FamilyFee,
}

// RawLog is one emitted contract log together with its provenance.
type RawLog struct {
	Address        common.Address
	Topics         []common.Hash
	Data           []byte
	BlockNumber    uint64
	BlockHash      common.Hash
	BlockTimestamp uint64
	TxHash         common.Hash
	TxIndex        uint
	LogIndex       uint
}

// FromLog converts a go-ethereum log. The block timestamp is not part of
// eth_getLogs responses and is filled in from the block header.
func FromLog(l types.Log, blockTimestamp uint64) RawLog {
	return RawLog{
		Address:        l.Address,
		Topics:         l.Topics,
		Data:           l.Data,
		BlockNumber:    l.BlockNumber,
		BlockHash:      l.BlockHash,
		BlockTimestamp: blockTimestamp,
		TxHash:         l.TxHash,
		TxIndex:        l.TxIndex,
		LogIndex:       l.Index,
	}
}

// Metadata is the provenance carried with every decoded event.
type Metadata struct {
	BlockNumber    uint64         `json:"block_number"`
	BlockHash      common.Hash    `json:"block_hash"`
	BlockTimestamp uint64         `json:"block_timestamp"`
	TxHash         common.Hash    `json:"tx_hash"`
	TxIndex        uint           `json:"tx_index"`
	LogIndex       uint           `json:"log_index"`
	Contract       common.Address `json:"contract"`
}

// MetadataOf extracts the provenance of a raw log.
func MetadataOf(l RawLog) Metadata {
	return Metadata{
		BlockNumber:    l.BlockNumber,
		BlockHash:      l.BlockHash,
		BlockTimestamp: l.BlockTimestamp,
		TxHash:         l.TxHash,
		TxIndex:        l.TxIndex,
		LogIndex:       l.LogIndex,
		Contract:       l.Address,
	}
}

// Key is the idempotency key of the log the event was decoded from.
type Key struct {
	TxHash   common.Hash
	LogIndex uint
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.TxHash.Hex(), k.LogIndex)
}

// Payload is implemented by every event variant.
type Payload interface {
	EventName() string
	Family() Family
	isPayload()
}

// TypedEvent is a decoded log.
type TypedEvent struct {
	Meta    Metadata
	Payload Payload
}

func (e TypedEvent) Name() string {
	return e.Payload.EventName()
}

func (e TypedEvent) Family() Family {
	return e.Payload.Family()
}

func (e TypedEvent) Key() Key {
	return Key{TxHash: e.Meta.TxHash, LogIndex: e.Meta.LogIndex}
}

// IsAnomaly reports whether the event is Unrecognized or Malformed.
func (e TypedEvent) IsAnomaly() bool {
	return e.Payload.Family() == FamilyAnomaly
}

// Less orders events by (block number, log index).
func (e TypedEvent) Less(other TypedEvent) bool {
	if e.Meta.BlockNumber != other.Meta.BlockNumber {
		return e.Meta.BlockNumber < other.Meta.BlockNumber
	}
	return e.Meta.LogIndex < other.Meta.LogIndex
}

// Unrecognized marks a log with no topics or an unknown signature hash.
// Topic0 is nil when the log carried no topics at all.
type Unrecognized struct {
	Contract common.Address `json:"contract"`
	Topic0   *common.Hash   `json:"topic0,omitempty"`
}

func (Unrecognized) EventName() string { return "Unrecognized" }
func (Unrecognized) Family() Family    { return FamilyAnomaly }
func (Unrecognized) isPayload()        {}

// Malformed marks a log whose signature is known but whose layout does not match it.
type Malformed struct {
	Signature string      `json:"signature"`
	Topic0    common.Hash `json:"topic0"`
	Reason    string      `json:"reason"`
}

func (Malformed) EventName() string { return "Malformed" }
func (Malformed) Family() Family    { return FamilyAnomaly }
func (Malformed) isPayload()        {}

// Envelope is the serialized form of a TypedEvent used for the journal and the stream.
type Envelope struct {
	Event  string   `json:"event"`
	Family Family   `json:"family"`
	Meta   Metadata `json:"meta"`
	Data   Payload  `json:"data"`
}

// NewEnvelope wraps ev for serialization.
func NewEnvelope(ev TypedEvent) Envelope {
	return Envelope{
		Event:  ev.Name(),
		Family: ev.Family(),
		Meta:   ev.Meta,
		Data:   ev.Payload,
	}
}
