// Package stream defines the message-streaming port fed by the outbox relay.
package stream

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Message is one outbox entry ready for publishing.
type Message struct {
	ID          int64
	Topic       string
	Key         string
	BlockNumber uint64
	Payload     []byte
}

// Publisher delivers messages to a broker. Delivery is at least once: a batch
// that fails is retried in full, so consumers must deduplicate by Key.
type Publisher interface {
	Publish(ctx context.Context, msgs []Message) error
	Close() error
}

// ReorgNotice is the payload of the control message enqueued on the reorg
// topic after a rollback. Consumers retract every event at or above FirstInvalid.
type ReorgNotice struct {
	FirstInvalid   uint64      `json:"first_invalid"`
	CommonAncestor uint64      `json:"common_ancestor"`
	AncestorHash   common.Hash `json:"ancestor_hash"`
	Depth          uint64      `json:"depth"`
	Reason         string      `json:"reason"`
}
