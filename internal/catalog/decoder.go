package catalog

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
)

// Decode maps a raw log to a typed event. It never fails: unknown logs become
// Unrecognized and layout errors become Malformed.
func (c *Catalog) Decode(l events.RawLog) (out events.TypedEvent) {
	out.Meta = events.MetadataOf(l)

	if len(l.Topics) == 0 {
		out.Payload = events.Unrecognized{Contract: l.Address}
		return out
	}

	topic0 := l.Topics[0]
	entry, ok := c.byTopic[topic0]
	if !ok {
		out.Payload = events.Unrecognized{Contract: l.Address, Topic0: &topic0}
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			out.Payload = events.Malformed{
				Signature: entry.Signature,
				Topic0:    topic0,
				Reason:    fmt.Sprintf("decoder panic: %v", r),
			}
		}
	}()

	payload, err := entry.decode(entry.event, l)
	if err != nil {
		out.Payload = events.Malformed{
			Signature: entry.Signature,
			Topic0:    topic0,
			Reason:    err.Error(),
		}
		return out
	}

	out.Payload = payload
	return out
}

func decodeInto[T events.Payload](ev abi.Event, l events.RawLog) (events.Payload, error) {
	var out T
	if err := unpackLog(&out, ev, l); err != nil {
		return nil, err
	}
	return out, nil
}

// unpackLog fills out from the data (non-indexed) and topics (indexed) of l.
func unpackLog(out any, ev abi.Event, l events.RawLog) error {
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	nonIndexed := ev.Inputs.NonIndexed()

	if want := 1 + len(indexed); len(l.Topics) != want {
		return fmt.Errorf("expected %d topics, got %d", want, len(l.Topics))
	}

	// all catalog arguments are static, one word each
	if want := 32 * len(nonIndexed); len(l.Data) != want {
		return fmt.Errorf("expected %d data bytes, got %d", want, len(l.Data))
	}

	if len(nonIndexed) > 0 {
		values, err := ev.Inputs.Unpack(l.Data)
		if err != nil {
			return fmt.Errorf("unpack data: %w", err)
		}
		if err := ev.Inputs.Copy(out, values); err != nil {
			return fmt.Errorf("copy data: %w", err)
		}
	}

	if len(indexed) > 0 {
		if err := abi.ParseTopics(out, indexed, l.Topics[1:]); err != nil {
			return fmt.Errorf("parse topics: %w", err)
		}
	}

	return nil
}
