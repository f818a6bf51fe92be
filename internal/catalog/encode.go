package catalog

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Encode builds the topics and data a contract emits for the named event.
// values are keyed by ABI argument name. It backs test chains and fixtures.
func (c *Catalog) Encode(name string, values map[string]any) ([]common.Hash, []byte, error) {
	var entry *Entry
	for _, e := range c.entries {
		if e.Name == name {
			entry = e
			break
		}
	}
	if entry == nil {
		return nil, nil, fmt.Errorf("unknown event %s", name)
	}

	topics := []common.Hash{entry.Topic}
	var data []any
	for _, arg := range entry.event.Inputs {
		v, ok := values[arg.Name]
		if !ok {
			return nil, nil, fmt.Errorf("%s: missing value for %s", name, arg.Name)
		}

		if !arg.Indexed {
			data = append(data, v)
			continue
		}

		hashes, err := abi.MakeTopics([]any{v})
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to encode topic %s: %w", name, arg.Name, err)
		}
		topics = append(topics, hashes[0][0])
	}

	packed, err := entry.event.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to pack data: %w", name, err)
	}

	return topics, packed, nil
}
