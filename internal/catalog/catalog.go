// Package catalog holds the fixed event catalog and the topic0 dispatch table
// used to turn raw logs into typed events.
package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
)

//go:embed abi/*.json
var abiFiles embed.FS

// decodeFunc fills a concrete variant from a log already matched to ev.
type decodeFunc func(ev abi.Event, l events.RawLog) (events.Payload, error)

// decoders maps event names to their variant constructors. Adding a signature
// means adding its ABI fragment and one line here.
var decoders = map[string]decodeFunc{
	// token
	"Transfer":        decodeInto[events.Transfer],
	"Approval":        decodeInto[events.Approval],
	"TaxCollected":    decodeInto[events.TaxCollected],
	"TaxRateUpdated":  decodeInto[events.TaxRateUpdated],
	"TaxExemptionSet": decodeInto[events.TaxExemptionSet],
	// position
	"PositionOpened":    decodeInto[events.PositionOpened],
	"PositionIncreased": decodeInto[events.PositionIncreased],
	"PositionWithdrawn": decodeInto[events.PositionWithdrawn],
	"PositionClosed":    decodeInto[events.PositionClosed],
	"RewardsClaimed":    decodeInto[events.RewardsClaimed],
	// lifecycle
	"EpochStarted":   decodeInto[events.EpochStarted],
	"EpochEnded":     decodeInto[events.EpochEnded],
	"ScanRequested":  decodeInto[events.ScanRequested],
	"ScanCompleted":  decodeInto[events.ScanCompleted],
	"SystemPaused":   decodeInto[events.SystemPaused],
	"SystemUnpaused": decodeInto[events.SystemUnpaused],
	// settlement
	"PositionDied":     decodeInto[events.PositionDied],
	"DeathSettled":     decodeInto[events.DeathSettled],
	"SurvivorRewarded": decodeInto[events.SurvivorRewarded],
	"CascadeTriggered": decodeInto[events.CascadeTriggered],
	// market
	"MarketCreated":   decodeInto[events.MarketCreated],
	"BetPlaced":       decodeInto[events.BetPlaced],
	"MarketResolved":  decodeInto[events.MarketResolved],
	"MarketCancelled": decodeInto[events.MarketCancelled],
	"WinningsClaimed": decodeInto[events.WinningsClaimed],
	// fee
	"FeeCollected":    decodeInto[events.FeeCollected],
	"FeesDistributed": decodeInto[events.FeesDistributed],
	"FeeRateUpdated":  decodeInto[events.FeeRateUpdated],
}

// Entry describes one catalog signature.
type Entry struct {
	Name      string
	Family    events.Family
	Signature string
	Topic     common.Hash

	event  abi.Event
	decode decodeFunc
}

// Catalog is the immutable topic0 -> entry table. It is safe for concurrent use.
type Catalog struct {
	byTopic map[common.Hash]*Entry
	entries []*Entry
}

// New parses the embedded ABI fragments and builds the dispatch table.
func New() (*Catalog, error) {
	files, err := abiFiles.ReadDir("abi")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded abi: %w", err)
	}

	c := &Catalog{byTopic: make(map[common.Hash]*Entry, len(decoders))}

	for _, f := range files {
		family := events.Family(strings.TrimSuffix(f.Name(), path.Ext(f.Name())))

		raw, err := abiFiles.ReadFile(path.Join("abi", f.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name(), err)
		}

		parsed, err := abi.JSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.Name(), err)
		}

		for name, ev := range parsed.Events {
			decode, ok := decoders[name]
			if !ok {
				return nil, fmt.Errorf("event %s in %s has no decoder", name, f.Name())
			}

			if existing, dup := c.byTopic[ev.ID]; dup {
				return nil, fmt.Errorf("topic %s registered twice (%s, %s)", ev.ID.Hex(), existing.Name, name)
			}

			entry := &Entry{
				Name:      name,
				Family:    family,
				Signature: ev.Sig,
				Topic:     ev.ID,
				event:     ev,
				decode:    decode,
			}
			c.byTopic[ev.ID] = entry
			c.entries = append(c.entries, entry)
		}
	}

	if len(c.entries) != len(decoders) {
		return nil, fmt.Errorf("catalog has %d signatures but %d decoders", len(c.entries), len(decoders))
	}

	sort.Slice(c.entries, func(i, j int) bool {
		if c.entries[i].Family != c.entries[j].Family {
			return c.entries[i].Family < c.entries[j].Family
		}
		return c.entries[i].Name < c.entries[j].Name
	})

	return c, nil
}

// MustNew is New for callers that cannot recover from a broken catalog.
func MustNew() *Catalog {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the entry registered for topic0.
func (c *Catalog) Lookup(topic0 common.Hash) (Entry, bool) {
	e, ok := c.byTopic[topic0]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns all entries sorted by family and name.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = *e
	}
	return out
}

// Event returns the parsed ABI event of the entry.
func (e Entry) Event() abi.Event {
	return e.event
}
