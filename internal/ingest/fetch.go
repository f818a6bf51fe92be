package ingest

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
)

// fetchedRange is a contiguous block range read from the node together with
// every log of the configured contracts in it.
type fetchedRange struct {
	From    uint64
	To      uint64
	Headers []types.BlockRef
	Logs    []events.RawLog
}

// fetchRange reads logs and headers for [from, to] and checks that they
// describe a single chain. Block timestamps of the logs are filled in from the headers.
func (p *Processor) fetchRange(ctx context.Context, from, to uint64) (*fetchedRange, error) {
	logs, err := p.client.Logs(ctx, p.cfg.Contracts, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs for %d-%d: %w", from, to, err)
	}

	numbers := make([]uint64, 0, to-from+1)
	for n := from; n <= to; n++ {
		numbers = append(numbers, n)
	}

	headers, err := p.client.BlockHeaders(ctx, numbers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch headers for %d-%d: %w", from, to, err)
	}

	r := &fetchedRange{From: from, To: to, Headers: headers, Logs: logs}
	if err := r.verify(); err != nil {
		return nil, err
	}

	return r, nil
}

// verify checks that headers chain by parent hash and that every log belongs
// to the header of its block.
func (r *fetchedRange) verify() error {
	if len(r.Headers) != int(r.To-r.From+1) {
		return &RangeInconsistencyError{
			From: r.From, To: r.To, Block: r.From,
			Reason: fmt.Sprintf("expected %d headers, got %d", r.To-r.From+1, len(r.Headers)),
		}
	}

	for i, h := range r.Headers {
		if h.Number != r.From+uint64(i) {
			return &RangeInconsistencyError{
				From: r.From, To: r.To, Block: r.From + uint64(i),
				Reason: fmt.Sprintf("header number %d out of order", h.Number),
			}
		}
		if i > 0 && h.ParentHash != r.Headers[i-1].Hash {
			return &RangeInconsistencyError{
				From: r.From, To: r.To, Block: h.Number,
				Reason: fmt.Sprintf("parent %s does not match previous header %s",
					h.ParentHash.TerminalString(), r.Headers[i-1].Hash.TerminalString()),
			}
		}
	}

	for i := range r.Logs {
		l := &r.Logs[i]
		if l.BlockNumber < r.From || l.BlockNumber > r.To {
			return &RangeInconsistencyError{
				From: r.From, To: r.To, Block: l.BlockNumber,
				Reason: "log outside requested range",
			}
		}

		h := r.Headers[l.BlockNumber-r.From]
		if l.BlockHash != h.Hash {
			return &RangeInconsistencyError{
				From: r.From, To: r.To, Block: l.BlockNumber,
				Reason: fmt.Sprintf("log %d has block hash %s, header has %s",
					l.LogIndex, l.BlockHash.TerminalString(), h.Hash.TerminalString()),
			}
		}
		l.BlockTimestamp = h.Timestamp
	}

	return nil
}

// prefetch is a range being fetched in the background while the previous one commits.
type prefetch struct {
	from   uint64
	cancel context.CancelFunc
	done   chan struct{}

	result *fetchedRange
	err    error
}

// startPrefetch begins fetching [from, to]. Only one prefetch is outstanding.
func (p *Processor) startPrefetch(ctx context.Context, from, to uint64) {
	p.discardPrefetch()

	pctx, cancel := context.WithCancel(ctx)
	pf := &prefetch{from: from, cancel: cancel, done: make(chan struct{})}
	p.pending = pf

	go func() {
		defer close(pf.done)
		pf.result, pf.err = p.fetchRange(pctx, from, to)
	}()
}

// takePrefetch returns the prefetched range starting at from, waiting for it
// to finish. It returns nil when there is no usable prefetch.
func (p *Processor) takePrefetch(ctx context.Context, from uint64) *fetchedRange {
	pf := p.pending
	if pf == nil {
		return nil
	}
	p.pending = nil

	if pf.from != from {
		pf.cancel()
		prefetchInc("discarded")
		return nil
	}

	select {
	case <-pf.done:
	case <-ctx.Done():
		pf.cancel()
		return nil
	}
	pf.cancel()

	if pf.err != nil {
		p.log.Debugw("prefetch failed, refetching", "from", from, "error", pf.err)
		prefetchInc("failed")
		return nil
	}

	prefetchInc("used")
	return pf.result
}

// discardPrefetch drops any outstanding prefetch.
func (p *Processor) discardPrefetch() {
	if p.pending == nil {
		return
	}
	p.pending.cancel()
	<-p.pending.done
	p.pending = nil
	prefetchInc("discarded")
}
