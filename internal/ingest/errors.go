package ingest

import (
	"errors"
	"fmt"

	"github.com/goran-ethernal/ChainIngestor/internal/checkpoint"
	"github.com/goran-ethernal/ChainIngestor/internal/reorg"
)

// RangeInconsistencyError reports a fetched range whose headers and logs do not
// describe one chain. The node changed its view mid-fetch; the range is refetched.
type RangeInconsistencyError struct {
	From   uint64
	To     uint64
	Block  uint64
	Reason string
}

func (e *RangeInconsistencyError) Error() string {
	return fmt.Sprintf("inconsistent range %d-%d at block %d: %s", e.From, e.To, e.Block, e.Reason)
}

// IsFatal reports whether err must halt ingestion. Everything else is retried
// with backoff.
func IsFatal(err error) bool {
	var (
		unresolved *reorg.UnresolvedReorgError
		invariant  *checkpoint.InvariantError
	)
	return errors.As(err, &unresolved) || errors.As(err, &invariant)
}
