package store

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/russross/meddler"
)

// JournalEntry is one row of the event journal.
type JournalEntry struct {
	TxHash      common.Hash    `meddler:"tx_hash,hash"`
	LogIndex    uint           `meddler:"log_index"`
	BlockNumber uint64         `meddler:"block_number"`
	BlockHash   common.Hash    `meddler:"block_hash,hash"`
	TxIndex     uint           `meddler:"tx_index"`
	Contract    common.Address `meddler:"contract,address"`
	Family      string         `meddler:"family"`
	Name        string         `meddler:"name"`
	Payload     string         `meddler:"payload"`
}

// journalInsert skips rows whose (tx_hash, log_index) is already journaled.
var journalInsert = mustInsertSQL("INSERT OR IGNORE", "events", &JournalEntry{})

func mustInsertSQL(verb, table string, row any) string {
	cols, err := meddler.SQLite.ColumnsQuoted(row, true)
	if err != nil {
		panic(err)
	}
	placeholders, err := meddler.SQLite.PlaceholdersString(row, true)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s INTO %s (%s) VALUES (%s)", verb, table, cols, placeholders)
}

// RecentAnomalies returns up to limit of the newest Unrecognized and Malformed
// journal entries, newest first.
func (s *Store) RecentAnomalies(ctx context.Context, limit int) ([]*JournalEntry, error) {
	var out []*JournalEntry
	err := meddler.QueryAll(s.db, &out, `
		SELECT * FROM events WHERE family = ?
		ORDER BY block_number DESC, log_index DESC LIMIT ?`, string(events.FamilyAnomaly), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	return out, nil
}
