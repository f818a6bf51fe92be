// Package storetest opens migrated throwaway stores for tests.
package storetest

import (
	"database/sql"
	"path"
	"testing"

	"github.com/goran-ethernal/ChainIngestor/internal/clock"
	"github.com/goran-ethernal/ChainIngestor/internal/db"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/internal/migrations"
	"github.com/goran-ethernal/ChainIngestor/internal/store"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a migrated SQLite database in a temporary directory.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	cfg := config.DatabaseConfig{Path: path.Join(t.TempDir(), "ingestor.db")}
	cfg.ApplyDefaults()

	database, err := db.NewSQLiteDBFromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.Run(logger.NewNopLogger(), database))

	return database
}

// New returns a store over a fresh database using clk, or the real clock when clk is nil.
func New(t testing.TB, clk clock.Clock) (*store.Store, *sql.DB) {
	t.Helper()

	database := NewTestDB(t)
	return store.New(database, &db.NoOpMaintenance{}, clk, logger.NewNopLogger()), database
}
