package migrations

import (
	"testing"

	"github.com/goran-ethernal/ChainIngestor/internal/db"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	cfg := config.DatabaseConfig{Path: t.TempDir() + "/ingestor.db"}
	cfg.ApplyDefaults()

	sqlDB, err := db.NewSQLiteDBFromConfig(cfg)
	require.NoError(t, err)
	defer sqlDB.Close()

	log := logger.NewNopLogger()
	require.NoError(t, Run(log, sqlDB))
	require.NoError(t, Run(log, sqlDB))

	for _, table := range []string{"checkpoint", "block_history", "reorgs", "events", "entities", "entity_versions", "outbox"} {
		var name string
		err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	_, err = sqlDB.Exec(`INSERT INTO checkpoint (id, block_number, block_hash, updated_at) VALUES (2, 1, '0x', 0)`)
	require.Error(t, err, "checkpoint is a singleton")

	require.NoError(t, db.RunMigrationsDBExtended(log, sqlDB, All(), migrate.Down, db.NoLimitMigrations))

	var count int
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'events'`).Scan(&count))
	require.Zero(t, count)
}
