package db

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T, journal string) (*sql.DB, string) {
	t.Helper()

	dbPath := t.TempDir() + "/ingestor.db"

	dbConfig := config.DatabaseConfig{Path: dbPath, JournalMode: journal}
	dbConfig.ApplyDefaults()

	sqlDB, err := NewSQLiteDBFromConfig(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	_, err = sqlDB.Exec(`CREATE TABLE IF NOT EXISTS test_table (id INTEGER PRIMARY KEY, value TEXT);`)
	require.NoError(t, err)

	tx, err := sqlDB.Begin()
	require.NoError(t, err)
	for i := range 500 {
		_, err = tx.Exec(`INSERT INTO test_table (value) VALUES (?);`, fmt.Sprintf("value_%d", i))
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())

	return sqlDB, dbPath
}

func TestNewSQLiteDBFromConfig_Pragmas(t *testing.T) {
	db, _ := setupTestDB(t, "WAL")

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.Equal(t, "wal", mode)

	// synchronous=FULL reads back as 2
	var sync int
	require.NoError(t, db.QueryRow("PRAGMA synchronous").Scan(&sync))
	require.Equal(t, 2, sync)
}

func TestVacuum_Modes(t *testing.T) {
	for _, journal := range []string{"WAL", "TRUNCATE"} {
		t.Run(journal, func(t *testing.T) {
			db, _ := setupTestDB(t, journal)

			_, err := db.Exec(`DELETE FROM test_table WHERE id % 2 = 0`)
			require.NoError(t, err)

			require.NoError(t, Vacuum(db))

			var count int
			require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM test_table`).Scan(&count))
			require.Equal(t, 250, count)
		})
	}
}

func TestDBTotalSize(t *testing.T) {
	testCases := []struct {
		name       string
		files      map[string]string
		expectSize int64
	}{
		{
			name:       "MainOnly",
			files:      map[string]string{"": "main-db-content"},
			expectSize: int64(len("main-db-content")),
		},
		{
			name:       "WithWALAndSHM",
			files:      map[string]string{"": "main-db", "-wal": "wal-content", "-shm": "shm-content"},
			expectSize: int64(len("main-db") + len("wal-content") + len("shm-content")),
		},
		{
			name:       "MissingFiles",
			files:      nil,
			expectSize: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mainPath := t.TempDir() + "/main.db"
			for suffix, content := range tc.files {
				require.NoError(t, os.WriteFile(mainPath+suffix, []byte(content), 0o600))
			}

			size, err := DBTotalSize(mainPath)
			require.NoError(t, err)
			require.Equal(t, tc.expectSize, size)
		})
	}
}

func TestRunMigrationsDB(t *testing.T) {
	db, _ := setupTestDB(t, "WAL")
	log := logger.NewNopLogger()

	migrations := []Migration{{
		ID: "001_test.sql",
		SQL: `-- +migrate Down
DROP TABLE IF EXISTS widgets;

-- +migrate Up
CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`,
	}}

	require.NoError(t, RunMigrationsDB(log, db, migrations))
	// second run is a no-op
	require.NoError(t, RunMigrationsDB(log, db, migrations))

	_, err := db.Exec(`INSERT INTO widgets (name) VALUES ('a')`)
	require.NoError(t, err)

	require.NoError(t, RunMigrationsDBExtended(log, db, migrations, migrate.Down, NoLimitMigrations))

	_, err = db.Exec(`INSERT INTO widgets (name) VALUES ('a')`)
	require.Error(t, err)
}

func TestRunMigrationsDB_MissingSeparator(t *testing.T) {
	db, _ := setupTestDB(t, "WAL")

	err := RunMigrationsDB(logger.NewNopLogger(), db, []Migration{{ID: "bad.sql", SQL: "CREATE TABLE x (id INT);"}})
	require.ErrorContains(t, err, "missing")
}
