// Package migrations holds the SQLite schema of the ingestor database.
package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/goran-ethernal/ChainIngestor/internal/db"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
)

//go:embed 001_ingest_state.sql
var mig001 string

//go:embed 002_event_journal.sql
var mig002 string

//go:embed 003_entities.sql
var mig003 string

//go:embed 004_outbox.sql
var mig004 string

// All returns the migrations in application order.
func All() []db.Migration {
	return []db.Migration{
		{ID: "001_ingest_state.sql", SQL: mig001},
		{ID: "002_event_journal.sql", SQL: mig002},
		{ID: "003_entities.sql", SQL: mig003},
		{ID: "004_outbox.sql", SQL: mig004},
	}
}

// Run applies all pending migrations to sqlDB.
func Run(log *logger.Logger, sqlDB *sql.DB) error {
	return db.RunMigrationsDB(log, sqlDB, All())
}
