package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goran-ethernal/ChainIngestor/internal/common"
	"github.com/goran-ethernal/ChainIngestor/internal/config"
	"github.com/goran-ethernal/ChainIngestor/internal/db"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/internal/migrations"
	pkgconfig "github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/spf13/cobra"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║          ChainIngestor v%s             ║
║   Blockchain Ingestion & Consistency      ║
╚═══════════════════════════════════════════╝
`
)

var (
	configPath string
	envPath    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ingestor",
	Short: "ChainIngestor - blockchain ingestion and consistency pipeline",
	Long: `ChainIngestor follows a chain head, decodes the logs of a fixed contract set,
routes them to projection handlers and commits every batch atomically with its
checkpoint. Reorgs are rolled back to the common ancestor and reprocessed.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runIngestor,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "path to a .env file loaded before INGESTOR_* overrides")

	resetCmd.Flags().Uint64Var(&resetBlock, "block", 0, "last block to keep; everything above it is rolled back")
	_ = resetCmd.MarkFlagRequired("block")

	rootCmd.AddCommand(schemaCmd, catalogCmd, statusCmd, resetCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig(ctx context.Context) (*pkgconfig.Config, error) {
	cfg, err := config.Load(ctx, configPath, envPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openDatabase opens the SQLite database and brings its schema up to date.
func openDatabase(cfg *pkgconfig.Config) (*sql.DB, error) {
	log := logger.NewComponentLoggerFromConfig(common.ComponentStore, cfg.Logging)

	database, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	log.Info("Running database migrations...")
	if err := migrations.Run(log, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}
