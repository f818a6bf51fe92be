package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainIngestor/internal/alert"
	"github.com/goran-ethernal/ChainIngestor/internal/cache"
	"github.com/goran-ethernal/ChainIngestor/internal/catalog"
	"github.com/goran-ethernal/ChainIngestor/internal/clock"
	"github.com/goran-ethernal/ChainIngestor/internal/common"
	"github.com/goran-ethernal/ChainIngestor/internal/db"
	"github.com/goran-ethernal/ChainIngestor/internal/ingest"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/internal/metrics"
	"github.com/goran-ethernal/ChainIngestor/internal/projection"
	"github.com/goran-ethernal/ChainIngestor/internal/router"
	"github.com/goran-ethernal/ChainIngestor/internal/rpc"
	"github.com/goran-ethernal/ChainIngestor/internal/store"
	"github.com/goran-ethernal/ChainIngestor/internal/stream"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const alertFlushTimeout = 2 * time.Second

func runIngestor(_ *cobra.Command, _ []string) error {
	fmt.Printf(banner, version)

	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	log := logger.NewComponentLoggerFromConfig(common.ComponentIngestor, cfg.Logging)
	defer log.Close()

	reporter, err := alert.New(cfg.Alerting, log)
	if err != nil {
		return err
	}
	defer reporter.Flush(alertFlushTimeout)

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, log)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := metricsServer.Stop(stopCtx); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	dbMaintenance := db.NewMaintenanceCoordinator(
		cfg.DB.Path,
		database,
		cfg.Maintenance,
		logger.NewComponentLoggerFromConfig(common.ComponentMaintenance, cfg.Logging),
	)

	clk := clock.Real{}
	st := store.New(database, dbMaintenance, clk, logger.NewComponentLoggerFromConfig(common.ComponentStore, cfg.Logging))
	st.RegisterMaintenance(dbMaintenance, cfg.Reorg.WindowSize())

	if err := dbMaintenance.Start(ctx); err != nil {
		return fmt.Errorf("failed to start maintenance: %w", err)
	}
	defer func() {
		if err := dbMaintenance.Stop(); err != nil {
			log.Warnf("Failed to stop maintenance: %v", err)
		}
	}()

	log.Info("Connecting to Ethereum node...")
	client, err := rpc.NewClient(ctx, cfg.Chain, clk, logger.NewComponentLoggerFromConfig(common.ComponentRPCClient, cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	defer client.Close()
	log.Infof("Connected to Ethereum node: %s", cfg.Chain.RPCURL)

	relayLog := logger.NewComponentLoggerFromConfig(common.ComponentStreamRelay, cfg.Logging)
	publisher, err := stream.NewPublisher(ctx, &cfg.Stream, relayLog)
	if err != nil {
		return fmt.Errorf("failed to create stream publisher: %w", err)
	}
	defer publisher.Close()

	relay := stream.NewRelay(st, publisher, stream.RelayConfig{
		BatchSize: cfg.Stream.RelayBatchSize,
		Interval:  cfg.Stream.RelayInterval.Duration,
	}, clk, relayLog)

	invalidator, err := cache.New(ctx, &cfg.Cache, logger.NewComponentLoggerFromConfig(common.ComponentCache, cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to create cache invalidator: %w", err)
	}
	defer invalidator.Close()

	routerLog := logger.NewComponentLoggerFromConfig(common.ComponentRouter, cfg.Logging)
	rt, err := router.New(
		projection.New(logger.NewComponentLoggerFromConfig(common.ComponentProjection, cfg.Logging)),
		router.NewLogSink(routerLog),
		routerLog,
	)
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	procCfg, err := ingest.ConfigFromFile(cfg)
	if err != nil {
		return err
	}

	processor, err := ingest.NewProcessor(procCfg, ingest.Deps{
		Client:      client,
		Store:       st,
		Catalog:     catalog.MustNew(),
		Router:      rt,
		Invalidator: invalidator,
		Notifier:    relay,
		Clock:       clk,
		Log:         log,
	})
	if err != nil {
		return fmt.Errorf("failed to create processor: %w", err)
	}

	log.Infow("Starting ChainIngestor...",
		"contracts", len(procCfg.Contracts),
		"finality", cfg.Chain.Finality,
		"stream", cfg.Stream.Driver,
		"cache", cfg.Cache.Driver,
	)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopRelay := context.WithCancel(gctx)
	defer stopRelay()

	g.Go(func() error {
		return relay.Run(runCtx)
	})

	g.Go(func() error {
		// the relay outlives the loop only until it stops
		defer stopRelay()

		err := processor.Run(gctx)
		if err != nil && ingest.IsFatal(err) {
			cp, cpErr := processor.Checkpoint(context.WithoutCancel(ctx))
			fields := map[string]any{"state": processor.State().String()}
			if cpErr == nil {
				fields["checkpoint"] = cp.String()
			}
			reporter.Fatal(err, fields)
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("ingestion stopped: %w", err)
	}

	log.Info("ChainIngestor stopped successfully")
	return nil
}
