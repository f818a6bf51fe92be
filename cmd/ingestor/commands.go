package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/goran-ethernal/ChainIngestor/internal/catalog"
	"github.com/goran-ethernal/ChainIngestor/internal/clock"
	"github.com/goran-ethernal/ChainIngestor/internal/common"
	"github.com/goran-ethernal/ChainIngestor/internal/db"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/internal/rpc"
	"github.com/goran-ethernal/ChainIngestor/internal/store"
	pkgconfig "github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/spf13/cobra"
)

const (
	statusReorgs    = 5
	statusAnomalies = 5
)

var resetBlock uint64

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration JSON Schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := pkgconfig.JSONSchemaIndent()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the events the decoder recognizes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := catalog.New()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFAMILY\tSIGNATURE\tTOPIC0")
		for _, e := range cat.Entries() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Family, e.Signature, e.Topic.Hex())
		}
		return w.Flush()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the checkpoint, stored history, recent reorgs and anomalies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		st, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		status, err := st.Status(ctx)
		if err != nil {
			return err
		}
		reorgs, err := st.Reorgs(ctx, statusReorgs)
		if err != nil {
			return err
		}
		anomalies, err := st.RecentAnomalies(ctx, statusAnomalies)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "checkpoint:      %s\n", status.Checkpoint)
		if status.HistoryBlocks > 0 {
			fmt.Fprintf(out, "block history:   %d blocks (#%d - #%d)\n",
				status.HistoryBlocks, status.OldestBlock, status.NewestBlock)
		} else {
			fmt.Fprintln(out, "block history:   empty")
		}
		fmt.Fprintf(out, "events:          %d (%d anomalies)\n", status.Events, status.Anomalies)
		fmt.Fprintf(out, "entities:        %d\n", status.Entities)
		fmt.Fprintf(out, "outbox backlog:  %d\n", status.OutboxBacklog)
		fmt.Fprintf(out, "reorgs:          %d\n", status.Reorgs)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		if len(reorgs) > 0 {
			fmt.Fprintln(w, "\nTIME\tREASON\tFIRST INVALID\tDEPTH\tID")
			for _, r := range reorgs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					r.Time().Format("2006-01-02 15:04:05"), r.Reason, r.FirstInvalid, r.Depth, r.ID)
			}
		}
		if len(anomalies) > 0 {
			fmt.Fprintln(w, "\nBLOCK\tLOG\tKIND\tCONTRACT\tTX")
			for _, a := range anomalies {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n",
					a.BlockNumber, a.LogIndex, a.Name, a.Contract.Hex(), a.TxHash.Hex())
			}
		}
		return w.Flush()
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Roll back everything above a block",
	Long: `Reset removes every effect recorded above --block and moves the checkpoint
to it, exactly like an automatic reorg rollback. Use it after ingestion halted
on a reorg deeper than the configured depth. Stop the ingestor first.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		st, closeFn, err := openStoreWith(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		cp, err := st.Checkpoint(ctx)
		if err != nil {
			return err
		}
		if !cp.Exists || cp.Block <= resetBlock {
			fmt.Fprintf(cmd.OutOrStdout(), "checkpoint %s is not above block %d, nothing to do\n", cp, resetBlock)
			return nil
		}

		ancestor, found, err := st.StoredBlock(ctx, resetBlock)
		if err != nil {
			return err
		}
		if !found {
			client, err := rpc.NewClient(ctx, cfg.Chain, clock.Real{},
				logger.NewComponentLoggerFromConfig(common.ComponentRPCClient, cfg.Logging))
			if err != nil {
				return fmt.Errorf("block %d is not stored and the RPC is unavailable: %w", resetBlock, err)
			}
			defer client.Close()

			if ancestor, err = client.BlockHeader(ctx, resetBlock); err != nil {
				return fmt.Errorf("failed to fetch block %d: %w", resetBlock, err)
			}
		}

		res, err := st.Rollback(ctx, store.RollbackRequest{
			FirstInvalid: resetBlock + 1,
			AncestorHash: ancestor.Hash,
			Depth:        cp.Block - resetBlock,
			Reason:       store.ReasonOperator,
			StartBlock:   cfg.Ingestion.StartBlock,
			ReorgTopic:   cfg.Stream.TopicPrefix + ".reorg",
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"rolled back %s -> %s: %d events removed, %d entities reverted, %d deleted, %d outbox messages dropped (id %s)\n",
			res.PreviousCheckpoint, res.Checkpoint, res.EventsRemoved, res.EntitiesReverted,
			res.EntitiesDeleted, res.OutboxDropped, res.ID)
		return nil
	},
}

func openStore(ctx context.Context) (*store.Store, func(), error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	return openStoreWith(cfg)
}

func openStoreWith(cfg *pkgconfig.Config) (*store.Store, func(), error) {
	if _, err := os.Stat(cfg.DB.Path); err != nil {
		return nil, nil, fmt.Errorf("database %s: %w", cfg.DB.Path, err)
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}

	st := store.New(database, &db.NoOpMaintenance{}, clock.Real{},
		logger.NewComponentLoggerFromConfig(common.ComponentStore, cfg.Logging))

	return st, func() { database.Close() }, nil
}
