// Package ingest runs the block processor: it follows the chain head, checks
// each range for reorgs, decodes and routes logs, and commits every batch
// atomically with the checkpoint.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/internal/catalog"
	"github.com/goran-ethernal/ChainIngestor/internal/checkpoint"
	"github.com/goran-ethernal/ChainIngestor/internal/clock"
	internalcommon "github.com/goran-ethernal/ChainIngestor/internal/common"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/internal/metrics"
	"github.com/goran-ethernal/ChainIngestor/internal/reorg"
	"github.com/goran-ethernal/ChainIngestor/internal/router"
	"github.com/goran-ethernal/ChainIngestor/internal/store"
	"github.com/goran-ethernal/ChainIngestor/internal/window"
	"github.com/goran-ethernal/ChainIngestor/pkg/cache"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/rpc"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Config holds the processor settings.
type Config struct {
	Contracts     []common.Address
	StartBlock    uint64
	BatchSize     uint64
	PollInterval  time.Duration
	DecodeWorkers int
	Prefetch      bool
	Backoff       *config.RetryConfig

	ReorgDepth uint64
	WindowSize uint64

	// TopicPrefix names stream topics as <prefix>.<family>.
	TopicPrefix string
}

// ConfigFromFile builds the processor settings from the loaded configuration.
func ConfigFromFile(cfg *config.Config) (Config, error) {
	contracts := make([]common.Address, 0, len(cfg.Contracts))
	for _, c := range cfg.Contracts {
		if !common.IsHexAddress(c.Address) {
			return Config{}, fmt.Errorf("contract %s: invalid address %q", c.Name, c.Address)
		}
		contracts = append(contracts, common.HexToAddress(c.Address))
	}

	return Config{
		Contracts:     contracts,
		StartBlock:    cfg.Ingestion.StartBlock,
		BatchSize:     cfg.Ingestion.BatchSize,
		PollInterval:  cfg.Ingestion.PollInterval.Duration,
		DecodeWorkers: cfg.Ingestion.DecodeWorkers,
		Prefetch:      !cfg.Ingestion.DisablePrefetch,
		Backoff:       cfg.Ingestion.Backoff,
		ReorgDepth:    cfg.Reorg.Depth,
		WindowSize:    cfg.Reorg.WindowSize(),
		TopicPrefix:   cfg.Stream.TopicPrefix,
	}, nil
}

// Topic returns the stream topic of a family.
func (c Config) Topic(family string) string {
	return c.TopicPrefix + "." + family
}

// Notifier is woken after every commit and rollback.
type Notifier interface {
	Notify()
}

// Deps are the collaborators of the processor.
type Deps struct {
	Client  rpc.ChainClient
	Store   *store.Store
	Catalog *catalog.Catalog
	Router  *router.Router

	// Invalidator and Notifier are optional.
	Invalidator cache.Invalidator
	Notifier    Notifier

	Clock clock.Clock
	Log   *logger.Logger
}

// Processor is the single ingestion loop of a chain. Run must not be called concurrently.
type Processor struct {
	cfg         Config
	client      rpc.ChainClient
	store       *store.Store
	catalog     *catalog.Catalog
	router      *router.Router
	invalidator cache.Invalidator
	notifier    Notifier
	clock       clock.Clock
	log         *logger.Logger

	window      *window.Window
	checkpoints *checkpoint.Manager
	reorg       *reorg.Handler

	state   State
	pending *prefetch
}

// NewProcessor wires a processor. The block history window is owned by the
// processor and shared only with its reorg handler.
func NewProcessor(cfg Config, deps Deps) (*Processor, error) {
	if deps.Client == nil {
		return nil, errors.New("chain client is required")
	}
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if deps.Router == nil {
		return nil, errors.New("router is required")
	}
	if cfg.BatchSize == 0 {
		return nil, errors.New("batch size must be positive")
	}
	if cfg.WindowSize <= cfg.ReorgDepth {
		return nil, fmt.Errorf("window size %d must exceed reorg depth %d", cfg.WindowSize, cfg.ReorgDepth)
	}
	if cfg.DecodeWorkers < 1 {
		cfg.DecodeWorkers = 1
	}
	if cfg.Backoff == nil {
		cfg.Backoff = &config.RetryConfig{}
		cfg.Backoff.ApplyDefaults()
	}

	log := deps.Log
	if log == nil {
		log = logger.NewNopLogger()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	w := window.New(int(cfg.WindowSize))
	checkpoints := checkpoint.NewManager(deps.Store, cfg.StartBlock, log)

	p := &Processor{
		cfg:         cfg,
		client:      deps.Client,
		store:       deps.Store,
		catalog:     deps.Catalog,
		router:      deps.Router,
		invalidator: deps.Invalidator,
		notifier:    deps.Notifier,
		clock:       clk,
		log:         log,
		window:      w,
		checkpoints: checkpoints,
		reorg: reorg.NewHandler(reorg.Config{
			MaxDepth:   cfg.ReorgDepth,
			StartBlock: cfg.StartBlock,
			ReorgTopic: cfg.Topic("reorg"),
		}, w, deps.Client, deps.Store, checkpoints, clk, log),
		state: Idle,
	}
	loopStateLog(Idle)

	return p, nil
}

// State returns the current loop phase.
func (p *Processor) State() State {
	return p.state
}

// Checkpoint returns the tracked checkpoint.
func (p *Processor) Checkpoint(ctx context.Context) (types.Checkpoint, error) {
	return p.checkpoints.Get(ctx)
}

// Run processes batches until ctx is cancelled or a fatal error occurs.
// Cancellation is honored while idle or fetching; a batch that reached
// routing always finishes, so Run returns nil with the last commit intact.
func (p *Processor) Run(ctx context.Context) error {
	if err := p.start(ctx); err != nil {
		return err
	}
	defer p.discardPrefetch()

	failures := 0
	for {
		p.setState(Idle)
		if ctx.Err() != nil {
			p.shutdown()
			return nil
		}

		progressed, err := p.step(ctx)
		p.setState(Idle)

		switch {
		case err == nil:
			failures = 0
			metrics.ComponentHealthSet(internalcommon.ComponentIngestor, true)
			if progressed {
				continue
			}
			if !p.wait(ctx, p.cfg.PollInterval) {
				p.shutdown()
				return nil
			}

		case ctx.Err() != nil && errors.Is(err, context.Canceled):
			p.shutdown()
			return nil

		case IsFatal(err):
			metrics.ErrorsInc(internalcommon.ComponentIngestor, metrics.SeverityFatal)
			metrics.ComponentHealthSet(internalcommon.ComponentIngestor, false)
			p.log.Errorw("ingestion halted, operator intervention required", "error", err)
			return err

		default:
			failures++
			metrics.ErrorsInc(internalcommon.ComponentIngestor, metrics.SeverityTransient)
			if failures >= p.cfg.Backoff.MaxAttempts {
				metrics.ComponentHealthSet(internalcommon.ComponentIngestor, false)
			}
			delay := p.cfg.Backoff.Backoff(failures + 1)
			if failures >= p.cfg.Backoff.MaxAttempts {
				p.log.Errorw("iteration failed", "error", err, "failures", failures, "retry_in", delay)
			} else {
				p.log.Warnw("iteration failed", "error", err, "failures", failures, "retry_in", delay)
			}

			if !p.wait(ctx, delay) {
				p.shutdown()
				return nil
			}
		}
	}
}

// start loads the checkpoint and reseeds the window from the stored block history.
func (p *Processor) start(ctx context.Context) error {
	cp, err := p.checkpoints.Get(ctx)
	if err != nil {
		return err
	}

	blocks, err := p.store.RecentBlocks(ctx, p.window.Capacity())
	if err != nil {
		return err
	}

	p.window.Reset()
	for _, b := range blocks {
		if err := p.window.Append(b); err != nil {
			p.log.Warnf("stored block history is not contiguous at %s, restarting window: %v", b, err)
			p.window.Reset()
			if err := p.window.Append(b); err != nil {
				return err
			}
		}
	}

	if latest, ok := p.window.Latest(); ok && cp.Exists && latest.Number != cp.Block {
		p.log.Warnf("latest stored block %d differs from checkpoint %s", latest.Number, cp)
	}

	p.log.Infow("ingestion starting",
		"checkpoint", cp.String(),
		"next_block", cp.Next(p.cfg.StartBlock),
		"window", p.window.Len(),
		"contracts", len(p.cfg.Contracts),
	)
	return nil
}

// step runs one iteration. It reports whether the checkpoint moved, in either direction.
func (p *Processor) step(ctx context.Context) (bool, error) {
	started := p.clock.Now()

	next, err := p.checkpoints.Next(ctx)
	if err != nil {
		return false, err
	}

	p.setState(Fetching)

	r := p.takePrefetch(ctx, next)
	if r == nil {
		head, err := p.client.CurrentHead(ctx)
		if err != nil {
			transientErrorInc(Fetching)
			return false, fmt.Errorf("failed to read chain head: %w", err)
		}
		headLog(head, next)

		if head < next {
			return false, nil
		}

		r, err = p.fetchRange(ctx, next, min(next+p.cfg.BatchSize-1, head))
		if err != nil {
			transientErrorInc(Fetching)
			return false, err
		}
	}

	res, err := p.reorg.Check(ctx, r.Headers[0])
	if err != nil {
		if !IsFatal(err) {
			transientErrorInc(Fetching)
		}
		return false, err
	}
	if res.RolledBack {
		p.discardPrefetch()
		p.afterCommit(ctx, res.Result.Touched)
		return true, nil
	}

	if p.cfg.Prefetch {
		p.prefetchAfter(ctx, r.To)
	}

	p.setState(Decoding)
	evs, err := p.decode(ctx, r.Logs)
	if err != nil {
		transientErrorInc(Decoding)
		return false, err
	}

	// The batch is applied without honoring cancellation so shutdown never
	// interrupts a commit.
	if err := p.apply(context.WithoutCancel(ctx), r, evs); err != nil {
		if !IsFatal(err) {
			transientErrorInc(p.state)
		}
		p.discardPrefetch()
		return false, err
	}

	batchDuration.Observe(p.clock.Now().Sub(started).Seconds())
	batchBlocks.Observe(float64(r.To - r.From + 1))
	return true, nil
}

// prefetchAfter starts fetching the range following to if the head is already past it.
// The head read here is cheap compared to the range itself.
func (p *Processor) prefetchAfter(ctx context.Context, to uint64) {
	head, err := p.client.CurrentHead(ctx)
	if err != nil || head <= to {
		return
	}
	p.startPrefetch(ctx, to+1, min(to+p.cfg.BatchSize, head))
}

// decode turns logs into typed events concurrently and returns them in
// ascending (block, log index) order.
func (p *Processor) decode(ctx context.Context, logs []events.RawLog) ([]events.TypedEvent, error) {
	out := make([]events.TypedEvent, len(logs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.DecodeWorkers)

	for i := range logs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = p.catalog.Decode(logs[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })

	for _, ev := range out {
		if ev.IsAnomaly() {
			decodeAnomalyInc(ev.Name())
		}
	}
	return out, nil
}

// apply routes evs inside one batch and commits it together with the block
// history and the checkpoint at the last block of r.
func (p *Processor) apply(ctx context.Context, r *fetchedRange, evs []events.TypedEvent) error {
	p.setState(Routing)

	batch, err := p.store.BeginBatch(ctx)
	if err != nil {
		return err
	}
	defer batch.Rollback()

	var (
		routed     = make(map[events.Family]int)
		anomalies  int
		duplicates int
	)

	for _, ev := range evs {
		fresh, err := batch.RecordEvent(ctx, ev)
		if err != nil {
			return err
		}
		if !fresh {
			duplicates++
			continue
		}

		outcome, err := p.router.Route(ctx, batch.Scope(ev), ev)
		if err != nil {
			return err
		}
		if outcome == router.Anomaly {
			anomalies++
			continue
		}

		payload, err := json.Marshal(events.NewEnvelope(ev))
		if err != nil {
			return fmt.Errorf("failed to encode %s at %s: %w", ev.Name(), ev.Key(), err)
		}
		family := string(ev.Family())
		if err := batch.Enqueue(ctx, p.cfg.Topic(family), ev.Key().String(), ev.Meta.BlockNumber, payload); err != nil {
			return err
		}
		routed[ev.Family()]++
	}

	p.setState(Committing)

	if err := batch.PutBlocks(ctx, r.Headers); err != nil {
		return err
	}
	if r.To >= p.cfg.WindowSize {
		if err := batch.PruneHistory(ctx, r.To-p.cfg.WindowSize+1); err != nil {
			return err
		}
	}

	last := r.Headers[len(r.Headers)-1]
	if err := p.checkpoints.Commit(ctx, batch, types.Checkpoint{Block: last.Number, Hash: last.Hash, Exists: true}); err != nil {
		return err
	}

	for _, h := range r.Headers {
		if err := p.window.Append(h); err != nil {
			p.log.Warnf("window rejected committed block %s, restarting it: %v", h, err)
			p.window.Reset()
			_ = p.window.Append(h)
		}
	}

	batchesCommitted.Inc()
	duplicateEvents.Add(float64(duplicates))
	for family, n := range routed {
		eventsCommittedAdd(family, n)
	}

	p.log.Infow("batch committed",
		"from", r.From,
		"to", r.To,
		"logs", len(evs),
		"anomalies", anomalies,
		"duplicates", duplicates,
		"checkpoint", last.Number,
	)

	p.afterCommit(ctx, batch.Touched())
	return nil
}

// afterCommit tells the cache and the stream relay about committed changes.
// Failures here are logged; the committed state is already durable.
func (p *Processor) afterCommit(ctx context.Context, touched []types.EntityRef) {
	if p.invalidator != nil && len(touched) > 0 {
		if err := p.invalidator.Invalidate(ctx, touched); err != nil {
			p.log.Warnw("cache invalidation failed", "entities", len(touched), "error", err)
		}
	}
	if p.notifier != nil {
		p.notifier.Notify()
	}
}

// wait blocks for d or until ctx is done. It reports false on cancellation.
func (p *Processor) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-p.clock.After(d):
		return true
	}
}

func (p *Processor) shutdown() {
	p.setState(ShuttingDown)
	p.log.Info("ingestion stopped")
}

func (p *Processor) setState(s State) {
	if !CanTransition(p.state, s) {
		p.log.Errorf("invalid loop transition %s -> %s", p.state, s)
	}
	p.state = s
	loopStateLog(s)
}
