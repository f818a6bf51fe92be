package config

import (
	"fmt"
	"slices"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/internal/common"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
)

// Config represents the complete configuration for the ChainIngestor.
type Config struct {
	// Chain contains the RPC endpoint and head selection
	Chain ChainConfig `yaml:"chain" json:"chain" toml:"chain"`

	// Contracts is the fixed set of contracts whose logs are ingested
	Contracts []ContractConfig `yaml:"contracts" json:"contracts" toml:"contracts"`

	// Ingestion contains the block processor settings
	Ingestion IngestionConfig `yaml:"ingestion" json:"ingestion" toml:"ingestion"`

	// Reorg contains reorg detection settings
	Reorg ReorgConfig `yaml:"reorg" json:"reorg" toml:"reorg"`

	// DB contains database configuration
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Maintenance contains optional database maintenance settings
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"`

	// Stream configures publishing of committed events to a broker
	Stream StreamConfig `yaml:"stream" json:"stream" toml:"stream"`

	// Cache configures invalidate-on-write notifications
	Cache CacheConfig `yaml:"cache" json:"cache" toml:"cache"`

	// Alerting configures reporting of fatal conditions
	Alerting *AlertingConfig `yaml:"alerting,omitempty" json:"alerting,omitempty" toml:"alerting,omitempty"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// ChainConfig represents the connection to the blockchain node.
type ChainConfig struct {
	// RPCURL is the Ethereum RPC endpoint URL
	RPCURL string `yaml:"rpc_url" json:"rpc_url" toml:"rpc_url"`

	// Finality specifies which head is followed: "finalized", "safe", or "latest"
	Finality string `yaml:"finality" json:"finality" toml:"finality"`

	// RequestTimeout bounds a single RPC call
	RequestTimeout common.Duration `yaml:"request_timeout" json:"request_timeout" toml:"request_timeout"`

	// Retry contains RPC retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`
}

// ApplyDefaults sets default values for optional chain configuration fields.
func (c *ChainConfig) ApplyDefaults() {
	if c.Finality == "" {
		c.Finality = string(types.FinalityLatest)
	}
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if c.Retry == nil {
		c.Retry = &RetryConfig{}
	}
	c.Retry.ApplyDefaults()
}

// Validate checks if the chain configuration is valid.
func (c *ChainConfig) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if !types.BlockFinality(c.Finality).IsValid() {
		return fmt.Errorf("chain.finality must be one of: 'finalized', 'safe', or 'latest'")
	}
	return nil
}

// RetryConfig represents RPC retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(1 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// Backoff returns the wait before the given attempt (1-based).
func (r *RetryConfig) Backoff(attempt int) time.Duration {
	return common.ExponentialBackoff(attempt, r.InitialBackoff.Duration, r.MaxBackoff.Duration, r.BackoffMultiplier)
}

// ContractConfig represents one monitored contract.
type ContractConfig struct {
	// Name is a label used in logs
	Name string `yaml:"name" json:"name" toml:"name"`

	// Address is the contract address to monitor
	Address string `yaml:"address" json:"address" toml:"address"`
}

// IngestionConfig configures the block processor.
type IngestionConfig struct {
	// StartBlock is the first block processed when no checkpoint exists
	StartBlock uint64 `yaml:"start_block" json:"start_block" toml:"start_block"`

	// BatchSize is the maximum number of blocks committed together
	BatchSize uint64 `yaml:"batch_size" json:"batch_size" toml:"batch_size"`

	// PollInterval is the wait when the chain head has not advanced
	PollInterval common.Duration `yaml:"poll_interval" json:"poll_interval" toml:"poll_interval"`

	// DecodeWorkers bounds concurrent log decoding within a batch
	DecodeWorkers int `yaml:"decode_workers" json:"decode_workers" toml:"decode_workers"`

	// DisablePrefetch turns off fetching the next range while the current one commits
	DisablePrefetch bool `yaml:"disable_prefetch" json:"disable_prefetch" toml:"disable_prefetch"`

	// Backoff applies to transient failures of a whole iteration. Attempts are unbounded;
	// MaxAttempts only controls when failures are logged at error level.
	Backoff *RetryConfig `yaml:"backoff,omitempty" json:"backoff,omitempty" toml:"backoff,omitempty"`
}

// ApplyDefaults sets default values for optional ingestion configuration fields.
func (i *IngestionConfig) ApplyDefaults() {
	if i.BatchSize == 0 {
		i.BatchSize = 100
	}
	if i.PollInterval.Duration == 0 {
		i.PollInterval = common.NewDuration(2 * time.Second) //nolint:mnd
	}
	if i.DecodeWorkers == 0 {
		i.DecodeWorkers = 4
	}
	if i.Backoff == nil {
		i.Backoff = &RetryConfig{}
	}
	i.Backoff.ApplyDefaults()
}

// Validate checks if the ingestion configuration is valid.
func (i *IngestionConfig) Validate() error {
	if i.BatchSize == 0 {
		return fmt.Errorf("ingestion.batch_size must be positive")
	}
	if i.DecodeWorkers < 1 {
		return fmt.Errorf("ingestion.decode_workers must be positive")
	}
	return nil
}

// ReorgConfig configures reorg detection.
type ReorgConfig struct {
	// Depth is the deepest reorg that is rolled back automatically
	Depth uint64 `yaml:"depth" json:"depth" toml:"depth"`

	// HistoryMargin is how many blocks beyond Depth are kept in the history window
	HistoryMargin uint64 `yaml:"history_margin" json:"history_margin" toml:"history_margin"`
}

// ApplyDefaults sets default values for optional reorg configuration fields.
func (r *ReorgConfig) ApplyDefaults() {
	if r.Depth == 0 {
		r.Depth = 64
	}
	if r.HistoryMargin == 0 {
		r.HistoryMargin = 16
	}
}

// Validate checks if the reorg configuration is valid.
func (r *ReorgConfig) Validate() error {
	if r.Depth == 0 {
		return fmt.Errorf("reorg.depth must be positive")
	}
	return nil
}

// WindowSize returns the number of block headers kept for reorg detection.
// One extra entry is needed so a divergence of exactly Depth blocks still has
// its common ancestor in the window.
func (r *ReorgConfig) WindowSize() uint64 {
	return r.Depth + r.HistoryMargin + 1
}

// MaintenanceConfig configures database maintenance behavior.
type MaintenanceConfig struct {
	// Enabled controls whether background maintenance runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// CheckInterval is how often to run maintenance (e.g., "30m", "1h")
	CheckInterval common.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`

	// VacuumOnStartup runs maintenance immediately on startup
	VacuumOnStartup bool `yaml:"vacuum_on_startup" json:"vacuum_on_startup" toml:"vacuum_on_startup"`

	// WALCheckpointMode controls the WAL checkpoint aggressiveness
	// Options: PASSIVE, FULL, RESTART, TRUNCATE
	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

// ApplyDefaults sets default values for optional maintenance configuration fields.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = common.NewDuration(30 * time.Minute) //nolint:mnd
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
}

// Validate checks if the maintenance configuration is valid.
func (m *MaintenanceConfig) Validate() error {
	if m.WALCheckpointMode != "" {
		validModes := []string{"PASSIVE", "FULL", "RESTART", "TRUNCATE"}
		if !slices.Contains(validModes, m.WALCheckpointMode) {
			return fmt.Errorf("maintenance.wal_checkpoint_mode: must be one of: PASSIVE, FULL, RESTART, TRUNCATE")
		}
	}

	return nil
}

// AlertingConfig configures where fatal halts are reported.
type AlertingConfig struct {
	// SentryDSN enables reporting to Sentry when set
	SentryDSN string `yaml:"sentry_dsn" json:"sentry_dsn" toml:"sentry_dsn"`

	// Environment tags reported events
	Environment string `yaml:"environment" json:"environment" toml:"environment"`
}

// ApplyDefaults sets default values for optional alerting configuration fields.
func (a *AlertingConfig) ApplyDefaults() {
	if a.Environment == "" {
		a.Environment = "production"
	}
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components:
	//   - ingestor: Block processor loop
	//   - rpc-client: Blockchain RPC access
	//   - checkpoint: Checkpoint manager
	//   - reorg-handler: Reorganization detection and rollback
	//   - router: Event dispatch
	//   - store: Persistence layer
	//   - stream-relay: Outbox publishing
	//   - cache: Cache invalidation
	//   - maintenance: Database maintenance
	//   - projection: Default entity projections
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := common.AllComponents[common.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return common.ToLowerWithTrim(level)
	}
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	// Format: "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.Chain.ApplyDefaults()
	c.Ingestion.ApplyDefaults()
	c.Reorg.ApplyDefaults()
	c.DB.ApplyDefaults()
	c.Stream.ApplyDefaults()
	c.Cache.ApplyDefaults()

	if c.Maintenance != nil {
		c.Maintenance.ApplyDefaults()
	}

	if c.Alerting != nil {
		c.Alerting.ApplyDefaults()
	}

	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}

	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Chain.Validate(); err != nil {
		return err
	}

	if len(c.Contracts) == 0 {
		return fmt.Errorf("at least one contract must be configured")
	}

	seen := make(map[ethcommon.Address]bool, len(c.Contracts))
	for i, contract := range c.Contracts {
		if !ethcommon.IsHexAddress(contract.Address) {
			return fmt.Errorf("contracts[%d] (%s): invalid address '%s'", i, contract.Name, contract.Address)
		}

		addr := ethcommon.HexToAddress(contract.Address)
		if seen[addr] {
			return fmt.Errorf("contracts[%d] (%s): duplicate address %s", i, contract.Name, addr.Hex())
		}
		seen[addr] = true
	}

	if err := c.Ingestion.Validate(); err != nil {
		return err
	}

	if err := c.Reorg.Validate(); err != nil {
		return err
	}

	if err := c.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}

	if c.Maintenance != nil {
		if err := c.Maintenance.Validate(); err != nil {
			return err
		}
	}

	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}

// ContractAddresses returns the configured contract addresses in declaration order.
func (c *Config) ContractAddresses() []ethcommon.Address {
	out := make([]ethcommon.Address, 0, len(c.Contracts))
	for _, contract := range c.Contracts {
		out = append(out, ethcommon.HexToAddress(contract.Address))
	}
	return out
}
