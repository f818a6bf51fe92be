package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goran-ethernal/ChainIngestor/internal/common"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
)

// Task is extra housekeeping run inside the maintenance critical section,
// before the WAL checkpoint.
type Task func(ctx context.Context) error

// Maintenance coordinates exclusive database work with normal operations.
type Maintenance interface {
	// Start begins background maintenance if enabled.
	Start(ctx context.Context) error
	// Stop stops background maintenance and waits for completion.
	Stop() error
	// AcquireOperationLock acquires the shared lock for a normal operation such as a batch commit.
	// Returns an unlock function that must be called when the operation completes.
	AcquireOperationLock() func()
	// AcquireExclusiveLock waits for all operations to finish and blocks new ones.
	// Returns an unlock function that must be called when the critical section ends.
	AcquireExclusiveLock() func()
	// AddTask registers housekeeping run on every maintenance pass.
	AddTask(name string, task Task)
	// GetMetrics returns current maintenance metrics.
	GetMetrics() MaintenanceMetrics
	// RunMaintenance performs database maintenance operations (for manual invocation).
	RunMaintenance(ctx context.Context) error
}

// NoOpMaintenance skips housekeeping but still provides the operation locks,
// so rollback exclusivity holds even with maintenance disabled.
type NoOpMaintenance struct {
	opLock sync.RWMutex
}

// Start is a no-op.
func (m *NoOpMaintenance) Start(ctx context.Context) error {
	return nil
}

// Stop is a no-op.
func (m *NoOpMaintenance) Stop() error {
	return nil
}

// RunMaintenance is a no-op.
func (m *NoOpMaintenance) RunMaintenance(ctx context.Context) error {
	return nil
}

// AddTask is a no-op.
func (m *NoOpMaintenance) AddTask(string, Task) {}

func (m *NoOpMaintenance) AcquireOperationLock() func() {
	defer lockWaitObserve(lockShared, time.Now())
	m.opLock.RLock()
	return m.opLock.RUnlock
}

func (m *NoOpMaintenance) AcquireExclusiveLock() func() {
	defer lockWaitObserve(lockExclusive, time.Now())
	m.opLock.Lock()
	return m.opLock.Unlock
}

// GetMetrics returns empty maintenance metrics.
func (m *NoOpMaintenance) GetMetrics() MaintenanceMetrics {
	return MaintenanceMetrics{}
}

type namedTask struct {
	name string
	run  Task
}

// MaintenanceCoordinator coordinates database maintenance operations across components.
// It uses a RWMutex where readers are normal operations and writers are maintenance
// and reorg rollbacks.
type MaintenanceCoordinator struct {
	db     *sql.DB
	config config.MaintenanceConfig
	dbPath string
	log    *logger.Logger

	// readers = batch commits, writer = maintenance or rollback
	opLock sync.RWMutex

	tasksLock sync.Mutex
	tasks     []namedTask

	maintenanceCtx    context.Context
	maintenanceCancel context.CancelFunc
	maintenanceWg     sync.WaitGroup

	metricsLock         sync.Mutex
	lastMaintenanceTime time.Time
	maintenanceCount    uint64
	lastMaintenanceErr  error
}

// NewMaintenanceCoordinator creates a new maintenance coordinator.
// A nil config yields a coordinator that only provides locking.
func NewMaintenanceCoordinator(
	dbPath string,
	db *sql.DB,
	cfg *config.MaintenanceConfig,
	log *logger.Logger,
) Maintenance {
	if cfg == nil {
		return &NoOpMaintenance{}
	}

	return newMaintenanceCoordinator(dbPath, db, *cfg, log)
}

func newMaintenanceCoordinator(
	dbPath string,
	db *sql.DB,
	cfg config.MaintenanceConfig,
	log *logger.Logger,
) *MaintenanceCoordinator {
	return &MaintenanceCoordinator{
		db:     db,
		config: cfg,
		dbPath: dbPath,
		log:    log.WithComponent(common.ComponentMaintenance),
	}
}

// Start begins background maintenance if enabled.
func (m *MaintenanceCoordinator) Start(ctx context.Context) error {
	if !m.config.Enabled {
		m.log.Info("Background maintenance is disabled")
		return nil
	}

	m.maintenanceCtx, m.maintenanceCancel = context.WithCancel(ctx)

	if m.config.VacuumOnStartup {
		m.log.Info("Running startup maintenance")
		if err := m.RunMaintenance(m.maintenanceCtx); err != nil {
			m.log.Warnf("Startup maintenance failed: %v", err)
		}
	}

	m.maintenanceWg.Add(1)
	go m.maintenanceWorker(m.config.CheckInterval.Duration)

	m.log.Infof("Background maintenance started - interval: %v, checkpoint mode: %s",
		m.config.CheckInterval.Duration, m.config.WALCheckpointMode)

	return nil
}

// Stop stops background maintenance and waits for completion.
func (m *MaintenanceCoordinator) Stop() error {
	if m.maintenanceCancel == nil {
		return nil
	}

	m.log.Info("Stopping background maintenance...")
	m.maintenanceCancel()
	m.maintenanceWg.Wait()
	m.log.Info("Background maintenance stopped")

	return nil
}

func (m *MaintenanceCoordinator) maintenanceWorker(checkInterval time.Duration) {
	defer m.maintenanceWg.Done()

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.maintenanceCtx.Done():
			return

		case <-ticker.C:
			m.log.Debug("Running periodic maintenance")
			if err := m.RunMaintenance(m.maintenanceCtx); err != nil {
				m.log.Warnf("Periodic maintenance failed: %v", err)
			}
		}
	}
}

// AddTask registers housekeeping run on every maintenance pass.
func (m *MaintenanceCoordinator) AddTask(name string, task Task) {
	m.tasksLock.Lock()
	defer m.tasksLock.Unlock()

	m.tasks = append(m.tasks, namedTask{name: name, run: task})
}

// RunMaintenance runs registered tasks, a WAL checkpoint and VACUUM.
// This acquires an exclusive lock, blocking all operations until complete.
func (m *MaintenanceCoordinator) RunMaintenance(ctx context.Context) error {
	m.log.Info("Starting database maintenance")
	start := time.Now().UTC()

	unlock := m.AcquireExclusiveLock()
	defer unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	var maintenanceErr error

	initialDBSize, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Warnf("Failed to get initial DB size: %v", err)
	}

	m.tasksLock.Lock()
	tasks := append([]namedTask(nil), m.tasks...)
	m.tasksLock.Unlock()

	for _, t := range tasks {
		if err := t.run(ctx); err != nil {
			maintenanceTaskErrors.WithLabelValues(t.name).Inc()
			m.log.Errorf("Maintenance task %s failed: %v", t.name, err)
			if maintenanceErr == nil {
				maintenanceErr = fmt.Errorf("task %s failed: %w", t.name, err)
			}
		}
	}

	if err := m.walCheckpoint(); err != nil {
		m.log.Errorf("WAL checkpoint failed: %v", err)
		if maintenanceErr == nil {
			maintenanceErr = fmt.Errorf("WAL checkpoint failed: %w", err)
		}
	}

	if err := m.vacuum(); err != nil {
		m.log.Warnf("VACUUM failed (may be expected in WAL mode): %v", err)
		if maintenanceErr == nil {
			maintenanceErr = fmt.Errorf("VACUUM failed: %w", err)
		}
	}

	finalDBSize, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Warnf("Failed to get final DB size: %v", err)
	}

	duration := time.Since(start)

	finished := time.Now().UTC()

	m.metricsLock.Lock()
	m.lastMaintenanceTime = finished
	m.maintenanceCount++
	m.lastMaintenanceErr = maintenanceErr
	m.metricsLock.Unlock()

	maintenanceFinished(duration, finished, maintenanceErr)

	if maintenanceErr != nil {
		m.log.Warnf("Maintenance completed with errors in %v: %v", duration, maintenanceErr)
		return maintenanceErr
	}

	m.log.Infof("Maintenance completed successfully in %v.", duration)

	if initialDBSize > finalDBSize {
		spaceReclaimed := uint64(initialDBSize - finalDBSize)
		maintenanceSpaceReclaimed.Set(float64(spaceReclaimed))
		m.log.Infof("Maintenance cleaned: %d MB", common.BytesToMB(spaceReclaimed))
	}

	dbSize.Set(float64(finalDBSize))

	return nil
}

func (m *MaintenanceCoordinator) walCheckpoint() error {
	isWAL, err := m.isWALMode()
	if err != nil {
		return fmt.Errorf("failed to check journal mode: %w", err)
	}

	if !isWAL {
		m.log.Debug("Database not in WAL mode, skipping WAL checkpoint")
		return nil
	}

	checkpointSQL := fmt.Sprintf("PRAGMA wal_checkpoint(%s)", m.config.WALCheckpointMode)
	m.log.Debugf("Running: %s", checkpointSQL)

	var busyCount, logFrames, checkpointedFrames int
	err = m.db.QueryRow(checkpointSQL).Scan(&busyCount, &logFrames, &checkpointedFrames)
	if err != nil {
		return fmt.Errorf("failed to execute WAL checkpoint: %w", err)
	}

	m.log.Infof("WAL checkpoint complete - mode: %s, busy: %d, log_frames: %d, checkpointed: %d",
		m.config.WALCheckpointMode, busyCount, logFrames, checkpointedFrames)

	walCheckpoints.WithLabelValues(strings.ToLower(m.config.WALCheckpointMode)).Inc()

	if busyCount > 0 {
		m.log.Warnf("WAL checkpoint encountered %d busy pages (some pages not checkpointed)", busyCount)
	}

	return nil
}

// vacuum needs exclusive access, which the write lock provides.
func (m *MaintenanceCoordinator) vacuum() error {
	m.log.Debug("Running VACUUM")

	if err := Vacuum(m.db); err != nil {
		if strings.Contains(err.Error(), "database is locked") {
			return fmt.Errorf("cannot vacuum: database is locked (retry later)")
		}
		return err
	}

	vacuumRuns.Inc()
	m.log.Info("VACUUM completed successfully")
	return nil
}

func (m *MaintenanceCoordinator) isWALMode() (bool, error) {
	var mode string
	if err := m.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return false, err
	}
	return strings.EqualFold(mode, "wal"), nil
}

// AcquireOperationLock acquires the shared lock for a normal operation.
// Returns an unlock function that must be called when the operation completes.
func (m *MaintenanceCoordinator) AcquireOperationLock() func() {
	defer lockWaitObserve(lockShared, time.Now())
	m.opLock.RLock()
	return m.opLock.RUnlock
}

// AcquireExclusiveLock waits for in-flight operations and blocks new ones.
func (m *MaintenanceCoordinator) AcquireExclusiveLock() func() {
	defer lockWaitObserve(lockExclusive, time.Now())
	m.opLock.Lock()
	return m.opLock.Unlock
}

// GetMetrics returns current maintenance metrics.
func (m *MaintenanceCoordinator) GetMetrics() MaintenanceMetrics {
	m.metricsLock.Lock()
	defer m.metricsLock.Unlock()

	return MaintenanceMetrics{
		LastMaintenanceTime:  m.lastMaintenanceTime,
		MaintenanceCount:     m.maintenanceCount,
		LastMaintenanceError: m.lastMaintenanceErr,
	}
}

// MaintenanceMetrics provides visibility into maintenance operations.
type MaintenanceMetrics struct {
	LastMaintenanceTime  time.Time
	MaintenanceCount     uint64
	LastMaintenanceError error
}
