package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/shared"
)

const (
	defaultIntervalMinutes = 30

	// tickResolution bounds how late an interval run can fire.
	tickResolution = time.Second

	// drainPollInterval paces the Drain wait for an in-flight run.
	drainPollInterval = 10 * time.Millisecond

	defaultGracePeriod = 10 * time.Second
)

// SyncRunner executes one reconciliation run. [tasks.SyncEngine]
// implements it.
type SyncRunner interface {
	Run(ctx context.Context, mode models.SyncMode, direction models.SyncDirection) (*models.SyncRun, error)
}

// Scheduler fires reconciliation runs on a fixed interval and accepts
// manual triggers. All methods are safe for concurrent use.
type Scheduler struct {
	logger    *log.Logger
	runner    SyncRunner
	interval  time.Duration
	grace     time.Duration
	mode      models.SyncMode
	direction models.SyncDirection

	// runMu is the single-flight gate around the engine.
	runMu sync.Mutex

	mu         sync.Mutex
	paused     bool
	running    bool
	nextDue    time.Time
	lastRunAt  time.Time
	lastStatus models.SyncStatus
	totalRuns  int
}

// SchedulerStatus is a point-in-time snapshot for the status surface.
type SchedulerStatus struct {
	Paused     bool              `json:"paused"`
	Running    bool              `json:"running"`
	TotalRuns  int               `json:"total_runs"`
	LastRunAt  *time.Time        `json:"last_run_at,omitempty"`
	LastStatus models.SyncStatus `json:"last_status,omitempty"`
	NextRunIn  *float64          `json:"next_run_in_seconds,omitempty"`
}

// NewScheduler creates a scheduler from the sync configuration. A run
// caught by shutdown gets grace to finish before its context is
// cancelled. Invalid mode or direction values fall back to incremental
// bidirectional runs.
func NewScheduler(logger *log.Logger, runner SyncRunner, cfg shared.SyncConfig, grace time.Duration) *Scheduler {
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	if cfg.IntervalMinutes <= 0 {
		interval = defaultIntervalMinutes * time.Minute
	}
	if grace <= 0 {
		grace = defaultGracePeriod
	}

	mode := models.SyncMode(cfg.Mode)
	if !mode.Valid() {
		mode = models.ModeIncremental
	}
	direction := models.SyncDirection(cfg.Direction)
	if !direction.Valid() {
		direction = models.DirectionBidirectional
	}

	return &Scheduler{
		logger:    logger,
		runner:    runner,
		interval:  interval,
		grace:     grace,
		mode:      mode,
		direction: direction,
	}
}

// Start runs the scheduling loop until ctx is cancelled. The first
// interval run fires one full interval after Start.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.nextDue = time.Now().Add(s.interval)
	s.mu.Unlock()

	s.logger.Info("scheduler started", "interval", s.interval, "mode", s.mode, "direction", s.direction)

	ticker := time.NewTicker(tickResolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	due := !s.paused && !s.nextDue.IsZero() && !time.Now().Before(s.nextDue)
	s.mu.Unlock()
	if !due {
		return
	}

	if !s.runMu.TryLock() {
		// a manual run is still going; the interval run is dropped
		return
	}
	defer s.runMu.Unlock()
	s.execute(ctx, s.mode)
}

// TriggerNow starts a run immediately, bypassing pause. Returns
// [shared.ErrSyncInProgress] when a run is already executing; the
// trigger is dropped, not queued. The run itself happens in the
// background.
func (s *Scheduler) TriggerNow(ctx context.Context, mode models.SyncMode) error {
	if !mode.Valid() {
		mode = s.mode
	}
	if !s.runMu.TryLock() {
		return shared.ErrSyncInProgress
	}

	go func() {
		defer s.runMu.Unlock()
		s.execute(ctx, mode)
	}()
	return nil
}

// execute runs the engine once. Callers hold runMu. Cancelling ctx does
// not abort the run outright: it keeps its own context alive for the
// grace period so a shutdown mid-run still finalizes the sync record.
func (s *Scheduler) execute(ctx context.Context, mode models.SyncMode) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	release := context.AfterFunc(ctx, func() {
		timer := time.NewTimer(s.grace)
		defer timer.Stop()
		select {
		case <-timer.C:
			cancel()
		case <-runCtx.Done():
		}
	})
	defer release()

	run, err := s.runner.Run(runCtx, mode, s.direction)
	if err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
	}

	now := time.Now()
	s.mu.Lock()
	s.running = false
	s.totalRuns++
	s.lastRunAt = now
	s.nextDue = now.Add(s.interval)
	if run != nil {
		s.lastStatus = run.Status
	}
	s.mu.Unlock()
}

// Drain blocks until no run is in flight, waiting at most timeout.
// It reports whether the engine went idle in time. Shutdown calls this
// after the scheduling loop has stopped, so no new run can start.
func (s *Scheduler) Drain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if s.runMu.TryLock() {
			s.runMu.Unlock()
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(drainPollInterval)
	}
}

// Pause suspends interval runs. A run already executing finishes
// normally; manual triggers keep working.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		s.paused = true
		s.logger.Info("scheduler paused")
	}
}

// Resume reinstates interval runs, with the next one a full interval
// away.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		s.paused = false
		s.nextDue = time.Now().Add(s.interval)
		s.logger.Info("scheduler resumed")
	}
}

// Paused reports whether interval runs are suspended.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Status returns a snapshot of the scheduler state. NextRunIn is absent
// while paused.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{
		Paused:     s.paused,
		Running:    s.running,
		TotalRuns:  s.totalRuns,
		LastStatus: s.lastStatus,
	}
	if !s.lastRunAt.IsZero() {
		at := s.lastRunAt
		status.LastRunAt = &at
	}
	if !s.paused && !s.nextDue.IsZero() {
		in := time.Until(s.nextDue).Seconds()
		if in < 0 {
			in = 0
		}
		status.NextRunIn = &in
	}
	return status
}
