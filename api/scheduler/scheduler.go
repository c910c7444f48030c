package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/autodoc-api/databases"
)

const (
	sweepLockName    = "document_expiration_sweep"
	sweepLockTTL     = 30 * time.Minute
	sweepTimeout     = 20 * time.Minute
	dispatchLockName = "scheduled_reminder_dispatch"
	dispatchLockTTL  = 2 * time.Minute
	dispatchTimeout  = 50 * time.Second
	dispatchSchedule = "* * * * *"
)

// ErrSweepLocked is returned when another instance holds the sweep lock
var ErrSweepLocked = errors.New("document expiration sweep already running")

// Scheduler handles periodic background jobs for document reminders
type Scheduler struct {
	cron          *cron.Cron
	Sweeper       *Sweeper
	Dispatcher    *Dispatcher
	LockDB        databases.SchedulerLockDatabase
	sweepSchedule string
	instanceID    string
	now           func() time.Time
}

// NewScheduler creates a new scheduler running the sweep on sweepSchedule in loc
func NewScheduler(sweeper *Sweeper, dispatcher *Dispatcher, lockDB databases.SchedulerLockDatabase, sweepSchedule string, loc *time.Location) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:          cron.New(cron.WithLocation(loc)),
		Sweeper:       sweeper,
		Dispatcher:    dispatcher,
		LockDB:        lockDB,
		sweepSchedule: sweepSchedule,
		instanceID:    instanceID,
		now:           time.Now,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() error {
	// Daily document expiration sweep, 09:00 America/Santiago by default
	if _, err := s.cron.AddFunc(s.sweepSchedule, s.runSweep); err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}

	// Push device reminders as they come due
	if _, err := s.cron.AddFunc(dispatchSchedule, s.dispatchDue); err != nil {
		return fmt.Errorf("register dispatch job: %w", err)
	}

	s.cron.Start()
	zap.S().Infow("Document reminder scheduler started", "sweepSchedule", s.sweepSchedule, "instance", s.instanceID)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Document reminder scheduler stopped")
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.RunSweepNow(ctx); err != nil {
		if errors.Is(err, ErrSweepLocked) {
			zap.S().Debug("Document expiration sweep already running on another instance, skipping")
			return
		}
		zap.S().Errorw("document expiration sweep failed", "error", err)
	}
}

// RunSweepNow runs the sweep under the distributed lock
func (s *Scheduler) RunSweepNow(ctx context.Context) (*SweepReport, error) {
	acquired, err := s.LockDB.TryAcquireLock(ctx, sweepLockName, s.instanceID, sweepLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !acquired {
		return nil, ErrSweepLocked
	}
	defer s.releaseLock(sweepLockName)

	zap.S().Infow("Running document expiration sweep", "instance", s.instanceID)
	return s.Sweeper.RunDailySweep(ctx, s.now())
}

func (s *Scheduler) dispatchDue() {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	acquired, err := s.LockDB.TryAcquireLock(ctx, dispatchLockName, s.instanceID, dispatchLockTTL)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for reminder dispatch", "error", err)
		return
	}
	if !acquired {
		return
	}
	defer s.releaseLock(dispatchLockName)

	if _, err := s.Dispatcher.DispatchDue(ctx, s.now()); err != nil {
		zap.S().Errorw("failed to dispatch scheduled reminders", "error", err)
	}
}

// releaseLock uses its own context so a timed out job still frees the lock
func (s *Scheduler) releaseLock(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.LockDB.ReleaseLock(ctx, name, s.instanceID); err != nil {
		zap.S().Warnw("failed to release scheduler lock", "lock", name, "error", err)
	}
}
