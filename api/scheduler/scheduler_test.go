package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/autodoc-api/calendar"
	"github.com/linesmerrill/autodoc-api/databases/mocks"
	"github.com/linesmerrill/autodoc-api/models"
)

func TestRunSweepNow_HoldsLock(t *testing.T) {
	loc := santiago(t)
	owner := primitive.NewObjectID()
	f := newSweepFixture(t, vehicleWith(owner, models.DocumentInsurance, dateP(calendar.New(2024, time.June, 10))))
	f.withOwner(owner, "ExponentPushToken[a]")

	lockDB := &mocks.SchedulerLockDatabase{}
	lockDB.On("TryAcquireLock", mock.Anything, sweepLockName, mock.Anything, sweepLockTTL).Return(true, nil)
	lockDB.On("ReleaseLock", mock.Anything, sweepLockName, mock.Anything).Return(nil)

	s := NewScheduler(f.sweeper, nil, lockDB, "0 9 * * *", loc)
	s.now = func() time.Time { return time.Date(2024, time.June, 5, 9, 0, 0, 0, loc) }

	report, err := s.RunSweepNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(OutcomeSent))
	lockDB.AssertExpectations(t)
}

func TestRunSweepNow_Locked(t *testing.T) {
	lockDB := &mocks.SchedulerLockDatabase{}
	lockDB.On("TryAcquireLock", mock.Anything, sweepLockName, mock.Anything, sweepLockTTL).Return(false, nil)

	s := NewScheduler(newSweepFixture(t).sweeper, nil, lockDB, "0 9 * * *", time.UTC)
	_, err := s.RunSweepNow(context.Background())

	assert.ErrorIs(t, err, ErrSweepLocked)
	lockDB.AssertNotCalled(t, "ReleaseLock", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunSweepNow_LockError(t *testing.T) {
	lockDB := &mocks.SchedulerLockDatabase{}
	lockDB.On("TryAcquireLock", mock.Anything, sweepLockName, mock.Anything, sweepLockTTL).Return(false, errors.New("mocked-error"))

	s := NewScheduler(newSweepFixture(t).sweeper, nil, lockDB, "0 9 * * *", time.UTC)
	_, err := s.RunSweepNow(context.Background())

	assert.ErrorContains(t, err, "mocked-error")
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler(newSweepFixture(t).sweeper, nil, &mocks.SchedulerLockDatabase{}, "not a schedule", time.UTC)

	assert.Error(t, s.Start())
}

func TestDispatchDueJob_SkipsWhenLocked(t *testing.T) {
	lockDB := &mocks.SchedulerLockDatabase{}
	lockDB.On("TryAcquireLock", mock.Anything, dispatchLockName, mock.Anything, dispatchLockTTL).Return(false, nil)
	rDB := &mocks.ScheduledReminderDatabase{}

	s := NewScheduler(nil, NewDispatcher(rDB, &mocks.PushTokenDatabase{}, &fakeSender{}), lockDB, "0 9 * * *", time.UTC)
	s.dispatchDue()

	rDB.AssertNotCalled(t, "FindDue", mock.Anything, mock.Anything, mock.Anything)
}
