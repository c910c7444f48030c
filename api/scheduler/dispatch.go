package scheduler

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/linesmerrill/autodoc-api/databases"
	"github.com/linesmerrill/autodoc-api/models"
	"github.com/linesmerrill/autodoc-api/push"
)

const (
	defaultDispatchBatch = 200
	defaultMaxLateness   = 24 * time.Hour
)

// Dispatcher pushes stored trigger notifications once they are due
type Dispatcher struct {
	Reminders   databases.ScheduledReminderDatabase
	Tokens      databases.PushTokenDatabase
	Sender      Sender
	BatchSize   int64
	MaxLateness time.Duration
}

// NewDispatcher creates a dispatcher for the scheduled reminder collection
func NewDispatcher(rDB databases.ScheduledReminderDatabase, tDB databases.PushTokenDatabase, sender Sender) *Dispatcher {
	return &Dispatcher{
		Reminders:   rDB,
		Tokens:      tDB,
		Sender:      sender,
		BatchSize:   defaultDispatchBatch,
		MaxLateness: defaultMaxLateness,
	}
}

// DispatchDue sends every reminder due at now and returns how many were
// delivered. Reminders that fail stay pending and are retried on the next run
// until they are MaxLateness overdue, after which they are dropped.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	due, err := d.Reminders.FindDue(ctx, now, d.BatchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, r := range due {
		if d.dispatch(ctx, now, r) {
			delivered++
		}
	}
	if len(due) > 0 {
		zap.S().Infow("dispatched scheduled reminders", "due", len(due), "delivered", delivered)
	}
	return delivered, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, now time.Time, r models.ScheduledReminder) bool {
	token, err := d.Tokens.LatestForUser(ctx, r.UserID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// no device to deliver to, same as the OS dropping it
		zap.S().Infow("dropping scheduled reminder without push token", "reminderId", r.ID, "userId", r.UserID)
		d.finish(ctx, now, r)
		return false
	}
	if err != nil {
		zap.S().Errorw("failed to look up push token for scheduled reminder", "reminderId", r.ID, "error", err)
		d.dropIfStale(ctx, now, r)
		return false
	}

	err = d.Sender.Send(ctx, push.Message{
		To:        token.Token,
		Title:     r.Title,
		Body:      r.Body,
		Sound:     "default",
		Priority:  "high",
		ChannelID: r.ChannelID,
		Data: map[string]interface{}{
			"vehicleId": r.VehicleID,
			"kind":      string(r.Kind),
			"threshold": r.Threshold,
		},
	})
	if errors.Is(err, push.ErrDeviceNotRegistered) {
		if _, delErr := d.Tokens.DeleteByToken(ctx, token.Token); delErr != nil {
			zap.S().Warnw("failed to remove unregistered push token", "userId", r.UserID, "error", delErr)
		}
		d.finish(ctx, now, r)
		return false
	}
	if err != nil {
		zap.S().Errorw("failed to send scheduled reminder", "reminderId", r.ID, "error", err)
		d.dropIfStale(ctx, now, r)
		return false
	}

	d.finish(ctx, now, r)
	return true
}

func (d *Dispatcher) dropIfStale(ctx context.Context, now time.Time, r models.ScheduledReminder) {
	if now.Sub(r.FireAt) <= d.MaxLateness {
		return
	}
	zap.S().Warnw("dropping overdue scheduled reminder", "reminderId", r.ID, "fireAt", r.FireAt)
	d.finish(ctx, now, r)
}

func (d *Dispatcher) finish(ctx context.Context, now time.Time, r models.ScheduledReminder) {
	if err := d.Reminders.MarkDelivered(ctx, r.ID, now); err != nil {
		zap.S().Errorw("failed to mark scheduled reminder delivered", "reminderId", r.ID, "error", err)
	}
}
