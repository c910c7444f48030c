package reminders

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/autodoc-api/databases"
	"github.com/linesmerrill/autodoc-api/models"
)

// TriggerStore is a Notifier that keeps one user's triggers in mongo until the
// dispatcher pushes them to the user's device.
type TriggerStore struct {
	userID    string
	reminders databases.ScheduledReminderDatabase
	tokens    databases.PushTokenDatabase
	channels  map[string]Channel
}

// NewTriggerStore returns the trigger store of userID
func NewTriggerStore(userID string, reminders databases.ScheduledReminderDatabase, tokens databases.PushTokenDatabase) *TriggerStore {
	return &TriggerStore{
		userID:    userID,
		reminders: reminders,
		tokens:    tokens,
		channels:  map[string]Channel{},
	}
}

// RequestPermission reports whether the user registered a device to push to
func (t *TriggerStore) RequestPermission(ctx context.Context) (bool, error) {
	_, err := t.tokens.LatestForUser(ctx, t.userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateChannel registers channel; creating it again is a no-op
func (t *TriggerStore) CreateChannel(_ context.Context, channel Channel) error {
	if channel.ID == "" {
		return errors.New("channel id is required")
	}
	t.channels[channel.ID] = channel
	return nil
}

// CreateTriggerNotification stores trigger, replacing one with the same id
func (t *TriggerStore) CreateTriggerNotification(ctx context.Context, trigger Trigger) error {
	if _, ok := t.channels[trigger.ChannelID]; !ok {
		return fmt.Errorf("channel %q does not exist", trigger.ChannelID)
	}
	return t.reminders.Upsert(ctx, models.ScheduledReminder{
		ID:        trigger.ID,
		UserID:    t.userID,
		VehicleID: trigger.VehicleID,
		Kind:      trigger.Kind,
		Threshold: trigger.Threshold,
		Title:     trigger.Title,
		Body:      trigger.Body,
		ChannelID: trigger.ChannelID,
		FireAt:    trigger.FireAt,
	})
}

// TriggerNotificationIDs lists the user's triggers that have not fired yet
func (t *TriggerStore) TriggerNotificationIDs(ctx context.Context) ([]string, error) {
	return t.reminders.PendingIDs(ctx, t.userID)
}

// CancelTriggerNotifications drops the given triggers of the user
func (t *TriggerStore) CancelTriggerNotifications(ctx context.Context, ids []string) error {
	_, err := t.reminders.DeleteByIDs(ctx, t.userID, ids)
	return err
}
