package reminders

import (
	"context"
	"time"

	"github.com/linesmerrill/autodoc-api/models"
)

// ChannelID is the notification channel every document reminder is posted to
const ChannelID = "documento-vencimiento"

// Importance of a notification channel on the device
type Importance int

const (
	// ImportanceDefault shows the notification without interrupting
	ImportanceDefault Importance = iota
	// ImportanceHigh makes a sound and peeks on screen
	ImportanceHigh
)

// Channel describes a device notification channel
type Channel struct {
	ID         string
	Name       string
	Importance Importance
}

// Trigger is a notification registered to fire at a future instant without
// further app interaction.
type Trigger struct {
	ID        string
	Title     string
	Body      string
	ChannelID string
	// FireAt is when the trigger fires
	FireAt time.Time
	// Delay is set for same day reminders, which fire Delay after registration
	// instead of at a clock time
	Delay time.Duration

	VehicleID string
	Kind      models.DocumentKind
	Threshold int
}

// Notifier is the notification API of the device the reminders are for.
// Creating a trigger whose ID already exists replaces it.
type Notifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	CreateChannel(ctx context.Context, channel Channel) error
	CreateTriggerNotification(ctx context.Context, trigger Trigger) error
	TriggerNotificationIDs(ctx context.Context) ([]string, error)
	CancelTriggerNotifications(ctx context.Context, ids []string) error
}
