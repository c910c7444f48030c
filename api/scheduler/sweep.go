package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/linesmerrill/autodoc-api/databases"
	"github.com/linesmerrill/autodoc-api/models"
	"github.com/linesmerrill/autodoc-api/push"
	"github.com/linesmerrill/autodoc-api/reminders"
	templates "github.com/linesmerrill/autodoc-api/templates/push"
)

// DefaultClaimTTL is how long a claim blocks other sweeps from the same key.
// A claim older than this is treated as left behind by a crashed sweep.
const DefaultClaimTTL = 30 * time.Minute

var (
	// ErrTokenMissing means the owner or their push token does not exist
	ErrTokenMissing = errors.New("push token missing")
	// ErrTokenLookup means the owner or token could not be read
	ErrTokenLookup = errors.New("push token lookup failed")
	// ErrPushSend means the push provider did not accept the message
	ErrPushSend = errors.New("push send failed")
)

// SweepFatalError aborts a sweep before any vehicle was processed
type SweepFatalError struct {
	Err error
}

func (e *SweepFatalError) Error() string {
	return fmt.Sprintf("document expiration sweep aborted: %v", e.Err)
}

func (e *SweepFatalError) Unwrap() error {
	return e.Err
}

// Sender delivers one push message
type Sender interface {
	Send(ctx context.Context, msg push.Message) error
}

// Outcome of one due (vehicle, document) pair in a sweep
type Outcome string

// Sweep item outcomes. Only OutcomeSent writes the notification log.
const (
	OutcomeSent             Outcome = "sent"
	OutcomeTokenMissing     Outcome = "token_missing"
	OutcomeTokenLookupError Outcome = "token_lookup_error"
	OutcomeAlreadyClaimed   Outcome = "already_claimed"
	OutcomeClaimError       Outcome = "claim_error"
	OutcomePushSendError    Outcome = "push_send_error"
	OutcomeLogError         Outcome = "log_error"
)

// ItemReport is what happened to one due reminder
type ItemReport struct {
	VehicleID     string              `json:"vehicleId"`
	Kind          models.DocumentKind `json:"kind"`
	Key           string              `json:"key"`
	DaysRemaining int                 `json:"daysRemaining"`
	Outcome       Outcome             `json:"outcome"`
	Err           error               `json:"-"`
	Error         string              `json:"error,omitempty"`
}

// SweepReport summarizes one sweep
type SweepReport struct {
	RanAt           time.Time    `json:"ranAt"`
	VehiclesScanned int          `json:"vehiclesScanned"`
	Items           []ItemReport `json:"items"`
}

// Count returns how many items ended with outcome
func (r *SweepReport) Count(outcome Outcome) int {
	n := 0
	for _, item := range r.Items {
		if item.Outcome == outcome {
			n++
		}
	}
	return n
}

// Failed counts the items that will be retried by a later sweep
func (r *SweepReport) Failed() int {
	return len(r.Items) - r.Count(OutcomeSent) - r.Count(OutcomeAlreadyClaimed)
}

func (r *SweepReport) add(item ItemReport) {
	if item.Err != nil {
		item.Error = item.Err.Error()
	}
	r.Items = append(r.Items, item)
}

// Sweeper finds documents expiring soon and pushes one reminder per
// notification log key
type Sweeper struct {
	Vehicles databases.VehicleDatabase
	Users    databases.UserDatabase
	Tokens   databases.PushTokenDatabase
	Sender   Sender
	Location *time.Location
	ClaimTTL time.Duration
}

// NewSweeper creates a sweeper interpreting expiration dates in loc
func NewSweeper(vDB databases.VehicleDatabase, uDB databases.UserDatabase, tDB databases.PushTokenDatabase, sender Sender, loc *time.Location) *Sweeper {
	return &Sweeper{
		Vehicles: vDB,
		Users:    uDB,
		Tokens:   tDB,
		Sender:   sender,
		Location: loc,
		ClaimTTL: DefaultClaimTTL,
	}
}

type dueReminder struct {
	kind      models.DocumentKind
	key       string
	expiresAt time.Time
}

// RunDailySweep pushes a reminder for every document expiring in
// (now, now+7 days] whose key is not in the vehicle's notification log. Per
// item failures are recorded in the report and never stop the sweep; only a
// failed vehicle enumeration returns an error.
func (s *Sweeper) RunDailySweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	vehicles, err := s.Vehicles.Find(ctx, bson.M{})
	if err != nil {
		return nil, &SweepFatalError{Err: err}
	}

	report := &SweepReport{RanAt: now, VehiclesScanned: len(vehicles)}
	for _, vehicle := range vehicles {
		if ctx.Err() != nil {
			zap.S().Warnw("document expiration sweep interrupted", "error", ctx.Err())
			break
		}
		s.sweepVehicle(ctx, now, vehicle, report)
	}

	zap.S().Infow("document expiration sweep complete",
		"vehicles", report.VehiclesScanned,
		"due", len(report.Items),
		"sent", report.Count(OutcomeSent),
		"failed", report.Failed(),
	)
	return report, nil
}

func (s *Sweeper) dueReminders(now time.Time, vehicle models.Vehicle) []dueReminder {
	horizon := now.Add(models.SweepLookaheadDays * 24 * time.Hour)
	var due []dueReminder
	for _, kind := range models.DocumentKinds {
		doc, ok := vehicle.Details.Document(kind)
		if !ok || !doc.HasExpiration() {
			continue
		}
		expiresAt := doc.Expiration.Midnight(s.Location)
		if !expiresAt.After(now) || expiresAt.After(horizon) {
			continue
		}
		key := models.NotificationLogKey(kind, expiresAt)
		if vehicle.NotificationSent(key) {
			continue
		}
		due = append(due, dueReminder{kind: kind, key: key, expiresAt: expiresAt})
	}
	return due
}

func (s *Sweeper) sweepVehicle(ctx context.Context, now time.Time, vehicle models.Vehicle, report *SweepReport) {
	due := s.dueReminders(now, vehicle)
	if len(due) == 0 {
		return
	}
	vehicleID := vehicle.ID.Hex()

	token, err := s.ownerToken(ctx, vehicle.Details.UserID)
	if err != nil {
		outcome := OutcomeTokenLookupError
		if errors.Is(err, ErrTokenMissing) {
			outcome = OutcomeTokenMissing
			zap.S().Infow("skipping vehicle without push token", "vehicleId", vehicleID, "userId", vehicle.Details.UserID)
		} else {
			zap.S().Errorw("failed to look up push token", "vehicleId", vehicleID, "userId", vehicle.Details.UserID, "error", err)
		}
		for _, d := range due {
			report.add(ItemReport{VehicleID: vehicleID, Kind: d.kind, Key: d.key, Outcome: outcome, Err: err})
		}
		return
	}

	for _, d := range due {
		report.add(s.sendReminder(ctx, now, vehicle, token, d))
	}
}

// ownerToken returns the push token of the vehicle owner
func (s *Sweeper) ownerToken(ctx context.Context, userID string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", fmt.Errorf("%w: invalid owner id %q", ErrTokenMissing, userID)
	}
	if _, err := s.Users.FindOne(ctx, bson.M{"_id": oid}); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", fmt.Errorf("%w: owner %s not found", ErrTokenMissing, userID)
		}
		return "", fmt.Errorf("%w: %w", ErrTokenLookup, err)
	}
	token, err := s.Tokens.LatestForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", fmt.Errorf("%w: user %s has no push token", ErrTokenMissing, userID)
		}
		return "", fmt.Errorf("%w: %w", ErrTokenLookup, err)
	}
	if token.Token == "" {
		return "", fmt.Errorf("%w: user %s has an empty push token", ErrTokenMissing, userID)
	}
	return token.Token, nil
}

func (s *Sweeper) sendReminder(ctx context.Context, now time.Time, vehicle models.Vehicle, token string, d dueReminder) ItemReport {
	vehicleID := vehicle.ID.Hex()
	item := ItemReport{VehicleID: vehicleID, Kind: d.kind, Key: d.key}

	claimed, err := s.Vehicles.ClaimNotification(ctx, vehicle.ID, d.key, now, now.Add(-s.ClaimTTL))
	if err != nil {
		zap.S().Errorw("failed to claim notification", "vehicleId", vehicleID, "key", d.key, "error", err)
		item.Outcome, item.Err = OutcomeClaimError, err
		return item
	}
	if !claimed {
		zap.S().Debugw("notification already claimed or sent", "vehicleId", vehicleID, "key", d.key)
		item.Outcome = OutcomeAlreadyClaimed
		return item
	}

	item.DaysRemaining = int(math.Ceil(d.expiresAt.Sub(now).Hours() / 24))
	msg := push.Message{
		To:        token,
		Title:     templates.ReminderTitle,
		Body:      templates.RenderSweepBody(d.kind.DisplayName(), vehicle.Details.Make, vehicle.Details.Model, item.DaysRemaining),
		Sound:     "default",
		Priority:  "high",
		ChannelID: reminders.ChannelID,
		Data: map[string]interface{}{
			"vehicleId": vehicleID,
			"kind":      string(d.kind),
		},
	}

	if err := s.Sender.Send(ctx, msg); err != nil {
		zap.S().Errorw("failed to send expiration push", "vehicleId", vehicleID, "key", d.key, "error", err)
		if relErr := s.Vehicles.ReleaseNotificationClaim(ctx, vehicle.ID, d.key); relErr != nil {
			zap.S().Errorw("failed to release notification claim", "vehicleId", vehicleID, "key", d.key, "error", relErr)
		}
		if errors.Is(err, push.ErrDeviceNotRegistered) {
			if _, delErr := s.Tokens.DeleteByToken(ctx, token); delErr != nil {
				zap.S().Warnw("failed to remove unregistered push token", "vehicleId", vehicleID, "error", delErr)
			}
		}
		item.Outcome, item.Err = OutcomePushSendError, fmt.Errorf("%w: %w", ErrPushSend, err)
		return item
	}

	if err := s.Vehicles.MarkNotificationSent(ctx, vehicle.ID, d.key); err != nil {
		// the claim stays in place, so no sweep resends before it goes stale
		zap.S().Errorw("push sent but notification log not updated", "vehicleId", vehicleID, "key", d.key, "error", err)
		item.Outcome, item.Err = OutcomeLogError, err
		return item
	}

	zap.S().Infow("sent document expiration push",
		"vehicleId", vehicleID,
		"kind", d.kind,
		"daysRemaining", item.DaysRemaining,
	)
	item.Outcome = OutcomeSent
	return item
}
