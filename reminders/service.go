// Package reminders schedules the device notifications that warn a vehicle
// owner before one of its documents expires.
package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/autodoc-api/calendar"
	"github.com/linesmerrill/autodoc-api/models"
	templates "github.com/linesmerrill/autodoc-api/templates/push"
)

const (
	channelName = "Vencimiento de Documentos"

	// DefaultSameDayDelay is how long after scheduling a reminder due today fires
	DefaultSameDayDelay = 10 * time.Second
)

// Request identifies one document to schedule reminders for
type Request struct {
	VehicleID          string
	Kind               models.DocumentKind
	Expiration         *calendar.Date
	VehicleDescription string
}

// PlannedTrigger is a trigger the plan registers for one threshold
type PlannedTrigger struct {
	Threshold int
	NotifyOn  calendar.Date
	Trigger   Trigger
}

// ReminderPlan is the pure outcome of Plan
type ReminderPlan struct {
	Triggers []PlannedTrigger
	// Skipped holds thresholds whose day is already behind us
	Skipped []int
}

// ThresholdFailure is a threshold whose trigger could not be registered
type ThresholdFailure struct {
	Threshold int
	Err       error
}

// Result reports what a scheduling call did
type Result struct {
	Scheduled        []string
	Skipped          []int
	Failed           []ThresholdFailure
	PermissionDenied bool
}

// Service schedules document reminders through a Notifier
type Service struct {
	notifier     Notifier
	now          func() time.Time
	location     *time.Location
	reminderTime calendar.TimeOfDay
	sameDayDelay time.Duration
	log          *zap.SugaredLogger
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets where expiration dates are turned into instants
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// WithReminderTime sets the time of day reminders fire on their day
func WithReminderTime(tod calendar.TimeOfDay) Option {
	return func(s *Service) { s.reminderTime = tod }
}

// WithSameDayDelay sets the delay of reminders due today
func WithSameDayDelay(d time.Duration) Option {
	return func(s *Service) { s.sameDayDelay = d }
}

// WithLogger replaces the global sugared logger
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Service) { s.log = log }
}

// New returns a Service posting to notifier
func New(notifier Notifier, opts ...Option) *Service {
	s := &Service{
		notifier:     notifier,
		now:          time.Now,
		location:     time.Local,
		reminderTime: calendar.Midnight,
		sameDayDelay: DefaultSameDayDelay,
		log:          zap.S(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TriggerID is the identifier of the reminder fired threshold days before the
// document expires. notifyAt is the reminder's calendar instant, not the
// moment a same day reminder actually fires, so the same date always maps to
// the same id.
func TriggerID(vehicleID string, kind models.DocumentKind, threshold int, notifyAt time.Time) string {
	return fmt.Sprintf("%s-%s-%d-%d", vehicleID, kind, threshold, notifyAt.UnixMilli())
}

func documentPrefix(vehicleID string, kind models.DocumentKind) string {
	return fmt.Sprintf("%s-%s-", vehicleID, kind)
}

// Plan computes the triggers ScheduleDocumentReminders would register at now
func (s *Service) Plan(req Request, now time.Time) (*ReminderPlan, error) {
	if req.Expiration == nil || req.Expiration.IsZero() {
		return nil, ErrNoExpiration
	}
	today := calendar.Today(now, s.location)
	plan := &ReminderPlan{}
	for _, d := range models.ReminderThresholds {
		notifyOn := req.Expiration.AddDays(-d)
		if notifyOn.Before(today) {
			plan.Skipped = append(plan.Skipped, d)
			continue
		}

		notifyAt := notifyOn.At(s.location, s.reminderTime)
		trigger := Trigger{
			ID:        TriggerID(req.VehicleID, req.Kind, d, notifyAt),
			Title:     templates.ReminderTitle,
			Body:      templates.RenderReminderBody(req.Kind.DisplayName(), req.VehicleDescription, d),
			ChannelID: ChannelID,
			FireAt:    notifyAt,
			VehicleID: req.VehicleID,
			Kind:      req.Kind,
			Threshold: d,
		}
		if notifyOn.Equal(today) {
			trigger.Delay = s.sameDayDelay
			trigger.FireAt = now.Add(s.sameDayDelay)
		}
		plan.Triggers = append(plan.Triggers, PlannedTrigger{Threshold: d, NotifyOn: notifyOn, Trigger: trigger})
	}
	return plan, nil
}

// ScheduleDocumentReminders registers one trigger per threshold that has not
// passed yet. A denied permission or a failing threshold does not stop the
// others; only a missing channel fails the call.
func (s *Service) ScheduleDocumentReminders(ctx context.Context, req Request) (*Result, error) {
	plan, err := s.Plan(req, s.now())
	if err != nil {
		return nil, err
	}

	result := &Result{Skipped: plan.Skipped}

	granted, err := s.notifier.RequestPermission(ctx)
	if err == nil && !granted {
		err = ErrPermissionDenied
	}
	if err != nil {
		result.PermissionDenied = true
		s.log.Warnw("notification permission not granted, scheduling anyway",
			"vehicleId", req.VehicleID,
			"kind", req.Kind,
			"error", err,
		)
	}

	err = s.notifier.CreateChannel(ctx, Channel{ID: ChannelID, Name: channelName, Importance: ImportanceHigh})
	if err != nil {
		return nil, &SchedulingError{
			VehicleID: req.VehicleID,
			Kind:      req.Kind,
			Err:       fmt.Errorf("%w: %w", ErrChannelCreation, err),
		}
	}

	for _, p := range plan.Triggers {
		if err := s.notifier.CreateTriggerNotification(ctx, p.Trigger); err != nil {
			s.log.Errorw("failed to register document reminder",
				"vehicleId", req.VehicleID,
				"kind", req.Kind,
				"threshold", p.Threshold,
				"error", err,
			)
			result.Failed = append(result.Failed, ThresholdFailure{
				Threshold: p.Threshold,
				Err:       fmt.Errorf("%w: %w", ErrTriggerRegistration, err),
			})
			continue
		}
		result.Scheduled = append(result.Scheduled, p.Trigger.ID)
	}

	s.log.Infow("document reminders scheduled",
		"vehicleId", req.VehicleID,
		"kind", req.Kind,
		"expiration", req.Expiration.String(),
		"scheduled", len(result.Scheduled),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	return result, nil
}

// CancelDocumentReminders cancels every pending trigger of one document
func (s *Service) CancelDocumentReminders(ctx context.Context, vehicleID string, kind models.DocumentKind) (int, error) {
	return s.cancelMatching(ctx, documentPrefix(vehicleID, kind))
}

// CancelVehicleReminders cancels every pending trigger of a vehicle, so none
// fire after the vehicle is deleted.
func (s *Service) CancelVehicleReminders(ctx context.Context, vehicleID string) (int, error) {
	return s.cancelMatching(ctx, vehicleID+"-")
}

func (s *Service) cancelMatching(ctx context.Context, prefix string) (int, error) {
	ids, err := s.notifier.TriggerNotificationIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list trigger notifications: %w", err)
	}
	var matching []string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matching = append(matching, id)
		}
	}
	if len(matching) == 0 {
		return 0, nil
	}
	if err := s.notifier.CancelTriggerNotifications(ctx, matching); err != nil {
		return 0, fmt.Errorf("cancel trigger notifications: %w", err)
	}
	return len(matching), nil
}

// RescheduleDocumentReminders cancels the document's pending triggers and
// schedules them again for the current expiration. A document whose date was
// cleared ends up with no triggers.
func (s *Service) RescheduleDocumentReminders(ctx context.Context, req Request) (*Result, error) {
	cancelled, err := s.CancelDocumentReminders(ctx, req.VehicleID, req.Kind)
	if err != nil {
		return nil, &SchedulingError{VehicleID: req.VehicleID, Kind: req.Kind, Err: err}
	}
	if cancelled > 0 {
		s.log.Debugw("cancelled previous document reminders",
			"vehicleId", req.VehicleID,
			"kind", req.Kind,
			"cancelled", cancelled,
		)
	}
	if req.Expiration == nil || req.Expiration.IsZero() {
		return &Result{}, nil
	}
	return s.ScheduleDocumentReminders(ctx, req)
}

// RescheduleVehicle reschedules every document of vehicle
func (s *Service) RescheduleVehicle(ctx context.Context, vehicle models.Vehicle) error {
	var firstErr error
	for _, kind := range models.DocumentKinds {
		doc, _ := vehicle.Details.Document(kind)
		_, err := s.RescheduleDocumentReminders(ctx, Request{
			VehicleID:          vehicle.ID.Hex(),
			Kind:               kind,
			Expiration:         doc.Expiration,
			VehicleDescription: vehicle.Details.Description(),
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
