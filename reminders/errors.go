package reminders

import (
	"errors"
	"fmt"

	"github.com/linesmerrill/autodoc-api/models"
)

var (
	// ErrPermissionDenied is recorded when the device declines notifications.
	// Scheduling still goes ahead.
	ErrPermissionDenied = errors.New("notification permission denied")
	// ErrChannelCreation means the reminder channel could not be created
	ErrChannelCreation = errors.New("notification channel creation failed")
	// ErrTriggerRegistration means a single threshold could not be registered
	ErrTriggerRegistration = errors.New("trigger notification registration failed")
	// ErrNoExpiration is returned for documents without an expiration date
	ErrNoExpiration = errors.New("document has no expiration date")
)

// SchedulingError fails a whole scheduling call for one document
type SchedulingError struct {
	VehicleID string
	Kind      models.DocumentKind
	Err       error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("schedule %s reminders for vehicle %s: %v", e.Kind, e.VehicleID, e.Err)
}

func (e *SchedulingError) Unwrap() error {
	return e.Err
}
