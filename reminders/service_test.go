package reminders_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/autodoc-api/calendar"
	"github.com/linesmerrill/autodoc-api/models"
	"github.com/linesmerrill/autodoc-api/reminders"
)

// fakeNotifier keeps triggers by id, so creating an existing id replaces it
// like the device API does.
type fakeNotifier struct {
	denied     bool
	channelErr error
	failOn     map[int]error
	channels   []reminders.Channel
	triggers   map[string]reminders.Trigger
	creates    int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{triggers: map[string]reminders.Trigger{}, failOn: map[int]error{}}
}

func (f *fakeNotifier) RequestPermission(context.Context) (bool, error) {
	return !f.denied, nil
}

func (f *fakeNotifier) CreateChannel(_ context.Context, ch reminders.Channel) error {
	if f.channelErr != nil {
		return f.channelErr
	}
	f.channels = append(f.channels, ch)
	return nil
}

func (f *fakeNotifier) CreateTriggerNotification(_ context.Context, tr reminders.Trigger) error {
	f.creates++
	if err := f.failOn[tr.Threshold]; err != nil {
		return err
	}
	f.triggers[tr.ID] = tr
	return nil
}

func (f *fakeNotifier) TriggerNotificationIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.triggers))
	for id := range f.triggers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeNotifier) CancelTriggerNotifications(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(f.triggers, id)
	}
	return nil
}

func santiago(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)
	return loc
}

func newService(t *testing.T, n reminders.Notifier, now time.Time) *reminders.Service {
	return reminders.New(n,
		reminders.WithClock(func() time.Time { return now }),
		reminders.WithLocation(santiago(t)),
	)
}

func dateP(d calendar.Date) *calendar.Date {
	return &d
}

func TestScheduleDocumentReminders_AllThresholdsInFuture(t *testing.T) {
	loc := santiago(t)
	now := time.Date(2024, time.June, 1, 15, 0, 0, 0, loc)
	expiration := calendar.New(2024, time.June, 20)
	n := newFakeNotifier()

	res, err := newService(t, n, now).ScheduleDocumentReminders(context.Background(), reminders.Request{
		VehicleID:          "v1",
		Kind:               models.DocumentInsurance,
		Expiration:         dateP(expiration),
		VehicleDescription: "Toyota Yaris",
	})

	require.NoError(t, err)
	assert.Len(t, res.Scheduled, 5)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Failed)
	assert.False(t, res.PermissionDenied)
	require.Len(t, n.triggers, 5)

	for _, d := range []int{7, 5, 3, 1, 0} {
		fireAt := expiration.AddDays(-d).Midnight(loc)
		id := reminders.TriggerID("v1", models.DocumentInsurance, d, fireAt)
		tr, ok := n.triggers[id]
		require.True(t, ok, "missing trigger for threshold %d", d)
		assert.Equal(t, fireAt, tr.FireAt)
		assert.Zero(t, tr.Delay)
		assert.Equal(t, reminders.ChannelID, tr.ChannelID)
		assert.Equal(t, "¡Documento por vencer!", tr.Title)
	}

	assert.Equal(t, "¡Tu SOAP para el vehículo Toyota Yaris vence HOY!",
		n.triggers[reminders.TriggerID("v1", models.DocumentInsurance, 0, expiration.Midnight(loc))].Body)
	assert.Equal(t, "Tu SOAP para el vehículo Toyota Yaris vencerá en 7 días",
		n.triggers[reminders.TriggerID("v1", models.DocumentInsurance, 7, expiration.AddDays(-7).Midnight(loc))].Body)

	require.Len(t, n.channels, 1)
	assert.Equal(t, reminders.ImportanceHigh, n.channels[0].Importance)
}

func TestScheduleDocumentReminders_PastExpirationSchedulesNothing(t *testing.T) {
	loc := santiago(t)
	now := time.Date(2024, time.June, 15, 8, 0, 0, 0, loc)
	n := newFakeNotifier()

	res, err := newService(t, n, now).ScheduleDocumentReminders(context.Background(), reminders.Request{
		VehicleID:  "v1",
		Kind:       models.DocumentInsurance,
		Expiration: dateP(calendar.New(2024, time.June, 10)),
	})

	require.NoError(t, err)
	assert.Empty(t, res.Scheduled)
	assert.Equal(t, []int{7, 5, 3, 1, 0}, res.Skipped)
	assert.Empty(t, n.triggers)
}

func TestScheduleDocumentReminders_TodayUsesSameDayDelay(t *testing.T) {
	loc := santiago(t)
	now := time.Date(2024, time.June, 7, 18, 30, 0, 0, loc)
	expiration := calendar.New(2024, time.June, 10)
	n := newFakeNotifier()

	res, err := newService(t, n, now).ScheduleDocumentReminders(context.Background(), reminders.Request{
		VehicleID:  "v1",
		Kind:       models.DocumentTechnicalInspection,
		Expiration: dateP(expiration),
	})

	require.NoError(t, err)
	assert.Equal(t, []int{7, 5}, res.Skipped)
	assert.Len(t, res.Scheduled, 3)

	sameDay := n.triggers[reminders.TriggerID("v1", models.DocumentTechnicalInspection, 3, calendar.New(2024, time.June, 7).Midnight(loc))]
	assert.Equal(t, reminders.DefaultSameDayDelay, sameDay.Delay)
	assert.Equal(t, now.Add(reminders.DefaultSameDayDelay), sameDay.FireAt)
	assert.Contains(t, sameDay.Body, "3 días")

	tomorrow := n.triggers[reminders.TriggerID("v1", models.DocumentTechnicalInspection, 1, calendar.New(2024, time.June, 9).Midnight(loc))]
	assert.Zero(t, tomorrow.Delay)
	assert.Equal(t, calendar.New(2024, time.June, 9).Midnight(loc), tomorrow.FireAt)
}

func TestScheduleDocumentReminders_ExpiresTodayFiresNow(t *testing.T) {
	loc := santiago(t)
	now := time.Date(2024, time.June, 10, 23, 59, 0, 0, loc)
	n := newFakeNotifier()

	res, err := newService(t, n, now).ScheduleDocumentReminders(context.Background(), reminders.Request{
		VehicleID:          "v1",
		Kind:               models.DocumentCirculationPermit,
		Expiration:         dateP(calendar.New(2024, time.June, 10)),
		VehicleDescription: "Kia Rio",
	})

	require.NoError(t, err)
	require.Len(t, res.Scheduled, 1)
	tr := n.triggers[res.Scheduled[0]]
	assert.Equal(t, 0, tr.Threshold)
	assert.Equal(t, reminders.DefaultSameDayDelay, tr.Delay)
	assert.Equal(t, "¡Tu Permiso de Circulación para el vehículo Kia Rio vence HOY!", tr.Body)
}

func TestScheduleDocumentReminders_Idempotent(t *testing.T) {
	loc := santiago(t)
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, loc)
	n := newFakeNotifier()
	svc := newService(t, n, now)
	req := reminders.Request{VehicleID: "v1", Kind: models.DocumentInsurance, Expiration: dateP(calendar.New(2024, time.June, 20))}

	first, err := svc.ScheduleDocumentReminders(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.ScheduleDocumentReminders(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Scheduled, second.Scheduled)
	assert.Equal(t, 10, n.creates)
	assert.Len(t, n.triggers, 5)
}

func TestScheduleDocumentReminders_SameDayIsIdempotentAcrossCalls(t *testing.T) {
	loc := santiago(t)
	now := time.Date(2024, time.June, 10, 9, 0, 0, 0, loc)
	n := newFakeNotifier()
	req := reminders.Request{VehicleID: "v1", Kind: models.DocumentInsurance, Expiration: dateP(calendar.New(2024, time.June, 10))}

	_, err := newService(t, n, now).ScheduleDocumentReminders(context.Background(), req)
	require.NoError(t, err)
	_, err = newService(t, n, now.Add(time.Hour)).ScheduleDocumentReminders(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, n.triggers, 1)
}

func TestScheduleDocumentReminders_NoExpiration(t *testing.T) {
	n := newFakeNotifier()
	svc := newService(t, n, time.Now())

	res, err := svc.ScheduleDocumentReminders(context.Background(), reminders.Request{VehicleID: "v1", Kind: models.DocumentInsurance})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, reminders.ErrNoExpiration)

	zero := calendar.Date{}
	_, err = svc.ScheduleDocumentReminders(context.Background(), reminders.Request{VehicleID: "v1", Kind: models.DocumentInsurance, Expiration: &zero})
	assert.ErrorIs(t, err, reminders.ErrNoExpiration)
	assert.Empty(t, n.triggers)
	assert.Empty(t, n.channels)
}

func TestScheduleDocumentReminders_ChannelFailureSchedulesNothing(t *testing.T) {
	loc := santiago(t)
	n := newFakeNotifier()
	n.channelErr = errors.New("boom")

	res, err := newService(t, n, time.Date(2024, time.June, 1, 0, 0, 0, 0, loc)).ScheduleDocumentReminders(context.Background(), reminders.Request{
		VehicleID:  "v1",
		Kind:       models.DocumentInsurance,
		Expiration: dateP(calendar.New(2024, time.June, 20)),
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, reminders.ErrChannelCreation)
	var schedErr *reminders.SchedulingError
	require.True(t, errors.As(err, &schedErr))
	assert.Equal(t, "v1", schedErr.VehicleID)
	assert.Zero(t, n.creates)
}

func TestScheduleDocumentReminders_FailedThresholdDoesNotStopOthers(t *testing.T) {
	loc := santiago(t)
	n := newFakeNotifier()
	n.failOn[3] = errors.New("os refused")

	res, err := newService(t, n, time.Date(2024, time.June, 1, 0, 0, 0, 0, loc)).ScheduleDocumentReminders(context.Background(), reminders.Request{
		VehicleID:  "v1",
		Kind:       models.DocumentInsurance,
		Expiration: dateP(calendar.New(2024, time.June, 20)),
	})

	require.NoError(t, err)
	assert.Len(t, res.Scheduled, 4)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 3, res.Failed[0].Threshold)
	assert.ErrorIs(t, res.Failed[0].Err, reminders.ErrTriggerRegistration)
}

func TestScheduleDocumentReminders_PermissionDeniedStillSchedules(t *testing.T) {
	loc := santiago(t)
	n := newFakeNotifier()
	n.denied = true

	res, err := newService(t, n, time.Date(2024, time.June, 1, 0, 0, 0, 0, loc)).ScheduleDocumentReminders(context.Background(), reminders.Request{
		VehicleID:  "v1",
		Kind:       models.DocumentInsurance,
		Expiration: dateP(calendar.New(2024, time.June, 20)),
	})

	require.NoError(t, err)
	assert.True(t, res.PermissionDenied)
	assert.Len(t, res.Scheduled, 5)
}

func TestPlan_UsesReminderTime(t *testing.T) {
	loc := santiago(t)
	svc := reminders.New(newFakeNotifier(),
		reminders.WithLocation(loc),
		reminders.WithReminderTime(calendar.TimeOfDay{Hour: 9}),
		reminders.WithSameDayDelay(time.Minute),
	)
	now := time.Date(2024, time.June, 3, 10, 0, 0, 0, loc)

	plan, err := svc.Plan(reminders.Request{VehicleID: "v1", Kind: models.DocumentInsurance, Expiration: dateP(calendar.New(2024, time.June, 10))}, now)

	require.NoError(t, err)
	assert.Empty(t, plan.Skipped)
	require.Len(t, plan.Triggers, 5)
	assert.Equal(t, calendar.New(2024, time.June, 3), plan.Triggers[0].NotifyOn)
	assert.Equal(t, time.Minute, plan.Triggers[0].Trigger.Delay)
	assert.Equal(t, time.Date(2024, time.June, 5, 9, 0, 0, 0, loc), plan.Triggers[1].Trigger.FireAt)
}

func TestRescheduleDocumentReminders_CancelsStaleTriggers(t *testing.T) {
	loc := santiago(t)
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, loc)
	n := newFakeNotifier()
	svc := newService(t, n, now)

	_, err := svc.ScheduleDocumentReminders(context.Background(), reminders.Request{
		VehicleID: "v1", Kind: models.DocumentInsurance, Expiration: dateP(calendar.New(2024, time.June, 20)),
	})
	require.NoError(t, err)
	_, err = svc.ScheduleDocumentReminders(context.Background(), reminders.Request{
		VehicleID: "v1", Kind: models.DocumentTechnicalInspection, Expiration: dateP(calendar.New(2024, time.June, 20)),
	})
	require.NoError(t, err)

	res, err := svc.RescheduleDocumentReminders(context.Background(), reminders.Request{
		VehicleID: "v1", Kind: models.DocumentInsurance, Expiration: dateP(calendar.New(2024, time.July, 20)),
	})
	require.NoError(t, err)
	assert.Len(t, res.Scheduled, 5)
	assert.Len(t, n.triggers, 10)

	newFirst := reminders.TriggerID("v1", models.DocumentInsurance, 7, calendar.New(2024, time.July, 13).Midnight(loc))
	staleFirst := reminders.TriggerID("v1", models.DocumentInsurance, 7, calendar.New(2024, time.June, 13).Midnight(loc))
	assert.Contains(t, n.triggers, newFirst)
	assert.NotContains(t, n.triggers, staleFirst)
}

func TestRescheduleDocumentReminders_ClearedDateCancelsOnly(t *testing.T) {
	loc := santiago(t)
	n := newFakeNotifier()
	svc := newService(t, n, time.Date(2024, time.June, 1, 12, 0, 0, 0, loc))

	_, err := svc.ScheduleDocumentReminders(context.Background(), reminders.Request{
		VehicleID: "v1", Kind: models.DocumentInsurance, Expiration: dateP(calendar.New(2024, time.June, 20)),
	})
	require.NoError(t, err)

	res, err := svc.RescheduleDocumentReminders(context.Background(), reminders.Request{VehicleID: "v1", Kind: models.DocumentInsurance})

	require.NoError(t, err)
	assert.Empty(t, res.Scheduled)
	assert.Empty(t, n.triggers)
}

func TestCancelVehicleReminders_LeavesOtherVehicles(t *testing.T) {
	loc := santiago(t)
	n := newFakeNotifier()
	svc := newService(t, n, time.Date(2024, time.June, 1, 12, 0, 0, 0, loc))

	for _, v := range []string{"v1", "v2"} {
		_, err := svc.ScheduleDocumentReminders(context.Background(), reminders.Request{
			VehicleID: v, Kind: models.DocumentInsurance, Expiration: dateP(calendar.New(2024, time.June, 20)),
		})
		require.NoError(t, err)
	}

	cancelled, err := svc.CancelVehicleReminders(context.Background(), "v1")

	require.NoError(t, err)
	assert.Equal(t, 5, cancelled)
	for id := range n.triggers {
		assert.True(t, strings.HasPrefix(id, "v2-"))
	}
}
