package services

import (
	"context"
	"testing"
	"time"

	"salon-booking-backend/events"
	"salon-booking-backend/logger"
	"salon-booking-backend/models"
	"salon-booking-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newReminderService(f *fixture, interval time.Duration) *ReminderService {
	return NewReminderService(f.store.Bookings(), f.store.ReminderLogs(), f.notifier, f.publisher, ReminderConfig{
		Interval:  interval,
		BatchSize: 100,
		Location:  f.location,
	}, logger.NewNop())
}

// acceptedBooking stores a paid booking whose appointment is at appt.
func acceptedBooking(t *testing.T, f *fixture, phone string, appt time.Time) *models.Booking {
	t.Helper()
	appt = appt.In(f.location)
	b := &models.Booking{
		ClientName:    "Client " + phone,
		ClientPhone:   phone,
		ClientEmail:   "c@example.com",
		Style:         "Braids",
		Price:         500,
		Date:          appt.Format("2006-01-02"),
		Time:          appt.Format("15:04"),
		Method:        models.MethodSMS,
		Status:        models.StatusAccepted,
		PaymentStatus: models.PaymentDepositPaid,
		DepositPaid:   225,
		ReminderAt:    models.ReminderTime(appt),
	}
	require.NoError(t, f.store.Bookings().Create(context.Background(), b))
	return b
}

func TestSweep(t *testing.T) {
	f := newFixture()
	svc := newReminderService(f, time.Minute)
	ctx := context.Background()
	now := time.Date(2030, 3, 1, 10, 0, 0, 0, f.location)

	ok := acceptedBooking(t, f, "+27820000001", now.Add(2*time.Hour))
	failing := acceptedBooking(t, f, "+27820000002", now.Add(3*time.Hour))
	expired := acceptedBooking(t, f, "+27820000003", now.Add(-time.Hour))
	notYet := acceptedBooking(t, f, "+27820000004", now.Add(6*time.Hour))
	f.messenger.failTo[failing.ClientPhone] = true

	res, err := svc.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 3, Sent: 1, Failed: 1, Expired: 1}, res)

	msgs := f.messenger.sentTo(ok.ClientPhone)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, "appointment is in 5 hours")
	assert.Empty(t, f.messenger.sentTo(expired.ClientPhone))
	assert.Empty(t, f.messenger.sentTo(notYet.ClientPhone))

	got, err := f.store.Bookings().FindByID(ctx, ok.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)
	got, err = f.store.Bookings().FindByID(ctx, failing.ID)
	require.NoError(t, err)
	assert.False(t, got.ReminderSent)
	got, err = f.store.Bookings().FindByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)

	logs, err := svc.Logs(ctx, ok.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ReminderSent, logs[0].Status)
	assert.Equal(t, models.ReminderTypeFiveHour, logs[0].Type)
	assert.Equal(t, ok.ClientPhone, logs[0].Phone)

	logs, err = svc.Logs(ctx, failing.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ReminderFailed, logs[0].Status)
	assert.NotEmpty(t, logs[0].ErrorMessage)

	logs, err = svc.Logs(ctx, expired.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ReminderExpired, logs[0].Status)

	assert.Equal(t, 1, f.publisher.count(events.ReminderSent))

	// The next sweep retries only the failed booking.
	delete(f.messenger.failTo, failing.ClientPhone)
	res, err = svc.Sweep(ctx, now.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 1, Sent: 1}, res)
	assert.Len(t, f.messenger.sentTo(ok.ClientPhone), 1)
	assert.Len(t, f.messenger.sentTo(failing.ClientPhone), 1)

	_, err = svc.Logs(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepSkipsAlreadyClaimed(t *testing.T) {
	f := newFixture()
	svc := newReminderService(f, time.Minute)
	ctx := context.Background()
	now := time.Date(2030, 3, 1, 10, 0, 0, 0, f.location)

	b := acceptedBooking(t, f, "+27820000001", now.Add(2*time.Hour))
	due, err := f.store.Bookings().FindDueReminders(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	claimed, err := f.store.Bookings().ClaimReminder(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	res, err := svc.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Due)
	assert.Empty(t, f.messenger.sentTo(b.ClientPhone))
}

func TestSchedulerRunsAndStopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture()
	svc := newReminderService(f, time.Second)
	b := acceptedBooking(t, f, "+27820000009", time.Now().Add(2*time.Hour))

	require.NoError(t, svc.Start(context.Background()))
	assert.Error(t, svc.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return len(f.messenger.sentTo(b.ClientPhone)) == 1
	}, 5*time.Second, 50*time.Millisecond)

	svc.Stop()
	svc.Stop()
}

// cancelOnClaim cancels the sweep context right after a claim. Like the
// database stores, its writes fail on a done context.
type cancelOnClaim struct {
	repository.BookingRepository
	cancel context.CancelFunc
}

func (r *cancelOnClaim) ClaimReminder(ctx context.Context, id string) (bool, error) {
	ok, err := r.BookingRepository.ClaimReminder(ctx, id)
	r.cancel()
	return ok, err
}

func (r *cancelOnClaim) ReleaseReminder(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.BookingRepository.ReleaseReminder(ctx, id)
}

type contextAwareLogs struct {
	repository.ReminderLogRepository
}

func (r contextAwareLogs) Create(ctx context.Context, entry *models.ReminderLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.ReminderLogRepository.Create(ctx, entry)
}

func TestSweepReleasesClaimAfterCancellation(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bookings := &cancelOnClaim{BookingRepository: f.store.Bookings(), cancel: cancel}
	svc := NewReminderService(bookings, contextAwareLogs{f.store.ReminderLogs()}, f.notifier, f.publisher, ReminderConfig{
		Interval:  time.Minute,
		BatchSize: 100,
		Location:  f.location,
	}, logger.NewNop())

	now := time.Date(2030, 3, 1, 10, 0, 0, 0, f.location)
	b := acceptedBooking(t, f, "+27820000009", now.Add(2*time.Hour))
	f.messenger.failTo[b.ClientPhone] = true

	res, err := svc.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 1, Failed: 1}, res)

	got, err := f.store.Bookings().FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.False(t, got.ReminderSent)

	logs, err := f.store.ReminderLogs().ListByBooking(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ReminderFailed, logs[0].Status)
}
