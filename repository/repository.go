package repository

import (
	"context"
	"errors"
	"time"

	"salon-booking-backend/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update keeps losing races.
	ErrConflict = errors.New("concurrent update conflict")
)

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	// List returns every booking ordered by date then time.
	List(ctx context.Context) ([]models.Booking, error)
	SetPaymentReference(ctx context.Context, id, reference string) error
	// ApplyPayment atomically loads the booking, folds the payment in with
	// Booking.ApplyPayment and persists the result. The bool reports whether
	// the booking changed.
	ApplyPayment(ctx context.Context, id string, payment models.Payment) (*models.Booking, bool, error)
	FindDueReminders(ctx context.Context, now time.Time, limit int) ([]models.Booking, error)
	// ClaimReminder flips reminderSent from false to true and reports whether
	// this caller won the claim.
	ClaimReminder(ctx context.Context, id string) (bool, error)
	ReleaseReminder(ctx context.Context, id string) error
	ApplyFormatFixes(ctx context.Context, fixes []models.FormatFix) (int, error)
}

type ReminderLogRepository interface {
	Create(ctx context.Context, log *models.ReminderLog) error
	ListByBooking(ctx context.Context, bookingID string) ([]models.ReminderLog, error)
}

type AdminRepository interface {
	Create(ctx context.Context, user *models.AdminUser) error
	Update(ctx context.Context, user *models.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// Store groups the repositories of one storage backend.
type Store interface {
	Bookings() BookingRepository
	ReminderLogs() ReminderLogRepository
	Admins() AdminRepository
	Migrate(ctx context.Context) error
	Close(ctx context.Context) error
}
