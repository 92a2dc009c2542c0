package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"salon-booking-backend/models"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. It backs local runs
// without a database and the service tests.
type MemoryStore struct {
	mu       sync.Mutex
	bookings map[string]models.Booking
	logs     []models.ReminderLog
	admins   map[string]models.AdminUser
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings: make(map[string]models.Booking),
		admins:   make(map[string]models.AdminUser),
	}
}

func (s *MemoryStore) Bookings() BookingRepository         { return (*memoryBookings)(s) }
func (s *MemoryStore) ReminderLogs() ReminderLogRepository { return (*memoryReminderLogs)(s) }
func (s *MemoryStore) Admins() AdminRepository             { return (*memoryAdmins)(s) }

func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }
func (s *MemoryStore) Close(ctx context.Context) error   { return nil }

type memoryBookings MemoryStore

func (r *memoryBookings) Create(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	r.bookings[booking.ID] = *booking
	return nil
}

func (r *memoryBookings) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &booking, nil
}

func (r *memoryBookings) List(ctx context.Context) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bookings := make([]models.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		bookings = append(bookings, b)
	}
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].Date != bookings[j].Date {
			return bookings[i].Date < bookings[j].Date
		}
		return bookings[i].Time < bookings[j].Time
	})
	return bookings, nil
}

func (r *memoryBookings) SetPaymentReference(ctx context.Context, id, reference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	booking.PaymentReference = reference
	booking.UpdatedAt = time.Now().UTC()
	r.bookings[id] = booking
	return nil
}

func (r *memoryBookings) ApplyPayment(ctx context.Context, id string, payment models.Payment) (*models.Booking, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if !booking.ApplyPayment(payment) {
		return &booking, false, nil
	}
	booking.UpdatedAt = time.Now().UTC()
	r.bookings[id] = booking
	return &booking, true, nil
}

func (r *memoryBookings) FindDueReminders(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []models.Booking
	for _, b := range r.bookings {
		if b.ReminderDue(now) {
			due = append(due, b)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ReminderAt.Before(due[j].ReminderAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *memoryBookings) ClaimReminder(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok || booking.ReminderSent {
		return false, nil
	}
	booking.ReminderSent = true
	r.bookings[id] = booking
	return true, nil
}

func (r *memoryBookings) ReleaseReminder(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	booking.ReminderSent = false
	r.bookings[id] = booking
	return nil
}

func (r *memoryBookings) ApplyFormatFixes(ctx context.Context, fixes []models.FormatFix) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int
	for _, fix := range fixes {
		booking, ok := r.bookings[fix.BookingID]
		if !ok {
			continue
		}
		booking.Date = fix.Date
		booking.Time = fix.Time
		booking.ReminderAt = fix.ReminderAt
		booking.UpdatedAt = time.Now().UTC()
		r.bookings[fix.BookingID] = booking
		updated++
	}
	return updated, nil
}

type memoryReminderLogs MemoryStore

func (r *memoryReminderLogs) Create(ctx context.Context, log *models.ReminderLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	r.logs = append(r.logs, *log)
	return nil
}

func (r *memoryReminderLogs) ListByBooking(ctx context.Context, bookingID string) ([]models.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logs := []models.ReminderLog{}
	for _, l := range r.logs {
		if l.BookingID == bookingID {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

type memoryAdmins MemoryStore

func (r *memoryAdmins) Create(ctx context.Context, user *models.AdminUser) error {
	if err := user.Prepare(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	for _, existing := range r.admins {
		if existing.Email == user.Email {
			return ErrConflict
		}
	}
	r.admins[user.ID] = *user
	return nil
}

func (r *memoryAdmins) Update(ctx context.Context, user *models.AdminUser) error {
	if err := user.Prepare(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.admins[user.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = user.Name
	existing.Password = user.Password
	existing.IsAdmin = user.IsAdmin
	r.admins[user.ID] = existing
	return nil
}

func (r *memoryAdmins) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range r.admins {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryAdmins) TouchLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.admins[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	r.admins[id] = u
	return nil
}
