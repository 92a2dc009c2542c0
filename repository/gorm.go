package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"salon-booking-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Bookings() BookingRepository         { return &gormBookings{db: s.db} }
func (s *GormStore) ReminderLogs() ReminderLogRepository { return &gormReminderLogs{db: s.db} }
func (s *GormStore) Admins() AdminRepository             { return &gormAdmins{db: s.db} }

func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.Booking{},
		&models.ReminderLog{},
		&models.AdminUser{},
	)
}

func (s *GormStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type gormBookings struct {
	db *gorm.DB
}

func (r *gormBookings) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *gormBookings) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

func (r *gormBookings) List(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).Order("date asc, time asc").Find(&bookings).Error
	return bookings, err
}

func (r *gormBookings) SetPaymentReference(ctx context.Context, id, reference string) error {
	res := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ?", id).
		Update("payment_reference", reference)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormBookings) ApplyPayment(ctx context.Context, id string, payment models.Payment) (*models.Booking, bool, error) {
	var (
		booking models.Booking
		applied bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&booking, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if !booking.ApplyPayment(payment) {
			return nil
		}
		applied = true
		return tx.Model(&booking).
			Select("payment_status", "deposit_paid", "balance_remaining", "payment_reference", "status", "updated_at").
			Updates(&booking).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &booking, applied, nil
}

func (r *gormBookings) FindDueReminders(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND reminder_sent = ? AND reminder_at <= ?", models.StatusAccepted, false, now).
		Order("reminder_at asc").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}

func (r *gormBookings) ClaimReminder(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND reminder_sent = ?", id, false).
		Update("reminder_sent", true)
	return res.RowsAffected == 1, res.Error
}

func (r *gormBookings) ReleaseReminder(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ?", id).
		Update("reminder_sent", false).Error
}

func (r *gormBookings) ApplyFormatFixes(ctx context.Context, fixes []models.FormatFix) (int, error) {
	var updated int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, fix := range fixes {
			res := tx.Model(&models.Booking{}).
				Where("id = ?", fix.BookingID).
				Updates(map[string]interface{}{
					"date":        fix.Date,
					"time":        fix.Time,
					"reminder_at": fix.ReminderAt,
				})
			if res.Error != nil {
				return res.Error
			}
			updated += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

type gormReminderLogs struct {
	db *gorm.DB
}

func (r *gormReminderLogs) Create(ctx context.Context, log *models.ReminderLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *gormReminderLogs) ListByBooking(ctx context.Context, bookingID string) ([]models.ReminderLog, error) {
	var logs []models.ReminderLog
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("sent_at asc").
		Find(&logs).Error
	return logs, err
}

type gormAdmins struct {
	db *gorm.DB
}

func (r *gormAdmins) Create(ctx context.Context, user *models.AdminUser) error {
	user.Email = strings.ToLower(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *gormAdmins) Update(ctx context.Context, user *models.AdminUser) error {
	if err := user.Prepare(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(user).
		Select("name", "password", "is_admin").
		Updates(user).Error
}

func (r *gormAdmins) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var user models.AdminUser
	if err := r.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *gormAdmins) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AdminUser{}).
		Where("id = ?", id).
		Update("last_login", at).Error
}
