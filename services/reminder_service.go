// services/reminder_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"salon-booking-backend/events"
	"salon-booking-backend/logger"
	"salon-booking-backend/metrics"
	"salon-booking-backend/models"
	"salon-booking-backend/repository"
	"salon-booking-backend/utils"

	"github.com/robfig/cron/v3"
)

type ReminderConfig struct {
	Interval  time.Duration
	BatchSize int
	Location  *time.Location
}

type ReminderService struct {
	bookings  repository.BookingRepository
	logs      repository.ReminderLogRepository
	notifier  *NotificationService
	publisher events.Publisher
	cfg       ReminderConfig
	log       logger.Logger
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
}

func NewReminderService(
	bookings repository.BookingRepository,
	logs repository.ReminderLogRepository,
	notifier *NotificationService,
	publisher events.Publisher,
	cfg ReminderConfig,
	log logger.Logger,
) *ReminderService {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ReminderService{
		bookings:  bookings,
		logs:      logs,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
		log:       log.With("component", "reminders"),
		now:       time.Now,
	}
}

// Start schedules the sweep every Interval. An overlapping run is skipped.
func (s *ReminderService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("reminder scheduler already started")
	}

	cronLog := logger.CronLogger(s.log)
	c := cron.New(cron.WithChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	), cron.WithLogger(cronLog))

	spec := fmt.Sprintf("@every %s", s.cfg.Interval)
	if _, err := c.AddFunc(spec, func() {
		result, err := s.Sweep(ctx, s.now())
		if err != nil {
			s.log.Error("reminder sweep failed", "error", err)
			return
		}
		if result.Due > 0 {
			s.log.Info("reminder sweep completed",
				"due", result.Due, "sent", result.Sent, "failed", result.Failed,
				"expired", result.Expired, "skipped", result.Skipped)
		}
	}); err != nil {
		return fmt.Errorf("schedule reminder sweep: %w", err)
	}

	c.Start()
	s.cron = c
	s.log.Info("reminder scheduler started", "interval", s.cfg.Interval.String())
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *ReminderService) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.log.Info("reminder scheduler stopped")
}

// Sweep sends every reminder due at now. Per-booking failures are logged
// and counted; only a failed query aborts the sweep.
func (s *ReminderService) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	due, err := s.bookings.FindDueReminders(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return result, fmt.Errorf("find due reminders: %w", err)
	}
	result.Due = len(due)

	for i := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		switch s.remind(ctx, &due[i], now) {
		case models.ReminderSent:
			result.Sent++
		case models.ReminderFailed:
			result.Failed++
		case models.ReminderExpired:
			result.Expired++
		default:
			result.Skipped++
		}
	}
	return result, nil
}

// remind handles one booking and returns the logged status, or "" when the
// booking was claimed by someone else.
func (s *ReminderService) remind(ctx context.Context, b *models.Booking, now time.Time) models.ReminderStatus {
	log := s.log.With("bookingId", b.ID)

	claimed, err := s.bookings.ClaimReminder(ctx, b.ID)
	if err != nil {
		log.Error("failed to claim reminder", "error", err)
		return ""
	}
	if !claimed {
		return ""
	}

	// Once claimed, the outcome must be recorded and a failed claim released
	// even when shutdown cancels ctx mid-sweep.
	settle := context.WithoutCancel(ctx)

	entry := models.ReminderLog{
		BookingID:  b.ID,
		ClientName: b.ClientName,
		Phone:      b.ClientPhone,
		Method:     b.Method,
		Channel:    string(b.Method),
		Type:       models.ReminderTypeFiveHour,
		SentAt:     now,
	}

	appointment, err := utils.ParseAppointment(b.Date, b.Time, s.cfg.Location)
	if err == nil && !appointment.After(now) {
		entry.Status = models.ReminderExpired
		s.writeLog(settle, &entry)
		log.Info("reminder expired", "appointment", appointment)
		return models.ReminderExpired
	}

	message, sid, err := s.notifier.SendReminder(ctx, b)
	entry.Message = message
	if err != nil {
		entry.Status = models.ReminderFailed
		entry.ErrorMessage = err.Error()
		s.writeLog(settle, &entry)
		log.Warn("failed to send reminder", "phone", b.ClientPhone, "error", err)

		if relErr := s.bookings.ReleaseReminder(settle, b.ID); relErr != nil {
			log.Error("failed to release reminder claim", "error", relErr)
		}
		return models.ReminderFailed
	}

	entry.Status = models.ReminderSent
	s.writeLog(settle, &entry)
	log.Info("reminder sent", "sid", sid)

	if err := s.publisher.PublishJSON(ctx, events.ReminderSent, events.ReminderSentEvent{
		BookingID:  b.ID,
		Channel:    entry.Channel,
		MessageSID: sid,
		OccurredAt: now.UTC(),
	}); err != nil {
		log.Warn("event publish failed", "key", events.ReminderSent, "error", err)
	}
	return models.ReminderSent
}

func (s *ReminderService) writeLog(ctx context.Context, entry *models.ReminderLog) {
	metrics.Reminders.WithLabelValues(string(entry.Status)).Inc()
	if err := s.logs.Create(ctx, entry); err != nil {
		s.log.Error("failed to log reminder", "bookingId", entry.BookingID, "error", err)
	}
}

func (s *ReminderService) Logs(ctx context.Context, bookingID string) ([]models.ReminderLog, error) {
	if _, err := s.bookings.FindByID(ctx, bookingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: %w", err)
	}
	return s.logs.ListByBooking(ctx, bookingID)
}
