package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"salon-booking-backend/logger"
	"salon-booking-backend/models"
	"salon-booking-backend/repository"
	"salon-booking-backend/utils"

	"github.com/samber/lo"
)

type AdminService struct {
	bookings repository.BookingRepository
	location *time.Location
	log      logger.Logger
}

func NewAdminService(bookings repository.BookingRepository, location *time.Location, log logger.Logger) *AdminService {
	if location == nil {
		location = time.UTC
	}
	return &AdminService{
		bookings: bookings,
		location: location,
		log:      log.With("component", "admin"),
	}
}

// DaySummary aggregates the bookings of one date.
type DaySummary struct {
	Date           string  `json:"date"`
	Bookings       int     `json:"bookings"`
	EstimatedHours float64 `json:"estimatedHours"`
	Revenue        float64 `json:"revenue"`
}

type NormalizeResult struct {
	Fixes   []models.FormatFix `json:"fixes"`
	Invalid []string           `json:"invalid"`
	Updated int                `json:"updated"`
	DryRun  bool               `json:"dryRun"`
}

// sortKey orders bookings chronologically, falling back to the raw values
// for records that have not been normalized yet.
func sortKey(b models.Booking) (string, string) {
	date, err := utils.NormalizeDate(b.Date)
	if err != nil {
		date = b.Date
	}
	clock, err := utils.NormalizeTime(b.Time)
	if err != nil {
		clock = b.Time
	}
	return date, clock
}

func (s *AdminService) ListSorted(ctx context.Context) ([]models.Booking, error) {
	bookings, err := s.bookings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	sort.SliceStable(bookings, func(i, j int) bool {
		di, ti := sortKey(bookings[i])
		dj, tj := sortKey(bookings[j])
		if di != dj {
			return di < dj
		}
		return ti < tj
	})
	return bookings, nil
}

func (s *AdminService) DailySummary(ctx context.Context) ([]DaySummary, error) {
	bookings, err := s.bookings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	byDate := lo.GroupBy(bookings, func(b models.Booking) string {
		date, _ := sortKey(b)
		return date
	})

	summaries := lo.MapToSlice(byDate, func(date string, day []models.Booking) DaySummary {
		summary := DaySummary{Date: date, Bookings: len(day)}
		for _, b := range day {
			summary.EstimatedHours += utils.MaxEstimateHours(b.TimeEstimate)
			summary.Revenue += b.Price
		}
		return summary
	})
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date < summaries[j].Date
	})
	return summaries, nil
}

// NormalizeFormats rewrites non-canonical dates and times and recomputes
// reminderAt, in a single batched write unless dryRun is set.
func (s *AdminService) NormalizeFormats(ctx context.Context, dryRun bool) (*NormalizeResult, error) {
	bookings, err := s.bookings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	result := &NormalizeResult{Fixes: []models.FormatFix{}, Invalid: []string{}, DryRun: dryRun}
	for _, b := range bookings {
		date, dateErr := utils.NormalizeDate(b.Date)
		clock, timeErr := utils.NormalizeTime(b.Time)
		if dateErr != nil || timeErr != nil {
			result.Invalid = append(result.Invalid, b.ID)
			continue
		}
		if date == b.Date && clock == b.Time {
			continue
		}

		appointment, err := utils.ParseAppointment(date, clock, s.location)
		if err != nil {
			result.Invalid = append(result.Invalid, b.ID)
			continue
		}
		result.Fixes = append(result.Fixes, models.FormatFix{
			BookingID:  b.ID,
			Date:       date,
			Time:       clock,
			ReminderAt: models.ReminderTime(appointment),
		})
	}

	if dryRun || len(result.Fixes) == 0 {
		return result, nil
	}

	updated, err := s.bookings.ApplyFormatFixes(ctx, result.Fixes)
	if err != nil {
		return nil, fmt.Errorf("apply format fixes: %w", err)
	}
	result.Updated = updated
	s.log.Info("normalized booking formats", "updated", updated, "invalid", len(result.Invalid))
	return result, nil
}
