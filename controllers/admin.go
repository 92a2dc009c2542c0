package controllers

import (
	"net/http"
	"strconv"
	"time"

	"salon-booking-backend/services"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	admin     *services.AdminService
	bookings  *services.BookingService
	reminders *services.ReminderService
}

func NewAdminController(admin *services.AdminService, bookings *services.BookingService, reminders *services.ReminderService) *AdminController {
	return &AdminController{admin: admin, bookings: bookings, reminders: reminders}
}

// GET /admin/bookings
func (ctl *AdminController) ListBookings(c *gin.Context) {
	bookings, err := ctl.admin.ListSorted(c.Request.Context())
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// GET /admin/bookings/:id
func (ctl *AdminController) GetBooking(c *gin.Context) {
	booking, err := ctl.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// GET /admin/bookings/:id/reminders
func (ctl *AdminController) GetReminderLogs(c *gin.Context) {
	logs, err := ctl.reminders.Logs(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": logs})
}

// GET /admin/reports/daily
func (ctl *AdminController) DailyReport(c *gin.Context) {
	rows, err := ctl.admin.DailySummary(c.Request.Context())
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	var hours, revenue float64
	for _, r := range rows {
		hours += r.EstimatedHours
		revenue += r.Revenue
	}
	c.JSON(http.StatusOK, gin.H{
		"days": rows,
		"totals": gin.H{
			"estimatedHours": hours,
			"revenue":        revenue,
		},
	})
}

// POST /admin/maintenance/normalize?dryRun=true
func (ctl *AdminController) NormalizeFormats(c *gin.Context) {
	dryRun, _ := strconv.ParseBool(c.DefaultQuery("dryRun", "false"))

	result, err := ctl.admin.NormalizeFormats(c.Request.Context(), dryRun)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// POST /admin/reminders/sweep
func (ctl *AdminController) RunReminderSweep(c *gin.Context) {
	result, err := ctl.reminders.Sweep(c.Request.Context(), time.Now())
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
