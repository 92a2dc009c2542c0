package controllers

import (
	"net/http"

	"salon-booking-backend/services"
	"salon-booking-backend/utils"

	"github.com/gin-gonic/gin"
)

type WebhookController struct {
	bookings *services.BookingService
}

func NewWebhookController(bookings *services.BookingService) *WebhookController {
	return &WebhookController{bookings: bookings}
}

// POST /api/payments/webhook
func (ctl *WebhookController) Handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Unable to read body")
		return
	}

	result, err := ctl.bookings.HandleWebhook(c.Request.Context(), c.Request.Header, body)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"applied":  result.Applied,
		"ignored":  result.Ignored,
	})
}
