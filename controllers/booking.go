package controllers

import (
	"net/http"

	"salon-booking-backend/services"
	"salon-booking-backend/utils"

	"github.com/gin-gonic/gin"
)

type BookingController struct {
	bookings *services.BookingService
}

func NewBookingController(bookings *services.BookingService) *BookingController {
	return &BookingController{bookings: bookings}
}

type VerifyPaymentInput struct {
	Reference string `json:"reference" binding:"required"`
}

// POST /api/bookings
func (ctl *BookingController) Create(c *gin.Context) {
	var input services.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	result, err := ctl.bookings.Create(c.Request.Context(), input)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// POST /api/bookings/:id/verify
func (ctl *BookingController) Verify(c *gin.Context) {
	var input VerifyPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	booking, err := ctl.bookings.Verify(c.Request.Context(), c.Param("id"), input.Reference)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}
