package controllers

import (
	"errors"
	"net/http"

	"salon-booking-backend/services"
	"salon-booking-backend/utils"

	"github.com/gin-gonic/gin"
)

// respondWithServiceError maps service sentinels onto HTTP status codes.
func respondWithServiceError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid input", "fields": verr.Fields})
	case errors.Is(err, services.ErrInvalidArgument),
		errors.Is(err, services.ErrInvalidSignature),
		errors.Is(err, services.ErrMissingBookingID):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, http.StatusNotFound, "Booking not found")
	case errors.Is(err, services.ErrPaymentNotSuccessful):
		utils.RespondWithError(c, http.StatusConflict, "payment not successful")
	case errors.Is(err, services.ErrAmountMismatch):
		utils.RespondWithError(c, http.StatusConflict, "amount mismatch")
	default:
		_ = c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
