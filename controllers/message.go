package controllers

import (
	"crypto/subtle"
	"net/http"

	"salon-booking-backend/services"
	"salon-booking-backend/utils"

	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

type MessageController struct {
	notifier *services.NotificationService
	apiKey   string
}

func NewMessageController(notifier *services.NotificationService, apiKey string) *MessageController {
	return &MessageController{notifier: notifier, apiKey: apiKey}
}

type SendMessageInput struct {
	Phone   string `json:"phone" binding:"required"`
	Message string `json:"message" binding:"required"`
	Channel string `json:"channel"`
}

// RequireAPIKey guards the relay. Without a configured key every request
// is refused.
func (ctl *MessageController) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(apiKeyHeader)
		if ctl.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(ctl.apiKey)) != 1 {
			utils.RespondWithError(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Next()
	}
}

// POST /api/messages
func (ctl *MessageController) Send(c *gin.Context) {
	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Missing phone or message")
		return
	}

	sid, err := ctl.notifier.Relay(c.Request.Context(), input.Channel, input.Phone, input.Message)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sid": sid})
}
