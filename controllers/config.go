package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ClientConfig is the browser-safe runtime configuration. It must never
// carry secrets.
type ClientConfig struct {
	SalonName       string `json:"salonName"`
	PaymentProvider string `json:"paymentProvider"`
	PublicKey       string `json:"publicKey"`
	Currency        string `json:"currency"`
	DepositPercent  int    `json:"depositPercent"`
	WhatsAppNumber  string `json:"whatsappNumber"`
}

type ConfigController struct {
	cfg ClientConfig
}

func NewConfigController(cfg ClientConfig) *ConfigController {
	return &ConfigController{cfg: cfg}
}

// GET /api/config
func (ctl *ConfigController) Get(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, ctl.cfg)
}
