package config

import (
	"time"

	"salon-booking-backend/logger"

	"github.com/gin-gonic/gin"
)

const slowRequestThreshold = 200 * time.Millisecond

// RequestLogger logs every request with its latency and flags slow ones.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", latency,
		}
		log.Info("request", fields...)

		if latency > slowRequestThreshold {
			log.Warn("slow request", fields...)
		}
	}
}
