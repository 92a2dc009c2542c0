package routes

import (
	"net/http"
	"time"

	"salon-booking-backend/config"
	"salon-booking-backend/controllers"
	"salon-booking-backend/logger"
	"salon-booking-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Dependencies struct {
	Logger         logger.Logger
	AllowedOrigins []string
	Tokens         *utils.TokenIssuer

	Bookings *controllers.BookingController
	Webhooks *controllers.WebhookController
	Admin    *controllers.AdminController
	Auth     *controllers.AuthController
	Config   *controllers.ConfigController
	Messages *controllers.MessageController
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(config.RequestLogger(deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/auth")
	{
		auth.POST("/login", deps.Auth.Login)
		auth.POST("/logout", deps.Auth.Logout)
		auth.GET("/me", utils.AuthMiddleware(deps.Tokens), deps.Auth.Me)
	}

	api := r.Group("/api")
	{
		api.GET("/config", deps.Config.Get)

		bookings := api.Group("/bookings")
		{
			bookings.POST("", deps.Bookings.Create)
			bookings.POST("/:id/verify", deps.Bookings.Verify)
		}

		api.POST("/payments/webhook", deps.Webhooks.Handle)
		api.POST("/messages", deps.Messages.RequireAPIKey(), deps.Messages.Send)
	}

	admin := r.Group("/admin")
	admin.Use(utils.AuthMiddleware(deps.Tokens))
	{
		admin.GET("/bookings", deps.Admin.ListBookings)
		admin.GET("/bookings/:id", deps.Admin.GetBooking)
		admin.GET("/bookings/:id/reminders", deps.Admin.GetReminderLogs)
		admin.GET("/reports/daily", deps.Admin.DailyReport)
		admin.POST("/maintenance/normalize", deps.Admin.NormalizeFormats)
		admin.POST("/reminders/sweep", deps.Admin.RunReminderSweep)
	}

	return r
}
