package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salon-booking-backend/config"
	"salon-booking-backend/controllers"
	"salon-booking-backend/events"
	"salon-booking-backend/gateway"
	"salon-booking-backend/logger"
	"salon-booking-backend/routes"
	"salon-booking-backend/services"
	"salon-booking-backend/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger("info").Fatal("failed to load config", "error", err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", "error", err)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := config.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	retry := gateway.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.RetryMaxAttempts
	paymentGateway, err := newPaymentGateway(cfg, retry)
	if err != nil {
		return err
	}
	messenger := gateway.NewTwilioMessenger(gateway.TwilioConfig{
		AccountSID:     cfg.TwilioAccountSID,
		AuthToken:      cfg.TwilioAuthToken,
		PhoneNumber:    cfg.TwilioPhoneNumber,
		WhatsAppNumber: cfg.TwilioWhatsAppNumber,
		Retry:          retry,
	})

	publisher := newPublisher(cfg, log)
	defer publisher.Close()

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)
	notifier := services.NewNotificationService(messenger, cfg.AdminWhatsAppNumber, cfg.PhoneCountryCode, log)
	bookings := services.NewBookingService(store.Bookings(), paymentGateway, notifier, publisher, services.BookingConfig{
		Currency:       cfg.Currency,
		DepositPercent: cfg.DepositPercent,
		CountryCode:    cfg.PhoneCountryCode,
		Location:       cfg.Location,
		CallbackURL:    cfg.PaymentCallbackURL,
	}, log)
	reminders := services.NewReminderService(store.Bookings(), store.ReminderLogs(), notifier, publisher, services.ReminderConfig{
		Interval:  cfg.ReminderInterval,
		BatchSize: cfg.ReminderBatchSize,
		Location:  cfg.Location,
	}, log)
	admin := services.NewAdminService(store.Bookings(), cfg.Location, log)
	auth := services.NewAuthService(store.Admins(), tokens, log)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := routes.SetupRouter(routes.Dependencies{
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins,
		Tokens:         tokens,
		Bookings:       controllers.NewBookingController(bookings),
		Webhooks:       controllers.NewWebhookController(bookings),
		Admin:          controllers.NewAdminController(admin, bookings, reminders),
		Auth:           controllers.NewAuthController(auth, tokens),
		Config: controllers.NewConfigController(controllers.ClientConfig{
			SalonName:       cfg.SalonName,
			PaymentProvider: cfg.PaymentProvider,
			PublicKey:       cfg.PublicKey(),
			Currency:        cfg.Currency,
			DepositPercent:  cfg.DepositPercent,
			WhatsAppNumber:  cfg.AdminWhatsAppNumber,
		}),
		Messages: controllers.NewMessageController(notifier, cfg.MessagingAPIKey),
	})
	printRoutes(engine, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", srv.Addr, "storage", cfg.StorageDriver, "payments", paymentGateway.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := reminders.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		reminders.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newPaymentGateway(cfg *config.Config, retry gateway.RetryPolicy) (gateway.PaymentGateway, error) {
	if cfg.PaymentProvider == "omise" {
		return gateway.NewOmise(gateway.OmiseConfig{
			PublicKey:     cfg.OmisePublicKey,
			SecretKey:     cfg.OmiseSecretKey,
			WebhookSecret: cfg.OmiseWebhookSecret,
			SourceType:    cfg.OmiseSourceType,
			ReturnURI:     cfg.PaymentCallbackURL,
			Retry:         retry,
		})
	}
	return gateway.NewPaystack(gateway.PaystackConfig{
		SecretKey:   cfg.PaystackSecretKey,
		BaseURL:     cfg.PaystackBaseURL,
		CallbackURL: cfg.PaymentCallbackURL,
		Timeout:     cfg.HTTPTimeout,
		Retry:       retry,
	}), nil
}

// newPublisher falls back to logging events when no broker is configured
// or it cannot be reached at startup.
func newPublisher(cfg *config.Config, log logger.Logger) events.Publisher {
	if cfg.RabbitURL == "" {
		return events.NewLogPublisher(log)
	}
	publisher, err := events.NewAMQPPublisher(cfg.RabbitURL, cfg.EventsExchange)
	if err != nil {
		log.Warn("rabbitmq unavailable, events will only be logged", "error", err)
		return events.NewLogPublisher(log)
	}
	return publisher
}

func printRoutes(r *gin.Engine, log logger.Logger) {
	for _, route := range r.Routes() {
		log.Debug("route", "method", route.Method, "path", route.Path)
	}
}
