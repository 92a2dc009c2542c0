package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"salon-booking-backend/events"
	"salon-booking-backend/gateway"
	"salon-booking-backend/logger"
	"salon-booking-backend/metrics"
	"salon-booking-backend/models"
	"salon-booking-backend/repository"
	"salon-booking-backend/utils"

	"github.com/lithammer/shortuuid/v3"
)

const (
	SourceWebhook = "webhook"
	SourceVerify  = "verify"

	referencePrefix = "SB-"
)

type BookingConfig struct {
	Currency       string
	DepositPercent int
	CountryCode    string
	Location       *time.Location
	CallbackURL    string
}

// BookingService owns booking intake and every path that applies a payment.
type BookingService struct {
	bookings  repository.BookingRepository
	gateway   gateway.PaymentGateway
	notifier  *NotificationService
	publisher events.Publisher
	cfg       BookingConfig
	log       logger.Logger
	now       func() time.Time
}

func NewBookingService(
	bookings repository.BookingRepository,
	gw gateway.PaymentGateway,
	notifier *NotificationService,
	publisher events.Publisher,
	cfg BookingConfig,
	log logger.Logger,
) *BookingService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &BookingService{
		bookings:  bookings,
		gateway:   gw,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
		log:       log.With("component", "bookings"),
		now:       time.Now,
	}
}

type CreateBookingInput struct {
	Style        string  `json:"style"`
	Length       string  `json:"length"`
	Price        float64 `json:"price"`
	ClientName   string  `json:"clientName"`
	ClientPhone  string  `json:"clientPhone"`
	ClientEmail  string  `json:"clientEmail"`
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	Method       string  `json:"method"`
	TimeEstimate string  `json:"timeEstimate"`
}

type CreateBookingResult struct {
	BookingID        string  `json:"bookingId"`
	AuthorizationURL string  `json:"authorizationUrl"`
	Reference        string  `json:"reference"`
	Deposit          float64 `json:"deposit"`
}

type WebhookResult struct {
	BookingID string
	Applied   bool
	Ignored   bool
}

// Deposit is the share of price due up front, rounded to a whole unit.
func Deposit(price float64, percent int) float64 {
	return math.Round(price * float64(percent) / 100)
}

func (s *BookingService) deposit(price float64) float64 {
	return Deposit(price, s.cfg.DepositPercent)
}

// newBooking validates the input and builds a Pending/Unpaid booking.
func (s *BookingService) newBooking(in CreateBookingInput) (*models.Booking, error) {
	verr := &ValidationError{}
	required := map[string]string{
		"style":       in.Style,
		"length":      in.Length,
		"clientName":  in.ClientName,
		"clientPhone": in.ClientPhone,
		"clientEmail": in.ClientEmail,
		"date":        in.Date,
		"time":        in.Time,
		"method":      in.Method,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			verr.Add(field, "is required")
		}
	}

	phone, err := utils.NormalizePhone(in.ClientPhone, s.cfg.CountryCode)
	if err != nil && in.ClientPhone != "" {
		verr.Add("clientPhone", "is not a valid phone number")
	}
	if in.ClientEmail != "" && !utils.ValidEmail(in.ClientEmail) {
		verr.Add("clientEmail", "is not a valid email address")
	}
	if in.Price <= 0 {
		verr.Add("price", "must be greater than zero")
	}
	method := models.Method(strings.ToLower(in.Method))
	if in.Method != "" && !method.Valid() {
		verr.Add("method", "must be sms or whatsapp")
	}
	date, err := utils.NormalizeDate(in.Date)
	if err != nil && in.Date != "" {
		verr.Add("date", "is not a recognised date")
	}
	clock, err := utils.NormalizeTime(in.Time)
	if err != nil && in.Time != "" {
		verr.Add("time", "must be HH:mm")
	}
	if !verr.Empty() {
		return nil, verr
	}

	appointment, err := utils.ParseAppointment(date, clock, s.cfg.Location)
	if err != nil {
		verr.Add("date", err.Error())
		return nil, verr
	}

	return &models.Booking{
		ClientName:       strings.TrimSpace(in.ClientName),
		ClientPhone:      phone,
		ClientEmail:      strings.TrimSpace(in.ClientEmail),
		Style:            in.Style,
		Length:           in.Length,
		Price:            in.Price,
		TimeEstimate:     in.TimeEstimate,
		Date:             date,
		Time:             clock,
		Method:           method,
		Status:           models.StatusPending,
		PaymentStatus:    models.PaymentUnpaid,
		BalanceRemaining: in.Price,
		ReminderAt:       models.ReminderTime(appointment),
	}, nil
}

// Create persists a new booking and starts the deposit payment.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error) {
	booking, err := s.newBooking(in)
	if err != nil {
		return nil, err
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("save booking: %w", err)
	}
	metrics.BookingsCreated.Inc()

	deposit := s.deposit(booking.Price)
	auth, err := s.gateway.InitializeTransaction(ctx, gateway.InitializeRequest{
		Email:       booking.ClientEmail,
		Amount:      deposit,
		Currency:    s.cfg.Currency,
		Reference:   referencePrefix + shortuuid.New(),
		BookingID:   booking.ID,
		CallbackURL: s.cfg.CallbackURL,
	})
	if err != nil {
		s.log.Error("payment initialization failed", "bookingId", booking.ID, "provider", s.gateway.Name(), "error", err)
		return nil, fmt.Errorf("%w: initialize payment: %v", ErrUpstream, err)
	}

	// The authorization is already live at the gateway. Without a stored
	// reference the webhook matches on booking_id alone.
	if err := s.bookings.SetPaymentReference(ctx, booking.ID, auth.Reference); err != nil {
		s.log.Error("failed to save payment reference", "bookingId", booking.ID, "reference", auth.Reference, "error", err)
	} else {
		booking.PaymentReference = auth.Reference
	}

	s.publish(ctx, events.BookingCreated, events.BookingCreatedEvent{
		BookingID:  booking.ID,
		ClientName: booking.ClientName,
		Date:       booking.Date,
		Time:       booking.Time,
		Price:      booking.Price,
		Deposit:    deposit,
		Reference:  auth.Reference,
		OccurredAt: s.now().UTC(),
	})
	s.notifier.BookingCreated(ctx, booking)

	s.log.Info("booking created", "bookingId", booking.ID, "reference", auth.Reference)
	return &CreateBookingResult{
		BookingID:        booking.ID,
		AuthorizationURL: auth.AuthorizationURL,
		Reference:        auth.Reference,
		Deposit:          deposit,
	}, nil
}

// HandleWebhook authenticates a gateway callback and applies a successful
// charge. Redeliveries are no-ops.
func (s *BookingService) HandleWebhook(ctx context.Context, header http.Header, body []byte) (*WebhookResult, error) {
	event, err := s.gateway.ParseWebhook(header, body)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			metrics.WebhooksReceived.WithLabelValues("invalid_signature").Inc()
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		metrics.WebhooksReceived.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	tx := event.Transaction
	if !tx.Successful {
		metrics.WebhooksReceived.WithLabelValues("ignored").Inc()
		s.log.Debug("ignoring webhook event", "type", event.Type, "status", tx.Status)
		return &WebhookResult{Ignored: true}, nil
	}
	if tx.BookingID == "" {
		metrics.WebhooksReceived.WithLabelValues("missing_booking").Inc()
		return nil, ErrMissingBookingID
	}

	booking, err := s.bookings.FindByID(ctx, tx.BookingID)
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues("error").Inc()
		return nil, s.mapRepoError(err)
	}

	_, applied, err := s.applyPayment(ctx, booking, models.Payment{Reference: tx.Reference, Amount: tx.Amount}, SourceWebhook)
	if err != nil {
		label := "error"
		if errors.Is(err, ErrAmountMismatch) || errors.Is(err, ErrInvalidArgument) {
			label = "rejected"
		}
		metrics.WebhooksReceived.WithLabelValues(label).Inc()
		return nil, err
	}

	result := "duplicate"
	if applied {
		result = "applied"
	}
	metrics.WebhooksReceived.WithLabelValues(result).Inc()
	return &WebhookResult{BookingID: tx.BookingID, Applied: applied}, nil
}

// Verify confirms a client-reported payment with the gateway and applies it.
func (s *BookingService) Verify(ctx context.Context, bookingID, reference string) (*models.Booking, error) {
	if strings.TrimSpace(reference) == "" {
		verr := &ValidationError{}
		verr.Add("reference", "is required")
		return nil, verr
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, s.mapRepoError(err)
	}

	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: verify payment: %v", ErrUpstream, err)
	}
	if !tx.Successful {
		return nil, fmt.Errorf("%w: status %q", ErrPaymentNotSuccessful, tx.Status)
	}
	if tx.BookingID != "" && tx.BookingID != booking.ID {
		verr := &ValidationError{}
		verr.Add("reference", "belongs to a different booking")
		return nil, verr
	}

	updated, _, err := s.applyPayment(ctx, booking, models.Payment{Reference: tx.Reference, Amount: tx.Amount}, SourceVerify)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	return booking, nil
}

// checkPayment holds the first payment on a booking to the expected deposit
// and to the reference issued at intake. Once a deposit is recorded the
// forward-only rule in models.Booking.ApplyPayment decides.
func (s *BookingService) checkPayment(booking *models.Booking, payment models.Payment) error {
	if booking.PaymentStatus != models.PaymentUnpaid {
		return nil
	}
	if expected := s.deposit(booking.Price); payment.Amount < expected {
		return fmt.Errorf("%w: paid %.2f, expected %.2f", ErrAmountMismatch, payment.Amount, expected)
	}
	if booking.PaymentReference != "" && payment.Reference != booking.PaymentReference {
		verr := &ValidationError{}
		verr.Add("reference", "does not match the payment issued for this booking")
		return verr
	}
	return nil
}

// applyPayment is the single path from a confirmed gateway payment to the
// stored booking, shared by the webhook and verification.
func (s *BookingService) applyPayment(ctx context.Context, current *models.Booking, payment models.Payment, source string) (*models.Booking, bool, error) {
	bookingID := current.ID
	if err := s.checkPayment(current, payment); err != nil {
		s.log.Warn("payment rejected",
			"bookingId", bookingID,
			"reference", payment.Reference,
			"amount", payment.Amount,
			"source", source,
			"error", err,
		)
		return nil, false, err
	}

	booking, applied, err := s.bookings.ApplyPayment(ctx, bookingID, payment)
	if err != nil {
		return nil, false, s.mapRepoError(err)
	}
	if !applied {
		if booking.PaymentReference == payment.Reference {
			s.log.Info("payment already applied", "bookingId", bookingID, "reference", payment.Reference, "source", source)
		} else {
			s.log.Warn("payment not applied, it does not advance the payment status",
				"bookingId", bookingID,
				"reference", payment.Reference,
				"amount", payment.Amount,
				"paymentStatus", booking.PaymentStatus,
				"depositPaid", booking.DepositPaid,
				"source", source,
			)
		}
		return booking, false, nil
	}

	metrics.PaymentsApplied.WithLabelValues(source).Inc()
	s.log.Info("payment applied",
		"bookingId", bookingID,
		"reference", payment.Reference,
		"amount", payment.Amount,
		"paymentStatus", booking.PaymentStatus,
		"source", source,
	)

	s.publish(ctx, events.BookingPaid, events.BookingPaidEvent{
		BookingID:        booking.ID,
		Reference:        booking.PaymentReference,
		Source:           source,
		PaymentStatus:    string(booking.PaymentStatus),
		DepositPaid:      booking.DepositPaid,
		BalanceRemaining: booking.BalanceRemaining,
		OccurredAt:       s.now().UTC(),
	})
	s.notifier.PaymentConfirmed(ctx, booking)
	return booking, true, nil
}

func (s *BookingService) publish(ctx context.Context, key string, payload any) {
	if err := s.publisher.PublishJSON(ctx, key, payload); err != nil {
		s.log.Warn("event publish failed", "key", key, "error", err)
	}
}

func (s *BookingService) mapRepoError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("storage: %w", err)
}
