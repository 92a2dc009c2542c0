package services

import (
	"context"
	"fmt"
	"strings"

	"salon-booking-backend/gateway"
	"salon-booking-backend/logger"
	"salon-booking-backend/models"
	"salon-booking-backend/utils"
)

// NotificationService formats and sends client and admin messages.
// Send failures are logged and returned, never retried here.
type NotificationService struct {
	messenger   gateway.Messenger
	adminNumber string
	countryCode string
	log         logger.Logger
}

func NewNotificationService(messenger gateway.Messenger, adminNumber, countryCode string, log logger.Logger) *NotificationService {
	return &NotificationService{
		messenger:   messenger,
		adminNumber: adminNumber,
		countryCode: countryCode,
		log:         log.With("component", "notifications"),
	}
}

func bookingSummary(b *models.Booking) string {
	return fmt.Sprintf("📢 NEW BOOKING\n👤 %s\n💇 %s (%s)\n📅 %s @ %s\n💰 R%.2f",
		b.ClientName, b.Style, b.Length, b.Date, b.Time, b.Price)
}

func reminderMessage(b *models.Booking) string {
	return fmt.Sprintf("⏰ Reminder:\nHi %s,\nYour %s appointment is in 5 hours.\n📅 %s\n🕒 %s",
		b.ClientName, b.Style, b.Date, b.Time)
}

func paymentMessage(b *models.Booking) string {
	if b.PaymentStatus == models.PaymentFullyPaid {
		return fmt.Sprintf("💳 Payment received for %s on %s. You are fully paid. Thank you!", b.Style, b.Date)
	}
	return fmt.Sprintf("💳 Deposit received for %s on %s. Balance due: R%.2f. Thank you!",
		b.Style, b.Date, b.BalanceRemaining)
}

// BookingCreated alerts the admin over WhatsApp and acknowledges the client
// over their chosen method.
func (n *NotificationService) BookingCreated(ctx context.Context, b *models.Booking) {
	summary := bookingSummary(b)

	if n.adminNumber != "" {
		if _, err := n.messenger.Send(ctx, gateway.ChannelWhatsApp, n.adminNumber, summary); err != nil {
			n.log.Warn("admin booking alert failed", "bookingId", b.ID, "error", err)
		}
	}

	if _, err := n.messenger.Send(ctx, string(b.Method), b.ClientPhone, "✅ Booking received!\n"+summary); err != nil {
		n.log.Warn("client booking acknowledgement failed", "bookingId", b.ID, "error", err)
	}
}

func (n *NotificationService) PaymentConfirmed(ctx context.Context, b *models.Booking) {
	if _, err := n.messenger.Send(ctx, string(b.Method), b.ClientPhone, paymentMessage(b)); err != nil {
		n.log.Warn("payment confirmation failed", "bookingId", b.ID, "error", err)
	}
}

// SendReminder returns the message text alongside the provider id so the
// caller can log the attempt either way.
func (n *NotificationService) SendReminder(ctx context.Context, b *models.Booking) (message, sid string, err error) {
	message = reminderMessage(b)
	sid, err = n.messenger.Send(ctx, string(b.Method), b.ClientPhone, message)
	return message, sid, err
}

// Relay sends an ad-hoc message. channel defaults to sms.
func (n *NotificationService) Relay(ctx context.Context, channel, phone, message string) (string, error) {
	verr := &ValidationError{}
	if channel == "" {
		channel = gateway.ChannelSMS
	}
	if !models.Method(channel).Valid() {
		verr.Add("channel", "must be sms or whatsapp")
	}
	if strings.TrimSpace(message) == "" {
		verr.Add("message", "is required")
	}
	normalized, err := utils.NormalizePhone(phone, n.countryCode)
	if err != nil {
		verr.Add("phone", "is not a valid phone number")
	}
	if !verr.Empty() {
		return "", verr
	}

	sid, err := n.messenger.Send(ctx, channel, normalized, message)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return sid, nil
}
