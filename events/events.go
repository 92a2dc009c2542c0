package events

import (
	"context"
	"time"
)

const (
	BookingCreated = "booking.created"
	BookingPaid    = "booking.paid"
	ReminderSent   = "reminder.sent"
)

// Publisher emits domain events keyed by routing key.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

type BookingCreatedEvent struct {
	BookingID  string    `json:"bookingId"`
	ClientName string    `json:"clientName"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Price      float64   `json:"price"`
	Deposit    float64   `json:"deposit"`
	Reference  string    `json:"reference"`
	OccurredAt time.Time `json:"occurredAt"`
}

type BookingPaidEvent struct {
	BookingID        string    `json:"bookingId"`
	Reference        string    `json:"reference"`
	Source           string    `json:"source"`
	PaymentStatus    string    `json:"paymentStatus"`
	DepositPaid      float64   `json:"depositPaid"`
	BalanceRemaining float64   `json:"balanceRemaining"`
	OccurredAt       time.Time `json:"occurredAt"`
}

type ReminderSentEvent struct {
	BookingID  string    `json:"bookingId"`
	Channel    string    `json:"channel"`
	MessageSID string    `json:"messageSid"`
	OccurredAt time.Time `json:"occurredAt"`
}
