package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	StatusPending  BookingStatus = "Pending"
	StatusAccepted BookingStatus = "Accepted"
)

type PaymentStatus string

const (
	PaymentUnpaid      PaymentStatus = "Unpaid"
	PaymentDepositPaid PaymentStatus = "Deposit Paid"
	PaymentFullyPaid   PaymentStatus = "Fully Paid"
)

// rank orders payment statuses so they only ever move forward.
func (p PaymentStatus) rank() int {
	switch p {
	case PaymentDepositPaid:
		return 1
	case PaymentFullyPaid:
		return 2
	default:
		return 0
	}
}

type Method string

const (
	MethodSMS      Method = "sms"
	MethodWhatsApp Method = "whatsapp"
)

func (m Method) Valid() bool {
	return m == MethodSMS || m == MethodWhatsApp
}

// ReminderLead is how long before the appointment the reminder goes out.
const ReminderLead = 5 * time.Hour

type Booking struct {
	ID               string        `gorm:"type:varchar(36);primaryKey" json:"id" bson:"_id"`
	ClientName       string        `gorm:"not null" json:"clientName" bson:"clientName"`
	ClientPhone      string        `gorm:"not null" json:"clientPhone" bson:"clientPhone"`
	ClientEmail      string        `gorm:"not null" json:"clientEmail" bson:"clientEmail"`
	Style            string        `json:"style" bson:"style"`
	Length           string        `json:"length" bson:"length"`
	Price            float64       `json:"price" bson:"price"`
	TimeEstimate     string        `json:"timeEstimate,omitempty" bson:"timeEstimate,omitempty"`
	Date             string        `gorm:"type:varchar(32);index" json:"date" bson:"date"`
	Time             string        `gorm:"type:varchar(16)" json:"time" bson:"time"`
	Method           Method        `gorm:"type:varchar(20)" json:"method" bson:"method"`
	Status           BookingStatus `gorm:"type:varchar(20);index" json:"status" bson:"status"`
	PaymentStatus    PaymentStatus `gorm:"type:varchar(20)" json:"paymentStatus" bson:"paymentStatus"`
	DepositPaid      float64       `json:"depositPaid" bson:"depositPaid"`
	BalanceRemaining float64       `json:"balanceRemaining" bson:"balanceRemaining"`
	PaymentReference string        `gorm:"index" json:"paymentReference,omitempty" bson:"paymentReference,omitempty"`
	ReminderAt       time.Time     `gorm:"index" json:"reminderAt" bson:"reminderAt"`
	ReminderSent     bool          `gorm:"default:false" json:"reminderSent" bson:"reminderSent"`
	CreatedAt        time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt" bson:"updatedAt"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return
}

// Payment is a confirmed amount received from the gateway.
type Payment struct {
	Reference string
	Amount    float64
}

// ApplyPayment folds p into the booking and reports whether anything changed.
// Redelivered payments and payments that would not advance the status are no-ops.
func (b *Booking) ApplyPayment(p Payment) bool {
	if b.PaymentStatus == PaymentFullyPaid {
		return false
	}
	if b.PaymentStatus == PaymentDepositPaid && p.Reference != "" && p.Reference == b.PaymentReference {
		return false
	}

	total := b.DepositPaid + p.Amount
	next := PaymentDepositPaid
	if total >= b.Price {
		next = PaymentFullyPaid
	}
	if next.rank() <= b.PaymentStatus.rank() {
		return false
	}

	b.PaymentStatus = next
	b.DepositPaid = total
	b.BalanceRemaining = b.Price - total
	if b.BalanceRemaining < 0 {
		b.BalanceRemaining = 0
	}
	b.PaymentReference = p.Reference
	b.Status = StatusAccepted
	return true
}

// ReminderDue reports whether the booking should be picked up by a sweep at now.
func (b *Booking) ReminderDue(now time.Time) bool {
	return b.Status == StatusAccepted && !b.ReminderSent && !b.ReminderAt.After(now)
}

// FormatFix is a pending rewrite of a booking's date and time.
type FormatFix struct {
	BookingID  string
	Date       string
	Time       string
	ReminderAt time.Time
}

func ReminderTime(appointment time.Time) time.Time {
	return appointment.Add(-ReminderLead)
}
