package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const ReminderTypeFiveHour = "5-hour"

type ReminderStatus string

const (
	ReminderSent    ReminderStatus = "sent"
	ReminderFailed  ReminderStatus = "failed"
	ReminderExpired ReminderStatus = "expired"
)

type ReminderLog struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id" bson:"_id"`
	BookingID    string         `gorm:"type:varchar(36);index;not null" json:"bookingId" bson:"bookingId"`
	ClientName   string         `json:"clientName" bson:"clientName"`
	Phone        string         `json:"phone" bson:"phone"`
	Method       Method         `gorm:"type:varchar(20)" json:"method" bson:"method"`
	Channel      string         `gorm:"type:varchar(20)" json:"channel" bson:"channel"`
	Type         string         `gorm:"type:varchar(20)" json:"type" bson:"type"`
	Message      string         `gorm:"type:text" json:"message" bson:"message"`
	Status       ReminderStatus `gorm:"type:varchar(20)" json:"status" bson:"status"`
	ErrorMessage string         `gorm:"type:text" json:"errorMessage,omitempty" bson:"errorMessage,omitempty"`
	SentAt       time.Time      `json:"sentAt" bson:"sentAt"`
}

func (r *ReminderLog) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return
}
