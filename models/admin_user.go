package models

import (
	"time"

	"salon-booking-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminUser struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id" bson:"_id"`
	Email     string     `gorm:"uniqueIndex;not null" json:"email" bson:"email"`
	Name      string     `json:"name" bson:"name"`
	Password  string     `gorm:"not null" json:"-" bson:"password"`
	IsAdmin   bool       `gorm:"default:false" json:"isAdmin" bson:"isAdmin"`
	LastLogin *time.Time `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
}

// BeforeCreate assigns an id and hashes the plain-text password.
func (u *AdminUser) BeforeCreate(tx *gorm.DB) (err error) {
	return u.Prepare()
}

// Prepare is the storage-agnostic part of BeforeCreate, used by stores
// that have no create hooks.
func (u *AdminUser) Prepare() error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if utils.IsPasswordHash(u.Password) {
		return nil
	}
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return nil
}
