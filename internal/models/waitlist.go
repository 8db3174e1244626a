package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WaitlistEntry is one signup. Email is the business key and is unique.
type WaitlistEntry struct {
	ID              string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string    `gorm:"not null;uniqueIndex:waitlist_email_key" json:"email"`
	CompletedSignup bool      `gorm:"not null" json:"completed_signup"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (WaitlistEntry) TableName() string {
	return "waitlist"
}

func (e *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
