package models

import (
	"time"
)

type School struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name       string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"name"`
	Prefecture string    `gorm:"type:varchar(50);not null" json:"prefecture"`
	City       string    `gorm:"type:varchar(50);not null" json:"city"`
	Address    string    `gorm:"type:varchar(200)" json:"address,omitempty"`
	Phone      string    `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Email      string    `gorm:"type:varchar(120)" json:"email,omitempty"`
	IsActive   bool      `gorm:"default:true;not null" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (School) TableName() string {
	return "schools"
}

// SchoolAuth is the shared login credential for a school account.
type SchoolAuth struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SchoolID     string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"school_id"`
	LoginID      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"login_id"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	IsActive     bool      `gorm:"default:true;not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (SchoolAuth) TableName() string {
	return "school_auths"
}
