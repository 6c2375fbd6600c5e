package models

import (
	"time"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
	RoleSchool  = "school"
)

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SchoolID     string    `gorm:"type:varchar(36);not null;index" json:"school_id"`
	Username     string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         string    `gorm:"type:varchar(20);default:'student';not null" json:"role"`
	Grade        string    `gorm:"type:varchar(20)" json:"grade,omitempty"`
	ClassName    string    `gorm:"type:varchar(20)" json:"class_name,omitempty"`
	IsActive     bool      `gorm:"default:true;not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
