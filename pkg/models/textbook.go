package models

import (
	"time"
)

type Category struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:varchar(255)" json:"description,omitempty"`
	IsActive    bool      `gorm:"default:true;not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// Textbook is never hard-deleted while order items reference it; removal
// flips IsActive instead.
type Textbook struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CategoryID    string    `gorm:"type:varchar(36);not null;index" json:"category_id"`
	SchoolID      string    `gorm:"type:varchar(36);index" json:"school_id,omitempty"`
	Title         string    `gorm:"type:varchar(200);not null" json:"title"`
	Price         float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	StockQuantity int       `gorm:"not null;default:0" json:"stock_quantity"`
	GradeLevel    string    `gorm:"type:varchar(20)" json:"grade_level,omitempty"`
	Subject       string    `gorm:"type:varchar(50)" json:"subject,omitempty"`
	ImageURL      string    `gorm:"type:varchar(255)" json:"image_url,omitempty"`
	IsActive      bool      `gorm:"default:true;not null" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Textbook) TableName() string {
	return "textbooks"
}

func (t *Textbook) InStock(quantity int) bool {
	return t.StockQuantity >= quantity
}
