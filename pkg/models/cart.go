package models

import (
	"time"
)

// CartItem holds one (identity, textbook) line. The unique index makes
// add-to-cart increment the existing line instead of duplicating it.
type CartItem struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	IdentityID string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_cart_identity_textbook" json:"identity_id"`
	TextbookID string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_cart_identity_textbook" json:"textbook_id"`
	Quantity   int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
