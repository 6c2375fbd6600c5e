package models

import (
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions encodes pending -> processing -> shipped -> completed,
// with cancellation allowed only before shipment.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusCompleted},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0 && s.Valid()
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID              string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	IdentityID      string      `gorm:"type:varchar(36);not null;index" json:"identity_id"`
	SchoolID        string      `gorm:"type:varchar(36);index" json:"school_id,omitempty"`
	TotalAmount     float64     `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status          OrderStatus `gorm:"type:varchar(20);default:'pending';not null;index" json:"status"`
	ShippingAddress string      `gorm:"type:varchar(255)" json:"shipping_address,omitempty"`
	Notes           string      `gorm:"type:varchar(500)" json:"notes,omitempty"`
	PaymentMethod   string      `gorm:"type:varchar(50)" json:"payment_method,omitempty"`
	PaymentStatus   string      `gorm:"type:varchar(20);default:'pending'" json:"payment_status"`
	CancelReason    string      `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	OrderedAt       time.Time   `json:"ordered_at"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	// Items are exclusively owned by the order and deleted with it.
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem snapshots title and unit price at purchase time; later catalog
// price changes never touch committed lines.
type OrderItem struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID    string    `gorm:"type:varchar(36);not null;index" json:"order_id"`
	TextbookID string    `gorm:"type:varchar(36);not null;index" json:"textbook_id"`
	Title      string    `gorm:"type:varchar(200);not null" json:"title"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	UnitPrice  float64   `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	TotalPrice float64   `gorm:"type:decimal(10,2);not null" json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
