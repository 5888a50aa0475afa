package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Payment methods.
const (
	PaymentMethodOnline = "online"
	PaymentMethodCOD    = "cod"
)

// Payment statuses.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusCOD     = "cod"
	PaymentStatusFailed  = "failed"
)

// Order statuses.
const (
	StatusPlaced    = "placed"
	StatusConfirmed = "confirmed"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusPickedUp  = "picked_up"
	StatusCancelled = "cancelled"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID                  string     `bun:"id,pk" json:"id"`
	OrderNumber         string     `bun:"order_number,unique,notnull" json:"order_number"`
	StudentID           string     `bun:"student_id,notnull" json:"student_id"`
	VendorID            string     `bun:"vendor_id,notnull" json:"vendor_id"`
	TotalAmount         float64    `bun:"total_amount,notnull" json:"total_amount"`
	PaymentMethod       string     `bun:"payment_method,notnull" json:"payment_method"`
	PaymentStatus       string     `bun:"payment_status,notnull" json:"payment_status"`
	OrderStatus         string     `bun:"order_status,notnull" json:"order_status"`
	PickupTime          string     `bun:"pickup_time,notnull" json:"pickup_time"`
	SpecialInstructions string     `bun:"special_instructions,nullzero" json:"special_instructions,omitempty"`
	QRCodePath          string     `bun:"qr_code_path,nullzero" json:"qr_code_path,omitempty"`
	PaymentIntentID     string     `bun:"payment_intent_id,nullzero" json:"payment_intent_id,omitempty"`
	PaymentID           string     `bun:"payment_id,nullzero" json:"payment_id,omitempty"`
	CreatedAt           time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt           time.Time  `bun:"updated_at,nullzero" json:"updated_at"`
	PickedUpAt          *time.Time `bun:"picked_up_at" json:"picked_up_at,omitempty"`
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID         string `bun:"id,pk" json:"id"`
	OrderID    string `bun:"order_id,notnull" json:"order_id"`
	MenuItemID string `bun:"menu_item_id,notnull" json:"menu_item_id"`
	Quantity   int    `bun:"quantity,notnull" json:"quantity"`
	// Price is the unit price snapshotted at admission time. It is never
	// re-read from the live menu.
	Price float64 `bun:"price,notnull" json:"price"`
}

// OrderWithItems bundles an order and its line items for API responses.
type OrderWithItems struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}
