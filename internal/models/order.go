package models

import "time"

// Order references the operator who placed it (Customer) and optionally an
// end client. Cancellation deletes the row and restores stock; it is not a
// status transition, so Status stays an opaque label.
type Order struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Number     string `gorm:"size:36;not null;uniqueIndex" json:"number"`
	CustomerID uint   `gorm:"not null;index" json:"customerId"`
	Customer   User   `gorm:"foreignKey:CustomerID" json:"-"`
	// Nil when the order was placed without an end client (NoClient).
	ClientID *uint       `gorm:"index" json:"clientId"`
	Client   *Client     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	NoClient bool        `json:"noClient"`
	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"products"`
	// Sum of item price*quantity, fixed at creation time.
	Total  float64 `gorm:"not null" json:"total"`
	Status string  `json:"status"`
	Paid   bool    `json:"paid"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrderItem snapshots the price at order time so historical totals survive
// later product price edits. Color/Size select a variant sub-stock on the
// update path; both empty means the item ran against the top-level count.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	OrderID   uint    `gorm:"not null;index" json:"-"`
	ProductID uint    `gorm:"not null" json:"product"`
	Product   Product `gorm:"foreignKey:ProductID" json:"-"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	Price     float64 `gorm:"not null" json:"price"`
	Color     string  `gorm:"size:40" json:"color,omitempty"`
	Size      string  `gorm:"size:20" json:"size,omitempty"`
}
