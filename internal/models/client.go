package models

import "time"

// Client is an end customer looked up or created by phone during order
// placement. Phone is the dedupe key.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Phone     string    `gorm:"size:20;not null;uniqueIndex" json:"phone"`
	Name      string    `gorm:"index" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
