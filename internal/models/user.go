package models

import "time"

// User & auth related models
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Phone    string `gorm:"size:20;unique;not null;index" json:"phone"`
	Password string `gorm:"not null" json:"-"` // bcrypt hash
	Name     string `gorm:"index" json:"name"`
	RoleID   uint   `json:"roleId"`
	Role     Role   `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Owner    bool   `json:"owner"`
	// Telegram chat linkage for the notification side-channel; 0 = unlinked.
	TelegramChatID int64     `gorm:"index" json:"telegramChatId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"unique;not null" json:"name"` // admin, operator
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Notification is the persisted delivery record for the bot side-channel.
// Rows are written best-effort, one per linked recipient; the transport that
// drains them lives outside this service.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Kind      string    `gorm:"size:40;not null;index" json:"kind"` // order_created, order_cancelled, product_changed
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	SentAt    time.Time `json:"sentAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
