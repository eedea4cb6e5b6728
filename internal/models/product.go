package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is keyed by SKU: repeated submissions of the same SKU accumulate
// stock instead of creating duplicates. Count never goes negative; the only
// sanctioned mutators are the order and product services.
type Product struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	SKU      string `gorm:"size:40;not null;uniqueIndex" json:"sku"`
	Title    string `gorm:"not null" json:"title"`
	Category string `gorm:"index" json:"category"`
	Gender   string `json:"gender"`
	Season   string `json:"season"`
	Material string `json:"material"`
	// Image URLs uploaded from the admin frontend.
	MainImages []string `gorm:"serializer:json" json:"mainImages"`
	Price      float64  `json:"price"`
	// Units currently in stock.
	Count int `gorm:"not null;default:0" json:"count"`
	// Cumulative units ever sold.
	Sold     int              `gorm:"not null;default:0" json:"sold"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ProductVariant is a color/size sub-stock within a product, used by the
// variant-aware order update path.
type ProductVariant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index:idx_variant_key,unique,priority:1" json:"productId"`
	Color     string    `gorm:"size:40;index:idx_variant_key,unique,priority:2" json:"color"`
	Size      string    `gorm:"size:20;index:idx_variant_key,unique,priority:3" json:"size"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
