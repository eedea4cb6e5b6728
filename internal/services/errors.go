package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrInvalidInput covers malformed service input: empty item lists,
	// non-positive quantities, missing customer, negative counts.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingSKU is returned when a product payload carries no SKU and no
	// generator is configured.
	ErrMissingSKU = errors.New("sku is required")
	// ErrSKUConflict signals a duplicate-key race on product creation.
	ErrSKUConflict = errors.New("sku already exists")
	// ErrProductsNotFound is returned when an order references at least one
	// unknown product id.
	ErrProductsNotFound = errors.New("some products not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrClientNotFound   = errors.New("client not found")
	ErrVariantNotFound  = errors.New("product variant not found")
)

// InsufficientStockError names the first product whose stock cannot cover the
// requested quantity. The whole operation rolls back when it is returned.
type InsufficientStockError struct {
	ProductID uint
	Title     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (%s): requested %d, available %d",
		e.ProductID, e.Title, e.Requested, e.Available)
}

// isDuplicateKey reports whether err is a unique-constraint violation. GORM
// only translates some driver errors, so fall back to message sniffing the
// way the product create path always has.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
