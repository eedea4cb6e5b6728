package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
)

// FindOrCreateClient deduplicates end clients by phone. A lost create race
// falls back to the find path, so concurrent placements for the same phone
// converge on one row.
func FindOrCreateClient(db *gorm.DB, phone, name string) (*models.Client, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrInvalidInput
	}
	var c models.Client
	err := db.Where("phone = ?", phone).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c = models.Client{Phone: phone, Name: strings.TrimSpace(name)}
	if err := db.Create(&c).Error; err != nil {
		if isDuplicateKey(err) {
			if err2 := db.Where("phone = ?", phone).First(&c).Error; err2 == nil {
				return &c, nil
			}
		}
		return nil, err
	}
	return &c, nil
}
