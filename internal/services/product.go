package services

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/notify"
)

// ProductService owns the upsert path: exactly one product per SKU, with
// repeated submissions accumulating stock instead of duplicating rows.
type ProductService struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	// GenerateSKU supplies a SKU when the payload has none. Injected so the
	// find-or-create logic stays deterministic under test.
	GenerateSKU func() string
}

func NewProductService(db *gorm.DB, notifier notify.Notifier) *ProductService {
	return &ProductService{DB: db, Notifier: notifier, GenerateSKU: DefaultSKUGenerator}
}

// DefaultSKUGenerator produces two random uppercase letters followed by six digits.
func DefaultSKUGenerator() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return fmt.Sprintf("%c%c%06d", letters[rand.IntN(26)], letters[rand.IntN(26)], rand.IntN(1000000))
}

type ProductInput struct {
	SKU        string
	Title      string
	Category   string
	Gender     string
	Season     string
	Material   string
	MainImages []string
	Price      float64
	// Units being added to stock. Zero is a valid catalog-only submission.
	Count int
}

type UpsertResult struct {
	Created bool
	Updated bool
	Product *models.Product
}

// Upsert finds the product by exact SKU and adds the incoming count, or
// creates it when the SKU is new. Two concurrent creates for a brand-new SKU
// resolve to one winner and one ErrSKUConflict via the unique index.
func (s *ProductService) Upsert(in ProductInput) (*UpsertResult, error) {
	sku := strings.ToUpper(strings.TrimSpace(in.SKU))
	if sku == "" {
		if s.GenerateSKU == nil {
			return nil, ErrMissingSKU
		}
		sku = s.GenerateSKU()
	}
	if in.Count < 0 {
		return nil, ErrInvalidInput
	}

	res := &UpsertResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Product
		err := tx.Where("sku = ?", sku).First(&p).Error
		switch {
		case err == nil:
			// Restock: accumulate as a relative adjustment, never an overwrite.
			if err := tx.Model(&p).UpdateColumn("count", gorm.Expr("count + ?", in.Count)).Error; err != nil {
				return err
			}
			p.Count += in.Count
			res.Updated = true
			res.Product = &p
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			p = models.Product{
				SKU:        sku,
				Title:      in.Title,
				Category:   in.Category,
				Gender:     in.Gender,
				Season:     in.Season,
				Material:   in.Material,
				MainImages: in.MainImages,
				Price:      in.Price,
				Count:      in.Count,
			}
			if err := tx.Create(&p).Error; err != nil {
				if isDuplicateKey(err) {
					return ErrSKUConflict
				}
				return err
			}
			res.Created = true
			res.Product = &p
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	p := res.Product
	notify.Dispatch(s.Notifier, notify.NewEvent(
		notify.KindProductChanged,
		p.Title,
		fmt.Sprintf("sku=%s category=%s images=%d total=%d added=%d", p.SKU, p.Category, len(p.MainImages), p.Count, in.Count),
	))
	return res, nil
}

// FindBySKU is the pre-submit dedupe lookup behind GET /products/check.
func (s *ProductService) FindBySKU(sku string) (*models.Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return nil, ErrMissingSKU
	}
	var p models.Product
	if err := s.DB.Where("sku = ?", sku).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
