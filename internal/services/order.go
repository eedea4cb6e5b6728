package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/notify"
)

// OrderService is the sole path through which stock moves. Every placement,
// cancellation and update runs inside one DB transaction: either the order
// record and all its stock effects commit together, or nothing does.
type OrderService struct {
	DB       *gorm.DB
	Notifier notify.Notifier
}

func NewOrderService(db *gorm.DB, notifier notify.Notifier) *OrderService {
	return &OrderService{DB: db, Notifier: notifier}
}

// ClientRef selects at most one of: an existing client id, an inline
// phone+name payload, or neither (anonymous order).
type ClientRef struct {
	ClientID uint
	Phone    string
	Name     string
}

// LineInput is one requested order line. Price nil means "snapshot the
// product's current price". Color/Size address a variant sub-stock on the
// update path.
type LineInput struct {
	ProductID uint
	Quantity  int
	Price     *float64
	Color     string
	Size      string
}

// OrderPatch carries the updatable order fields. Nil fields are untouched.
type OrderPatch struct {
	Items  *[]LineInput
	Status *string
	Paid   *bool
}

func validateItems(items []LineInput) error {
	if len(items) == 0 {
		return ErrInvalidInput
	}
	for _, it := range items {
		if it.ProductID == 0 || it.Quantity <= 0 {
			return ErrInvalidInput
		}
	}
	return nil
}

// Place atomically validates stock, decrements product counts and creates the
// order. No product row is left partially decremented on any failure.
func (s *OrderService) Place(customerID uint, client ClientRef, items []LineInput, status string, paid bool) (*models.Order, error) {
	if customerID == 0 {
		return nil, ErrInvalidInput
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	// Client resolution runs before the stock transaction: find-or-create by
	// phone is idempotent, so a benign race here is acceptable and keeping it
	// outside lets the duplicate fallback re-read after a failed insert.
	var clientID *uint
	noClient := false
	switch {
	case client.ClientID != 0:
		var c models.Client
		if err := s.DB.First(&c, client.ClientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrClientNotFound
			}
			return nil, err
		}
		clientID = &c.ID
	case client.Phone != "":
		c, err := FindOrCreateClient(s.DB, client.Phone, client.Name)
		if err != nil {
			return nil, err
		}
		clientID = &c.ID
	default:
		noClient = true
	}

	var order models.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		byID, err := loadProducts(tx, items)
		if err != nil {
			return err
		}

		// Validate every line against the in-transaction snapshot first so the
		// error names the offending product, then apply guarded relative
		// decrements so a concurrent winner still cannot push stock negative.
		total := 0.0
		delta := map[uint]int{}
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			p := byID[it.ProductID]
			price := p.Price
			if it.Price != nil {
				price = *it.Price
			}
			if p.Count < it.Quantity {
				return &InsufficientStockError{ProductID: p.ID, Title: p.Title, Requested: it.Quantity, Available: p.Count}
			}
			p.Count -= it.Quantity
			delta[p.ID] += it.Quantity
			total += price * float64(it.Quantity)
			orderItems = append(orderItems, models.OrderItem{
				ProductID: p.ID,
				Quantity:  it.Quantity,
				Price:     price,
				Color:     it.Color,
				Size:      it.Size,
			})
		}
		for id, d := range delta {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND count >= ?", id, d).
				Updates(map[string]any{
					"count": gorm.Expr("count - ?", d),
					"sold":  gorm.Expr("sold + ?", d),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				p := byID[id]
				return &InsufficientStockError{ProductID: id, Title: p.Title, Requested: d, Available: p.Count}
			}
		}

		order = models.Order{
			Number:     uuid.NewString(),
			CustomerID: customerID,
			ClientID:   clientID,
			NoClient:   noClient,
			Items:      orderItems,
			Total:      total,
			Status:     status,
			Paid:       paid,
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}

	notify.Dispatch(s.Notifier, notify.NewEvent(
		notify.KindOrderCreated,
		fmt.Sprintf("Order %s", order.Number),
		fmt.Sprintf("items=%d total=%.2f status=%s", len(order.Items), order.Total, order.Status),
	))
	return &order, nil
}

// Cancel reverses the order's stock effect and deletes the record, as one
// unit: the order survives if stock restoration fails, and vice versa.
func (s *OrderService) Cancel(orderID uint) error {
	var number string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.Preload("Items").First(&o, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		number = o.Number
		for _, it := range o.Items {
			if err := restoreStock(tx, it); err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&o).Error
	})
	if err != nil {
		return err
	}

	notify.Dispatch(s.Notifier, notify.NewEvent(
		notify.KindOrderCancelled,
		fmt.Sprintf("Order %s", number),
		"order cancelled, stock restored",
	))
	return nil
}

// Update patches status/paid and, when new items are given, replaces the line
// items: the old items' stock effect is fully reversed before the new items
// are validated and applied, all inside one transaction.
func (s *OrderService) Update(orderID uint, patch OrderPatch) (*models.Order, error) {
	var out models.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.Preload("Items").First(&o, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if patch.Items != nil {
			newItems := *patch.Items
			if err := validateItems(newItems); err != nil {
				return err
			}
			for _, it := range o.Items {
				if err := restoreStock(tx, it); err != nil {
					return err
				}
			}
			byID, err := loadProducts(tx, newItems)
			if err != nil {
				return err
			}
			total := 0.0
			replacement := make([]models.OrderItem, 0, len(newItems))
			for _, in := range newItems {
				p := byID[in.ProductID]
				price := p.Price
				if in.Price != nil {
					price = *in.Price
				}
				item := models.OrderItem{
					OrderID:   o.ID,
					ProductID: in.ProductID,
					Quantity:  in.Quantity,
					Price:     price,
					Color:     in.Color,
					Size:      in.Size,
				}
				if err := takeStock(tx, item, p); err != nil {
					return err
				}
				total += price * float64(in.Quantity)
				replacement = append(replacement, item)
			}
			if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderItem{}).Error; err != nil {
				return err
			}
			if err := tx.Create(&replacement).Error; err != nil {
				return err
			}
			o.Items = replacement
			o.Total = total
		}
		if patch.Status != nil {
			o.Status = *patch.Status
		}
		if patch.Paid != nil {
			o.Paid = *patch.Paid
		}
		if err := tx.Omit("Items").Save(&o).Error; err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// loadProducts batch-reads every referenced product inside the transaction
// and fails the whole operation when any id is missing.
func loadProducts(tx *gorm.DB, items []LineInput) (map[uint]*models.Product, error) {
	ids := make([]uint, 0, len(items))
	seen := map[uint]bool{}
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	if len(products) != len(ids) {
		return nil, ErrProductsNotFound
	}
	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}

// restoreStock reverses one line item's effect: variant-keyed items return
// quantity to the variant sub-stock, plain items to the product count and
// sold counters. A vanished variant row fails the transaction rather than
// swallowing the quantity.
func restoreStock(tx *gorm.DB, it models.OrderItem) error {
	if it.Color != "" || it.Size != "" {
		res := tx.Model(&models.ProductVariant{}).
			Where("product_id = ? AND color = ? AND size = ?", it.ProductID, it.Color, it.Size).
			UpdateColumn("count", gorm.Expr("count + ?", it.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVariantNotFound
		}
		return nil
	}
	// sold is floored at 0 so inconsistent historical data can never drive
	// it negative.
	return tx.Model(&models.Product{}).Where("id = ?", it.ProductID).
		Updates(map[string]any{
			"count": gorm.Expr("count + ?", it.Quantity),
			"sold":  gorm.Expr("CASE WHEN sold >= ? THEN sold - ? ELSE 0 END", it.Quantity, it.Quantity),
		}).Error
}

// takeStock applies one line item's decrement with a stock guard; zero rows
// affected means the variant or product lacks the quantity.
func takeStock(tx *gorm.DB, it models.OrderItem, p *models.Product) error {
	if it.Color != "" || it.Size != "" {
		var v models.ProductVariant
		err := tx.Where("product_id = ? AND color = ? AND size = ?", it.ProductID, it.Color, it.Size).First(&v).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVariantNotFound
			}
			return err
		}
		res := tx.Model(&models.ProductVariant{}).
			Where("id = ? AND count >= ?", v.ID, it.Quantity).
			UpdateColumn("count", gorm.Expr("count - ?", it.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InsufficientStockError{ProductID: p.ID, Title: p.Title, Requested: it.Quantity, Available: v.Count}
		}
		return nil
	}
	res := tx.Model(&models.Product{}).
		Where("id = ? AND count >= ?", it.ProductID, it.Quantity).
		Updates(map[string]any{
			"count": gorm.Expr("count - ?", it.Quantity),
			"sold":  gorm.Expr("sold + ?", it.Quantity),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &InsufficientStockError{ProductID: p.ID, Title: p.Title, Requested: it.Quantity, Available: p.Count}
	}
	return nil
}
