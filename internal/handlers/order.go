package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/cache"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/httpx"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/services"
)

type OrderHandler struct {
	DB    *gorm.DB
	Svc   *services.OrderService
	Cache *cache.ProductCache
}

func NewOrderHandler(db *gorm.DB, svc *services.OrderService, c *cache.ProductCache) *OrderHandler {
	return &OrderHandler{DB: db, Svc: svc, Cache: c}
}

type lineReq struct {
	Product  uint     `json:"product"`
	Quantity int      `json:"quantity"`
	Price    *float64 `json:"price"`
	Color    string   `json:"color"`
	Size     string   `json:"size"`
}

func toLineInputs(items []lineReq) []services.LineInput {
	out := make([]services.LineInput, 0, len(items))
	for _, it := range items {
		out = append(out, services.LineInput{
			ProductID: it.Product,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Color:     it.Color,
			Size:      it.Size,
		})
	}
	return out
}

// writeOrderError maps service errors onto the stable status codes the
// frontend keys off.
func writeOrderError(w http.ResponseWriter, err error) {
	var stockErr *services.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		httpx.JSONError(w, http.StatusBadRequest, "insufficient_stock", map[string]any{
			"product":   stockErr.ProductID,
			"title":     stockErr.Title,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
	case errors.Is(err, services.ErrProductsNotFound):
		httpx.JSONError(w, http.StatusNotFound, "products_not_found", nil)
	case errors.Is(err, services.ErrVariantNotFound):
		httpx.JSONError(w, http.StatusNotFound, "variant_not_found", nil)
	case errors.Is(err, services.ErrClientNotFound):
		httpx.JSONError(w, http.StatusNotFound, "client_not_found", nil)
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
	case errors.Is(err, services.ErrInvalidInput):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "order_transaction_failed", nil)
	}
}

// Create handles POST /orders/new.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Customer uint `json:"customer"`
		ClientID uint `json:"clientId"`
		Client   *struct {
			Phone string `json:"phone"`
			Name  string `json:"name"`
		} `json:"client"`
		Products []lineReq `json:"products"`
		Status   string    `json:"status"`
		Paid     bool      `json:"paid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Customer == 0 || len(req.Products) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"customer": "required", "products": "required"})
		return
	}
	ref := services.ClientRef{ClientID: req.ClientID}
	if req.Client != nil {
		ref.Phone = req.Client.Phone
		ref.Name = req.Client.Name
	}
	order, err := h.Svc.Place(req.Customer, ref, toLineInputs(req.Products), req.Status, req.Paid)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	h.Cache.Invalidate(r.Context())
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": order})
}

// Cancel handles DELETE /orders/{id}: a compensating delete that restores stock.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Svc.Cancel(uint(id)); err != nil {
		writeOrderError(w, err)
		return
	}
	h.Cache.Invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{"cancelled": id})
}

// Update handles PUT /orders/{id}: status/paid patches and variant-aware
// item replacement.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req struct {
		Products *[]lineReq `json:"products"`
		Status   *string    `json:"status"`
		Paid     *bool      `json:"paid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	patch := services.OrderPatch{Status: req.Status, Paid: req.Paid}
	if req.Products != nil {
		items := toLineInputs(*req.Products)
		patch.Items = &items
	}
	order, err := h.Svc.Update(uint(id), patch)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	h.Cache.Invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{"data": order})
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	var total int64
	h.DB.Model(&models.Order{}).Count(&total)
	var orders []models.Order
	if err := h.DB.Preload("Items").Preload("Client").Order("id desc").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_orders", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": orders, "total": total, "limit": limit, "offset": offset})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var order models.Order
	if err := h.DB.Preload("Items").Preload("Client").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_order", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": order})
}
