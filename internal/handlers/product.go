package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/cache"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/httpx"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/services"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/validation"
)

type ProductHandler struct {
	DB    *gorm.DB
	Svc   *services.ProductService
	Cache *cache.ProductCache
}

func NewProductHandler(db *gorm.DB, svc *services.ProductService, c *cache.ProductCache) *ProductHandler {
	return &ProductHandler{DB: db, Svc: svc, Cache: c}
}

// flexCount tolerates the count arriving as a number, a numeric string, or
// garbage from older frontends; anything unparsable normalizes to 0 so the
// service only ever sees a validated integer.
type flexCount int

func (f *flexCount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		*f = 0
		return nil
	}
	*f = flexCount(n)
	return nil
}

// Create handles POST /products/create: find-or-create by SKU with stock
// accumulation on repeat submissions.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title      string    `json:"title"`
		SKU        string    `json:"sku"`
		Category   string    `json:"category"`
		Gender     string    `json:"gender"`
		Season     string    `json:"season"`
		Material   string    `json:"material"`
		MainImages []string  `json:"mainImages"`
		Price      float64   `json:"price"`
		Count      flexCount `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("sku", input.SKU, v)
	validation.Required("title", input.Title, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	res, err := h.Svc.Upsert(services.ProductInput{
		SKU:        input.SKU,
		Title:      input.Title,
		Category:   input.Category,
		Gender:     input.Gender,
		Season:     input.Season,
		Material:   input.Material,
		MainImages: input.MainImages,
		Price:      input.Price,
		Count:      int(input.Count),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSKUConflict):
			httpx.JSONError(w, http.StatusConflict, "sku_already_exists", nil)
		case errors.Is(err, services.ErrMissingSKU), errors.Is(err, services.ErrInvalidInput):
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "product_upsert_failed", nil)
		}
		return
	}
	h.Cache.Invalidate(r.Context())
	body := map[string]any{"product": res.Product}
	if res.Created {
		body["created"] = true
	} else {
		body["updated"] = true
	}
	httpx.JSON(w, http.StatusCreated, body)
}

// Check handles GET /products/check?sku=, the frontend's pre-submit dedupe.
func (h *ProductHandler) Check(w http.ResponseWriter, r *http.Request) {
	sku := r.URL.Query().Get("sku")
	if strings.TrimSpace(sku) == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_sku", nil)
		return
	}
	p, err := h.Svc.FindBySKU(sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "lookup_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product": p})
}

// List handles GET /products. The unfiltered first page is served from the
// Redis cache when available, falling back to the DB and repopulating
// asynchronously.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	pageSize := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			pageSize = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * pageSize
		}
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	cacheable := query == "" && offset == 0 && pageSize == 50
	if cacheable {
		if products, ok := h.Cache.GetList(r.Context()); ok {
			httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": int64(len(products)), "limit": pageSize, "offset": 0})
			return
		}
	}

	dbq := h.DB.Model(&models.Product{})
	if query != "" {
		safe := regexp.MustCompile(`[^a-zA-Z0-9 \-_]`).ReplaceAllString(query, "")
		like := "%" + strings.ToLower(safe) + "%"
		dbq = dbq.Where("lower(title) LIKE ? OR lower(sku) LIKE ? OR lower(category) LIKE ?", like, like, like)
	}
	var total int64
	dbq.Count(&total)
	var products []models.Product
	if err := dbq.Preload("Variants").Order("id desc").Limit(pageSize).Offset(offset).Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	if cacheable {
		h.Cache.SetListAsync(products)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": total, "limit": pageSize, "offset": offset})
}

// Update handles PUT /products/{id}: a direct admin edit outside the
// transactional core. Count edits here are absolute corrections.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var p models.Product
	if err := h.DB.First(&p, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var body struct {
		Title      *string   `json:"title"`
		Category   *string   `json:"category"`
		Gender     *string   `json:"gender"`
		Season     *string   `json:"season"`
		Material   *string   `json:"material"`
		MainImages *[]string `json:"mainImages"`
		Price      *float64  `json:"price"`
		Count      *int      `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if body.Title != nil {
		p.Title = *body.Title
	}
	if body.Category != nil {
		p.Category = *body.Category
	}
	if body.Gender != nil {
		p.Gender = *body.Gender
	}
	if body.Season != nil {
		p.Season = *body.Season
	}
	if body.Material != nil {
		p.Material = *body.Material
	}
	if body.MainImages != nil {
		p.MainImages = *body.MainImages
	}
	if body.Price != nil {
		p.Price = *body.Price
	}
	if body.Count != nil {
		if *body.Count < 0 {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"count": "must_not_be_negative"})
			return
		}
		p.Count = *body.Count
	}
	if err := h.DB.Save(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	h.Cache.Invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, p)
}

// Delete handles DELETE /products/{id} (soft delete).
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	h.Cache.Invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
