package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/httpx"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/services"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/validation"
)

type ClientHandler struct {
	DB *gorm.DB
}

func NewClientHandler(db *gorm.DB) *ClientHandler { return &ClientHandler{DB: db} }

// List handles GET /clients with optional phone/name filtering.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
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
	dbq := h.DB.Model(&models.Client{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		safe := regexp.MustCompile(`[^a-zA-Z0-9 +\-_]`).ReplaceAllString(q, "")
		like := "%" + strings.ToLower(safe) + "%"
		dbq = dbq.Where("phone LIKE ? OR lower(name) LIKE ?", like, like)
	}
	var total int64
	dbq.Count(&total)
	var clients []models.Client
	if err := dbq.Order("id desc").Limit(limit).Offset(offset).Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_clients", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": clients, "total": total, "limit": limit, "offset": offset})
}

// Create handles POST /clients: find-or-create by phone, so re-submitting a
// known phone returns the existing record.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Phone string `json:"phone"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("phone", input.Phone, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	c, err := services.FindOrCreateClient(h.DB, input.Phone, input.Name)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "client_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}
