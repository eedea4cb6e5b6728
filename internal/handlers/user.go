package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/auth"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/httpx"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
)

type UserHandler struct{ DB *gorm.DB }

func NewUserHandler(db *gorm.DB) *UserHandler { return &UserHandler{DB: db} }

// requireAdmin loads the requesting user and checks the owner flag or admin role.
func (h *UserHandler) requireAdmin(r *http.Request) bool {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return false
	}
	var user models.User
	if err := h.DB.Preload("Role").First(&user, uid).Error; err != nil {
		return false
	}
	return user.Owner || user.Role.Name == "admin"
}

// List handles GET /users (admin only).
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(r) {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	var users []models.User
	if err := h.DB.Preload("Role").Order("id asc").Find(&users).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_users", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": users})
}

// Update handles PUT /users/{id}: role, owner flag and Telegram linkage.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(r) {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	id, _ := strconv.Atoi(r.PathValue("id"))
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_user", nil)
		return
	}
	var body struct {
		Name           *string `json:"name"`
		RoleID         *uint   `json:"roleId"`
		Owner          *bool   `json:"owner"`
		TelegramChatID *int64  `json:"telegramChatId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if body.Name != nil {
		user.Name = *body.Name
	}
	if body.RoleID != nil {
		var role models.Role
		if err := h.DB.First(&role, *body.RoleID).Error; err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "unknown_role", nil)
			return
		}
		user.RoleID = role.ID
	}
	if body.Owner != nil {
		user.Owner = *body.Owner
	}
	if body.TelegramChatID != nil {
		user.TelegramChatID = *body.TelegramChatID
	}
	if err := h.DB.Save(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
