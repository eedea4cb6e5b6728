package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/auth"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/httpx"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/validation"
)

// ensureRole fetches or creates the named role.
func ensureRole(db *gorm.DB, name string) (*models.Role, error) {
	var role models.Role
	if err := db.Where("name = ?", name).First(&role).Error; err == nil {
		return &role, nil
	}
	role = models.Role{Name: name}
	if err := db.Create(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

type AuthHandler struct{ DB *gorm.DB }

func NewAuthHandler(db *gorm.DB) *AuthHandler { return &AuthHandler{DB: db} }

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /signup", h.signup)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /logout", h.logout)
}

// signup creates an operator account. The very first account becomes the
// owner with the admin role.
func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("phone", input.Phone, v)
	validation.Required("password", input.Password, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	phone := strings.TrimSpace(input.Phone)
	var existing int64
	h.DB.Model(&models.User{}).Where("phone = ?", phone).Count(&existing)
	if existing > 0 {
		httpx.JSONError(w, http.StatusConflict, "phone_already_registered", nil)
		return
	}
	var userCount int64
	h.DB.Model(&models.User{}).Count(&userCount)
	roleName := "operator"
	owner := false
	if userCount == 0 {
		roleName = "admin"
		owner = true
	}
	role, err := ensureRole(h.DB, roleName)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "signup_failed", nil)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "signup_failed", nil)
		return
	}
	user := models.User{Phone: phone, Password: string(hash), Name: strings.TrimSpace(input.Name), RoleID: role.ID, Owner: owner}
	if err := h.DB.Create(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "signup_failed", nil)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var user models.User
	if err := h.DB.Where("phone = ?", strings.TrimSpace(input.Phone)).First(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) logout(w http.ResponseWriter, _ *http.Request) {
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
