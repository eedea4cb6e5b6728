package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/notify"
)

func setupRouter(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.Client{}, &models.Product{}, &models.ProductVariant{}, &models.Order{}, &models.OrderItem{}, &models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db, nil, notify.NopNotifier{}), db
}

func TestHealthEndpoints(t *testing.T) {
	handler, _ := setupRouter(t)

	for _, path := range []string{"/health", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, w.Code)
		}
	}
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	handler, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestSignupLoginAndProductFlow(t *testing.T) {
	handler, db := setupRouter(t)

	// First signup becomes the owner/admin.
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"phone":"+998901112233","password":"secret123","name":"Boss"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201 got %d: %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("signup set no session cookie")
	}
	var owner models.User
	db.Preload("Role").First(&owner)
	if !owner.Owner || owner.Role.Name != "admin" {
		t.Fatalf("first user is not owner/admin: %+v", owner)
	}

	// Create a product with the session.
	req2 := httptest.NewRequest(http.MethodPost, "/products/create", strings.NewReader(`{"title":"Loafer","sku":"RT000001","count":4}`))
	req2.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req2.AddCookie(c)
	}
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)
	if w2.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d: %s", w2.Code, w2.Body.String())
	}

	// Place an order through the router and verify the decrement.
	var product models.Product
	db.Where("sku = ?", "RT000001").First(&product)
	body := `{"customer":1,"products":[{"product":` + strconv.Itoa(int(product.ID)) + `,"quantity":2,"price":50}],"status":"new"}`
	req3 := httptest.NewRequest(http.MethodPost, "/orders/new", strings.NewReader(body))
	req3.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req3.AddCookie(c)
	}
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, req3)
	if w3.Code != http.StatusCreated {
		t.Fatalf("order: expected 201 got %d: %s", w3.Code, w3.Body.String())
	}
	var payload struct {
		Data models.Order `json:"data"`
	}
	if err := json.Unmarshal(w3.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data.Total != 100 {
		t.Fatalf("expected total 100 got %v", payload.Data.Total)
	}
	var got models.Product
	db.First(&got, product.ID)
	if got.Count != 2 {
		t.Fatalf("expected count 2 got %d", got.Count)
	}

	// Bad credentials stay out.
	req4 := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"phone":"+998901112233","password":"wrong"}`))
	req4.Header.Set("Content-Type", "application/json")
	w4 := httptest.NewRecorder()
	handler.ServeHTTP(w4, req4)
	if w4.Code != http.StatusUnauthorized {
		t.Fatalf("login: expected 401 got %d", w4.Code)
	}
}
